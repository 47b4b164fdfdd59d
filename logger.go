package lumenray

import (
	"log/slog"

	"github.com/lumenray/lumenray/internal/rlog"
)

// SetLogger configures the logger used by lumenray and all its subpackages.
// By default, lumenray produces no log output. Call SetLogger to enable it.
//
// Log levels:
//   - [slog.LevelDebug]: per-kernel dispatch counts, buffer sizes, RNG seeds.
//   - [slog.LevelInfo]: pipeline lifecycle (device selected, scene materialized).
//   - [slog.LevelWarn]: recoverable scene warnings (out-of-shutter samples,
//     duplicate shutter points, unknown AOV components, missing built-in IOR).
//   - [slog.LevelError]: fatal load/parse failures, reported before returning.
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	rlog.Set(l)
}

// Logger returns the currently configured logger.
func Logger() *slog.Logger {
	return rlog.Get()
}
