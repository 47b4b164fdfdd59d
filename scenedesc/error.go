package scenedesc

import "fmt"

// SourceError reports a scene-description problem located at a
// SourceLocation, the Go equivalent of the original's
// `LUISA_ERROR_WITH_LOCATION`-raised `std::runtime_error`: required
// properties missing or of the wrong kind are errors callers must
// handle, not panics.
type SourceError struct {
	Location SourceLocation
	Message  string
}

func (e *SourceError) Error() string {
	if e.Location.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Location.File, e.Location.Line, e.Location.Column, e.Message)
}
