// Package samplers implements spec §4.J's sampler plugins: Independent,
// PMJ02BN, and TileShared. All three wrap the PCG32/alias-table
// primitives of package rng (spec §4.C) rather than reimplementing RNG
// plumbing here.
//
// Grounded on _examples/original_source/src/samplers/tile_shared.cpp
// for TileShared's tile-mapping and jitter formulas; the pack retains
// no source for the other two plugins, so Independent follows directly
// from spec §4.J's "PCG32 streams keyed by (pixel, sample_index)"
// description, and PMJ02BN's construction is documented per-decision in
// DESIGN.md.
//
// The original's Sampler::Instance is a device-side object driven by a
// kernel scheduler (reset/start/save_state/load_state manage per-thread
// persistent state across kernel dispatches); that scheduler is the
// external device's job (spec §6), so this package models the same
// state machine as plain host-side method calls instead.
package samplers

import "github.com/lumenray/lumenray/vecmath"

// Sampler produces the 1D/2D sample streams an integrator consumes for
// a given pixel and sample index, plus the persistent per-thread state
// save/restore a wavefront scheduler needs between kernel stages.
type Sampler interface {
	// Reset is called once per render pass with the film resolution and
	// the number of concurrent sampler states the device will keep live.
	Reset(resolution [2]int, stateCount, spp int)
	// Start begins a new sample at pixel, the spp-th sample for that
	// pixel, resetting the per-thread dimension counter.
	Start(pixel [2]int, sampleIndex int)
	// Generate1D returns the next 1D stream value in [0, 1).
	Generate1D() float64
	// Generate2D returns the next 2D stream value in [0, 1)^2.
	Generate2D() vecmath.Vec2
	// GeneratePixel2D returns a 2D sample reserved for pixel-space jitter
	// (the filter's sub-pixel offset), kept separate from the general
	// stream so filter importance sampling doesn't perturb path sampling.
	GeneratePixel2D() vecmath.Vec2
	// SaveState/LoadState persist and restore a thread's position in its
	// sample stream across kernel-stage boundaries, keyed by an opaque
	// device-assigned state slot id.
	SaveState(stateID int)
	LoadState(stateID int)
}
