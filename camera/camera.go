// Package camera implements spec §3's Camera data model: shutter span
// and weighting, and the shutter-sample bucket generation an integrator
// consumes to distribute spp across the exposure window. Concrete lens
// models (thin-lens, pinhole, etc.) and ray generation live outside this
// module's scope — spec §6 treats device kernel code as an external
// collaborator; this package owns only the host-side shutter math.
//
// Grounded on _examples/original_source/src/base/camera.cpp.
package camera

import (
	"fmt"
	"sort"

	"github.com/lumenray/lumenray/internal/rlog"
)

// ShutterPoint is one (time, weight) control point of the shutter
// response curve.
type ShutterPoint struct {
	Time   float64
	Weight float64
}

// ShutterSample is one time bucket an integrator should render, with
// the number of samples-per-pixel allotted to it.
type ShutterSample struct {
	Point ShutterPoint
	SPP   int
}

// Config holds a camera's exposure parameters, validated and
// normalized by New.
type Config struct {
	ShutterSpan        [2]float64
	ShutterSampleCount int
	SPP                int

	shutterPoints []ShutterPoint
}

// New validates and normalizes a camera's shutter configuration,
// mirroring the invariant checks in Camera's constructor:
//   - ShutterSpan[1] must be >= ShutterSpan[0].
//   - When the span isn't a single instant, shutterSamples defaults to
//     min(spp, 256) if zero, and is clamped (with a warning) if it
//     exceeds spp.
//   - timePoints/weights must have equal length; weights must be
//     non-negative.
//   - Out-of-span time points are dropped with a warning; duplicate
//     time points are dropped with a warning (sorted first); the list
//     is padded at both ends to the span's endpoints if not already
//     covered.
func New(span [2]float64, shutterSamples, spp int, timePoints, weights []float64) (*Config, error) {
	if span[1] < span[0] {
		return nil, fmt.Errorf("invalid shutter span: [%v, %v]", span[0], span[1])
	}
	c := &Config{ShutterSpan: span, ShutterSampleCount: shutterSamples, SPP: spp}

	if span[0] == span[1] {
		return c, nil
	}

	if c.ShutterSampleCount == 0 {
		c.ShutterSampleCount = min(spp, 256)
	} else if c.ShutterSampleCount > spp {
		rlog.Get().Warn(fmt.Sprintf("too many shutter samples (%d), clamping to samples per pixel (%d)", c.ShutterSampleCount, spp))
		c.ShutterSampleCount = spp
	}

	if len(timePoints) != len(weights) {
		return nil, fmt.Errorf("number of shutter time points (%d) and weights (%d) mismatch", len(timePoints), len(weights))
	}
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("found negative shutter weight %v", w)
		}
	}

	if len(timePoints) == 0 {
		c.shutterPoints = []ShutterPoint{{Time: span[0], Weight: 1}, {Time: span[1], Weight: 1}}
		return c, nil
	}

	indices := make([]int, 0, len(timePoints))
	dropped := 0
	for i, t := range timePoints {
		if t < span[0] || t > span[1] {
			dropped++
			continue
		}
		indices = append(indices, i)
	}
	if dropped > 0 {
		rlog.Get().Warn(fmt.Sprintf("out-of-shutter samples (count = %d) are to be removed", dropped))
	}

	sort.Slice(indices, func(i, j int) bool { return timePoints[indices[i]] < timePoints[indices[j]] })

	deduped := indices[:0:0]
	dupes := 0
	for i, idx := range indices {
		if i > 0 && timePoints[idx] == timePoints[indices[i-1]] {
			dupes++
			continue
		}
		deduped = append(deduped, idx)
	}
	if dupes > 0 {
		rlog.Get().Warn(fmt.Sprintf("duplicate shutter samples (count = %d) are to be removed", dupes))
	}

	points := make([]ShutterPoint, len(deduped))
	for i, idx := range deduped {
		points[i] = ShutterPoint{Time: timePoints[idx], Weight: weights[idx]}
	}
	if len(points) > 0 {
		if points[0].Time > span[0] {
			points = append([]ShutterPoint{{Time: span[0], Weight: points[0].Weight}}, points...)
		}
		if points[len(points)-1].Time < span[1] {
			points = append(points, ShutterPoint{Time: span[1], Weight: points[len(points)-1].Weight})
		}
	}
	c.shutterPoints = points
	return c, nil
}
