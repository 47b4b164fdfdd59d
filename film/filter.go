// Package film implements spec §4.G: pixel-filter sampling, the main
// beauty film (weighted running-average accumulation per pixel), AOV
// buffers, and tone mapping.
//
// Grounded on the teacher's gg.Pixmap (_examples/gogpu-gg/pixmap.go): a
// flat row-major buffer with bounds-checked per-pixel accessors,
// generalized here from 4xuint8 RGBA to float64 running sums (a film
// needs unbounded-range HDR accumulation, not 8-bit storage) plus a
// parallel weight buffer per spec §3's Film description.
package film

import (
	"math"

	"github.com/lumenray/lumenray/vecmath"
)

// Filter samples a pixel-space offset and weight for one sample, per
// spec §4.G's `Filter::sample(u) -> (offset_in_pixel, weight)`.
type Filter interface {
	Sample(u vecmath.Vec2) (offset vecmath.Vec2, weight float64)
	Radius() float64
}

// BoxFilter weights every sample inside its radius equally.
type BoxFilter struct {
	R float64
}

func (f BoxFilter) Radius() float64 { return f.R }

func (f BoxFilter) Sample(u vecmath.Vec2) (vecmath.Vec2, float64) {
	offset := vecmath.Vec2{X: (u.X*2 - 1) * f.R, Y: (u.Y*2 - 1) * f.R}
	return offset, 1
}

// TriangleFilter weights samples linearly falling off from the pixel
// center to zero at the radius.
type TriangleFilter struct {
	R float64
}

func (f TriangleFilter) Radius() float64 { return f.R }

func (f TriangleFilter) Sample(u vecmath.Vec2) (vecmath.Vec2, float64) {
	x := sampleTriangle(u.X) * f.R
	y := sampleTriangle(u.Y) * f.R
	wx := 1 - math.Abs(x)/f.R
	wy := 1 - math.Abs(y)/f.R
	return vecmath.Vec2{X: x, Y: y}, math.Max(0, wx) * math.Max(0, wy)
}

// sampleTriangle inverts the CDF of a symmetric triangular distribution
// on [-1,1], used to importance-sample the triangle filter's own shape
// rather than rejection-sampling it.
func sampleTriangle(u float64) float64 {
	if u < 0.5 {
		return math.Sqrt(2*u) - 1
	}
	return 1 - math.Sqrt(2*(1-u))
}

// GaussianFilter is a Gaussian falloff truncated at Radius, with the
// value at the radius itself subtracted so the filter reaches exactly
// zero at its support boundary (the standard "Gaussian minus edge
// value" windowing used by offline renderers).
type GaussianFilter struct {
	R     float64
	Sigma float64
}

func (f GaussianFilter) Radius() float64 { return f.R }

func (f GaussianFilter) gaussian(d float64) float64 {
	return math.Exp(-d * d / (2 * f.Sigma * f.Sigma))
}

func (f GaussianFilter) Sample(u vecmath.Vec2) (vecmath.Vec2, float64) {
	offset := vecmath.Vec2{X: (u.X*2 - 1) * f.R, Y: (u.Y*2 - 1) * f.R}
	edge := f.gaussian(f.R)
	wx := math.Max(0, f.gaussian(offset.X)-edge)
	wy := math.Max(0, f.gaussian(offset.Y)-edge)
	return offset, wx * wy
}
