package rng

import (
	"math"

	"github.com/lumenray/lumenray/vecmath"
)

// BalanceHeuristic computes a/(a+b), treating 0/0 as 0 rather than NaN.
func BalanceHeuristic(a, b float64) float64 {
	if a+b == 0 {
		return 0
	}
	return a / (a + b)
}

// PowerHeuristic computes the MIS weight for sampling strategy a (with
// na samples at density pa) against strategy b (nb samples at density
// pb), using the standard exponent-2 power heuristic.
func PowerHeuristic(na float64, pa float64, nb float64, pb float64) float64 {
	f := na * pa
	g := nb * pb
	denom := f*f + g*g
	if denom == 0 {
		return 0
	}
	return (f * f) / denom
}

// ConcentricSampleDisk maps a unit square sample to a unit disk using
// Shirley's concentric mapping, avoiding the area distortion of naive
// polar sampling.
func ConcentricSampleDisk(u vecmath.Vec2) vecmath.Vec2 {
	ox := 2*u.X - 1
	oy := 2*u.Y - 1
	if ox == 0 && oy == 0 {
		return vecmath.Vec2{}
	}
	var r, theta float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = (math.Pi / 4) * (oy / ox)
	} else {
		r = oy
		theta = (math.Pi / 2) - (math.Pi/4)*(ox/oy)
	}
	return vecmath.Vec2{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// CosineSampleHemisphere lifts a unit-square sample to a cosine-weighted
// direction on the unit hemisphere via the concentric-disk mapping,
// z = sqrt(1 - x^2 - y^2), per spec §4.C.
func CosineSampleHemisphere(u vecmath.Vec2) vecmath.Vec3 {
	d := ConcentricSampleDisk(u)
	z := math.Sqrt(math.Max(0, 1-d.X*d.X-d.Y*d.Y))
	return vecmath.Vec3{X: d.X, Y: d.Y, Z: z}
}

// CosineHemispherePDF returns the pdf of a direction sampled by
// CosineSampleHemisphere, given its (local-frame) cosine with the normal.
func CosineHemispherePDF(cosTheta float64) float64 {
	return math.Abs(cosTheta) / math.Pi
}

// UniformSampleHemisphere maps a unit-square sample to a uniformly
// distributed direction on the unit hemisphere (z >= 0).
func UniformSampleHemisphere(u vecmath.Vec2) vecmath.Vec3 {
	z := u.X
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * u.Y
	return vecmath.Vec3{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
}

// UniformHemispherePDF is the constant pdf of UniformSampleHemisphere.
func UniformHemispherePDF() float64 { return 1 / (2 * math.Pi) }
