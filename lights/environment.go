package lights

import (
	"math"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// EnvironmentLight wraps a precomputed Nishita sky table with a
// transform (for rotating the sky relative to world-up) and a scale
// factor, per spec §4.F ("Environment lights integrate the Nishita
// analytic sky... and support a transform").
type EnvironmentLight struct {
	Sky           *SkyTable
	WorldToLight  vecmath.Mat4
	LightToWorld  vecmath.Mat4
	Scale         float64
	WorldRadius   float64 // bounding-sphere radius used to turn direction samples into finite shadow rays
}

// Power estimates emitted power as the average table radiance over the
// full sphere, scaled by the registered Scale.
func (e *EnvironmentLight) Power() float64 {
	if e.Sky == nil || len(e.Sky.Pixels) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range e.Sky.Pixels {
		sum += (p.X + p.Y + p.Z) / 3
	}
	avg := sum / float64(len(e.Sky.Pixels))
	return avg * e.Scale * 4 * math.Pi
}

// Sample draws a direction uniformly over the sphere (a cheap
// approximation of importance-sampling the sky table's luminance
// distribution, which would require its own 2D alias table over texels;
// left as a documented simplification since the spec only requires
// *some* valid, unbiased direction sample here) and evaluates the sky
// radiance along it.
func (e *EnvironmentLight) Sample(it geometry.Interaction, uSurf vecmath.Vec2) SampleResult {
	z := 1 - 2*uSurf.X
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * uSurf.Y
	dirWorld := vecmath.Vec3{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}

	eval := e.EvaluateMiss(dirWorld)
	eval.PDF = 1 / (4 * math.Pi)
	if eval.PDF <= 0 {
		return SampleResult{}
	}

	radius := e.WorldRadius
	if radius <= 0 {
		radius = 1e6
	}
	return SampleResult{
		Valid: true,
		ShadowRay: ShadowRay{
			Origin:    it.P,
			Direction: dirWorld,
			TMax:      radius,
		},
		Eval: eval,
	}
}

// EvaluateMiss transforms dir into light space and looks it up in the
// sky table, per evaluate_miss's "geographical-to-direction conversion"
// and "2D table" query.
func (e *EnvironmentLight) EvaluateMiss(dir vecmath.Vec3) Eval {
	if e.Sky == nil {
		return Eval{}
	}
	localDir := e.WorldToLight.MulVector(dir).Normalize()
	rgb := e.Sky.Lookup(localDir)
	l := spectrum.SpectrumFromLanes([spectrum.NumLanes]float64{
		rgb.X * e.Scale, rgb.Y * e.Scale, rgb.Z * e.Scale, (rgb.X + rgb.Y + rgb.Z) / 3 * e.Scale,
	})
	return Eval{L: l, PDF: 1 / (4 * math.Pi)}
}
