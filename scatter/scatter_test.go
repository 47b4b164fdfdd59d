package scatter

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

func approxEqual(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got %v, want %v (eps %v)", got, want, eps)
	}
}

func TestFresnelDielectricNormalIncidence(t *testing.T) {
	r := FresnelDielectricReal(1, 1, 1.5)
	want := math.Pow((1.5-1)/(1.5+1), 2)
	approxEqual(t, r, want, 1e-6)
}

func TestFresnelDielectricTIR(t *testing.T) {
	// Exiting a dense medium beyond the critical angle should fully reflect.
	r := FresnelDielectricReal(0.05, 1.5, 1.0)
	approxEqual(t, r, 1, 1e-9)
}

func TestFresnelDielectricIntegralAtUnity(t *testing.T) {
	approxEqual(t, FresnelDielectricIntegral(1), 0, 1e-9)
}

func TestFresnelDielectricIntegralRange(t *testing.T) {
	for _, eta := range []float64{0.5, 0.8, 1.2, 1.5, 2.0} {
		v := FresnelDielectricIntegral(eta)
		if v < 0 || v > 1 {
			t.Fatalf("eta=%v: integral %v out of [0,1]", eta, v)
		}
	}
}

func TestRoughnessToAlphaFloor(t *testing.T) {
	if RoughnessToAlpha(0) != 1e-4 {
		t.Fatalf("zero roughness should floor to 1e-4, got %v", RoughnessToAlpha(0))
	}
}

func TestLambertianReflectionEnergyConservation(t *testing.T) {
	l := LambertianReflection{R: spectrum.NewSpectrum(0.5)}
	wo := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	wi := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	f := l.Evaluate(wo, wi, Radiance)
	// f already includes |cos theta_i| = 1, so f = R/pi.
	approxEqual(t, f.V[0], 0.5/math.Pi, 1e-9)
}

func TestLambertianOppositeHemisphereIsZero(t *testing.T) {
	l := LambertianReflection{R: spectrum.NewSpectrum(1)}
	wo := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	wi := vecmath.Vec3{X: 0, Y: 0, Z: -1}
	f := l.Evaluate(wo, wi, Radiance)
	if !f.IsBlack() {
		t.Fatal("opposite hemisphere should evaluate to zero")
	}
}

func TestMicrofacetDistributionPositiveAtNormal(t *testing.T) {
	d := TrowbridgeReitzDistribution{AlphaX: 0.3, AlphaY: 0.3}
	wh := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	if d.D(wh) <= 0 {
		t.Fatal("D at normal incidence should be positive")
	}
}

func TestMicrofacetSampleStaysInUpperHemisphere(t *testing.T) {
	d := TrowbridgeReitzDistribution{AlphaX: 0.2, AlphaY: 0.2}
	wo := vecmath.Vec3{X: 0.2, Y: 0.1, Z: 0.95}.Normalize()
	for _, u := range []vecmath.Vec2{{X: 0.25, Y: 0.75}, {X: 0.9, Y: 0.1}} {
		wh := d.Sample(wo, u)
		if wh.Z < 0 {
			t.Fatalf("sampled half-vector should stay in upper hemisphere, got z=%v", wh.Z)
		}
	}
}

func TestOrenNayarReducesDirectionally(t *testing.T) {
	o := OrenNayar{R: spectrum.NewSpectrum(0.5), SigmaDeg: 0}
	wo := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	wi := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	f := o.Evaluate(wo, wi, Radiance)
	// sigma=0 degenerates to Lambertian: A=1, B=0.
	approxEqual(t, f.V[0], 0.5/math.Pi, 1e-6)
}

func TestGlassClosureSplitsLobesByKrRatio(t *testing.T) {
	eta := spectrum.NewSpectrum(1.5)
	kr := spectrum.NewSpectrum(0.9)
	kt := spectrum.NewSpectrum(0.9)
	g := NewGlassClosure(kr, kt, eta, vecmath.Vec2{X: 0.01, Y: 0.01}, 1)
	if g.KrRatio < 0.1 || g.KrRatio > 0.9 {
		t.Fatalf("KrRatio should be clamped to [0.1,0.9], got %v", g.KrRatio)
	}
}

func TestClosureDispatchMatchesConcreteLobe(t *testing.T) {
	lobe := LambertianReflection{R: spectrum.NewSpectrum(0.7)}
	c := NewLambertianReflectionClosure(lobe)
	wo := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	wi := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	want := lobe.Evaluate(wo, wi, Radiance)
	got := c.Evaluate(wo, wi, Radiance, nil)
	approxEqual(t, got.V[0], want.V[0], 1e-12)
}

func TestLayeredClosureNoMediumDelegatesToInterfaces(t *testing.T) {
	top := LambertianReflection{R: spectrum.NewSpectrum(0.5)}
	bottom := LambertianReflection{R: spectrum.NewSpectrum(0.2)}
	layer := LayeredClosure{Top: top, Bottom: bottom, MaxDepth: 10, Samples: 1}
	wo := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	wi := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	p := rng.NewPCG32()
	f := layer.Evaluate(wo, wi, Radiance, p)
	want := top.Evaluate(wo, wi, Radiance)
	approxEqual(t, f.V[0], want.V[0], 1e-9)
}

func TestHGPhaseFunctionPeaksForward(t *testing.T) {
	hg := HGPhaseFunction{G: 0.3}
	wo := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	// wo and wi both point away from the scattering point, so forward
	// scattering sends wi opposite to wo.
	forward := hg.P(wo, vecmath.Vec3{X: 0, Y: 0, Z: -1})
	backward := hg.P(wo, vecmath.Vec3{X: 0, Y: 0, Z: 1})
	if forward <= backward {
		t.Fatalf("forward-scattering g=0.3 should favor forward direction: fwd=%v back=%v", forward, backward)
	}
}
