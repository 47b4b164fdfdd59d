package integrator

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/diff"
	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

func TestLossGradientL2IsDoubleDifference(t *testing.T) {
	rendered := spectrum.Spectrum{V: [4]float64{0.6, 0.4, 0.2, 0}}
	target := spectrum.Spectrum{V: [4]float64{0.5, 0.5, 0.5, 0}}
	got := LossGradient(LossL2, rendered, target)
	want := spectrum.Spectrum{V: [4]float64{0.2, -0.2, -0.6, 0}}
	for lane := range want.V {
		if math.Abs(got.V[lane]-want.V[lane]) > 1e-12 {
			t.Fatalf("LossGradient(L2) = %v, want %v", got, want)
		}
	}
}

func TestLossGradientL1IsSign(t *testing.T) {
	rendered := spectrum.Spectrum{V: [4]float64{0.6, 0.4, 0.5, 0}}
	target := spectrum.Spectrum{V: [4]float64{0.5, 0.5, 0.5, 0}}
	got := LossGradient(LossL1, rendered, target)
	want := spectrum.Spectrum{V: [4]float64{1, -1, 1, 1}}
	if got != want {
		t.Fatalf("LossGradient(L1) = %v, want %v", got, want)
	}
}

func TestLiBackwardAccumulatesGradientForHitPath(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}

	engine := diff.New(32, diff.NewAdamOptimizer())
	handle := engine.Catalog.ParameterVec4([4]float64{0.5, 0.5, 0.5, 0.5}, diff.Range{Lo: 0, Hi: 1})
	engine.Materialize()

	resolver := func(geometry.Interaction) (diff.Handle, bool) { return handle, true }

	lossGrad := spectrum.NewSpectrum(1)
	ctx.LiBackward(downwardCameraRay(), 1, lossGrad, rng.NewPCG32Seeded(7, 1), resolver, engine, 1, 0)

	engine.Buffers.ReduceConstants(engine.Catalog)
	grad := engine.Buffers.ParamGradBuffer
	sum := 0.0
	for _, v := range grad {
		sum += math.Abs(v)
	}
	if sum == 0 {
		t.Fatalf("expected a nonzero gradient accumulated for a diffuse hit, got all zero: %v", grad)
	}
}

func TestLiBackwardSkipsGradientOnMiss(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}

	engine := diff.New(32, diff.NewAdamOptimizer())
	handle := engine.Catalog.ParameterVec4([4]float64{0.5, 0.5, 0.5, 0.5}, diff.Range{Lo: 0, Hi: 1})
	engine.Materialize()

	resolver := func(geometry.Interaction) (diff.Handle, bool) { return handle, true }

	missRay := geometry.Ray{Origin: vecmath.V3(0, 0, 5), Direction: vecmath.V3(0, 0, 1), TMin: 0, TMax: math.MaxFloat64}
	ctx.LiBackward(missRay, 1, spectrum.NewSpectrum(1), rng.NewPCG32Seeded(7, 1), resolver, engine, 1, 0)

	for _, v := range engine.Buffers.GradBuffer {
		if v != 0 {
			t.Fatalf("expected no gradient accumulated for a ray that misses geometry entirely, got %v", engine.Buffers.GradBuffer)
		}
	}
}

func TestLiBackwardNilDiffEngineIsNoOp(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}

	ctx.LiBackward(downwardCameraRay(), 1, spectrum.NewSpectrum(1), rng.NewPCG32Seeded(7, 1), nil, nil, 1, 0)
}
