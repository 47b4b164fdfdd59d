package integrator

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/internal/workerpool"
	"github.com/lumenray/lumenray/lights"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scatter"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// groundPlaneGeometry builds a single upward-facing triangle at z=0,
// with x and y within [-10,10], visible to a camera ray looking down the
// -z axis.
func groundPlaneGeometry(t *testing.T) *geometry.Geometry {
	t.Helper()
	pool := workerpool.New(2)
	t.Cleanup(pool.Close)
	mesh := geometry.NewMesh(
		[]geometry.Vertex{
			{Position: vecmath.V3(-10, -10, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(0, 0)},
			{Position: vecmath.V3(10, -10, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(1, 0)},
			{Position: vecmath.V3(0, 10, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(0, 1)},
		},
		[]geometry.Triangle{{I0: 0, I1: 1, I2: 2}},
	)
	g := geometry.NewGeometry(geometry.NewMeshCache(8), pool)
	resource := &geometry.MeshResource{Mesh: mesh, VertexBufferID: 0}
	leaf := geometry.InstancedTransform{InstanceID: 0}
	handle := geometry.Handle{TriangleCount: 1, Properties: geometry.PropertyHasSurface}
	inst := g.AddInstance(resource, handle, leaf, true, 0)
	inst.ObjectToWorld = vecmath.Mat4Identity()
	return g
}

func lambertianSurface(it geometry.Interaction) (scatter.Closure, bool) {
	refl := scatter.LambertianReflection{R: spectrum.Spectrum{V: [4]float64{0.5, 0.5, 0.5, 0.5}}}
	return scatter.Closure{Tag: scatter.TagLambertianReflection, Lambertian: &refl}, true
}

// noLightSampler is a lights.Sampler with nothing registered: every
// NEE sample and miss evaluation reports no contribution, isolating
// the BSDF-sampling/RR control flow in tests that don't need a light.
type noLightSampler struct{}

func (noLightSampler) Sample(geometry.Interaction, float64, vecmath.Vec2, *rng.PCG32) (lights.SampleResult, lights.Tag, int) {
	return lights.SampleResult{}, 0, -1
}
func (noLightSampler) PDF(int) float64 { return 0 }
func (noLightSampler) EvaluateHit(int, geometry.Interaction, vecmath.Vec3) lights.Eval {
	return lights.Eval{}
}
func (noLightSampler) EvaluateMiss(vecmath.Vec3) (lights.Eval, bool) { return lights.Eval{}, false }
func (noLightSampler) Len() int                                      { return 0 }

func downwardCameraRay() geometry.Ray {
	return geometry.Ray{Origin: vecmath.V3(0, 0, 5), Direction: vecmath.V3(0, 0, -1), TMin: 0, TMax: math.MaxFloat64}
}

func TestLiMissReturnsBlackWithoutEnvironment(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}
	ray := geometry.Ray{Origin: vecmath.V3(100, 100, 5), Direction: vecmath.V3(0, 0, -1), TMin: 0, TMax: math.MaxFloat64}
	pcg := rng.NewPCG32Seeded(1, 1)
	L := ctx.Li(ray, spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, pcg)
	if !L.IsBlack() {
		t.Fatalf("expected black radiance on a miss with no environment light, got %v", L)
	}
}

func TestLiTerminatesWithinMaxDepth(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}
	pcg := rng.NewPCG32Seeded(7, 1)
	// A diffuse-only scene with no light source should terminate (via
	// Russian roulette or max_depth) rather than loop forever, and
	// never accumulate a NaN.
	L := ctx.Li(downwardCameraRay(), spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, pcg)
	if L.HasNaN() {
		t.Fatalf("Li produced NaN radiance: %v", L)
	}
}

func TestLiStopsWhenSurfaceResolverDeclines(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{
		Geometry: g,
		Lights:   noLightSampler{},
		Surface:  func(geometry.Interaction) (scatter.Closure, bool) { return scatter.Closure{}, false },
		Params:   DefaultParams(),
	}
	pcg := rng.NewPCG32Seeded(2, 1)
	L := ctx.Li(downwardCameraRay(), spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, pcg)
	if !L.IsBlack() {
		t.Fatalf("expected black radiance when the surface resolver has nothing to offer, got %v", L)
	}
}

func TestRegisterLightInstanceResolvesIndex(t *testing.T) {
	ctx := &Context{}
	if _, ok := ctx.lightIndexFor(3); ok {
		t.Fatal("expected no match before any registration")
	}
	ctx.RegisterLightInstance(3, 5)
	idx, ok := ctx.lightIndexFor(3)
	if !ok || idx != 5 {
		t.Fatalf("expected (5, true), got (%d, %v)", idx, ok)
	}
}

func TestWavefrontBatchMatchesSingleLaneLi(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}

	rays := []geometry.Ray{downwardCameraRay(), downwardCameraRay()}
	betas := []spectrum.Spectrum{
		{V: [4]float64{1, 1, 1, 1}},
		{V: [4]float64{1, 1, 1, 1}},
	}
	pcgs := []*rng.PCG32{rng.NewPCG32Seeded(11, 1), rng.NewPCG32Seeded(11, 1)}

	batch := NewWavefrontBatch(ctx, rays, betas, pcgs)
	out := batch.Run()
	if len(out) != 2 {
		t.Fatalf("expected 2 lane results, got %d", len(out))
	}
	if out[0] != out[1] {
		t.Fatalf("identical inputs and PRNG streams should produce identical lanes: %v vs %v", out[0], out[1])
	}

	direct := ctx.Li(downwardCameraRay(), spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, rng.NewPCG32Seeded(11, 1))
	if direct != out[0] {
		t.Fatalf("wavefront lane should match megakernel Li for identical inputs: %v vs %v", out[0], direct)
	}
}

func TestWavefrontBatchAllDeadLanesReturnEarly(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{
		Geometry: g,
		Lights:   noLightSampler{},
		Surface:  func(geometry.Interaction) (scatter.Closure, bool) { return scatter.Closure{}, false },
		Params:   DefaultParams(),
	}
	rays := []geometry.Ray{downwardCameraRay()}
	betas := []spectrum.Spectrum{{V: [4]float64{1, 1, 1, 1}}}
	pcgs := []*rng.PCG32{rng.NewPCG32Seeded(3, 1)}

	batch := NewWavefrontBatch(ctx, rays, betas, pcgs)
	out := batch.Run()
	if len(out) != 1 || !out[0].IsBlack() {
		t.Fatalf("expected a single black lane, got %v", out)
	}
}
