package integrator

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/film"
	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/lights"
	"github.com/lumenray/lumenray/medium"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

func TestLiVolumetricTerminatesWithoutMedium(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}
	pcg := rng.NewPCG32Seeded(5, 1)
	L := ctx.LiVolumetric(downwardCameraRay(), spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, nil, pcg)
	if L.HasNaN() {
		t.Fatalf("LiVolumetric produced NaN radiance: %v", L)
	}
	if !L.IsBlack() {
		t.Fatalf("expected black radiance with no lights and no medium, got %v", L)
	}
}

func TestLiVolumetricScattersInsideMedium(t *testing.T) {
	g := groundPlaneGeometry(t)
	enterOnce := func(it geometry.Interaction) (medium.Info, MediumEvent, bool) {
		return medium.Info{Tag: 1}, EventEnter, true
	}
	ctx := &Context{
		Geometry: g,
		Lights:   noLightSampler{},
		Surface:  lambertianSurface,
		Medium: func(tag uint32) (Medium, bool) {
			if tag == 1 {
				return Medium{SigmaT: 5, Albedo: spectrum.Spectrum{V: [4]float64{0.8, 0.8, 0.8, 0.8}}, G: 0}, true
			}
			return Medium{}, false
		},
		Params: DefaultParams(),
	}
	pcg := rng.NewPCG32Seeded(9, 1)
	L := ctx.LiVolumetric(downwardCameraRay(), spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, enterOnce, pcg)
	if L.HasNaN() {
		t.Fatalf("LiVolumetric produced NaN radiance with an active medium: %v", L)
	}
}

func TestShouldDump(t *testing.T) {
	cases := []struct {
		strategy DumpStrategy
		sample   int
		total    int
		want     bool
	}{
		{DumpAll, 1, 16, true},
		{DumpAll, 7, 16, true},
		{DumpFinal, 7, 16, false},
		{DumpFinal, 16, 16, true},
		{DumpPower2, 1, 16, true},
		{DumpPower2, 2, 16, true},
		{DumpPower2, 3, 16, false},
		{DumpPower2, 4, 16, true},
	}
	for _, c := range cases {
		if got := ShouldDump(c.strategy, c.sample, c.total); got != c.want {
			t.Errorf("ShouldDump(%v, %d, %d) = %v, want %v", c.strategy, c.sample, c.total, got, c.want)
		}
	}
}

func TestLiAOVWritesDepthZeroBuffers(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}
	enabled := map[film.Component]bool{
		film.ComponentSample: true, film.ComponentDiffuse: true, film.ComponentSpecular: true,
		film.ComponentMask: true, film.ComponentNormal: true, film.ComponentDepth: true,
		film.ComponentNDC: true, film.ComponentAlbedo: true, film.ComponentRoughness: true,
	}
	buffers := NewAOVBuffers(4, 4, enabled)
	pcg := rng.NewPCG32Seeded(13, 1)
	ctx.LiAOV(1, 1, [2]int{4, 4}, downwardCameraRay(), 1, pcg, buffers)

	if got := buffers.Mask.Read(1, 1); got[0] != 1 {
		t.Fatalf("expected mask=1 at a hit pixel, got %v", got)
	}
	normal := buffers.Normal.Read(1, 1)
	if normal[2] <= 0 {
		t.Fatalf("expected an upward-facing normal z component, got %v", normal)
	}
	depth := buffers.Depth.Read(1, 1)
	if depth[0] <= 0 {
		t.Fatalf("expected a positive hit distance, got %v", depth)
	}
	albedo := buffers.Albedo.Read(1, 1)
	if albedo[0] != 0.5 {
		t.Fatalf("expected the Lambertian fixture's albedo 0.5, got %v", albedo)
	}
}

func TestLiAOVMissLeavesMaskZero(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}
	buffers := NewAOVBuffers(4, 4, map[film.Component]bool{film.ComponentMask: true, film.ComponentSample: true})
	ray := geometry.Ray{Origin: vecmath.V3(100, 100, 5), Direction: vecmath.V3(0, 0, -1), TMin: 0, TMax: math.MaxFloat64}
	pcg := rng.NewPCG32Seeded(17, 1)
	ctx.LiAOV(0, 0, [2]int{4, 4}, ray, 1, pcg, buffers)
	if got := buffers.Mask.Read(0, 0); got[0] != 0 {
		t.Fatalf("expected mask=0 on a miss, got %v", got)
	}
}

func TestPSSMLTSamplerLargeStepRedrawsEveryCoordinate(t *testing.T) {
	s := NewPSSMLTSampler(4, 0.01, 1.0, 1) // largeStepProbability=1 forces every iteration to be a large step
	s.StartIteration()
	s.StartStream()
	a := s.Generate1D()
	s.Reject()

	s.StartIteration()
	s.StartStream()
	b := s.Generate1D()
	if a == b {
		t.Fatalf("two independent large steps should (almost certainly) redraw a different value: got %v twice", a)
	}
}

func TestPSSMLTSamplerRejectRestoresState(t *testing.T) {
	s := NewPSSMLTSampler(4, 0.01, 0.0, 2) // largeStepProbability=0 makes every iteration a small step
	s.StartIteration()
	s.StartStream()
	first := s.Generate1D()
	s.Accept()

	s.StartIteration()
	s.StartStream()
	_ = s.Generate1D() // mutate
	s.Reject()
	if got := s.samples[0].value; got != first {
		t.Fatalf("Reject did not restore the coordinate: got %v, want %v", got, first)
	}

	s.StartIteration()
	s.StartStream()
	restored := s.Generate1D()
	_ = first
	if restored < 0 || restored > 1 {
		t.Fatalf("coordinate escaped [0,1) after reject/resync: %v", restored)
	}
}

func TestErfInvIsOddAndBounded(t *testing.T) {
	for _, x := range []float64{-0.9, -0.3, 0, 0.3, 0.9} {
		pos := erfInv(x)
		neg := erfInv(-x)
		if math.Abs(pos+neg) > 1e-6 {
			t.Errorf("erfInv(%v) = %v, erfInv(%v) = %v; expected odd function", x, pos, -x, neg)
		}
	}
}

func TestLiPSSMLTTerminatesWithoutNaN(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}
	sampler := NewPSSMLTSampler(16, 0.01, 0.3, 42)
	sampler.StartIteration()
	sampler.StartStream()
	L := ctx.LiPSSMLT(downwardCameraRay(), spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, sampler)
	if L.HasNaN() {
		t.Fatalf("LiPSSMLT produced NaN radiance: %v", L)
	}
}

func TestPhotonMapDepositAndQuery(t *testing.T) {
	pm := NewPhotonMap(1.0)
	pm.Deposit(Photon{Position: vecmath.V3(0, 0, 0), Wi: vecmath.Vec3Up, Beta: spectrum.NewSpectrum(1)})
	pm.Deposit(Photon{Position: vecmath.V3(0.1, 0, 0), Wi: vecmath.Vec3Up, Beta: spectrum.NewSpectrum(1)})
	pm.Deposit(Photon{Position: vecmath.V3(50, 50, 50), Wi: vecmath.Vec3Up, Beta: spectrum.NewSpectrum(1)})

	if pm.Len() != 3 {
		t.Fatalf("expected 3 deposited photons, got %d", pm.Len())
	}
	near := pm.Query(vecmath.V3(0, 0, 0), 0.5)
	if len(near) != 2 {
		t.Fatalf("expected 2 photons within radius 0.5 of the origin, got %d", len(near))
	}
	far := pm.Query(vecmath.V3(0, 0, 0), 1000)
	if len(far) != 3 {
		t.Fatalf("expected all 3 photons within a radius-1000 query, got %d", len(far))
	}
}

func TestPixelStatsUpdateShrinksRadius(t *testing.T) {
	s := NewPixelStats(1.0)
	s.CurN = 10
	s.Phi = spectrum.NewSpectrum(2)
	s.Update()
	if s.Radius >= 1.0 {
		t.Fatalf("expected radius to shrink after a non-empty gather, got %v", s.Radius)
	}
	if s.CurN != 0 {
		t.Fatalf("expected cur_n reset to 0 after Update, got %v", s.CurN)
	}
}

func TestPixelStatsUpdateNoOpWhenNoGather(t *testing.T) {
	s := NewPixelStats(1.0)
	s.Update()
	if s.Radius != 1.0 {
		t.Fatalf("expected radius unchanged when no photons were gathered this pass, got %v", s.Radius)
	}
}

// areaLightGeometry builds a two-plane box (an upward-facing ground
// plane and a downward-facing ceiling plane) so a photon emitted from
// the ground plane has somewhere to bounce to before landing back on
// it at depth 1 — a single convex plane can never re-hit itself after a
// diffuse bounce, so EmitPhotons needs at least this much geometry to
// ever deposit anything.
func areaLightGeometry(t *testing.T) (*geometry.Geometry, *lights.AreaLight) {
	t.Helper()
	g := groundPlaneGeometry(t)

	ceilingMesh := geometry.NewMesh(
		[]geometry.Vertex{
			{Position: vecmath.V3(-10, -10, 5), Normal: vecmath.V3(0, 0, -1), UV: vecmath.V2(0, 0)},
			{Position: vecmath.V3(0, 10, 5), Normal: vecmath.V3(0, 0, -1), UV: vecmath.V2(0, 1)},
			{Position: vecmath.V3(10, -10, 5), Normal: vecmath.V3(0, 0, -1), UV: vecmath.V2(1, 0)},
		},
		[]geometry.Triangle{{I0: 0, I1: 1, I2: 2}},
	)
	ceilingResource := &geometry.MeshResource{Mesh: ceilingMesh, VertexBufferID: 1}
	ceilingHandle := geometry.Handle{TriangleCount: 1, Properties: geometry.PropertyHasSurface}
	ceilingInst := g.AddInstance(ceilingResource, ceilingHandle, geometry.InstancedTransform{InstanceID: 1}, true, 0)
	ceilingInst.ObjectToWorld = vecmath.Mat4Identity()

	inst := g.InstanceByID(0)
	area := &lights.AreaLight{
		InstanceID:    0,
		Mesh:          inst.Resource.Mesh,
		ObjectToWorld: inst.ObjectToWorld,
		Emission:      func(geometry.Interaction) spectrum.Spectrum { return spectrum.NewSpectrum(10) },
	}
	return g, area
}

func TestEmitPhotonsDepositsIndirectBounces(t *testing.T) {
	g, area := areaLightGeometry(t)
	sampler := lights.NewPowerSampler([]lights.Light{{Tag: lights.TagArea, Area: area}})
	ctx := &Context{Geometry: g, Lights: sampler, Surface: lambertianSurface, Params: DefaultParams()}

	params := DefaultPhotonMapParams()
	params.PhotonsPerIteration = 64
	params.MaxDepth = 4
	pcg := rng.NewPCG32Seeded(21, 1)
	pm := ctx.EmitPhotons(sampler, pcg, params, 1.0)
	if pm.Len() == 0 {
		t.Fatalf("expected at least one deposited photon from %d emitted paths", params.PhotonsPerIteration)
	}
}

func TestLiPhotonMapFallsBackWithoutMap(t *testing.T) {
	g := groundPlaneGeometry(t)
	ctx := &Context{Geometry: g, Lights: noLightSampler{}, Surface: lambertianSurface, Params: DefaultParams()}
	pcg := rng.NewPCG32Seeded(23, 1)
	L := ctx.LiPhotonMap(downwardCameraRay(), spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, pcg, nil, nil, 0)
	if L.HasNaN() {
		t.Fatalf("LiPhotonMap produced NaN radiance without a photon map: %v", L)
	}
}

func TestLiPhotonMapGathersIndirect(t *testing.T) {
	g, area := areaLightGeometry(t)
	sampler := lights.NewPowerSampler([]lights.Light{{Tag: lights.TagArea, Area: area}})
	ctx := &Context{Geometry: g, Lights: sampler, Surface: lambertianSurface, Params: DefaultParams()}

	params := DefaultPhotonMapParams()
	params.PhotonsPerIteration = 256
	pcg := rng.NewPCG32Seeded(29, 1)
	pm := ctx.EmitPhotons(sampler, pcg, params, 2.0)

	stats := NewPixelStats(2.0)
	camRay := geometry.Ray{Origin: vecmath.V3(0, 0, 4), Direction: vecmath.V3(0, 0, -1), TMin: 0, TMax: math.MaxFloat64}
	camPcg := rng.NewPCG32Seeded(31, 1)
	L := ctx.LiPhotonMap(camRay, spectrum.Spectrum{V: [4]float64{1, 1, 1, 1}}, camPcg, pm, &stats, params.PhotonsPerIteration)
	if L.HasNaN() {
		t.Fatalf("LiPhotonMap produced NaN radiance: %v", L)
	}
}
