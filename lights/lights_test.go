package lights

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

func quadMesh() *geometry.Mesh {
	return geometry.NewMesh(
		[]geometry.Vertex{
			{Position: vecmath.V3(-1, 0, -1), Normal: vecmath.Vec3Up},
			{Position: vecmath.V3(1, 0, -1), Normal: vecmath.Vec3Up},
			{Position: vecmath.V3(-1, 0, 1), Normal: vecmath.Vec3Up},
			{Position: vecmath.V3(1, 0, 1), Normal: vecmath.Vec3Up},
		},
		// Wound so the geometric normal (cross of edges, right-hand rule)
		// faces +Y, matching the vertices' declared upward normal.
		[]geometry.Triangle{{I0: 0, I1: 2, I2: 1}, {I0: 1, I1: 2, I2: 3}},
	)
}

func TestAreaLightSampleProducesValidShadowRay(t *testing.T) {
	al := &AreaLight{
		Mesh:          quadMesh(),
		ObjectToWorld: vecmath.Mat4Identity(),
		Emission:      func(geometry.Interaction) spectrum.Spectrum { return spectrum.NewSpectrum(1) },
	}
	it := geometry.Interaction{P: vecmath.V3(0, 5, 0)}
	pcg := rng.NewPCG32Seeded(1, 1)

	res := al.Sample(it, vecmath.V2(0.3, 0.7), pcg)
	if !res.Valid {
		t.Fatal("expected a valid sample above the quad")
	}
	if res.Eval.PDF <= 0 {
		t.Fatalf("expected positive PDF, got %v", res.Eval.PDF)
	}
	if res.ShadowRay.Direction.Y >= 0 {
		t.Fatalf("expected a downward shadow ray from above the light, got dir.Y=%v", res.ShadowRay.Direction.Y)
	}
}

func TestAreaLightBackFaceRejectedWhenOneSided(t *testing.T) {
	al := &AreaLight{
		Mesh:          quadMesh(),
		ObjectToWorld: vecmath.Mat4Identity(),
		Emission:      func(geometry.Interaction) spectrum.Spectrum { return spectrum.NewSpectrum(1) },
		TwoSided:      false,
	}
	it := geometry.Interaction{P: vecmath.V3(0, -5, 0)} // below the quad, facing away from its +Y normal
	pcg := rng.NewPCG32Seeded(2, 2)
	res := al.Sample(it, vecmath.V2(0.5, 0.5), pcg)
	if res.Valid {
		t.Fatal("expected a one-sided area light to reject a sample from its back face")
	}
}

func TestPowerSamplerSelectsLightProportionally(t *testing.T) {
	bright := Light{Tag: TagArea, Area: &AreaLight{
		Mesh: quadMesh(), ObjectToWorld: vecmath.Mat4Identity(),
		Emission: func(geometry.Interaction) spectrum.Spectrum { return spectrum.NewSpectrum(10) },
	}}
	dim := Light{Tag: TagArea, Area: &AreaLight{
		Mesh: quadMesh(), ObjectToWorld: vecmath.Mat4Identity(),
		Emission: func(geometry.Interaction) spectrum.Spectrum { return spectrum.NewSpectrum(0.1) },
	}}
	sampler := NewPowerSampler([]Light{bright, dim})
	if sampler.Len() != 2 {
		t.Fatalf("expected 2 lights, got %d", sampler.Len())
	}
	if sampler.PDF(0) <= sampler.PDF(1) {
		t.Fatalf("expected the brighter light to have higher selection pdf: %v vs %v", sampler.PDF(0), sampler.PDF(1))
	}
}

func TestGeographicalToDirectionRoundTrip(t *testing.T) {
	lat, lon := 0.4, 1.1
	dir := geographicalToDirection(lat, lon)
	gotLat, gotLon := directionToGeographical(dir)
	if math.Abs(gotLat-lat) > 1e-9 || math.Abs(gotLon-lon) > 1e-9 {
		t.Fatalf("round trip mismatch: got (%v,%v), want (%v,%v)", gotLat, gotLon, lat, lon)
	}
}

func TestPrecomputeSkyTableProducesNonNegativeRadiance(t *testing.T) {
	params := SkyParams{SunElevation: math.Pi / 4, Altitude: 1000, AirDensity: 1, DustDensity: 1, OzoneDensity: 1}
	table := PrecomputeSkyTable(params, 8, 4)
	for _, p := range table.Pixels {
		if p.X < 0 || p.Y < 0 || p.Z < 0 {
			t.Fatalf("expected non-negative sky radiance, got %+v", p)
		}
	}
}

func TestEnvironmentLightEvaluateMissUsesTable(t *testing.T) {
	params := SkyParams{SunElevation: math.Pi / 4, Altitude: 1000, AirDensity: 1, DustDensity: 1, OzoneDensity: 1}
	table := PrecomputeSkyTable(params, 8, 4)
	env := &EnvironmentLight{
		Sky:          table,
		WorldToLight: vecmath.Mat4Identity(),
		LightToWorld: vecmath.Mat4Identity(),
		Scale:        1,
	}
	eval := env.EvaluateMiss(vecmath.V3(0, 0, 1))
	if eval.PDF <= 0 {
		t.Fatal("expected a positive PDF for the environment light")
	}
}
