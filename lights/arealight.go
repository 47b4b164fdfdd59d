package lights

import (
	"math"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// AreaLight emits radiance from a mesh instance's surface, sampled by
// area via the mesh's per-triangle alias table (the same table
// geometry.Mesh already builds for §4.E's area distribution, reused
// here as spec §4.F's "per-light pdf_surface").
type AreaLight struct {
	InstanceID    int
	Mesh          *geometry.Mesh
	ObjectToWorld vecmath.Mat4
	Emission      EmissionFunc
	TwoSided      bool
}

// Power estimates total emitted power as (average radiance) * (world
// area) * (solid-angle factor), which is all the alias table needs: a
// relative weight across lights, not an exact radiometric power.
func (a *AreaLight) Power() float64 {
	area := 0.0
	for _, t := range a.Mesh.Triangles {
		area += geometry.TriangleArea(a.ObjectToWorld,
			a.Mesh.Vertices[t.I0].Position, a.Mesh.Vertices[t.I1].Position, a.Mesh.Vertices[t.I2].Position)
	}
	avg := a.averageRadiance()
	factor := math.Pi
	if a.TwoSided {
		factor *= 2
	}
	return avg * area * factor
}

func (a *AreaLight) averageRadiance() float64 {
	if a.Emission == nil {
		return 0
	}
	l := a.Emission(geometry.Interaction{})
	return l.Average()
}

// Sample picks a triangle proportional to area, a uniform point within
// it, and returns the shadow ray toward that point plus its radiance
// and combined PDF (area-to-solid-angle Jacobian included).
func (a *AreaLight) Sample(it geometry.Interaction, uSurf vecmath.Vec2, pcg *rng.PCG32) SampleResult {
	if len(a.Mesh.Triangles) == 0 {
		return SampleResult{}
	}
	primID, pdfSurfaceArea := a.Mesh.Areas.Sample(pcg.UniformFloat64(), pcg.UniformFloat64())
	tri := a.Mesh.Triangles[primID]

	su := math.Sqrt(uSurf.X)
	b0 := 1 - su
	b1 := uSurf.Y * su
	bary := vecmath.Vec3{X: b0, Y: b1, Z: 1 - b0 - b1}

	geomAttr := geometry.GeometryPoint(a.Mesh, tri, bary, a.ObjectToWorld)
	toLight := geomAttr.P.Sub(it.P)
	dist2 := toLight.LengthSq()
	if dist2 < 1e-12 {
		return SampleResult{}
	}
	dist := math.Sqrt(dist2)
	wi := toLight.Div(dist)

	cosLight := geomAttr.N.Dot(wi.Neg())
	if !a.TwoSided && cosLight <= 0 {
		return SampleResult{}
	}
	cosLight = math.Abs(cosLight)
	if cosLight < 1e-9 {
		return SampleResult{}
	}

	pdfArea := pdfSurfaceArea / geomAttr.Area
	pdfSolidAngle := pdfArea * dist2 / cosLight
	if pdfSolidAngle <= 0 || math.IsInf(pdfSolidAngle, 0) {
		return SampleResult{}
	}

	var l spectrum.Spectrum
	if a.Emission != nil {
		interaction := geometry.Interaction{P: geomAttr.P, Ng: geomAttr.N, Area: geomAttr.Area, InstanceID: a.InstanceID, PrimID: primID}
		l = a.Emission(interaction)
	}

	return SampleResult{
		Valid: true,
		ShadowRay: ShadowRay{
			Origin:    it.P,
			Direction: wi,
			TMax:      dist * (1 - 1e-4),
		},
		Eval: Eval{L: l, PDF: pdfSolidAngle},
	}
}

// SampleLe draws a point on the light by area and a cosine-weighted
// direction off its surface, for Photon Mapping's emission pass
// (spec §4.L.6's PhotonTracing samples light_sampler()->sample_le the
// same way this mirrors it).
func (a *AreaLight) SampleLe(uSurf, uDir vecmath.Vec2, pcg *rng.PCG32) LeSample {
	if len(a.Mesh.Triangles) == 0 {
		return LeSample{}
	}
	primID, pdfSurfaceArea := a.Mesh.Areas.Sample(pcg.UniformFloat64(), pcg.UniformFloat64())
	tri := a.Mesh.Triangles[primID]

	su := math.Sqrt(uSurf.X)
	b0 := 1 - su
	b1 := uSurf.Y * su
	bary := vecmath.Vec3{X: b0, Y: b1, Z: 1 - b0 - b1}

	geomAttr := geometry.GeometryPoint(a.Mesh, tri, bary, a.ObjectToWorld)
	if geomAttr.Area <= 0 {
		return LeSample{}
	}
	pdfArea := pdfSurfaceArea / geomAttr.Area

	n := geomAttr.N
	if a.TwoSided && uDir.X >= 0.5 {
		n = n.Neg()
		uDir.X = (uDir.X - 0.5) * 2
	} else if a.TwoSided {
		uDir.X *= 2
	}
	frame := vecmath.FrameFromNormal(n)
	localDir := rng.CosineSampleHemisphere(uDir)
	dir := frame.LocalToWorld(localDir)
	pdfDir := rng.CosineHemispherePDF(vecmath.AbsCosTheta(localDir))

	var l spectrum.Spectrum
	if a.Emission != nil {
		interaction := geometry.Interaction{P: geomAttr.P, Ng: geomAttr.N, Area: geomAttr.Area, InstanceID: a.InstanceID, PrimID: primID}
		l = a.Emission(interaction)
	}

	offset := n.Mul(1e-4)
	return LeSample{
		Valid:  true,
		Ray:    geometry.Ray{Origin: geomAttr.P.Add(offset), Direction: dir, TMin: 0, TMax: math.MaxFloat64},
		L:      l,
		PDFA:   pdfArea,
		PDFDir: pdfDir,
	}
}

// EvaluateHit returns the light's emitted radiance and solid-angle PDF
// as seen from pOrigin when a traced ray lands directly on this
// light's surface (used by BSDF-sampled paths that need MIS weights
// against the light sampler).
func (a *AreaLight) EvaluateHit(it geometry.Interaction, pOrigin vecmath.Vec3) Eval {
	toLight := it.P.Sub(pOrigin)
	dist2 := toLight.LengthSq()
	if dist2 < 1e-12 || it.Area <= 0 {
		return Eval{}
	}
	dist := math.Sqrt(dist2)
	wi := toLight.Div(dist)
	cosLight := it.Ng.Dot(wi.Neg())
	if !a.TwoSided && cosLight <= 0 {
		return Eval{}
	}
	cosLight = math.Abs(cosLight)
	if cosLight < 1e-9 {
		return Eval{}
	}
	triangleCount := float64(len(a.Mesh.Triangles))
	if triangleCount == 0 {
		return Eval{}
	}
	pdfArea := 1.0
	if a.Mesh.Areas != nil && it.PrimID >= 0 && it.PrimID < a.Mesh.Areas.Len() {
		pdfArea = a.Mesh.Areas.PDF(it.PrimID) / it.Area
	}
	pdfSolidAngle := pdfArea * dist2 / cosLight

	var l spectrum.Spectrum
	if a.Emission != nil {
		l = a.Emission(it)
	}
	return Eval{L: l, PDF: pdfSolidAngle}
}
