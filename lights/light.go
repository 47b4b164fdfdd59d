// Package lights implements spec §4.F's light sampler and environment
// light: a power-based alias-table light sampler, area lights over
// emissive mesh instances, and an environment light backed by a
// precomputed Nishita sky table.
//
// No original_source file implements the light base class or its
// default sampler directly (only textures/nishita_precompute.cpp
// survived distillation), so the sampler/area-light shapes follow
// spec §4.F's prose directly; the tagged-union dispatch mirrors
// scatter.Closure, generalizing spec §9's "Design Notes" redesign
// mandate (written against surfaces) to this package's own
// polymorphic-call-table equivalent.
package lights

import (
	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// Tag discriminates the two light kinds spec §4.F describes.
type Tag uint8

const (
	TagArea Tag = iota
	TagEnvironment
)

func (t Tag) String() string {
	switch t {
	case TagArea:
		return "Area"
	case TagEnvironment:
		return "Environment"
	default:
		return "Unknown"
	}
}

// ShadowRay is the occlusion-test ray a sample produces: the integrator
// traces it with Geometry.TraceAny and discards the sample if occluded.
type ShadowRay struct {
	Origin    vecmath.Vec3
	Direction vecmath.Vec3
	TMax      float64
}

// Eval bundles a light sample's radiance and combined PDF
// (pdf_select * pdf_surface, per spec §4.F).
type Eval struct {
	L   spectrum.Spectrum
	PDF float64
}

// SampleResult is what Light.Sample returns: a shadow ray plus its eval.
type SampleResult struct {
	ShadowRay ShadowRay
	Eval      Eval
	Valid     bool
}

// LeSample is what Light.SampleLe returns: an emitted ray leaving the
// light's surface, its radiance, and the area/direction PDFs a photon
// vertex divides out separately (per pssmlt.cpp-adjacent photon-tracing
// convention of keeping area and directional sampling densities apart
// rather than folding them into one solid-angle PDF as Sample does).
type LeSample struct {
	Ray    geometry.Ray
	L      spectrum.Spectrum
	PDFA   float64
	PDFDir float64
	Valid  bool
}

// EmissionFunc evaluates a light-emitting surface's radiance at an
// interaction; left as a function rather than a hard-wired Spectrum so
// a diff-backed textured parameter can stand in without coupling this
// package to the differentiation engine's buffer layout.
type EmissionFunc func(it geometry.Interaction) spectrum.Spectrum

// Light is the tagged-union record materialized per scene light, packed
// by the plugin registry exactly as scatter.Closure is for surfaces:
// exactly one of Area/Environment is non-nil for a given Tag.
type Light struct {
	Tag Tag

	Area *AreaLight
	Env  *EnvironmentLight
}

// Power returns an estimate of total emitted power, used by the default
// sampler's alias table.
func (l Light) Power() float64 {
	switch l.Tag {
	case TagArea:
		return l.Area.Power()
	case TagEnvironment:
		return l.Env.Power()
	default:
		return 0
	}
}

// Sample draws one light sample toward it, per spec §4.F's
// `sample(it, u_sel, u_surf, swl, time) -> {shadow_ray, eval}`. u_sel
// (the light-selection random number) is consumed by the sampler before
// this call; uSurf is the remaining 2D sample for surface/direction
// selection within this light.
func (l Light) Sample(it geometry.Interaction, uSurf vecmath.Vec2, pcg *rng.PCG32) SampleResult {
	switch l.Tag {
	case TagArea:
		return l.Area.Sample(it, uSurf, pcg)
	case TagEnvironment:
		return l.Env.Sample(it, uSurf)
	default:
		return SampleResult{}
	}
}

// EvaluateHit evaluates emitted radiance when a traced ray lands on this
// light's surface (area lights only; environment lights are queried via
// EvaluateMiss since they have no finite surface to hit).
func (l Light) EvaluateHit(it geometry.Interaction, pOrigin vecmath.Vec3) Eval {
	if l.Tag == TagArea {
		return l.Area.EvaluateHit(it, pOrigin)
	}
	return Eval{}
}

// EvaluateMiss evaluates radiance along a ray that escaped the scene,
// per spec §4.F's `evaluate_miss(dir, swl, time)`.
func (l Light) EvaluateMiss(dir vecmath.Vec3) Eval {
	if l.Tag == TagEnvironment {
		return l.Env.EvaluateMiss(dir)
	}
	return Eval{}
}

// SampleLe draws an emitted photon ray leaving this light, for Photon
// Mapping's emission pass (spec §4.L.6). Only area lights support this:
// megapm_importon.cpp's own problem list notes environment emission
// isn't supported "due to const world radius", and that limitation
// carries over here rather than inventing sphere-emission sampling the
// original never had.
func (l Light) SampleLe(uSurf, uDir vecmath.Vec2, pcg *rng.PCG32) LeSample {
	if l.Tag == TagArea {
		return l.Area.SampleLe(uSurf, uDir, pcg)
	}
	return LeSample{}
}
