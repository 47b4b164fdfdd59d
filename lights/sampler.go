package lights

import (
	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/vecmath"
)

// Sampler is the light-sampler interface spec §4.F describes: select a
// light and sample it, or evaluate radiance for a path that already
// landed on one (via BSDF sampling) so the integrator can form the MIS
// weight against this sampler's own selection PDF.
type Sampler interface {
	Sample(it geometry.Interaction, uSel float64, uSurf vecmath.Vec2, pcg *rng.PCG32) (SampleResult, Tag, int)
	PDF(lightIndex int) float64
	EvaluateHit(lightIndex int, it geometry.Interaction, pOrigin vecmath.Vec3) Eval
	EvaluateMiss(dir vecmath.Vec3) (Eval, bool)
	Len() int
}

// PowerSampler is the default light sampler: it selects a light via an
// alias table weighted by each light's estimated power, per spec §4.F
// ("The default sampler chooses a light via a power-based alias
// table... per-light pdf_select * pdf_surface is returned").
type PowerSampler struct {
	lights []Light
	alias  *rng.AliasTable
	envIdx int // index of the environment light, or -1
}

// NewPowerSampler builds the alias table once from every light's Power().
func NewPowerSampler(lights []Light) *PowerSampler {
	weights := make([]float64, len(lights))
	envIdx := -1
	for i, l := range lights {
		weights[i] = l.Power()
		if l.Tag == TagEnvironment {
			envIdx = i
		}
	}
	return &PowerSampler{lights: lights, alias: rng.NewAliasTable(weights), envIdx: envIdx}
}

// Len reports the number of registered lights.
func (s *PowerSampler) Len() int { return len(s.lights) }

// Sample selects a light by uSel, then defers surface/direction sampling
// to that light, multiplying its eval PDF by this sampler's selection
// PDF as spec §4.F requires.
func (s *PowerSampler) Sample(it geometry.Interaction, uSel float64, uSurf vecmath.Vec2, pcg *rng.PCG32) (SampleResult, Tag, int) {
	if len(s.lights) == 0 {
		return SampleResult{}, 0, -1
	}
	idx, pdfSelect := s.alias.Sample(uSel, uSurf.X)
	if pdfSelect <= 0 {
		return SampleResult{}, 0, -1
	}
	light := s.lights[idx]
	result := light.Sample(it, uSurf, pcg)
	if !result.Valid {
		return result, light.Tag, idx
	}
	result.Eval.PDF *= pdfSelect
	return result, light.Tag, idx
}

// PDF returns the selection probability for one light index.
func (s *PowerSampler) PDF(lightIndex int) float64 {
	return s.alias.PDF(lightIndex)
}

// EvaluateHit evaluates a landed-on light's radiance and multiplies in
// this sampler's selection PDF, for MIS against BSDF sampling.
func (s *PowerSampler) EvaluateHit(lightIndex int, it geometry.Interaction, pOrigin vecmath.Vec3) Eval {
	if lightIndex < 0 || lightIndex >= len(s.lights) {
		return Eval{}
	}
	eval := s.lights[lightIndex].EvaluateHit(it, pOrigin)
	eval.PDF *= s.PDF(lightIndex)
	return eval
}

// SampleLe selects a light by the same power-weighted alias table Sample
// uses, then asks it for an emitted photon ray. Selecting an environment
// light yields an invalid sample (see Light.SampleLe) rather than a
// panic, so a caller iterating many emission samples can simply skip it.
func (s *PowerSampler) SampleLe(uSel float64, uSurf, uDir vecmath.Vec2, pcg *rng.PCG32) (LeSample, int, float64) {
	if len(s.lights) == 0 {
		return LeSample{}, -1, 0
	}
	idx, pdfSelect := s.alias.Sample(uSel, uSurf.X)
	if pdfSelect <= 0 {
		return LeSample{}, idx, 0
	}
	return s.lights[idx].SampleLe(uSurf, uDir, pcg), idx, pdfSelect
}

// EvaluateMiss evaluates the environment light (if any) along an escaped
// ray, reporting whether an environment light was registered at all.
func (s *PowerSampler) EvaluateMiss(dir vecmath.Vec3) (Eval, bool) {
	if s.envIdx < 0 {
		return Eval{}, false
	}
	eval := s.lights[s.envIdx].EvaluateMiss(dir)
	eval.PDF *= s.PDF(s.envIdx)
	return eval, true
}
