package scatter

import (
	"math"

	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// Tag is the compact integer discriminant spec §9's "Design Notes" calls
// for in place of the original polymorphic-call table: a surface handle
// carries this tag, and the integrator dispatches via a switch that
// materializes the concrete lobe, rather than through a virtual call.
type Tag uint8

const (
	TagLambertianReflection Tag = iota
	TagLambertianTransmission
	TagOrenNayar
	TagMicrofacetReflection
	TagMicrofacetTransmission
	TagFresnelBlend
	TagGlass
	TagLayered
)

func (t Tag) String() string {
	switch t {
	case TagLambertianReflection:
		return "LambertianReflection"
	case TagLambertianTransmission:
		return "LambertianTransmission"
	case TagOrenNayar:
		return "OrenNayar"
	case TagMicrofacetReflection:
		return "MicrofacetReflection"
	case TagMicrofacetTransmission:
		return "MicrofacetTransmission"
	case TagFresnelBlend:
		return "FresnelBlend"
	case TagGlass:
		return "Glass"
	case TagLayered:
		return "Layered"
	default:
		return "Unknown"
	}
}

// Closure is the tagged-union record a surface instance materializes at an
// interaction: exactly one of the pointer fields matching Tag is non-nil.
// The host-side "plugin" (registry factory) only ever picks the Tag and
// packs these parameters; every subsequent evaluate/sample/pdf call goes
// through the switch in this file instead of a virtual dispatch table.
type Closure struct {
	Tag Tag

	Lambertian   *LambertianReflection
	Transmission *LambertianTransmission
	OrenNayar    *OrenNayar
	MicroRefl    *MicrofacetReflection
	MicroTrans   *MicrofacetTransmission
	Blend        *FresnelBlend
	Glass        *GlassClosure
	Layered      *LayeredClosure

	// Transparency is the surface's cutout/alpha-map transparency in
	// [0,1], 0 by default so every existing construction site (including
	// the New*Closure helpers below, which never set it) stays fully
	// opaque. A surface plugin wiring an opacity map sets this directly;
	// Opacity() exposes its complement for spec §4.L.1's per-bounce
	// "if u_lobe >= opacity" skip test.
	Transparency float64
}

// Opacity is 1 - Transparency, spec §4.L.1's "opacity" a kernel compares
// a sampler-stream draw against before deciding whether this bounce's
// hit should be treated as fully transparent and skipped.
func (c Closure) Opacity() float64 { return 1 - c.Transparency }

// NewLambertianReflectionClosure packs a Closure around a
// LambertianReflection lobe.
func NewLambertianReflectionClosure(l LambertianReflection) Closure {
	return Closure{Tag: TagLambertianReflection, Lambertian: &l}
}

func NewLambertianTransmissionClosure(l LambertianTransmission) Closure {
	return Closure{Tag: TagLambertianTransmission, Transmission: &l}
}

func NewOrenNayarClosure(o OrenNayar) Closure {
	return Closure{Tag: TagOrenNayar, OrenNayar: &o}
}

func NewMicrofacetReflectionClosure(m MicrofacetReflection) Closure {
	return Closure{Tag: TagMicrofacetReflection, MicroRefl: &m}
}

func NewMicrofacetTransmissionClosure(m MicrofacetTransmission) Closure {
	return Closure{Tag: TagMicrofacetTransmission, MicroTrans: &m}
}

func NewFresnelBlendClosure(f FresnelBlend) Closure {
	return Closure{Tag: TagFresnelBlend, Blend: &f}
}

func NewGlassClosureTagged(g GlassClosure) Closure {
	return Closure{Tag: TagGlass, Glass: &g}
}

func NewLayeredClosureTagged(l LayeredClosure) Closure {
	return Closure{Tag: TagLayered, Layered: &l}
}

// Evaluate dispatches to the concrete lobe's Evaluate by Tag.
func (c Closure) Evaluate(wo, wi vecmath.Vec3, mode Mode, pcg *rng.PCG32) spectrum.Spectrum {
	switch c.Tag {
	case TagLambertianReflection:
		return c.Lambertian.Evaluate(wo, wi, mode)
	case TagLambertianTransmission:
		return c.Transmission.Evaluate(wo, wi, mode)
	case TagOrenNayar:
		return c.OrenNayar.Evaluate(wo, wi, mode)
	case TagMicrofacetReflection:
		return c.MicroRefl.Evaluate(wo, wi, mode)
	case TagMicrofacetTransmission:
		return c.MicroTrans.Evaluate(wo, wi, mode)
	case TagFresnelBlend:
		return c.Blend.Evaluate(wo, wi, mode)
	case TagGlass:
		return c.Glass.Evaluate(wo, wi, mode)
	case TagLayered:
		return c.Layered.Evaluate(wo, wi, mode, pcg)
	default:
		return spectrum.Spectrum{}
	}
}

// PDF dispatches to the concrete lobe's PDF by Tag.
func (c Closure) PDF(wo, wi vecmath.Vec3, mode Mode) float64 {
	switch c.Tag {
	case TagLambertianReflection:
		return c.Lambertian.PDF(wo, wi, mode)
	case TagLambertianTransmission:
		return c.Transmission.PDF(wo, wi, mode)
	case TagOrenNayar:
		return c.OrenNayar.PDF(wo, wi, mode)
	case TagMicrofacetReflection:
		return c.MicroRefl.PDF(wo, wi, mode)
	case TagMicrofacetTransmission:
		return c.MicroTrans.PDF(wo, wi, mode)
	case TagFresnelBlend:
		return c.Blend.PDF(wo, wi, mode)
	case TagGlass:
		return c.Glass.PDF(wo, wi, mode)
	case TagLayered:
		return c.Layered.PDF(wo, wi, mode)
	default:
		return 0
	}
}

// SampleWi dispatches to the concrete lobe's sampling routine. uLobe
// selects between sub-lobes for closures that mix more than one BxDF
// (Glass); it is ignored by single-lobe closures.
func (c Closure) SampleWi(wo vecmath.Vec3, uLobe float64, u vecmath.Vec2) (wi vecmath.Vec3, valid bool) {
	switch c.Tag {
	case TagLambertianReflection:
		return c.Lambertian.SampleWi(wo, u)
	case TagLambertianTransmission:
		return c.Transmission.SampleWi(wo, u)
	case TagOrenNayar:
		return c.OrenNayar.SampleWi(wo, u)
	case TagMicrofacetReflection:
		return c.MicroRefl.SampleWi(wo, u)
	case TagMicrofacetTransmission:
		return c.MicroTrans.SampleWi(wo, u)
	case TagFresnelBlend:
		return c.Blend.SampleWi(wo, u)
	case TagGlass:
		return c.Glass.SampleWi(wo, uLobe, u)
	case TagLayered:
		// Layered's random walk needs a PRNG stream, which this entry
		// point does not take; Layered is only reached through Evaluate
		// and PDF, and SampleWi reports no sample for it.
		return vecmath.Vec3{}, false
	default:
		return vecmath.Vec3{}, false
	}
}

// Backward is the optional differentiable-closure hook spec §4.D names
// ("backward(wo, wi, d_f) -> (d_params...)"): the gradient of the
// closure's single scalar reflectance/transmittance parameter given an
// upstream gradient dF with respect to the evaluated BSDF value.
// Compound closures with no single well-defined linear parameter
// (MicrofacetReflection/Transmission, Glass, Layered) report ok=false
// rather than an arbitrary approximation; FresnelBlend reports the
// gradient of its diffuse term only, treating its specular term as
// fixed — differentiability is opt-in per spec, not assumed.
func (c Closure) Backward(wo, wi vecmath.Vec3, dF spectrum.Spectrum) (spectrum.Spectrum, bool) {
	switch c.Tag {
	case TagLambertianReflection:
		return c.Lambertian.Backward(wo, wi, dF), true
	case TagLambertianTransmission:
		return c.Transmission.Backward(wo, wi, dF), true
	case TagOrenNayar:
		return c.OrenNayar.Backward(wo, wi, dF), true
	case TagFresnelBlend:
		return c.Blend.Backward(wo, wi, dF), true
	default:
		return spectrum.Spectrum{}, false
	}
}

// Albedo is the closure's representative reflectance/transmittance
// spectrum, used only by AOV-emitting kernels (spec §4.L.4) that dump a
// per-pixel albedo buffer — never by radiance accumulation, so an
// approximation for the compound closures (Glass, Layered) that have no
// single well-defined albedo is acceptable here.
func (c Closure) Albedo() spectrum.Spectrum {
	switch c.Tag {
	case TagLambertianReflection:
		return c.Lambertian.R
	case TagLambertianTransmission:
		return c.Transmission.T
	case TagOrenNayar:
		return c.OrenNayar.R
	case TagMicrofacetReflection:
		return c.MicroRefl.R
	case TagMicrofacetTransmission:
		return c.MicroTrans.T
	case TagFresnelBlend:
		return c.Blend.Rd.Add(c.Blend.Rs)
	case TagGlass:
		return c.Glass.Refl.R.MulScalar(c.Glass.KrRatio).Add(c.Glass.Trans.T.MulScalar(1 - c.Glass.KrRatio))
	case TagLayered:
		if c.Layered.Medium != nil {
			return c.Layered.Medium.Albedo
		}
		return spectrum.NewSpectrum(1)
	default:
		return spectrum.Spectrum{}
	}
}

// Roughness is the closure's perceptual roughness (sqrt(alpha) per axis).
// Closures with no microfacet distribution (Lambertian, OrenNayar) report
// fully rough (1, 1) rather than a zero value: the AOV kernel's
// near-specular gate treats roughness < 0.05 as a mirror bounce, and a
// diffuse closure reporting 0 would be misclassified as specular and
// silently drop out of the diffuse AOV it belongs in.
func (c Closure) Roughness() vecmath.Vec2 {
	alphaToRoughness := func(d TrowbridgeReitzDistribution) vecmath.Vec2 {
		return vecmath.Vec2{X: math.Sqrt(d.AlphaX), Y: math.Sqrt(d.AlphaY)}
	}
	switch c.Tag {
	case TagMicrofacetReflection:
		return alphaToRoughness(c.MicroRefl.Distribution)
	case TagMicrofacetTransmission:
		return alphaToRoughness(c.MicroTrans.Distribution)
	case TagFresnelBlend:
		return alphaToRoughness(c.Blend.Distribution)
	case TagGlass:
		return alphaToRoughness(c.Glass.Refl.Distribution)
	default:
		return vecmath.Vec2{X: 1, Y: 1}
	}
}
