package scatter

import (
	"math"

	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// GlassClosure is the rough dielectric (reflect+refract) closure,
// supplemented from original_source/src/surfaces/glass.cpp: a
// MicrofacetReflection/MicrofacetTransmission pair sharing one
// TrowbridgeReitzDistribution, selected by a Fresnel-derived ratio KrRatio
// rather than a fixed 50/50 split, so specular highlights don't dominate
// variance on low-reflectance dielectrics.
type GlassClosure struct {
	Refl    MicrofacetReflection
	Trans   MicrofacetTransmission
	KrRatio float64
}

// NewGlassClosure builds a closure from albedo/transmittance spectra, a
// roughness alpha, and a (possibly dispersive) relative IOR, following
// GlassInstance::closure's Kr_ratio derivation: the Fresnel reflectance at
// the outgoing cosine cosO weighted by the relative luminance of Kr vs Kt,
// clamped to [0.1, 0.9] to keep both lobes sampled with nonzero
// probability.
func NewGlassClosure(kr, kt spectrum.Spectrum, eta spectrum.Spectrum, alpha vecmath.Vec2, cosO float64) GlassClosure {
	dist := TrowbridgeReitzDistribution{AlphaX: alpha.X, AlphaY: alpha.Y}
	one := spectrum.NewSpectrum(1)

	krLum := kr.Average()
	ktLum := kt.Average()
	krRatio := 0.0
	if krLum != 0 {
		krRatio = math.Sqrt(krLum) / (math.Sqrt(krLum) + math.Sqrt(ktLum))
	}
	meanEta := eta.Average()
	fr := FresnelDielectricReal(cosO, 1, meanEta)
	krRatio = clamp(fr*krRatio, 0.1, 0.9)

	refl := MicrofacetReflection{
		R:            kr,
		Distribution: dist,
		Fr:           SpectralFresnel{EtaI: one, EtaT: eta},
	}
	trans := MicrofacetTransmission{
		T:            kt,
		Distribution: dist,
		EtaA:         one,
		EtaB:         eta,
	}
	return GlassClosure{Refl: refl, Trans: trans, KrRatio: krRatio}
}

func (g GlassClosure) Evaluate(wo, wi vecmath.Vec3, mode Mode) spectrum.Spectrum {
	if vecmath.SameHemisphere(wo, wi) {
		return g.Refl.Evaluate(wo, wi, mode)
	}
	return g.Trans.Evaluate(wo, wi, mode)
}

func (g GlassClosure) PDF(wo, wi vecmath.Vec3, mode Mode) float64 {
	if vecmath.SameHemisphere(wo, wi) {
		return g.Refl.PDF(wo, wi, mode) * g.KrRatio
	}
	return g.Trans.PDF(wo, wi, mode) * (1 - g.KrRatio)
}

// SampleWi chooses between the reflection and transmission lobes by
// uLobe < KrRatio, mirroring GlassClosure::sample.
func (g GlassClosure) SampleWi(wo vecmath.Vec3, uLobe float64, u vecmath.Vec2) (wi vecmath.Vec3, valid bool) {
	if uLobe < g.KrRatio {
		return g.Refl.SampleWi(wo, u)
	}
	return g.Trans.SampleWi(wo, u)
}
