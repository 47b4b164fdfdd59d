package scatter

import (
	"math"

	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// BxDF is a single scattering lobe, evaluated in the local shading frame
// (wo, wi both point away from the surface). Evaluators return
// f * |cos(theta_i)|, the "integrand convention" spec §4.D specifies.
type BxDF interface {
	Evaluate(wo, wi vecmath.Vec3, mode Mode) spectrum.Spectrum
	SampleWi(wo vecmath.Vec3, u vecmath.Vec2) (wi vecmath.Vec3, valid bool)
	PDF(wo, wi vecmath.Vec3, mode Mode) float64
}

// invPi is 1/pi, used throughout the diffuse lobes.
const invPi = 1 / math.Pi

// LambertianReflection is R * inv_pi when wo, wi share a hemisphere.
type LambertianReflection struct {
	R spectrum.Spectrum
}

func (l LambertianReflection) Evaluate(wo, wi vecmath.Vec3, _ Mode) spectrum.Spectrum {
	if !vecmath.SameHemisphere(wo, wi) {
		return spectrum.Spectrum{}
	}
	return l.R.MulScalar(invPi * vecmath.AbsCosTheta(wi))
}

func (l LambertianReflection) SampleWi(wo vecmath.Vec3, u vecmath.Vec2) (vecmath.Vec3, bool) {
	wi := rng.CosineSampleHemisphere(u)
	if wo.Z < 0 {
		wi.Z = -wi.Z
	}
	return wi, true
}

func (l LambertianReflection) PDF(wo, wi vecmath.Vec3, _ Mode) float64 {
	if !vecmath.SameHemisphere(wo, wi) {
		return 0
	}
	return rng.CosineHemispherePDF(vecmath.CosTheta(wi))
}

// Backward is d(f)/d(R): Evaluate is linear in R, so the gradient is
// just the lobe shape evaluated at unit reflectance, scaled by the
// upstream gradient dF lane-for-lane.
func (l LambertianReflection) Backward(wo, wi vecmath.Vec3, dF spectrum.Spectrum) spectrum.Spectrum {
	if !vecmath.SameHemisphere(wo, wi) {
		return spectrum.Spectrum{}
	}
	return dF.MulScalar(invPi * vecmath.AbsCosTheta(wi))
}

// LambertianTransmission is T * inv_pi on the opposite hemisphere from wo.
type LambertianTransmission struct {
	T spectrum.Spectrum
}

func (l LambertianTransmission) Evaluate(wo, wi vecmath.Vec3, _ Mode) spectrum.Spectrum {
	if vecmath.SameHemisphere(wo, wi) {
		return spectrum.Spectrum{}
	}
	return l.T.MulScalar(invPi * vecmath.AbsCosTheta(wi))
}

func (l LambertianTransmission) SampleWi(wo vecmath.Vec3, u vecmath.Vec2) (vecmath.Vec3, bool) {
	wi := rng.CosineSampleHemisphere(u)
	if wo.Z > 0 {
		wi.Z = -wi.Z
	}
	return wi, true
}

func (l LambertianTransmission) PDF(wo, wi vecmath.Vec3, _ Mode) float64 {
	if vecmath.SameHemisphere(wo, wi) {
		return 0
	}
	return rng.CosineHemispherePDF(vecmath.CosTheta(wi))
}

// Backward is d(f)/d(T), the transmissive analogue of
// LambertianReflection.Backward.
func (l LambertianTransmission) Backward(wo, wi vecmath.Vec3, dF spectrum.Spectrum) spectrum.Spectrum {
	if vecmath.SameHemisphere(wo, wi) {
		return spectrum.Spectrum{}
	}
	return dF.MulScalar(invPi * vecmath.AbsCosTheta(wi))
}

// OrenNayar is the rough-diffuse lobe parameterized by reflectance R and
// roughness sigma (degrees), per spec §4.D:
// A = 1 - sigma^2/(2*sigma^2+0.66), B = 0.45*sigma^2/(sigma^2+0.09).
type OrenNayar struct {
	R       spectrum.Spectrum
	SigmaDeg float64
}

func (o OrenNayar) ab() (a, b float64) {
	s := o.SigmaDeg * math.Pi / 180
	s2 := s * s
	a = 1 - s2/(2*s2+0.66)
	b = 0.45 * s2 / (s2 + 0.09)
	return
}

func (o OrenNayar) Evaluate(wo, wi vecmath.Vec3, _ Mode) spectrum.Spectrum {
	if !vecmath.SameHemisphere(wo, wi) {
		return spectrum.Spectrum{}
	}
	sinThetaI := vecmath.SinTheta(wi)
	sinThetaO := vecmath.SinTheta(wo)
	maxCos := 0.0
	if sinThetaI > 1e-9 && sinThetaO > 1e-9 {
		dCos := vecmath.CosPhi(wi)*vecmath.CosPhi(wo) + vecmath.SinPhi(wi)*vecmath.SinPhi(wo)
		maxCos = math.Max(0, dCos)
	}
	var sinAlpha, tanBeta float64
	if vecmath.AbsCosTheta(wi) > vecmath.AbsCosTheta(wo) {
		sinAlpha = sinThetaO
		tanBeta = sinThetaI / vecmath.AbsCosTheta(wi)
	} else {
		sinAlpha = sinThetaI
		tanBeta = sinThetaO / vecmath.AbsCosTheta(wo)
	}
	a, b := o.ab()
	factor := invPi * (a + b*maxCos*sinAlpha*tanBeta)
	return o.R.MulScalar(factor * vecmath.AbsCosTheta(wi))
}

func (o OrenNayar) SampleWi(wo vecmath.Vec3, u vecmath.Vec2) (vecmath.Vec3, bool) {
	wi := rng.CosineSampleHemisphere(u)
	if wo.Z < 0 {
		wi.Z = -wi.Z
	}
	return wi, true
}

func (o OrenNayar) PDF(wo, wi vecmath.Vec3, _ Mode) float64 {
	if !vecmath.SameHemisphere(wo, wi) {
		return 0
	}
	return rng.CosineHemispherePDF(vecmath.CosTheta(wi))
}

// Backward is d(f)/d(R): like LambertianReflection, Evaluate is linear
// in R, so the gradient is the same rough-diffuse shape term evaluated
// independent of R.
func (o OrenNayar) Backward(wo, wi vecmath.Vec3, dF spectrum.Spectrum) spectrum.Spectrum {
	if !vecmath.SameHemisphere(wo, wi) {
		return spectrum.Spectrum{}
	}
	sinThetaI := vecmath.SinTheta(wi)
	sinThetaO := vecmath.SinTheta(wo)
	maxCos := 0.0
	if sinThetaI > 1e-9 && sinThetaO > 1e-9 {
		dCos := vecmath.CosPhi(wi)*vecmath.CosPhi(wo) + vecmath.SinPhi(wi)*vecmath.SinPhi(wo)
		maxCos = math.Max(0, dCos)
	}
	var sinAlpha, tanBeta float64
	if vecmath.AbsCosTheta(wi) > vecmath.AbsCosTheta(wo) {
		sinAlpha = sinThetaO
		tanBeta = sinThetaI / vecmath.AbsCosTheta(wi)
	} else {
		sinAlpha = sinThetaI
		tanBeta = sinThetaO / vecmath.AbsCosTheta(wo)
	}
	a, b := o.ab()
	factor := invPi * (a + b*maxCos*sinAlpha*tanBeta)
	return dF.MulScalar(factor * vecmath.AbsCosTheta(wi))
}

// DielectricFresnel evaluates FresnelDielectricReal against a fixed
// etaI/etaT pair, used by MicrofacetReflection when the interface isn't
// spectrally dispersive.
type DielectricFresnel struct{ EtaI, EtaT float64 }

func (f DielectricFresnel) Evaluate(cosThetaI float64) spectrum.Spectrum {
	return spectrum.NewSpectrum(FresnelDielectricReal(cosThetaI, f.EtaI, f.EtaT))
}

// SpectralFresnel wraps a spectral dielectric Fresnel term (e.g. glass
// dispersion), where etaT varies per wavelength lane.
type SpectralFresnel struct {
	EtaI spectrum.Spectrum
	EtaT spectrum.Spectrum
}

func (f SpectralFresnel) Evaluate(cosThetaI float64) spectrum.Spectrum {
	return FresnelDielectricSpectrum(cosThetaI, f.EtaI, f.EtaT)
}

// Fresnel abstracts over dielectric/conductor/spectral Fresnel terms so
// MicrofacetReflection can be shared across material types.
type Fresnel interface {
	Evaluate(cosThetaI float64) spectrum.Spectrum
}

// MicrofacetReflection is the half-vector-sampled rough specular BRDF.
type MicrofacetReflection struct {
	R            spectrum.Spectrum
	Distribution TrowbridgeReitzDistribution
	Fr           Fresnel
}

func (m MicrofacetReflection) Evaluate(wo, wi vecmath.Vec3, _ Mode) spectrum.Spectrum {
	cosThetaO := vecmath.AbsCosTheta(wo)
	cosThetaI := vecmath.AbsCosTheta(wi)
	wh := wi.Add(wo)
	if cosThetaI == 0 || cosThetaO == 0 || (wh.X == 0 && wh.Y == 0 && wh.Z == 0) {
		return spectrum.Spectrum{}
	}
	wh = wh.Normalize()
	f := m.Fr.Evaluate(wi.Dot(wh))
	d := m.Distribution.D(wh)
	g := m.Distribution.G(wo, wi)
	scale := d * g / (4 * cosThetaI * cosThetaO)
	return m.R.Mul(f).MulScalar(scale * cosThetaI)
}

func (m MicrofacetReflection) SampleWi(wo vecmath.Vec3, u vecmath.Vec2) (vecmath.Vec3, bool) {
	if wo.Z == 0 {
		return vecmath.Vec3{}, false
	}
	wh := m.Distribution.Sample(wo, u)
	if wo.Dot(wh) < 0 {
		return vecmath.Vec3{}, false
	}
	wi := wh.Mul(2 * wo.Dot(wh)).Sub(wo)
	if !vecmath.SameHemisphere(wo, wi) {
		return vecmath.Vec3{}, false
	}
	return wi, true
}

func (m MicrofacetReflection) PDF(wo, wi vecmath.Vec3, _ Mode) float64 {
	if !vecmath.SameHemisphere(wo, wi) {
		return 0
	}
	wh := wi.Add(wo)
	if wh.X == 0 && wh.Y == 0 && wh.Z == 0 {
		return 0
	}
	wh = wh.Normalize()
	if wh.Z < 0 {
		wh = wh.Neg()
	}
	return m.Distribution.PDF(wo, wh) / (4 * wo.Dot(wh))
}

// MicrofacetTransmission is Walter's rough BTDF. EtaA is the IOR on the wo
// side, EtaB on the wi side.
type MicrofacetTransmission struct {
	T            spectrum.Spectrum
	Distribution TrowbridgeReitzDistribution
	EtaA, EtaB   spectrum.Spectrum
}

func refract(wi vecmath.Vec3, n vecmath.Vec3, eta float64) (vecmath.Vec3, bool) {
	cosThetaI := n.Dot(wi)
	sin2ThetaI := math.Max(0, 1-cosThetaI*cosThetaI)
	sin2ThetaT := eta * eta * sin2ThetaI
	if sin2ThetaT >= 1 {
		return vecmath.Vec3{}, false
	}
	cosThetaT := math.Sqrt(1 - sin2ThetaT)
	wt := wi.Neg().Mul(eta).Add(n.Mul(eta*cosThetaI - cosThetaT))
	return wt, true
}

func (m MicrofacetTransmission) scalarEta() float64 {
	return m.EtaA.Average() // used only for the wh-side selection below
}

func (m MicrofacetTransmission) Evaluate(wo, wi vecmath.Vec3, mode Mode) spectrum.Spectrum {
	if vecmath.SameHemisphere(wo, wi) {
		return spectrum.Spectrum{}
	}
	cosThetaO := vecmath.CosTheta(wo)
	cosThetaI := vecmath.CosTheta(wi)
	if cosThetaI == 0 || cosThetaO == 0 {
		return spectrum.Spectrum{}
	}

	etaScalar := ite(cosThetaO > 0, m.EtaB.Average()/m.EtaA.Average(), m.EtaA.Average()/m.EtaB.Average())
	wh := wo.Add(wi.Mul(etaScalar)).Normalize()
	if wh.Z < 0 {
		wh = wh.Neg()
	}
	if wo.Dot(wh)*wi.Dot(wh) > 0 {
		return spectrum.Spectrum{}
	}

	var out spectrum.Spectrum
	for lane := 0; lane < spectrum.NumLanes; lane++ {
		etaA := m.EtaA.V[lane]
		etaB := m.EtaB.V[lane]
		f := fresnelDielectricLane(wo.Dot(wh), etaA, etaB)
		sqrtDenom := wo.Dot(wh) + etaScalar*wi.Dot(wh)
		factor := 1.0
		if mode == Radiance {
			factor = 1 / etaScalar
		}
		d := m.Distribution.D(wh)
		g := m.Distribution.G(wo, wi)
		numerator := d * (1 - f) * g * math.Abs(wi.Dot(wh)) * math.Abs(wo.Dot(wh)) * factor * factor
		denom := cosThetaI * cosThetaO * sqrtDenom * sqrtDenom
		val := 0.0
		if denom != 0 {
			val = numerator / denom
		}
		out.V[lane] = m.T.V[lane] * val * math.Abs(cosThetaI)
	}
	return out
}

func fresnelDielectricLane(cosThetaI, etaA, etaB float64) float64 {
	return FresnelDielectricReal(cosThetaI, etaA, etaB)
}

func (m MicrofacetTransmission) SampleWi(wo vecmath.Vec3, u vecmath.Vec2) (vecmath.Vec3, bool) {
	if wo.Z == 0 {
		return vecmath.Vec3{}, false
	}
	wh := m.Distribution.Sample(wo, u)
	if wo.Dot(wh) < 0 {
		wh = wh.Neg()
	}
	etaA := m.EtaA.Average()
	etaB := m.EtaB.Average()
	entering := vecmath.CosTheta(wo) > 0
	etaRatio := ite(entering, etaA/etaB, etaB/etaA)
	wi, ok := refract(wo, faceForward(wh, wo), etaRatio)
	if !ok {
		return vecmath.Vec3{}, false
	}
	return wi, true
}

func faceForward(n, v vecmath.Vec3) vecmath.Vec3 {
	if n.Dot(v) < 0 {
		return n.Neg()
	}
	return n
}

func (m MicrofacetTransmission) PDF(wo, wi vecmath.Vec3, _ Mode) float64 {
	if vecmath.SameHemisphere(wo, wi) {
		return 0
	}
	etaA := m.EtaA.Average()
	etaB := m.EtaB.Average()
	eta := ite(vecmath.CosTheta(wo) > 0, etaB/etaA, etaA/etaB)
	wh := wo.Add(wi.Mul(eta)).Normalize()
	if wh.Z < 0 {
		wh = wh.Neg()
	}
	if wo.Dot(wh)*wi.Dot(wh) > 0 {
		return 0
	}
	sqrtDenom := wo.Dot(wh) + eta*wi.Dot(wh)
	dwhDwi := math.Abs((eta * eta * wi.Dot(wh)) / (sqrtDenom * sqrtDenom))
	return m.Distribution.PDF(wo, wh) * dwhDwi
}

// FresnelBlend mixes a diffuse lobe Rd with a Schlick-approximated
// specular lobe Rs weighted by a microfacet distribution, per spec §4.D.
// The sampling pdf mixes the two lobes by RdRatio (diffuse weight).
type FresnelBlend struct {
	Rd, Rs       spectrum.Spectrum
	Distribution TrowbridgeReitzDistribution
}

func (f FresnelBlend) schlick(cosTheta float64) spectrum.Spectrum {
	w := FresnelSchlick(cosTheta)
	one := spectrum.NewSpectrum(1)
	return f.Rs.Add(one.Sub(f.Rs).MulScalar(w))
}

func (f FresnelBlend) Evaluate(wo, wi vecmath.Vec3, _ Mode) spectrum.Spectrum {
	diffuse := f.Rd.Mul(spectrum.NewSpectrum(1).Sub(f.Rs)).MulScalar(
		(28.0 / (23.0 * math.Pi)) *
			(1 - pow5(1-0.5*vecmath.AbsCosTheta(wi))) *
			(1 - pow5(1-0.5*vecmath.AbsCosTheta(wo))))

	wh := wi.Add(wo)
	if wh.X == 0 && wh.Y == 0 && wh.Z == 0 {
		return diffuse.MulScalar(vecmath.AbsCosTheta(wi))
	}
	wh = wh.Normalize()
	d := f.Distribution.D(wh)
	schlick := f.schlick(wi.Dot(wh))
	denom := 4 * math.Abs(wi.Dot(wh)) * math.Max(vecmath.AbsCosTheta(wi), vecmath.AbsCosTheta(wo))
	specular := spectrum.Spectrum{}
	if denom > 0 {
		specular = schlick.MulScalar(d / denom)
	}
	return diffuse.Add(specular).MulScalar(vecmath.AbsCosTheta(wi))
}

func (f FresnelBlend) rdRatio() float64 {
	rd := f.Rd.MaxComponent()
	rs := f.Rs.MaxComponent()
	if rd+rs == 0 {
		return 0.5
	}
	return rd / (rd + rs)
}

func (f FresnelBlend) SampleWi(wo vecmath.Vec3, u vecmath.Vec2) (vecmath.Vec3, bool) {
	if u.X < f.rdRatio() {
		u2 := vecmath.Vec2{X: remap(u.X, 0, f.rdRatio()), Y: u.Y}
		wi := rng.CosineSampleHemisphere(u2)
		if wo.Z < 0 {
			wi.Z = -wi.Z
		}
		return wi, true
	}
	u2 := vecmath.Vec2{X: remap(u.X, f.rdRatio(), 1), Y: u.Y}
	wh := f.Distribution.Sample(wo, u2)
	wi := wh.Mul(2 * wo.Dot(wh)).Sub(wo)
	if !vecmath.SameHemisphere(wo, wi) {
		return vecmath.Vec3{}, false
	}
	return wi, true
}

func remap(x, lo, hi float64) float64 {
	if hi-lo <= 0 {
		return 0
	}
	return clamp((x-lo)/(hi-lo), 0, 1)
}

// Backward is d(f)/d(Rd): only the diffuse lobe's dependence on Rd is
// differentiated (Rs is treated as fixed), matching the original
// scene-description convention that only a surface's `diffuse` node
// is wired to a differentiable parameter slot.
func (f FresnelBlend) Backward(wo, wi vecmath.Vec3, dF spectrum.Spectrum) spectrum.Spectrum {
	shape := (28.0 / (23.0 * math.Pi)) *
		(1 - pow5(1-0.5*vecmath.AbsCosTheta(wi))) *
		(1 - pow5(1-0.5*vecmath.AbsCosTheta(wo))) *
		vecmath.AbsCosTheta(wi)
	oneMinusRs := spectrum.NewSpectrum(1).Sub(f.Rs)
	return dF.Mul(oneMinusRs).MulScalar(shape)
}

func (f FresnelBlend) PDF(wo, wi vecmath.Vec3, _ Mode) float64 {
	if !vecmath.SameHemisphere(wo, wi) {
		return 0
	}
	wh := wi.Add(wo).Normalize()
	specPDF := f.Distribution.PDF(wo, wh) / (4 * wo.Dot(wh))
	diffPDF := rng.CosineHemispherePDF(vecmath.CosTheta(wi))
	ratio := f.rdRatio()
	return ratio*diffPDF + (1-ratio)*specPDF
}

func pow5(x float64) float64 { x2 := x * x; return x2 * x2 * x }
