package scatter

import (
	"math"

	"github.com/lumenray/lumenray/vecmath"
)

// TrowbridgeReitzDistribution is the anisotropic GGX microfacet normal
// distribution function, per spec §4.D.
type TrowbridgeReitzDistribution struct {
	AlphaX, AlphaY float64
}

// RoughnessToAlpha converts a perceptual roughness in [0,1] to the
// distribution's alpha parameter: max(r^2, 1e-4), per spec §4.D.
func RoughnessToAlpha(roughness float64) float64 {
	return math.Max(roughness*roughness, 1e-4)
}

// AlphaToRoughness inverts RoughnessToAlpha via sqrt, used by the
// differentiation engine's backward pass through remapped roughness.
func AlphaToRoughness(alpha float64) float64 {
	return math.Sqrt(alpha)
}

// GradAlphaRoughness returns d(alpha)/d(roughness) = 2*roughness, used to
// chain backward gradients from alpha-space to roughness-space.
func GradAlphaRoughness(roughness float64) float64 {
	return 2 * roughness
}

func (d TrowbridgeReitzDistribution) Alpha() vecmath.Vec2 {
	return vecmath.Vec2{X: d.AlphaX, Y: d.AlphaY}
}

// EffectivelySmooth reports whether both alpha terms are small enough that
// the distribution should degenerate to a perfect mirror/specular lobe.
func (d TrowbridgeReitzDistribution) EffectivelySmooth() bool {
	return math.Max(d.AlphaX, d.AlphaY) < 1e-3
}

// D evaluates the normal distribution function at local-space half-vector wh.
func (d TrowbridgeReitzDistribution) D(wh vecmath.Vec3) float64 {
	tan2 := vecmath.Tan2Theta(wh)
	if math.IsInf(tan2, 1) {
		return 0
	}
	cos4 := vecmath.Cos2Theta(wh) * vecmath.Cos2Theta(wh)
	if cos4 < 1e-16 {
		return 0
	}
	cosPhi := vecmath.CosPhi(wh)
	sinPhi := vecmath.SinPhi(wh)
	e := tan2 * ((cosPhi*cosPhi)/(d.AlphaX*d.AlphaX) + (sinPhi*sinPhi)/(d.AlphaY*d.AlphaY))
	denom := math.Pi * d.AlphaX * d.AlphaY * cos4 * (1 + e) * (1 + e)
	if denom == 0 {
		return 0
	}
	return 1 / denom
}

// lambda is the masking-shadowing auxiliary function Λ(w).
func (d TrowbridgeReitzDistribution) lambda(w vecmath.Vec3) float64 {
	tan2 := vecmath.Tan2Theta(w)
	if math.IsInf(tan2, 1) {
		return 0
	}
	cosPhi := vecmath.CosPhi(w)
	sinPhi := vecmath.SinPhi(w)
	alpha2 := cosPhi*cosPhi*d.AlphaX*d.AlphaX + sinPhi*sinPhi*d.AlphaY*d.AlphaY
	return (math.Sqrt(1+alpha2*tan2) - 1) / 2
}

// G1 is the monodirectional masking function 1/(1+Λ(w)).
func (d TrowbridgeReitzDistribution) G1(w vecmath.Vec3) float64 {
	return 1 / (1 + d.lambda(w))
}

// G is the Smith height-correlated masking-shadowing term
// G = 1/(1+Λ(wo)+Λ(wi)), per spec §4.D.
func (d TrowbridgeReitzDistribution) G(wo, wi vecmath.Vec3) float64 {
	return 1 / (1 + d.lambda(wo) + d.lambda(wi))
}

// PDF returns the visible-normal sampling pdf
// pdf(wo,wh) = D*G1(wo)*|wo.wh|/|cosThetaWo|, per spec §4.D.
func (d TrowbridgeReitzDistribution) PDF(wo, wh vecmath.Vec3) float64 {
	cosThetaWo := vecmath.AbsCosTheta(wo)
	if cosThetaWo == 0 {
		return 0
	}
	return d.D(wh) * d.G1(wo) * math.Abs(wo.Dot(wh)) / cosThetaWo
}

// Sample importance-samples a half-vector via the stretch-sample-unstretch
// procedure (Heitz 2014), given a local-space outgoing direction and a
// unit-square sample.
func (d TrowbridgeReitzDistribution) Sample(wo vecmath.Vec3, u vecmath.Vec2) vecmath.Vec3 {
	// Stretch view direction into the hemisphere of the isotropic
	// configuration.
	whStretched := vecmath.Vec3{X: d.AlphaX * wo.X, Y: d.AlphaY * wo.Y, Z: wo.Z}.Normalize()

	// Sample visible-normal distribution p22 in the stretched space.
	lensq := whStretched.X*whStretched.X + whStretched.Y*whStretched.Y
	var t1, t2 vecmath.Vec3
	if lensq > 0 {
		inv := 1 / math.Sqrt(lensq)
		t1 = vecmath.Vec3{X: -whStretched.Y * inv, Y: whStretched.X * inv, Z: 0}
	} else {
		t1 = vecmath.Vec3{X: 1, Y: 0, Z: 0}
	}
	t2 = t1.Cross(whStretched)

	a := 1.0 / (1.0 + whStretched.Z)
	r := math.Sqrt(u.X)
	phi := 2 * math.Pi * u.Y
	if u.Y > a {
		phi = math.Pi*(u.Y-a)/(1-a) + math.Pi
	}
	p1 := r * math.Cos(phi)
	p2 := r * math.Sin(phi) * ite(u.Y <= a, 1.0, whStretched.Z)

	p3 := math.Sqrt(math.Max(0, 1-p1*p1-p2*p2))
	nh := t1.Mul(p1).Add(t2.Mul(p2)).Add(whStretched.Mul(p3))

	// Unstretch.
	wh := vecmath.Vec3{
		X: d.AlphaX * nh.X,
		Y: d.AlphaY * nh.Y,
		Z: math.Max(1e-6, nh.Z),
	}
	return wh.Normalize()
}

func ite(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
