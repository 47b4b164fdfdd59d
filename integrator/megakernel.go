package integrator

import (
	"math"

	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scatter"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"

	"github.com/lumenray/lumenray/geometry"
)

// Li traces one camera ray to radiance using next-event estimation with
// balanced-heuristic MIS against BSDF sampling, a per-bounce opacity
// skip (step 5 below) and Russian roulette after ctx.Params.RRDepth — a
// direct host-side reconstruction of mega_path.cpp's render_kernel loop
// (spec §4.L.1 Megakernel Path Tracing), with the device's
// compiled-kernel-per-dispatch structure collapsed into one Go function
// call per path, per spec §9's DSL-as-external-collaborator
// re-architecture.
func (ctx *Context) Li(ray geometry.Ray, beta spectrum.Spectrum, pcg *rng.PCG32) spectrum.Spectrum {
	L := spectrum.Spectrum{}
	pdfBSDF := 1e16 // "specular camera ray": the first bounce's MIS weight favors BSDF sampling outright.

	for depth := 0; depth < ctx.Params.MaxDepth; depth++ {
		hit := ctx.Geometry.TraceClosest(ray)
		if hit.Missed {
			if eval, ok := ctx.Lights.EvaluateMiss(ray.Direction); ok {
				w := balancedHeuristic(pdfBSDF, eval.PDF)
				L = L.Add(beta.Mul(eval.L).MulScalar(w))
			}
			break
		}

		it := interactionFromHit(ctx.Geometry, ray, hit)

		if it.Shape.HasLight() {
			if lightIdx, ok := ctx.lightIndexFor(it.InstanceID); ok {
				eval := ctx.Lights.EvaluateHit(lightIdx, it, ray.Origin)
				w := balancedHeuristic(pdfBSDF, eval.PDF)
				L = L.Add(beta.Mul(eval.L).MulScalar(w))
			}
		}

		if !it.Shape.HasSurface() {
			break
		}
		closure, ok := ctx.Surface(it)
		if !ok {
			break
		}

		uSel := pcg.UniformFloat64()
		uSurf := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
		sample, _, lightIdx := ctx.Lights.Sample(it, uSel, uSurf, pcg)

		wo := it.WoLocal(ray.Direction.Neg())
		occluded := false
		if sample.Valid && sample.Eval.PDF > 0 {
			occluded = ctx.Geometry.TraceAny(shadowRay(it, sample.ShadowRay.Direction, sample.ShadowRay.TMax))
		}
		_ = lightIdx

		// Step 5, opacity skip: a cutout-mapped surface's hit is treated
		// as fully transparent with probability 1-opacity. uLobe doubles
		// as the alpha test's draw, then is remapped so it stays uniform
		// for whichever branch runs (mega_path.cpp's render_kernel:
		// `u_lobe >= alpha` spawns a same-direction continuation ray and
		// pins pdf_bsdf to a large constant instead of sampling a lobe).
		uLobe := pcg.UniformFloat64()
		uBSDF := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
		opacity := closure.Opacity()
		if uLobe >= opacity {
			ray = spawnRay(it, ray.Direction)
			pdfBSDF = 1e16
			continue
		}
		uLobe /= opacity

		if sample.Valid && sample.Eval.PDF > 0 && !occluded {
			wiLocal := it.WoLocal(sample.ShadowRay.Direction)
			f := closure.Evaluate(wo, wiLocal, scatter.Radiance, pcg)
			bsdfPDF := closure.PDF(wo, wiLocal, scatter.Radiance)
			w := balancedHeuristic(sample.Eval.PDF, bsdfPDF)
			L = L.Add(beta.Mul(f).Mul(sample.Eval.L).MulScalar(w / sample.Eval.PDF))
		}

		wiLocal, valid := closure.SampleWi(wo, uLobe, uBSDF)
		if !valid {
			break
		}
		f := closure.Evaluate(wo, wiLocal, scatter.Radiance, pcg)
		pdf := closure.PDF(wo, wiLocal, scatter.Radiance)
		if pdf <= 0 || f.IsBlack() {
			break
		}
		beta = beta.Mul(f).MulScalar(1 / pdf)
		pdfBSDF = pdf

		wiWorld := it.Shading.LocalToWorld(wiLocal)
		ray = spawnRay(it, wiWorld)

		var alive bool
		beta, alive = russianRoulette(beta, depth, ctx.Params, pcg)
		if !alive {
			break
		}
	}
	return L
}

// lightIndexFor resolves the light-sampler index for an emissive
// instance hit by a traced ray. Scene construction (out of this
// module's scope, spec §6) is expected to populate this table as
// lights are registered; the zero-value Context answers every lookup
// with "no match" rather than panicking, so Li degrades to indirect-only
// lighting in tests that don't wire emissive instances through a light
// sampler.
func (ctx *Context) lightIndexFor(instanceID int) (int, bool) {
	if ctx.lightIndex == nil {
		return 0, false
	}
	idx, ok := ctx.lightIndex[instanceID]
	return idx, ok
}

// RegisterLightInstance associates an emissive instance with its index
// in the light sampler, so Li's hit-emission branch can form the
// correct MIS weight against that light's selection+surface PDF.
func (ctx *Context) RegisterLightInstance(instanceID, lightIndex int) {
	if ctx.lightIndex == nil {
		ctx.lightIndex = make(map[int]int)
	}
	ctx.lightIndex[instanceID] = lightIndex
}

// absCosTheta returns the bare shading-frame cosine, apart from a
// closure's already-cosine-weighted Evaluate result. No kernel in this
// package calls it.
func absCosTheta(v vecmath.Vec3) float64 { return math.Abs(v.Z) }
