package integrator

import (
	"github.com/lumenray/lumenray/diff"
	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scatter"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// LossKind selects the per-pixel loss whose gradient seeds the
// differentiable kernel's backward pass, matching the original's Loss
// enum (L1, L2; unrecognized strings fall back to L2 there too).
type LossKind int

const (
	LossL2 LossKind = iota
	LossL1
)

// LossGradient is d(loss)/d(rendered): 2*(rendered-target) for L2,
// component-wise sign(rendered-target) for L1.
func LossGradient(kind LossKind, rendered, target spectrum.Spectrum) spectrum.Spectrum {
	delta := rendered.Sub(target)
	if kind == LossL1 {
		var out spectrum.Spectrum
		for lane := 0; lane < spectrum.NumLanes; lane++ {
			if delta.V[lane] >= 0 {
				out.V[lane] = 1
			} else {
				out.V[lane] = -1
			}
		}
		return out
	}
	return delta.MulScalar(2)
}

// DiffParamFunc resolves the differentiable parameter handle bound to
// a surface interaction's closure, if any. This is the out-of-scope
// (spec §6) scene-construction detail that in the original ties a
// `diffuse` surface node's reflectance input to a
// `Differentiation::parameter()` slot; here it is simply a
// caller-supplied lookup, the same pattern SurfaceFunc/MediumFunc
// already use for their own out-of-scope resolution.
type DiffParamFunc func(it geometry.Interaction) (diff.Handle, bool)

// LiBackward is spec §4.L's differentiable kernel's backward pass,
// grounded on mega_path_grad.cpp's `_integrate_one_camera`. Unlike
// every other kernel in this package it performs no next-event
// estimation — the original kernel's body has a bare "// hit light
// TODO" where NEE would otherwise go — so the camera ray is walked
// purely by BSDF sampling. At every surface bounce, before the path
// continues, the closure's Backward is evaluated against the
// loss-seeded throughput accumulated so far and scattered into
// diffEngine: this is the "radiative backpropagation" trick the
// original's comment-free kernel body relies on — propagating beta
// forward along the path accumulates exactly the product of every
// later bounce's BSDF/pdf weight, which is what the chain rule needs
// multiplied into an earlier bounce's parameter gradient.
//
// gradWeight is shutter_weight / (pixel_count * spp), matching the
// original's per-sample gradient normalization. slotSeed decorrelates
// this sample's collision-avoided gradient scatter from other
// concurrently accumulating samples (diff.Buffers.AccumulateConstant).
func (ctx *Context) LiBackward(ray geometry.Ray, cameraWeight float64, lossGrad spectrum.Spectrum, pcg *rng.PCG32, diffParam DiffParamFunc, diffEngine *diff.Differentiation, gradWeight float64, slotSeed uint32) {
	beta := spectrum.NewSpectrum(cameraWeight).Mul(lossGrad)

	for depth := 0; depth < ctx.Params.MaxDepth; depth++ {
		hit := ctx.Geometry.TraceClosest(ray)
		if hit.Missed {
			break
		}
		it := interactionFromHit(ctx.Geometry, ray, hit)
		if !it.Shape.HasSurface() {
			break
		}
		closure, ok := ctx.Surface(it)
		if !ok {
			break
		}
		wo := it.WoLocal(ray.Direction.Neg())

		// Opacity skip (spec §4.L.1 step 5): a transparent bounce spawns a
		// continuation ray without touching beta or scattering a gradient,
		// exactly as it contributes nothing to the forward pass either.
		uLobe := pcg.UniformFloat64()
		uBSDF := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
		opacity := closure.Opacity()
		if uLobe >= opacity {
			ray = spawnRay(it, ray.Direction)
			continue
		}
		uLobe /= opacity

		wiLocal, valid := closure.SampleWi(wo, uLobe, uBSDF)
		if !valid {
			break
		}

		if diffParam != nil && diffEngine != nil {
			if handle, ok := diffParam(it); ok {
				if dParam, ok := closure.Backward(wo, wiLocal, beta.MulScalar(gradWeight)); ok {
					diffEngine.AccumulateConstant(handle, dParam.V, slotSeed)
				}
			}
		}

		f := closure.Evaluate(wo, wiLocal, scatter.Radiance, pcg)
		pdf := closure.PDF(wo, wiLocal, scatter.Radiance)
		if pdf <= 0 || f.IsBlack() {
			break
		}
		beta = beta.Mul(f).MulScalar(1 / pdf)
		ray = spawnRay(it, it.Shading.LocalToWorld(wiLocal))

		var alive bool
		beta, alive = russianRoulette(beta, depth, ctx.Params, pcg)
		if !alive {
			break
		}
	}
}
