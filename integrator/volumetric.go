package integrator

import (
	"math"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/medium"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scatter"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// MediumEvent names what a surface does to the medium tracker when a
// ray crosses it, per spec §4.L.3's "update the tracker on enter/exit
// using the surface's event (enter | exit | reflect)".
type MediumEvent int

const (
	EventReflect MediumEvent = iota
	EventEnter
	EventExit
)

// MediumEventFunc resolves a surface interaction's medium-tracker event
// and the medium.Info to enter/exit, when the surface borders a
// participating medium at all.
type MediumEventFunc func(it geometry.Interaction) (info medium.Info, event MediumEvent, ok bool)

// trackingPass walks ray through every intersection along its path
// (ignoring opacity/surface response entirely) to initialize the
// tracker's stack of active media before the main loop starts, per
// spec §4.L.3's "Before the main loop a tracking pass walks the camera
// ray through all intersections to initialize the stack of active
// media (enter on enter-events, symmetric exit-or-enter on
// exit-events)." maxSteps bounds pathological geometry (coincident
// surfaces) from looping forever.
func (ctx *Context) trackingPass(ray geometry.Ray, tracker *medium.Tracker, eventFn MediumEventFunc, maxSteps int) {
	if eventFn == nil {
		return
	}
	for step := 0; step < maxSteps; step++ {
		hit := ctx.Geometry.TraceClosest(ray)
		if hit.Missed {
			return
		}
		it := interactionFromHit(ctx.Geometry, ray, hit)
		if info, event, ok := eventFn(it); ok {
			applyMediumEvent(tracker, info, event)
		}
		ray = spawnRay(it, ray.Direction)
	}
}

func applyMediumEvent(tracker *medium.Tracker, info medium.Info, event MediumEvent) {
	switch event {
	case EventEnter:
		tracker.Enter(info)
	case EventExit: // symmetric exit-or-enter, per spec §4.L.3.
		if tracker.Exist(info) {
			tracker.Exit(info)
		} else {
			tracker.Enter(info)
		}
	}
	// EventReflect leaves the tracker unchanged: the ray does not cross
	// the boundary.
}

// LiVolumetric is spec §4.L.3's Volumetric PT kernel: §4.L.1's
// NEE+MIS+RR skeleton, extended with analog (delta) free-flight
// sampling through the medium tracker's current medium, Henyey-
// Greenstein phase-function scattering at medium interactions, and
// tracker maintenance at surface interactions via eventFn.
func (ctx *Context) LiVolumetric(ray geometry.Ray, beta spectrum.Spectrum, eventFn MediumEventFunc, pcg *rng.PCG32) spectrum.Spectrum {
	L := spectrum.Spectrum{}
	pdfBSDF := 1e16

	tracker := medium.New()
	ctx.trackingPass(ray, tracker, eventFn, ctx.Params.MaxDepth*4+8)

	for depth := 0; depth < ctx.Params.MaxDepth; depth++ {
		hit := ctx.Geometry.TraceClosest(ray)
		hitDist := hit.T
		if hit.Missed {
			hitDist = math.MaxFloat64
		}

		if !tracker.Vacuum() && ctx.Medium != nil {
			if m, ok := ctx.Medium(tracker.Current().Tag); ok && m.SigmaT > 0 {
				u := pcg.UniformFloat64()
				freeFlight := -math.Log(1-u) / m.SigmaT
				if freeFlight < hitDist {
					// Medium interaction: analog tracking makes the
					// free-flight pdf cancel exactly, leaving the
					// single-scattering albedo as the only weight.
					beta = beta.Mul(m.Albedo)
					p := scatter.HGPhaseFunction{G: m.G}
					pWorld := ray.Origin.Add(ray.Direction.Mul(freeFlight))
					uPhase := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
					wiLocal, _ := p.SampleP(ray.Direction.Neg(), uPhase)
					ray = geometry.Ray{Origin: pWorld, Direction: wiLocal, TMin: 1e-4, TMax: math.MaxFloat64}
					pdfBSDF = 1e16
					var alive bool
					beta, alive = russianRoulette(beta, depth, ctx.Params, pcg)
					if !alive {
						break
					}
					continue
				}
			}
		}

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

		if eventFn != nil {
			if info, event, ok := eventFn(it); ok {
				applyMediumEvent(tracker, info, event)
			}
		}

		if !it.Shape.HasSurface() {
			ray = spawnRay(it, ray.Direction)
			continue
		}
		closure, ok := ctx.Surface(it)
		if !ok {
			break
		}

		uSel := pcg.UniformFloat64()
		uSurf := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
		sample, _, _ := ctx.Lights.Sample(it, uSel, uSurf, pcg)

		wo := it.WoLocal(ray.Direction.Neg())
		occluded := false
		if sample.Valid && sample.Eval.PDF > 0 {
			occluded = ctx.Geometry.TraceAny(shadowRay(it, sample.ShadowRay.Direction, sample.ShadowRay.TMax))
		}

		// Opacity skip (spec §4.L.1 step 5): same cutout-alpha test and
		// u-remap as the megakernel, ahead of direct lighting and BSDF
		// sampling; a skipped bounce doesn't enter/exit the medium
		// tracker since eventFn already ran above for this interaction.
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
		ray = spawnRay(it, it.Shading.LocalToWorld(wiLocal))

		var alive bool
		beta, alive = russianRoulette(beta, depth, ctx.Params, pcg)
		if !alive {
			break
		}
	}
	return L
}
