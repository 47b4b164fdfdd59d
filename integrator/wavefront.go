package integrator

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scatter"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// parallelForN fans fn(0), fn(1), ..., fn(n-1) out across a
// GOMAXPROCS-capped errgroup and waits for all of them, mirroring the
// original's SIMT dispatch of one lane per thread without any of
// Stage 2/3/4/5's loop bodies needing to synchronize with each other:
// every call here only ever touches the one lane (or queue slot) its
// position names.
func parallelForN(n int, fn func(pos int)) {
	if n == 0 {
		return
	}
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for pos := 0; pos < n; pos++ {
		pos := pos
		g.Go(func() error {
			fn(pos)
			return nil
		})
	}
	_ = g.Wait()
}

// pathState is one wavefront lane's persistent state across stages,
// the host-side equivalent of spec §4.L.2's six device-side SoA
// arrays (wavelength_sample, beta, radiance, pdf_bsdf, ray, hit)
// collapsed into one struct per lane since this package has no SIMT
// buffer layout to pack for.
type pathState struct {
	ray     geometry.Ray
	beta    spectrum.Spectrum
	L       spectrum.Spectrum
	pdfBSDF float64
	hit     geometry.Hit
	it      geometry.Interaction
	alive   bool
	pcg     *rng.PCG32
}

// WavefrontBatch processes N independent camera paths breadth-first,
// one stage at a time across the whole batch, rather than depth-first
// one pixel at a time — the structural difference spec §4.L.2
// describes as four rotating queues (surface/light/miss/path) a
// free-list counter arena partitions rays into each sample-batch.
// Final per-path radiance is identical to what Context.Li would
// produce given the same rays and PRNG streams; only the evaluation
// order differs.
type WavefrontBatch struct {
	ctx    *Context
	states []*pathState
}

// NewWavefrontBatch seeds one lane per camera ray with its initial
// throughput and PRNG stream.
func NewWavefrontBatch(ctx *Context, rays []geometry.Ray, betas []spectrum.Spectrum, pcgs []*rng.PCG32) *WavefrontBatch {
	states := make([]*pathState, len(rays))
	for i := range rays {
		states[i] = &pathState{ray: rays[i], beta: betas[i], pdfBSDF: 1e16, alive: true, pcg: pcgs[i]}
	}
	return &WavefrontBatch{ctx: ctx, states: states}
}

// Run drives every lane to completion (dead or max_depth reached) and
// returns the accumulated radiance per lane, in input order.
func (b *WavefrontBatch) Run() []spectrum.Spectrum {
	ctx := b.ctx
	for depth := 0; depth < ctx.Params.MaxDepth; depth++ {
		active := b.activeIndices()
		if len(active) == 0 {
			break
		}

		// Stage 1: generate_rays is a no-op here — rays already live
		// in each lane's state, refreshed at the end of the previous
		// iteration's evaluate_surface stage.

		// Stage 2: intersect. Tracing fans out across lanes; the
		// miss/surface partition itself is cheap enough to stay
		// single-threaded once every lane's hit is resolved.
		parallelForN(len(active), func(pos int) {
			s := b.states[active[pos]]
			s.hit = ctx.Geometry.TraceClosest(s.ray)
			if !s.hit.Missed {
				s.it = interactionFromHit(ctx.Geometry, s.ray, s.hit)
			}
		})
		var missQueue, surfaceQueue []int
		for _, i := range active {
			if b.states[i].hit.Missed {
				missQueue = append(missQueue, i)
			} else {
				surfaceQueue = append(surfaceQueue, i)
			}
		}

		// Stage 3a: evaluate_miss.
		parallelForN(len(missQueue), func(pos int) {
			s := b.states[missQueue[pos]]
			if eval, ok := ctx.Lights.EvaluateMiss(s.ray.Direction); ok {
				w := balancedHeuristic(s.pdfBSDF, eval.PDF)
				s.L = s.L.Add(s.beta.Mul(eval.L).MulScalar(w))
			}
			s.alive = false
		})

		// Stage 3b: evaluate_light (hit emission), then drop lanes
		// with no surface from the queue (mirroring the original's
		// "$if(!it->shape()->has_surface()) { $break; }"). The surface
		// test itself stays single-threaded so lightQueue's append
		// order is deterministic; only the light evaluation it gates
		// runs fanned out.
		parallelForN(len(surfaceQueue), func(pos int) {
			s := b.states[surfaceQueue[pos]]
			if s.it.Shape.HasLight() {
				if lightIdx, ok := ctx.lightIndexFor(s.it.InstanceID); ok {
					eval := ctx.Lights.EvaluateHit(lightIdx, s.it, s.ray.Origin)
					w := balancedHeuristic(s.pdfBSDF, eval.PDF)
					s.L = s.L.Add(s.beta.Mul(eval.L).MulScalar(w))
				}
			}
		})
		var lightQueue []int
		for _, i := range surfaceQueue {
			s := b.states[i]
			if s.it.Shape.HasSurface() {
				lightQueue = append(lightQueue, i)
			} else {
				s.alive = false
			}
		}

		type shadowPlan struct {
			lightPDF float64
			lightL   spectrum.Spectrum
			wiLocal  vecmath.Vec3
			occluded bool
			valid    bool
		}
		plans := make([]shadowPlan, len(lightQueue))

		// Stage 4: sample_light — produce and trace shadow rays. Each
		// goroutine only ever writes its own plans[pos] slot, so no
		// synchronization is needed despite every lane calling into
		// the shared acceleration structure concurrently.
		parallelForN(len(lightQueue), func(pos int) {
			s := b.states[lightQueue[pos]]
			uSel := s.pcg.UniformFloat64()
			uSurf := vecmath.Vec2{X: s.pcg.UniformFloat64(), Y: s.pcg.UniformFloat64()}
			sample, _, _ := ctx.Lights.Sample(s.it, uSel, uSurf, s.pcg)
			if !sample.Valid || sample.Eval.PDF <= 0 {
				return
			}
			occluded := ctx.Geometry.TraceAny(shadowRay(s.it, sample.ShadowRay.Direction, sample.ShadowRay.TMax))
			plans[pos] = shadowPlan{
				lightPDF: sample.Eval.PDF,
				lightL:   sample.Eval.L,
				wiLocal:  s.it.WoLocal(sample.ShadowRay.Direction),
				occluded: occluded,
				valid:    true,
			}
		})

		// Stage 5: evaluate_surface — direct lighting MIS, BSDF sample,
		// RR, write the next ray. Every lane owns its own pathState and
		// pcg stream, so this also fans out across lanes.
		parallelForN(len(lightQueue), func(pos int) {
			i := lightQueue[pos]
			s := b.states[i]
			closure, ok := ctx.Surface(s.it)
			if !ok {
				s.alive = false
				return
			}
			wo := s.it.WoLocal(s.ray.Direction.Neg())

			// Opacity skip (spec §4.L.1 step 5, shared across every
			// kernel): uLobe doubles as the cutout-alpha test's draw,
			// then is remapped so it stays uniform whichever branch
			// runs. A skipped lane spawns a same-direction continuation
			// ray and pins pdf_bsdf, without touching beta or running
			// Russian roulette this stage.
			uLobe := s.pcg.UniformFloat64()
			uBSDF := vecmath.Vec2{X: s.pcg.UniformFloat64(), Y: s.pcg.UniformFloat64()}
			opacity := closure.Opacity()
			if uLobe >= opacity {
				s.ray = spawnRay(s.it, s.ray.Direction)
				s.pdfBSDF = 1e16
				return
			}
			uLobe /= opacity

			if plan := plans[pos]; plan.valid && !plan.occluded {
				f := closure.Evaluate(wo, plan.wiLocal, scatter.Radiance, s.pcg)
				bsdfPDF := closure.PDF(wo, plan.wiLocal, scatter.Radiance)
				w := balancedHeuristic(plan.lightPDF, bsdfPDF)
				s.L = s.L.Add(s.beta.Mul(f).Mul(plan.lightL).MulScalar(w / plan.lightPDF))
			}

			wiLocal, valid := closure.SampleWi(wo, uLobe, uBSDF)
			if !valid {
				s.alive = false
				return
			}
			f := closure.Evaluate(wo, wiLocal, scatter.Radiance, s.pcg)
			pdf := closure.PDF(wo, wiLocal, scatter.Radiance)
			if pdf <= 0 || f.IsBlack() {
				s.alive = false
				return
			}
			s.beta = s.beta.Mul(f).MulScalar(1 / pdf)
			s.pdfBSDF = pdf
			s.ray = spawnRay(s.it, s.it.Shading.LocalToWorld(wiLocal))

			beta, alive := russianRoulette(s.beta, depth, ctx.Params, s.pcg)
			s.beta = beta
			s.alive = alive
		})
	}

	// Stage 6: accumulate.
	out := make([]spectrum.Spectrum, len(b.states))
	for i, s := range b.states {
		out[i] = s.L
	}
	return out
}

func (b *WavefrontBatch) activeIndices() []int {
	var active []int
	for i, s := range b.states {
		if s.alive {
			active = append(active, i)
		}
	}
	return active
}
