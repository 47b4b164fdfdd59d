package integrator

import (
	"math"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scatter"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// primarySample is one coordinate of Primary Sample Space Metropolis
// Light Transport's sample vector, per spec §4.L.5's PrimarySample
// record: value plus enough history (backup, last-modification
// iteration) to reject a mutation back to its pre-mutation state.
type primarySample struct {
	value                float64
	valueBackup          float64
	lastModificationIter uint64
	modificationBackup   uint64
}

func (p *primarySample) backup() {
	p.valueBackup = p.value
	p.modificationBackup = p.lastModificationIter
}

func (p *primarySample) restoreIf(iter uint64) {
	if p.lastModificationIter == iter {
		p.value = p.valueBackup
		p.lastModificationIter = p.modificationBackup
	}
}

// sqrtTwo matches the original's constant used to map a uniform sample
// to a standard-normal one via the inverse error function.
const sqrtTwo = math.Sqrt2

// erfInv is the polynomial approximation to the inverse error function
// pssmlt.cpp's PSSMLTSampler uses for its small-step Gaussian
// perturbation, ported term for term (single-precision constants kept
// as literals; the approximation's accuracy is what matters, not the
// bit-exact float32 rounding).
func erfInv(x float64) float64 {
	x = math.Max(-0.99999, math.Min(0.99999, x))
	w := -math.Log((1 - x) * (1 + x))
	var p float64
	if w < 5 {
		w -= 2.5
		p = 2.81022636e-08
		p = 3.43273939e-07 + p*w
		p = -3.5233877e-06 + p*w
		p = -4.39150654e-06 + p*w
		p = 0.00021858087 + p*w
		p = -0.00125372503 + p*w
		p = -0.00417768164 + p*w
		p = 0.246640727 + p*w
		p = 1.50140941 + p*w
	} else {
		w = math.Sqrt(w) - 3
		p = -0.000200214257
		p = 0.000100950558 + p*w
		p = 0.00134934322 + p*w
		p = -0.00367342844 + p*w
		p = 0.00573950773 + p*w
		p = -0.0076224613 + p*w
		p = 0.00943887047 + p*w
		p = 1.00167406 + p*w
		p = 2.83297682 + p*w
	}
	return p * x
}

// PSSMLTSampler is spec §4.L.5's mutation-based sample source: a fixed
// pool of primary-sample-space coordinates, lazily resynced to the
// current iteration in generate_1d (only the coordinates a path
// actually consumes ever get mutated), Bernoulli-selected between large
// steps (fresh uniform redraw) and small steps (Gaussian perturbation
// scaled by sigma), per pssmlt.cpp's PSSMLTSampler.
type PSSMLTSampler struct {
	rng                    *rng.PCG32
	currentIteration       uint64
	largeStep              bool
	lastLargeStepIteration uint64
	sampleIndex            int
	samples                []primarySample

	sigma                float64
	largeStepProbability float64
}

// NewPSSMLTSampler allocates a pssDim-coordinate sampler seeded from
// seq, matching PSSMLTSampler's constructor parameters.
func NewPSSMLTSampler(pssDim int, sigma, largeStepProbability float64, seq uint64) *PSSMLTSampler {
	return &PSSMLTSampler{
		rng:                  rng.NewPCG32Seeded(0x853c49e6748fea9b, seq),
		largeStep:            true,
		samples:              make([]primarySample, pssDim),
		sigma:                sigma,
		largeStepProbability: largeStepProbability,
	}
}

// StartIteration advances the chain by one mutation, choosing large vs.
// small step by a single Bernoulli draw.
func (s *PSSMLTSampler) StartIteration() {
	s.currentIteration++
	s.largeStep = s.rng.UniformFloat64() < s.largeStepProbability
}

// Accept commits the current mutation: a large step resets the reset
// horizon every unconsumed coordinate will resync against.
func (s *PSSMLTSampler) Accept() {
	if s.largeStep {
		s.lastLargeStepIteration = s.currentIteration
	}
}

// Reject restores every coordinate this iteration touched and rewinds
// the iteration counter, so the chain's state is exactly as it was
// before StartIteration was called.
func (s *PSSMLTSampler) Reject() {
	for i := range s.samples {
		s.samples[i].restoreIf(s.currentIteration)
	}
	s.currentIteration--
}

// StartStream resets the per-path coordinate cursor; call once before
// each full light-transport path a mutation evaluates.
func (s *PSSMLTSampler) StartStream() { s.sampleIndex = 0 }

func (s *PSSMLTSampler) ensureReady(index int) {
	xi := &s.samples[index]
	if xi.lastModificationIter < s.lastLargeStepIteration {
		xi.value = s.rng.UniformFloat64()
		xi.lastModificationIter = s.lastLargeStepIteration
	}
	xi.backup()
	if s.largeStep {
		xi.value = s.rng.UniformFloat64()
	} else {
		nSmall := s.currentIteration - xi.lastModificationIter
		normalSample := sqrtTwo * erfInv(2*s.rng.UniformFloat64()-1)
		effSigma := s.sigma * math.Sqrt(float64(nSmall))
		xi.value += normalSample * effSigma
		xi.value -= math.Floor(xi.value)
	}
	xi.lastModificationIter = s.currentIteration
}

// Generate1D returns (and lazily resyncs) the next coordinate in the
// current path's stream.
func (s *PSSMLTSampler) Generate1D() float64 {
	if s.sampleIndex >= len(s.samples) {
		// Pools size themselves to the dimension a path actually
		// consumes; growing here keeps a too-small pssDim from
		// panicking instead of silently reusing a stale coordinate.
		s.samples = append(s.samples, primarySample{})
	}
	s.ensureReady(s.sampleIndex)
	v := s.samples[s.sampleIndex].value
	s.sampleIndex++
	return v
}

// Generate2D draws two consecutive coordinates as a 2D sample.
func (s *PSSMLTSampler) Generate2D() vecmath.Vec2 {
	x := s.Generate1D()
	y := s.Generate1D()
	return vecmath.Vec2{X: x, Y: y}
}

// LiPSSMLT traces one mutation's path with Li's NEE+MIS loop, but draws
// the light-selection, lobe, BSDF and roulette numbers from sampler's
// primary-sample stream instead of a plain PRNG stream, per pssmlt.cpp's
// Li override. Its Russian roulette differs from Li's: it uses the
// throughput's largest component (floored at 0.05) rather than its
// average, and applies once depth+1 >= RRDepth.
func (ctx *Context) LiPSSMLT(ray geometry.Ray, beta spectrum.Spectrum, sampler *PSSMLTSampler) spectrum.Spectrum {
	L := spectrum.Spectrum{}
	pdfBSDF := 1e16

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

		uSel := sampler.Generate1D()
		uSurf := sampler.Generate2D()
		sample, _, _ := ctx.Lights.Sample(it, uSel, uSurf, sampler.rng)

		wo := it.WoLocal(ray.Direction.Neg())
		occluded := false
		if sample.Valid && sample.Eval.PDF > 0 {
			occluded = ctx.Geometry.TraceAny(shadowRay(it, sample.ShadowRay.Direction, sample.ShadowRay.TMax))
		}

		// Opacity skip (spec §4.L.1 step 5). uLobe must come from the
		// mutated primary-sample stream like every other draw this
		// iteration — a PRNG hash of the ray, as Geometry.TraceClosest's
		// own opacity test uses, would desynchronize this chain's
		// sample vector from the coordinate StartStream/accept/reject
		// bookkeeping expects at this depth.
		uLobe := sampler.Generate1D()
		uBSDF := sampler.Generate2D()
		opacity := closure.Opacity()
		if uLobe >= opacity {
			ray = spawnRay(it, ray.Direction)
			pdfBSDF = 1e16
			continue
		}
		uLobe /= opacity

		if sample.Valid && sample.Eval.PDF > 0 && !occluded {
			wiLocal := it.WoLocal(sample.ShadowRay.Direction)
			f := closure.Evaluate(wo, wiLocal, scatter.Radiance, sampler.rng)
			bsdfPDF := closure.PDF(wo, wiLocal, scatter.Radiance)
			w := balancedHeuristic(sample.Eval.PDF, bsdfPDF)
			L = L.Add(beta.Mul(f).Mul(sample.Eval.L).MulScalar(w / sample.Eval.PDF))
		}

		wiLocal, valid := closure.SampleWi(wo, uLobe, uBSDF)
		if !valid {
			break
		}
		f := closure.Evaluate(wo, wiLocal, scatter.Radiance, sampler.rng)
		pdf := closure.PDF(wo, wiLocal, scatter.Radiance)
		if pdf <= 0 || f.IsBlack() {
			break
		}
		beta = beta.Mul(f).MulScalar(1 / pdf)
		pdfBSDF = pdf
		ray = spawnRay(it, it.Shading.LocalToWorld(wiLocal))

		if beta.HasNaN() || beta.MaxComponent() <= 0 {
			break
		}
		q := math.Max(beta.MaxComponent(), 0.05)
		if depth+1 >= ctx.Params.RRDepth {
			u := sampler.Generate1D()
			if q < ctx.Params.RRThreshold && u >= q {
				break
			}
			if q < ctx.Params.RRThreshold {
				beta = beta.MulScalar(1 / q)
			}
		}
	}
	return L
}
