package integrator

import (
	"math"

	"github.com/lumenray/lumenray/film"
	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scatter"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// DumpStrategy decides when the AOV kernel's buffers get written to
// disk, per spec §4.L.4's three named strategies.
type DumpStrategy int

const (
	DumpPower2 DumpStrategy = iota
	DumpAll
	DumpFinal
)

// ShouldDump reports whether sampleCount (1-indexed, the number of
// samples accumulated into the AOV buffers so far) is a dump point
// under strategy, given the kernel's total sample count. Actual file
// I/O is an external collaborator (spec §6); this only decides when.
func ShouldDump(strategy DumpStrategy, sampleCount, totalSamples int) bool {
	switch strategy {
	case DumpAll:
		return true
	case DumpFinal:
		return sampleCount == totalSamples
	default: // DumpPower2
		return sampleCount > 0 && sampleCount&(sampleCount-1) == 0
	}
}

// AOVBuffers holds one accumulation buffer per enabled component, per
// spec §4.L.4. A nil entry means that component is disabled, mirroring
// AuxiliaryBuffer's enabled flag — writes to a disabled component are
// simply skipped.
type AOVBuffers struct {
	Sample, Diffuse, Specular *film.Buffer
	Normal, Albedo, NDC       *film.Buffer
	Depth, Mask               *film.Buffer
	Roughness                 *film.Buffer
}

// NewAOVBuffers allocates one film.Buffer per component named in
// enabled; components not listed are left nil (disabled).
func NewAOVBuffers(width, height int, enabled map[film.Component]bool) *AOVBuffers {
	alloc := func(c film.Component) *film.Buffer {
		if !enabled[c] {
			return nil
		}
		return film.NewBuffer(width, height, c)
	}
	return &AOVBuffers{
		Sample:    alloc(film.ComponentSample),
		Diffuse:   alloc(film.ComponentDiffuse),
		Specular:  alloc(film.ComponentSpecular),
		Normal:    alloc(film.ComponentNormal),
		Albedo:    alloc(film.ComponentAlbedo),
		NDC:       alloc(film.ComponentNDC),
		Depth:     alloc(film.ComponentDepth),
		Mask:      alloc(film.ComponentMask),
		Roughness: alloc(film.ComponentRoughness),
	}
}

func accumulate(b *film.Buffer, x, y int, values ...float64) {
	if b == nil {
		return
	}
	b.Accumulate(x, y, values)
}

// LiAOV is spec §4.L.4's AOV-emitting variant: identical NEE+MIS+RR
// control flow to Li, but at depth 0 it additionally writes
// mask/normal/depth/ndc/albedo/roughness, and throughout the path it
// separately accumulates a diffuse-only throughput (betaDiffuse) frozen
// the instant a "specular bounce" (roughness < 0.05, mirroring the
// original's `all(closure->roughness() < .05f)`) occurs, so sample,
// diffuse, and specular (= sample - diffuse) can be dumped as distinct
// AOVs — grounded on aov.cpp's render_auxiliary_kernel.
func (ctx *Context) LiAOV(px, py int, resolution [2]int, ray geometry.Ray, weight float64, pcg *rng.PCG32, buffers *AOVBuffers) {
	beta := spectrum.NewSpectrum(weight)
	betaDiffuse := spectrum.NewSpectrum(weight)
	L := spectrum.Spectrum{}
	LDiffuse := spectrum.Spectrum{}
	pdfBSDF := 1e16
	specularBounce := false
	origin := ray.Origin

	for depth := 0; depth < ctx.Params.MaxDepth; depth++ {
		hit := ctx.Geometry.TraceClosest(ray)

		if depth == 0 && !hit.Missed {
			it := interactionFromHit(ctx.Geometry, ray, hit)
			accumulate(buffers.Mask, px, py, 1)
			n := it.Shading.LocalToWorld(vecmath.Vec3{Z: 1})
			accumulate(buffers.Normal, px, py, n.X, n.Y, n.Z)
			dist := it.P.Sub(origin).Length()
			accumulate(buffers.Depth, px, py, dist)
			ndcX := (float64(px)/float64(resolution[0])*2 - 1)
			ndcY := -(float64(py)/float64(resolution[1])*2 - 1)
			ndcZ := dist / math.Max(ray.TMax-ray.TMin, 1e-9)
			accumulate(buffers.NDC, px, py, ndcX, ndcY, ndcZ)
			if it.Shape.HasSurface() {
				if closure, ok := ctx.Surface(it); ok {
					alb := closure.Albedo()
					accumulate(buffers.Albedo, px, py, alb.V[0], alb.V[1], alb.V[2])
					rough := closure.Roughness()
					accumulate(buffers.Roughness, px, py, rough.X, rough.Y)
				}
			}
		}

		if hit.Missed {
			if eval, ok := ctx.Lights.EvaluateMiss(ray.Direction); ok {
				w := balancedHeuristic(pdfBSDF, eval.PDF)
				L = L.Add(beta.Mul(eval.L).MulScalar(w))
				if !specularBounce {
					LDiffuse = LDiffuse.Add(betaDiffuse.Mul(eval.L).MulScalar(w))
				}
			}
			break
		}

		it := interactionFromHit(ctx.Geometry, ray, hit)

		if it.Shape.HasLight() {
			if lightIdx, ok := ctx.lightIndexFor(it.InstanceID); ok {
				eval := ctx.Lights.EvaluateHit(lightIdx, it, ray.Origin)
				w := balancedHeuristic(pdfBSDF, eval.PDF)
				L = L.Add(beta.Mul(eval.L).MulScalar(w))
				if !specularBounce {
					LDiffuse = LDiffuse.Add(betaDiffuse.Mul(eval.L).MulScalar(w))
				}
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
		sample, _, _ := ctx.Lights.Sample(it, uSel, uSurf, pcg)

		wo := it.WoLocal(ray.Direction.Neg())
		occluded := false
		if sample.Valid && sample.Eval.PDF > 0 {
			occluded = ctx.Geometry.TraceAny(shadowRay(it, sample.ShadowRay.Direction, sample.ShadowRay.TMax))
		}

		// Opacity skip (spec §4.L.1 step 5). A skipped bounce leaves
		// specularBounce untouched and doesn't advance betaDiffuse,
		// matching Li's own "nothing about throughput changes here."
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
			if !specularBounce {
				LDiffuse = LDiffuse.Add(betaDiffuse.Mul(f).Mul(sample.Eval.L).MulScalar(w / sample.Eval.PDF))
			}
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
		if !specularBounce {
			betaDiffuse = betaDiffuse.Mul(f).MulScalar(1 / pdf)
		}
		pdfBSDF = pdf
		rough := closure.Roughness()
		specularBounce = rough.X < 0.05 && rough.Y < 0.05

		ray = spawnRay(it, it.Shading.LocalToWorld(wiLocal))

		var alive bool
		beta, alive = russianRoulette(beta, depth, ctx.Params, pcg)
		if !alive {
			break
		}
	}

	accumulate(buffers.Sample, px, py, L.V[0], L.V[1], L.V[2])
	accumulate(buffers.Diffuse, px, py, LDiffuse.V[0], LDiffuse.V[1], LDiffuse.V[2])
	spec := L.Sub(LDiffuse)
	accumulate(buffers.Specular, px, py, spec.V[0], spec.V[1], spec.V[2])
}
