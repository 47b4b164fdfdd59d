package lumenray

import (
	"fmt"
	"runtime"

	"github.com/lumenray/lumenray/camera"
	"github.com/lumenray/lumenray/device"
	"github.com/lumenray/lumenray/diff"
	"github.com/lumenray/lumenray/film"
	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/imageio"
	"github.com/lumenray/lumenray/integrator"
	"github.com/lumenray/lumenray/internal/rlog"
	"github.com/lumenray/lumenray/internal/workerpool"
	"github.com/lumenray/lumenray/registry"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/scenedesc"
	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// PathFunc traces one camera ray to radiance, the common shape shared
// by Context.Li (spec §4.L.1 Megakernel) and Context.LiVolumetric
// (§4.L.3, with its medium event callback already closed over by the
// caller). PSSMLT, photon mapping and the AOV integrator need their own
// driving loops (a mutated-chain sampler, a photon-emission prepass, an
// extra AOV-buffers argument respectively) and are driven separately —
// see RenderPSSMLT/RenderPhotonMap/RenderAOV.
type PathFunc func(ray geometry.Ray, beta spectrum.Spectrum, pcg *rng.PCG32) spectrum.Spectrum

// RayGenFunc produces the camera ray for one (pixel, lens sample,
// shutter time) triple. Concrete lens models (thin-lens, pinhole, ...)
// are out of this module's scope (spec §6 treats device kernel code as
// an external collaborator; see package camera's doc comment) — a
// Pipeline is handed whatever ray-generation closure its scene loading
// produces.
type RayGenFunc func(px, py int, lens vecmath.Vec2, time float64) geometry.Ray

// CameraBinding is one output of the pipeline: a film to accumulate
// into, the shutter schedule to draw samples from, and the ray
// generator that turns a pixel+lens+time sample into a camera ray.
type CameraBinding struct {
	Name    string
	Path    string // output file path Render saves to; empty skips saving.
	Film    *film.Film
	Shutter *camera.Config
	RayGen  RayGenFunc
}

// Pipeline is spec §4.O's orchestrator: it owns the geometry
// acceleration layer, the integrator context every camera shares, the
// set of cameras to render, and (optionally) the differentiation
// engine — the "owns A-N; exposes render, render-diff, update-scene"
// object the original's top-level Pipeline class is. GPU resource
// creation is reached only through Device/Host, never performed here
// directly, matching spec §6's device-is-an-external-collaborator
// framing.
type Pipeline struct {
	// Device is this pipeline's own device.Device, if it creates GPU
	// resources itself (e.g. backend/refdevice). Nil for a purely
	// host-computed pipeline.
	Device device.Device

	// Host is the device a host application has already opened and
	// handed in, if any (device.HostProvider). Device and Host are
	// mutually exclusive in practice — at most one non-nil seam
	// supplies GPU access — but both are optional.
	Host device.HostProvider

	Registry   *registry.Registry
	Geometry   *geometry.Geometry
	Integrator *integrator.Context
	Cameras    []CameraBinding

	// PrecompileNodes lists the surface/light/texture nodes a scene
	// loader resolved through Registry whose factories should be warmed
	// concurrently before the first camera launches, rather than paying
	// each one's cost lazily on the first pixel that reaches it. Render
	// awaits Precompile automatically; it is a no-op when empty.
	PrecompileNodes []*scenedesc.Node

	Diff      *diff.Differentiation
	DiffParam integrator.DiffParamFunc
	DiffLoss  integrator.LossKind

	// PathFn selects which path-integration kernel Render drives. Set
	// to integrator.Context.Li (or a closure over LiVolumetric) before
	// calling Render; defaults to ctx.Li if left nil.
	PathFn PathFunc

	workers *workerpool.Pool
}

// NewPipeline constructs a Pipeline around an optional device.Device.
// Pass nil for a CPU-only pipeline with no GPU resource creation.
func NewPipeline(dev device.Device) *Pipeline {
	return &Pipeline{
		Device:   dev,
		Registry: registry.New(),
		workers:  workerpool.New(runtime.GOMAXPROCS(0)),
	}
}

// Close releases the pipeline's worker pool. Safe to call once, after
// every outstanding Render/RenderDiff call has returned.
func (p *Pipeline) Close() {
	p.workers.Close()
}

// LoadScene reads the subset of a parsed scene tree spec §4.O's
// orchestrator needs directly — the top-level integrator node's
// depth/Russian-roulette parameters — and sets p.Integrator.Params from
// them, with DefaultParams for any the node leaves out. Shapes, surfaces, lights and cameras are
// resolved into p.Geometry/p.Cameras by the caller before or after
// LoadScene: their materialization needs the mesh cache, transform
// tree and asset loader (geometry, imageio) working together in ways
// that a single generic tree-walk can't express without duplicating
// those packages' own constructors, and scene-file parsing beyond this
// abstract node tree is explicitly out of scope (spec §6). LoadScene
// reports an error only if the root's integrator property is a node of
// another kind, or is an integrator node while p.Integrator is nil; a
// root with no resolvable integrator node leaves p.Integrator.Params
// at its current value (DefaultParams if the caller hasn't changed
// it).
func (p *Pipeline) LoadScene(root *scenedesc.Node) error {
	n, err := root.Node("integrator")
	if err != nil {
		return nil
	}
	if n.Tag != scenedesc.TagIntegrator {
		return fmt.Errorf("lumenray: scene's 'integrator' property is a %s node, not an integrator", n.Tag)
	}
	if p.Integrator == nil {
		return fmt.Errorf("lumenray: scene declares an integrator node but Pipeline.Integrator is nil")
	}
	params := integrator.DefaultParams()
	params.MaxDepth = n.IntOrDefault("depth", params.MaxDepth)
	params.RRDepth = n.IntOrDefault("rr_depth", params.RRDepth)
	params.RRThreshold = n.FloatOrDefault("rr_threshold", params.RRThreshold)
	if params.RRThreshold < 0.05 {
		rlog.Get().Warn(fmt.Sprintf("rr_threshold %v below floor, clamping to 0.05", params.RRThreshold))
		params.RRThreshold = 0.05
	}
	p.Integrator.Params = params
	rlog.Get().Info("integrator loaded from scene", "max_depth", params.MaxDepth, "rr_depth", params.RRDepth)
	return nil
}

// Precompile concurrently loads every node in p.PrecompileNodes through
// p.Registry and blocks until all of them have resolved, returning the
// first error if any failed, per spec §4.K's "shader compilation is asynchronous when
// possible; all shaders are awaited before the first launch." Render
// calls this itself, so callers only need it directly to warm the
// registry ahead of time, e.g. while still decoding scene textures.
func (p *Pipeline) Precompile() error {
	if len(p.PrecompileNodes) == 0 {
		return nil
	}
	if err := p.Registry.LoadAll(p.PrecompileNodes); err != nil {
		return fmt.Errorf("lumenray: precompile: %w", err)
	}
	return nil
}

// pathFn returns p.PathFn, defaulting to p.Integrator.Li.
func (p *Pipeline) pathFn() PathFunc {
	if p.PathFn != nil {
		return p.PathFn
	}
	return p.Integrator.Li
}

// renderCamera renders one camera's film to completion, spreading
// shutter samples across the worker pool the way spec §5's "process-
// wide worker pool used only for coarse-grained parallelism" describes
// — one task per scanline keeps per-task overhead low while still
// letting every core contribute.
func (p *Pipeline) renderCamera(cam CameraBinding, pathFn PathFunc) {
	w, h := cam.Film.Width, cam.Film.Height
	spp := cam.Shutter.SPP

	tasks := make([]func(), 0, h)
	for y := 0; y < h; y++ {
		y := y
		tasks = append(tasks, func() {
			pcg := rng.NewPCG32Seeded(uint64(y)+1, 1)
			for x := 0; x < w; x++ {
				state, seq := rng.HashPixelSample(x, y, 0, 0)
				pcg.SetSequence(state, seq)
				var sum spectrum.RGB
				for s := 0; s < spp; s++ {
					lens := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
					time := cam.Shutter.ShutterSpan[0]
					if cam.Shutter.ShutterSpan[1] > cam.Shutter.ShutterSpan[0] {
						time += pcg.UniformFloat64() * (cam.Shutter.ShutterSpan[1] - cam.Shutter.ShutterSpan[0])
					}
					ray := cam.RayGen(x, y, lens, time)
					L := pathFn(ray, spectrum.NewSpectrum(1), pcg)
					if !L.HasNaN() {
						lum := L.Average()
						sum.R += lum
						sum.G += lum
						sum.B += lum
					}
				}
				if spp > 0 {
					cam.Film.Accumulate(x, y, spectrum.RGB{R: sum.R / float64(spp), G: sum.G / float64(spp), B: sum.B / float64(spp)}, 1)
				}
			}
		})
	}
	p.workers.ExecuteAll(tasks)
}

// Render iterates every camera, renders it, and saves its film — spec
// §4.O's "render(stream): iterate cameras, render each, download,
// save." stream is synchronized before any camera's film is read, the
// host-reads-device-memory ordering rule spec §5 states; it may be
// nil for a pipeline with no device-resident state to wait on.
func (p *Pipeline) Render(stream device.Stream) error {
	if err := p.Precompile(); err != nil {
		return err
	}
	if stream != nil {
		if err := stream.Synchronize(); err != nil {
			return fmt.Errorf("lumenray: render: synchronize: %w", err)
		}
	}
	pathFn := p.pathFn()
	for _, cam := range p.Cameras {
		p.renderCamera(cam, pathFn)
		if cam.Path == "" {
			continue
		}
		if err := saveFilm(cam.Path, cam.Film); err != nil {
			rlog.Get().Error(fmt.Sprintf("saving camera %q output: %v", cam.Name, err))
		}
	}
	return nil
}

// RenderWithReturn renders every camera like Render but returns the
// downloaded pixel buffers instead of saving them to disk, spec
// §4.O's "render_with_return(stream): as above, return host pointers
// to downloaded pixel buffers" — the Python binding's in-process
// analogue of a host pointer.
func (p *Pipeline) RenderWithReturn(stream device.Stream) ([][]spectrum.RGB, error) {
	if err := p.Precompile(); err != nil {
		return nil, err
	}
	if stream != nil {
		if err := stream.Synchronize(); err != nil {
			return nil, fmt.Errorf("lumenray: render_with_return: synchronize: %w", err)
		}
	}
	pathFn := p.pathFn()
	out := make([][]spectrum.RGB, len(p.Cameras))
	for i, cam := range p.Cameras {
		p.renderCamera(cam, pathFn)
		out[i] = cam.Film.Download()
	}
	return out, nil
}

func saveFilm(path string, f *film.Film) error {
	pixels := f.Download()
	img := imageio.NewImage(f.Width, f.Height, 3)
	for i, c := range pixels {
		img.Data[i*3], img.Data[i*3+1], img.Data[i*3+2] = c.R, c.G, c.B
	}
	return imageio.Save(path, img)
}

// RenderPSSMLT drives every camera through integrator.Context.LiPSSMLT
// instead of the plain-PCG32 path. The original's PSSMLT scene node
// plugs a PSSMLTSampler into the very same per-pixel progressive loop a
// regular path tracer uses, rather than driving a whole-image Metropolis
// chain with accept/reject and splatting across pixels — pssmlt.cpp's
// own _render_one_camera is inherited from ProgressiveIntegrator
// unchanged, and its PSSMLTSampler's accept/reject methods are never
// called from anywhere in that source tree. This mirrors that: one
// fresh PSSMLTSampler per pixel, StartIteration/StartStream bracketing
// each shutter sample, no cross-pixel chain.
func (p *Pipeline) RenderPSSMLT(stream device.Stream, sigma, largeStepProbability float64) error {
	if stream != nil {
		if err := stream.Synchronize(); err != nil {
			return fmt.Errorf("lumenray: render_pssmlt: synchronize: %w", err)
		}
	}
	for _, cam := range p.Cameras {
		w, h := cam.Film.Width, cam.Film.Height
		spp := cam.Shutter.SPP

		tasks := make([]func(), 0, h)
		for y := 0; y < h; y++ {
			y := y
			tasks = append(tasks, func() {
				for x := 0; x < w; x++ {
					_, seq := rng.HashPixelSample(x, y, 0, 0)
					sampler := integrator.NewPSSMLTSampler(0, sigma, largeStepProbability, seq)
					var sum spectrum.RGB
					for s := 0; s < spp; s++ {
						sampler.StartIteration()
						sampler.StartStream()
						lens := sampler.Generate2D()
						time := cam.Shutter.ShutterSpan[0]
						if cam.Shutter.ShutterSpan[1] > cam.Shutter.ShutterSpan[0] {
							time += sampler.Generate1D() * (cam.Shutter.ShutterSpan[1] - cam.Shutter.ShutterSpan[0])
						}
						ray := cam.RayGen(x, y, lens, time)
						L := p.Integrator.LiPSSMLT(ray, spectrum.NewSpectrum(1), sampler)
						if !L.HasNaN() {
							lum := L.Average()
							sum.R += lum
							sum.G += lum
							sum.B += lum
						}
					}
					if spp > 0 {
						cam.Film.Accumulate(x, y, spectrum.RGB{R: sum.R / float64(spp), G: sum.G / float64(spp), B: sum.B / float64(spp)}, 1)
					}
				}
			})
		}
		p.workers.ExecuteAll(tasks)
		if cam.Path == "" {
			continue
		}
		if err := saveFilm(cam.Path, cam.Film); err != nil {
			rlog.Get().Error(fmt.Sprintf("saving camera %q output: %v", cam.Name, err))
		}
	}
	return nil
}

// RenderPhotonMap drives every camera through a photon-mapping pass:
// one EmitPhotons prepass builds a PhotonMap from the light sampler's
// emission distribution, then LiPhotonMap gathers against it per pixel,
// per photonmap.go's two-pass design (EmitPhotons followed by
// GatherIndirect inside LiPhotonMap). emission must additionally
// implement integrator.EmissionSampler (lights.PowerSampler does); a
// Sampler that doesn't is a scene-construction error, not a render-time
// one, so it is checked once up front.
func (p *Pipeline) RenderPhotonMap(stream device.Stream, emission integrator.EmissionSampler, params integrator.PhotonMapParams) error {
	if stream != nil {
		if err := stream.Synchronize(); err != nil {
			return fmt.Errorf("lumenray: render_photon_map: synchronize: %w", err)
		}
	}
	for _, cam := range p.Cameras {
		w, h := cam.Film.Width, cam.Film.Height
		spp := cam.Shutter.SPP

		emitPCG := rng.NewPCG32Seeded(0xa0761d6478bd642f, 1)
		pm := p.Integrator.EmitPhotons(emission, emitPCG, params, params.InitialRadius)
		totalPhotons := pm.Len()

		tasks := make([]func(), 0, h)
		for y := 0; y < h; y++ {
			y := y
			tasks = append(tasks, func() {
				pcg := rng.NewPCG32Seeded(uint64(y)+1, 1)
				for x := 0; x < w; x++ {
					state, seq := rng.HashPixelSample(x, y, 0, 0)
					pcg.SetSequence(state, seq)
					stats := integrator.NewPixelStats(params.InitialRadius)
					var sum spectrum.RGB
					for s := 0; s < spp; s++ {
						lens := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
						ray := cam.RayGen(x, y, lens, cam.Shutter.ShutterSpan[0])
						L := p.Integrator.LiPhotonMap(ray, spectrum.NewSpectrum(1), pcg, pm, &stats, totalPhotons)
						if !L.HasNaN() {
							lum := L.Average()
							sum.R += lum
							sum.G += lum
							sum.B += lum
						}
					}
					if spp > 0 {
						cam.Film.Accumulate(x, y, spectrum.RGB{R: sum.R / float64(spp), G: sum.G / float64(spp), B: sum.B / float64(spp)}, 1)
					}
				}
			})
		}
		p.workers.ExecuteAll(tasks)
		if cam.Path == "" {
			continue
		}
		if err := saveFilm(cam.Path, cam.Film); err != nil {
			rlog.Get().Error(fmt.Sprintf("saving camera %q output: %v", cam.Name, err))
		}
	}
	return nil
}

// RenderAOV drives every camera through LiAOV, accumulating each
// enabled auxiliary component into its own film.Buffer and scaling by
// 1/spp at the end — the original's render_auxiliary_kernel accumulates
// an unscaled sum per sample and only applies `scale = 1/total_samples`
// once, at dump time (aov.cpp), rather than normalizing every sample.
func (p *Pipeline) RenderAOV(stream device.Stream, enabled map[film.Component]bool) ([]*integrator.AOVBuffers, error) {
	if stream != nil {
		if err := stream.Synchronize(); err != nil {
			return nil, fmt.Errorf("lumenray: render_aov: synchronize: %w", err)
		}
	}
	out := make([]*integrator.AOVBuffers, len(p.Cameras))
	for ci, cam := range p.Cameras {
		w, h := cam.Film.Width, cam.Film.Height
		spp := cam.Shutter.SPP
		buffers := integrator.NewAOVBuffers(w, h, enabled)
		out[ci] = buffers

		tasks := make([]func(), 0, h)
		for y := 0; y < h; y++ {
			y := y
			tasks = append(tasks, func() {
				pcg := rng.NewPCG32Seeded(uint64(y)+1, 1)
				for x := 0; x < w; x++ {
					state, seq := rng.HashPixelSample(x, y, 0, 0)
					pcg.SetSequence(state, seq)
					for s := 0; s < spp; s++ {
						lens := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
						ray := cam.RayGen(x, y, lens, cam.Shutter.ShutterSpan[0])
						p.Integrator.LiAOV(x, y, [2]int{w, h}, ray, 1, pcg, buffers)
					}
				}
			})
		}
		p.workers.ExecuteAll(tasks)

		if spp <= 0 {
			continue
		}
		scale := 1 / float64(spp)
		for _, b := range []*film.Buffer{buffers.Sample, buffers.Diffuse, buffers.Specular, buffers.Normal, buffers.Albedo, buffers.NDC, buffers.Depth, buffers.Mask, buffers.Roughness} {
			if b == nil {
				continue
			}
			for i := range b.Data {
				b.Data[i] *= scale
			}
		}
	}
	return out, nil
}

// ExternalUpdate is one entry of update_parameter_from_external's
// caller-supplied buffer set, tagged exactly as spec §6's Python
// binding tags update_scene entries: "constant" | "texture" | "geom".
type ExternalUpdate struct {
	ParamID uint32
	Kind    string // "constant", "texture", or "geom"
	Value   [4]float64
	Texture *imageio.Image
	Geom    []byte
}

// UpdateParameterFromExternal ingests externally-provided constant,
// texture and geometry buffers indexed by parameter id, spec §4.O's
// "update_parameter_from_external(stream, constants, textures, geoms):
// ingest externally-provided constant/texture/geometry buffers indexed
// by parameter id; used by the Python binding." Constant updates
// write Value directly into p.Diff's materialized parameter buffer at
// the handle's offset (the differentiation engine must already be
// Materialize()d). A "texture" update is handled the same way: its
// Value is written at ParamID and its Texture image is not read.
// Geometry updates are out of this module's BVH-build
// scope and are handed to updateGeom for the caller to apply (e.g. to
// geometry.Geometry's instance transforms) — passing nil is valid when
// no geometry updates are present.
func (p *Pipeline) UpdateParameterFromExternal(stream device.Stream, updates []ExternalUpdate, updateGeom func(paramID uint32, geom []byte) error) error {
	for _, u := range updates {
		switch u.Kind {
		case "constant", "texture":
			if p.Diff == nil || p.Diff.Buffers == nil {
				return fmt.Errorf("lumenray: update_parameter_from_external: no materialized differentiation engine to write parameter %d into", u.ParamID)
			}
			if int(u.ParamID)+4 > len(p.Diff.Buffers.ParamBuffer) {
				return fmt.Errorf("lumenray: update_parameter_from_external: parameter %d out of range of a %d-entry buffer", u.ParamID, len(p.Diff.Buffers.ParamBuffer))
			}
			copy(p.Diff.Buffers.ParamBuffer[u.ParamID:], u.Value[:])
		case "geom":
			if updateGeom == nil {
				return fmt.Errorf("lumenray: update_parameter_from_external: geometry update for parameter %d but no geometry updater was supplied", u.ParamID)
			}
			if err := updateGeom(u.ParamID, u.Geom); err != nil {
				return fmt.Errorf("lumenray: update_parameter_from_external: geometry update for parameter %d: %w", u.ParamID, err)
			}
		default:
			return fmt.Errorf("lumenray: update_parameter_from_external: unrecognized update kind %q for parameter %d", u.Kind, u.ParamID)
		}
	}
	if stream != nil {
		return stream.Commit()
	}
	return nil
}

// GradBuffer is one camera's caller-supplied per-pixel loss gradient,
// already seeded by comparing a rendered image to its training target
// (LossGradient in package integrator computes this from an L1/L2
// loss). Width*Height must match the matching CameraBinding's film.
type GradBuffer struct {
	CameraIndex int
	Values      []spectrum.Spectrum
}

// RenderDiff runs the differentiable integrator's backward pass (spec
// §4.L's LiBackward, exposed here as integrator.Context.LiBackward)
// with caller-supplied pixel-gradient buffers, spec §4.O's
// "render_diff(stream, grad_buffers): run the differentiable
// integrator's backward pass with caller-supplied pixel-gradient
// buffers." gradWeight is shutter_weight/(pixel_count*spp), matching
// LiBackward's own normalization contract.
func (p *Pipeline) RenderDiff(stream device.Stream, gradBuffers []GradBuffer) error {
	if p.Diff == nil {
		return fmt.Errorf("lumenray: render_diff: no differentiation engine attached to this pipeline")
	}
	if stream != nil {
		if err := stream.Synchronize(); err != nil {
			return fmt.Errorf("lumenray: render_diff: synchronize: %w", err)
		}
	}

	for _, gb := range gradBuffers {
		if gb.CameraIndex < 0 || gb.CameraIndex >= len(p.Cameras) {
			return fmt.Errorf("lumenray: render_diff: camera index %d out of range", gb.CameraIndex)
		}
		cam := p.Cameras[gb.CameraIndex]
		w, h := cam.Film.Width, cam.Film.Height
		if len(gb.Values) != w*h {
			return fmt.Errorf("lumenray: render_diff: camera %d gradient buffer has %d entries, want %d", gb.CameraIndex, len(gb.Values), w*h)
		}
		spp := cam.Shutter.SPP
		if spp == 0 {
			continue
		}
		gradWeight := 1 / float64(w*h*spp)

		tasks := make([]func(), 0, h)
		for y := 0; y < h; y++ {
			y := y
			tasks = append(tasks, func() {
				pcg := rng.NewPCG32Seeded(uint64(y)+1, 1)
				for x := 0; x < w; x++ {
					state, seq := rng.HashPixelSample(x, y, 0, 0)
					pcg.SetSequence(state, seq)
					lossGrad := gb.Values[y*w+x]
					for s := 0; s < spp; s++ {
						lens := vecmath.Vec2{X: pcg.UniformFloat64(), Y: pcg.UniformFloat64()}
						ray := cam.RayGen(x, y, lens, cam.Shutter.ShutterSpan[0])
						slotSeed := rng.Hash32(uint32(y*w+x)*uint32(spp) + uint32(s))
						p.Integrator.LiBackward(ray, 1, lossGrad, pcg, p.DiffParam, p.Diff, gradWeight, slotSeed)
					}
				}
			})
		}
		p.workers.ExecuteAll(tasks)
	}

	p.Diff.ApplyGradients()
	if stream != nil {
		return stream.Commit()
	}
	return nil
}

// Gradients is get_gradients' return shape: host-readable texture and
// geometry gradient buffers, spec §4.O's "get_gradients(stream): return
// host pointers to texture and geometry gradient buffers."
type Gradients struct {
	// Textured holds the reduced per-texel gradient for every textured
	// parameter the catalog registered, indexed the same order
	// Catalog.TexturedParameters() returns them in.
	Textured [][]float64
	// Geom is left empty: this module performs no device-side
	// geometry-gradient accumulation of its own (spec §6 treats the
	// geometry's BVH build as an external device concern) — a caller
	// driving a differentiable geometry kernel would populate this
	// from its own buffers.
	Geom [][]float64
}

// GetGradients returns the reduced texture gradient buffers spec
// §4.O's "get_gradients(stream)" names. Call after RenderDiff, which
// already invokes Differentiation.ApplyGradients' reduction pass.
func (p *Pipeline) GetGradients(stream device.Stream) (Gradients, error) {
	if p.Diff == nil || p.Diff.Buffers == nil {
		return Gradients{}, fmt.Errorf("lumenray: get_gradients: no materialized differentiation engine attached")
	}
	if stream != nil {
		if err := stream.Synchronize(); err != nil {
			return Gradients{}, fmt.Errorf("lumenray: get_gradients: synchronize: %w", err)
		}
	}
	params := p.Diff.Catalog.TexturedParameters()
	out := Gradients{Textured: make([][]float64, len(params))}
	for i, tp := range params {
		n := tp.Image.Width * tp.Image.Height * tp.Channels
		grad := make([]float64, n)
		copy(grad, p.Diff.Buffers.ParamGradBuffer[tp.GradOffset:tp.GradOffset+n])
		out.Textured[i] = grad
	}
	return out, nil
}
