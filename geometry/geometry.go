package geometry

import (
	"hash/fnv"
	"math"

	"github.com/lumenray/lumenray/internal/workerpool"
	"github.com/lumenray/lumenray/vecmath"
)

// Instance is one accelerated-structure entry: a mesh resource, its
// current object-to-world transform, the packed Shape::Handle, and
// whether it is visible to camera rays.
type Instance struct {
	Resource        *MeshResource
	ObjectToWorld   vecmath.Mat4
	Handle          Handle
	Visible         bool
	TransformLeaf   InstancedTransform
}

// OpacityFunc evaluates a surface's opacity at an interaction, in [0,1];
// used by the non-opaque traversal path. Returning nil means fully
// opaque.
type OpacityFunc func(it Interaction) *float64

// Geometry owns the flattened instance list, mesh cache, and transform
// tree assembled while walking the scene graph, and answers closest/any
// -hit queries against them. AddInstance collapses spec §4.E's build
// order into one call: mesh cache lookup, buffer
// registration, alias-table placement, handle assembly, tag
// registration, transform resolution, AABB expansion.
type Geometry struct {
	meshCache *MeshCache
	tree      *TransformTree
	pool      *workerpool.Pool

	instances      []*Instance
	instanceByID   map[int]*Instance
	anyNonOpaque   bool
	opacity        map[uint32]OpacityFunc // keyed by surface tag
	worldMin       vecmath.Vec3
	worldMax       vecmath.Vec3
	triangleCount  int
}

// NewGeometry constructs an empty Geometry ready for Build.
func NewGeometry(meshCache *MeshCache, pool *workerpool.Pool) *Geometry {
	return &Geometry{
		meshCache: meshCache,
		tree:      NewTransformTree(),
		pool:      pool,
		opacity:   make(map[uint32]OpacityFunc),
		instanceByID: make(map[int]*Instance),
		worldMin:  vecmath.Vec3{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
		worldMax:  vecmath.Vec3{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
	}
}

// RegisterOpacity associates an opacity evaluator with a surface tag, used
// by the any-hit/closest-hit non-opaque path.
func (g *Geometry) RegisterOpacity(surfaceTag uint32, fn OpacityFunc) {
	if fn != nil {
		g.anyNonOpaque = true
	}
	g.opacity[surfaceTag] = fn
}

// AddInstance registers one mesh instance under a leaf transform,
// expanding the world AABB and triangle count, per spec §4.E's build
// order (steps 1-7 collapsed into a single call since this package's
// mesh-cache lookup, handle assembly, and transform resolution are all
// pure host-side bookkeeping with no device buffer to interleave).
func (g *Geometry) AddInstance(resource *MeshResource, handle Handle, leaf InstancedTransform, visible bool, initTime float64) *Instance {
	m := leaf.Matrix(initTime)
	inst := &Instance{Resource: resource, ObjectToWorld: m, Handle: handle, Visible: visible, TransformLeaf: leaf}
	g.instances = append(g.instances, inst)
	g.instanceByID[leaf.InstanceID] = inst
	g.triangleCount += resource.Mesh.TriangleCount()

	for _, v := range resource.Mesh.Vertices {
		wp := m.MulPoint(v.Position)
		g.worldMin = vecmath.Vec3{X: math.Min(g.worldMin.X, wp.X), Y: math.Min(g.worldMin.Y, wp.Y), Z: math.Min(g.worldMin.Z, wp.Z)}
		g.worldMax = vecmath.Vec3{X: math.Max(g.worldMax.X, wp.X), Y: math.Max(g.worldMax.Y, wp.Y), Z: math.Max(g.worldMax.Z, wp.Z)}
	}
	return inst
}

// Tree exposes the transform tree for scene-graph construction code that
// needs to Push/Pop internal nodes around AddInstance calls.
func (g *Geometry) Tree() *TransformTree { return g.tree }

// TriangleCount is the cumulative triangle count across all instances.
func (g *Geometry) TriangleCount() int { return g.triangleCount }

// InstanceByID looks up an instance by the stable id a Hit/Interaction
// carries (InstancedTransform.InstanceID), for integrators reconstructing
// shading data from a trace result.
func (g *Geometry) InstanceByID(id int) *Instance { return g.instanceByID[id] }

// WorldBounds returns the accumulated world-space AABB.
func (g *Geometry) WorldBounds() (min, max vecmath.Vec3) { return g.worldMin, g.worldMax }

// Update re-evaluates every dynamic instance's transform at time,
// parallelizing over the worker pool when there are more than 128
// instances, per spec §4.E's Update operation. Returns whether any
// instance moved.
func (g *Geometry) Update(time float64) bool {
	dyn := g.tree.DynamicTransforms()
	if len(dyn) == 0 {
		return false
	}
	apply := func(i int) func() {
		return func() {
			t := dyn[i]
			if inst, ok := g.instanceByID[t.InstanceID]; ok {
				inst.ObjectToWorld = t.Matrix(time)
			}
		}
	}

	work := make([]func(), len(dyn))
	for i := range dyn {
		work[i] = apply(i)
	}
	g.pool.ExecuteBatched(work, 128)
	return true
}

// Ray is a world-space ray with a valid parametric interval.
type Ray struct {
	Origin    vecmath.Vec3
	Direction vecmath.Vec3
	TMin      float64
	TMax      float64
}

// Hit records a closest/any-hit result: instance and primitive index plus
// barycentric coordinates (u,v), matching the original's Hit layout.
type Hit struct {
	InstanceID int
	PrimID     int
	Bary       vecmath.Vec2
	T          float64
	Missed     bool
}

// rayTriangle performs a Moller-Trumbore intersection test in world space.
func rayTriangle(ray Ray, p0, p1, p2 vecmath.Vec3) (t, u, v float64, hit bool) {
	const eps = 1e-9
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)
	pvec := ray.Direction.Cross(e2)
	det := e1.Dot(pvec)
	if math.Abs(det) < eps {
		return 0, 0, 0, false
	}
	invDet := 1 / det
	tvec := ray.Origin.Sub(p0)
	u = tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	qvec := tvec.Cross(e1)
	v = ray.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = e2.Dot(qvec) * invDet
	if t < ray.TMin || t > ray.TMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// stochasticOpacityU hashes a ray's origin and direction into a uniform
// [0,1) value, used to decide whether a non-opaque candidate commits,
// per spec §4.E's "PRNG-hash the ray origin+direction to produce a
// uniform u".
func stochasticOpacityU(ray Ray) float64 {
	h := fnv.New64a()
	var buf [8 * 6]byte
	writeF := func(off int, f float64) {
		bits := math.Float64bits(f)
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(bits >> (8 * i))
		}
	}
	writeF(0, ray.Origin.X)
	writeF(8, ray.Origin.Y)
	writeF(16, ray.Origin.Z)
	writeF(24, ray.Direction.X)
	writeF(32, ray.Direction.Y)
	writeF(40, ray.Direction.Z)
	h.Write(buf[:])
	sum := h.Sum64()
	return float64(uint32(sum)) * 0x1p-32
}

// TraceClosest finds the nearest opaque-or-committed hit along ray. When
// no non-opaque surfaces were registered this is a plain closest-hit
// scan (the "happy path" of Geometry::trace_closest); otherwise each
// candidate is opacity-tested before being accepted as the new closest.
func (g *Geometry) TraceClosest(ray Ray) Hit {
	best := Hit{Missed: true, T: ray.TMax}
	for _, inst := range g.instances {
		if !inst.Visible {
			continue
		}
		g.traceInstance(inst, ray, &best, false)
	}
	return best
}

// TraceAny returns whether any occluder exists along ray, honoring
// opacity maps the same way TraceClosest does.
func (g *Geometry) TraceAny(ray Ray) bool {
	best := Hit{Missed: true, T: ray.TMax}
	for _, inst := range g.instances {
		if !inst.Visible {
			continue
		}
		g.traceInstance(inst, ray, &best, true)
		if !best.Missed {
			return true
		}
	}
	return false
}

func (g *Geometry) traceInstance(inst *Instance, ray Ray, best *Hit, anyHit bool) {
	mesh := inst.Resource.Mesh
	for primID, tri := range mesh.Triangles {
		p0 := inst.ObjectToWorld.MulPoint(mesh.Vertices[tri.I0].Position)
		p1 := inst.ObjectToWorld.MulPoint(mesh.Vertices[tri.I1].Position)
		p2 := inst.ObjectToWorld.MulPoint(mesh.Vertices[tri.I2].Position)

		localRay := ray
		localRay.TMax = best.T
		t, u, v, hit := rayTriangle(localRay, p0, p1, p2)
		if !hit {
			continue
		}

		if inst.Handle.MaybeNonOpaque() && inst.Handle.HasSurface() {
			if opacityFn, ok := g.opacity[inst.Handle.SurfaceTag]; ok && opacityFn != nil {
				bary := vecmath.Vec3{X: 1 - u - v, Y: u, Z: v}
				geom := GeometryPoint(mesh, tri, bary, inst.ObjectToWorld)
				it := Interaction{P: geom.P, Ng: geom.N, Area: geom.Area, InstanceID: inst.TransformLeaf.InstanceID, PrimID: primID, Shape: inst.Handle}
				if op := opacityFn(it); op != nil {
					opacity := clamp01(*op)
					u01 := stochasticOpacityU(ray)
					if u01 >= opacity {
						continue // alpha-skip: not committed
					}
				}
			}
		}

		best.InstanceID = inst.TransformLeaf.InstanceID
		best.PrimID = primID
		best.Bary = vecmath.Vec2{X: u, Y: v}
		best.T = t
		best.Missed = false
		if anyHit {
			return
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
