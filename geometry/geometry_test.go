package geometry

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/internal/workerpool"
	"github.com/lumenray/lumenray/vecmath"
)

func triangleMesh() *Mesh {
	return NewMesh(
		[]Vertex{
			{Position: vecmath.V3(0, 0, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(0, 0)},
			{Position: vecmath.V3(1, 0, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(1, 0)},
			{Position: vecmath.V3(0, 1, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(0, 1)},
		},
		[]Triangle{{I0: 0, I1: 1, I2: 2}},
	)
}

func TestMeshContentHashDeterministic(t *testing.T) {
	m1 := triangleMesh()
	m2 := triangleMesh()
	if m1.ContentHash != m2.ContentHash {
		t.Fatal("identical mesh data should hash identically")
	}
}

func TestMeshCacheDeduplicates(t *testing.T) {
	cache := NewMeshCache(8)
	calls := 0
	register := func(m *Mesh) int { calls++; return 100 }
	v := triangleMesh().Vertices
	tr := triangleMesh().Triangles
	r1 := cache.Register(v, tr, register)
	r2 := cache.Register(v, tr, register)
	if calls != 1 {
		t.Fatalf("expected single registration, got %d calls", calls)
	}
	if r1 != r2 {
		t.Fatal("expected identical cached resource pointer")
	}
}

func TestHandleBufferIDOffsets(t *testing.T) {
	h := Handle{GeometryBufferIDBase: 10}
	if h.TriangleBufferID() != 11 || h.AliasTableBufferID() != 12 || h.PDFBufferID() != 13 {
		t.Fatalf("unexpected offsets: %d %d %d", h.TriangleBufferID(), h.AliasTableBufferID(), h.PDFBufferID())
	}
}

func TestFixedPointRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.25, 0.5, 0.9999, 1} {
		got := DecodeFixedPoint16(EncodeFixedPoint16(v))
		if math.Abs(got-v) > 1e-4 {
			t.Fatalf("got %v, want %v", got, v)
		}
	}
}

func TestTransformTreeStaticLeaf(t *testing.T) {
	tree := NewTransformTree()
	tree.Push(StaticTransform(vecmath.Mat4Translate(vecmath.V3(1, 0, 0))))
	leaf, isStatic := tree.Leaf(StaticTransform(vecmath.Mat4Scale(vecmath.V3(2, 2, 2))), 0)
	if !isStatic {
		t.Fatal("composition of two static nodes should be static")
	}
	p := leaf.Matrix(0).MulPoint(vecmath.V3(1, 0, 0))
	if math.Abs(p.X-3) > 1e-9 {
		t.Fatalf("expected scale-then-translate to give x=3, got %v", p.X)
	}
	tree.Pop()
}

func TestTransformTreeDynamicLeafTracked(t *testing.T) {
	tree := NewTransformTree()
	animated := AnimatedTransform(func(time float64) vecmath.Mat4 {
		return vecmath.Mat4Translate(vecmath.V3(time, 0, 0))
	})
	_, isStatic := tree.Leaf(animated, 5)
	if isStatic {
		t.Fatal("animated leaf should not be static")
	}
	if len(tree.DynamicTransforms()) != 1 {
		t.Fatal("expected one dynamic transform recorded")
	}
}

func TestGeometryTraceClosestHitsTriangle(t *testing.T) {
	g := NewGeometry(NewMeshCache(8), workerpool.New(2))
	defer g.pool.Close()
	mesh := triangleMesh()
	resource := &MeshResource{Mesh: mesh, VertexBufferID: 0}
	leaf := InstancedTransform{InstanceID: 0}
	inst := g.AddInstance(resource, Handle{TriangleCount: 1}, leaf, true, 0)
	inst.ObjectToWorld = vecmath.Mat4Identity()

	ray := Ray{Origin: vecmath.V3(0.25, 0.25, 1), Direction: vecmath.V3(0, 0, -1), TMin: 0, TMax: math.MaxFloat64}
	hit := g.TraceClosest(ray)
	if hit.Missed {
		t.Fatal("expected a hit")
	}
	if math.Abs(hit.T-1) > 1e-6 {
		t.Fatalf("expected t=1, got %v", hit.T)
	}
}

func TestGeometryTraceClosestMisses(t *testing.T) {
	g := NewGeometry(NewMeshCache(8), workerpool.New(2))
	defer g.pool.Close()
	mesh := triangleMesh()
	resource := &MeshResource{Mesh: mesh, VertexBufferID: 0}
	leaf := InstancedTransform{InstanceID: 0}
	inst := g.AddInstance(resource, Handle{TriangleCount: 1}, leaf, true, 0)
	inst.ObjectToWorld = vecmath.Mat4Identity()

	ray := Ray{Origin: vecmath.V3(5, 5, 1), Direction: vecmath.V3(0, 0, -1), TMin: 0, TMax: math.MaxFloat64}
	hit := g.TraceClosest(ray)
	if !hit.Missed {
		t.Fatal("expected a miss")
	}
}
