package subdiv

import (
	"testing"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/vecmath"
)

func TestRefineQuadruplesTriangleCount(t *testing.T) {
	vertices := []geometry.Vertex{
		{Position: vecmath.V3(0, 0, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(0, 0)},
		{Position: vecmath.V3(1, 0, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(1, 0)},
		{Position: vecmath.V3(0, 1, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(0, 1)},
		{Position: vecmath.V3(1, 1, 0), Normal: vecmath.Vec3Up, UV: vecmath.V2(1, 1)},
	}
	triangles := []geometry.Triangle{{I0: 0, I1: 1, I2: 2}, {I0: 1, I1: 3, I2: 2}}

	_, newTris := Refine(vertices, triangles)
	if len(newTris) != len(triangles)*4 {
		t.Fatalf("got %d triangles, want %d", len(newTris), len(triangles)*4)
	}
}

func TestRefineProducesMoreVertices(t *testing.T) {
	vertices := []geometry.Vertex{
		{Position: vecmath.V3(0, 0, 0)},
		{Position: vecmath.V3(1, 0, 0)},
		{Position: vecmath.V3(0, 1, 0)},
	}
	triangles := []geometry.Triangle{{I0: 0, I1: 1, I2: 2}}
	newVerts, _ := Refine(vertices, triangles)
	if len(newVerts) <= len(vertices) {
		t.Fatalf("expected subdivision to add vertices, got %d (started with %d)", len(newVerts), len(vertices))
	}
}
