// Package meshimport loads triangle meshes from glTF/GLB assets into
// geometry.Mesh, for use by the (out-of-scope) scene-file parser and by
// tests/tools that want to exercise the renderer against real geometry.
//
// Grounded on mrigankad-gorenderengine/scene/gltf_loader.go's use of
// github.com/qmuntal/gltf + gltf/modeler for attribute decoding; adapted
// from a full scene-graph loader (materials, textures, node hierarchy) down
// to pure mesh-primitive extraction, since the scene-description parser and
// material system are owned by the scenedesc/scatter packages here.
package meshimport

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/lumenray/lumenray/geometry"
	"github.com/lumenray/lumenray/vecmath"
)

// LoadTriangleMeshesFromGLTF opens a .gltf/.glb file and returns one
// geometry.Mesh per primitive across every mesh in the document, flattened
// in document order (mesh index, then primitive index).
func LoadTriangleMeshesFromGLTF(path string) ([]*geometry.Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshimport: open %q: %w", path, err)
	}

	var meshes []*geometry.Mesh
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			mesh, err := loadPrimitive(doc, *prim)
			if err != nil {
				return nil, fmt.Errorf("meshimport: mesh %d primitive %d: %w", mi, pi, err)
			}
			meshes = append(meshes, mesh)
		}
	}
	return meshes, nil
}

func loadPrimitive(doc *gltf.Document, prim gltf.Primitive) (*geometry.Mesh, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	vertices := make([]geometry.Vertex, len(positions))
	for i, p := range positions {
		v := geometry.Vertex{
			Position: vecmath.V3(float64(p[0]), float64(p[1]), float64(p[2])),
			Normal:   vecmath.Vec3Up,
		}
		if i < len(normals) {
			n := normals[i]
			v.Normal = vecmath.V3(float64(n[0]), float64(n[1]), float64(n[2]))
		}
		if i < len(uvs) {
			uv := uvs[i]
			v.UV = vecmath.V2(float64(uv[0]), float64(uv[1]))
		}
		vertices[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}

	triangles := make([]geometry.Triangle, len(indices)/3)
	for i := range triangles {
		triangles[i] = geometry.Triangle{
			I0: indices[i*3],
			I1: indices[i*3+1],
			I2: indices[i*3+2],
		}
	}

	return geometry.NewMesh(vertices, triangles), nil
}
