package geometry

import "github.com/lumenray/lumenray/internal/lrucache"

// MeshResource is the device-side payload registered for a cached mesh.
// Only the vertex buffer's bindless id is stored; the triangle, alias
// and pdf buffer ids are taken to be VertexBufferID plus the offset
// constants below. Register does not check that the buffers it creates
// actually follow this layout.
type MeshResource struct {
	Mesh           *Mesh
	VertexBufferID int
}

const (
	// TriangleBufferIDOffset is vertex_id+1, per spec §3.
	TriangleBufferIDOffset = 1
	// AliasTableBufferIDOffset is vertex_id+2.
	AliasTableBufferIDOffset = 2
	// PDFBufferIDOffset is vertex_id+3.
	PDFBufferIDOffset = 3
)

// MeshCache deduplicates meshes by content hash, as spec §3 requires.
type MeshCache struct {
	cache *lrucache.Cache[uint64, *MeshResource]
}

// NewMeshCache builds a cache holding up to softLimit distinct meshes
// before evicting least-recently-used entries.
func NewMeshCache(softLimit int) *MeshCache {
	return &MeshCache{cache: lrucache.New[uint64, *MeshResource](softLimit)}
}

// Register returns the cached resource for a (vertices, triangles) blob,
// creating device buffers via registerBuffers only on a cache miss.
// registerBuffers returns only the vertex buffer's bindless id; the
// other three ids are implied by TriangleBufferIDOffset/
// AliasTableBufferIDOffset/PDFBufferIDOffset and are not checked here.
func (c *MeshCache) Register(vertices []Vertex, triangles []Triangle, registerBuffers func(*Mesh) int) *MeshResource {
	hash := ContentHash(vertices, triangles)
	return c.cache.GetOrCreate(hash, func() *MeshResource {
		mesh := NewMesh(vertices, triangles)
		vertexID := registerBuffers(mesh)
		return &MeshResource{Mesh: mesh, VertexBufferID: vertexID}
	})
}

// Len reports the number of distinct meshes currently cached.
func (c *MeshCache) Len() int { return c.cache.Len() }
