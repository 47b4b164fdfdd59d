package geometry

// Property bit flags packed into Shape::Handle, per spec §3.
const (
	PropertyHasSurface uint32 = 1 << iota
	PropertyHasLight
	PropertyHasMedium
	PropertyMaybeNonOpaque
	PropertyHasVertexNormal
	PropertyHasVertexUV
)

// Handle is the packed per-instance record spec §3 describes: vertex
// buffer id (the other three buffer ids are implied consecutive offsets),
// surface/light/medium tags, property bits, triangle count, and two
// 16-bit fixed-point factors.
type Handle struct {
	GeometryBufferIDBase int
	Properties           uint32
	SurfaceTag           uint32
	LightTag             uint32
	MediumTag            uint32
	TriangleCount        uint32
	ShadowTerminator      uint16 // fixed-point, value/65535 in [0,1]
	IntersectionOffset    uint16 // fixed-point, value/65535 in [0,1]
}

// EncodeFixedPoint16 maps x in [0,1] to the nearest 16-bit fixed-point
// code, per the original's encode_fixed_point helper.
func EncodeFixedPoint16(x float64) uint16 {
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	v := x*65535 + 0.5
	return uint16(v)
}

// DecodeFixedPoint16 inverts EncodeFixedPoint16.
func DecodeFixedPoint16(v uint16) float64 { return float64(v) / 65535 }

func (h Handle) VertexBufferID() int        { return h.GeometryBufferIDBase }
func (h Handle) TriangleBufferID() int      { return h.GeometryBufferIDBase + TriangleBufferIDOffset }
func (h Handle) AliasTableBufferID() int    { return h.GeometryBufferIDBase + AliasTableBufferIDOffset }
func (h Handle) PDFBufferID() int           { return h.GeometryBufferIDBase + PDFBufferIDOffset }
func (h Handle) HasSurface() bool           { return h.Properties&PropertyHasSurface != 0 }
func (h Handle) HasLight() bool             { return h.Properties&PropertyHasLight != 0 }
func (h Handle) HasMedium() bool            { return h.Properties&PropertyHasMedium != 0 }
func (h Handle) MaybeNonOpaque() bool       { return h.Properties&PropertyMaybeNonOpaque != 0 }
func (h Handle) HasVertexNormal() bool      { return h.Properties&PropertyHasVertexNormal != 0 }
func (h Handle) HasVertexUV() bool          { return h.Properties&PropertyHasVertexUV != 0 }
func (h Handle) ShadowTerminatorFactor() float64 { return DecodeFixedPoint16(h.ShadowTerminator) }
func (h Handle) IntersectionOffsetFactor() float64 {
	return DecodeFixedPoint16(h.IntersectionOffset)
}
