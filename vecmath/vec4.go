package vecmath

// Vec4 is a 4-component vector, used for homogeneous points and for packed
// differentiable-parameter constants (spec §3).
type Vec4 struct {
	X, Y, Z, W float64
}

func V4(x, y, z, w float64) Vec4 { return Vec4{X: x, Y: y, Z: z, W: w} }

func V4FromVec3(v Vec3, w float64) Vec4 { return Vec4{v.X, v.Y, v.Z, w} }

func (v Vec4) XYZ() Vec3 { return Vec3{v.X, v.Y, v.Z} }

func (v Vec4) Add(w Vec4) Vec4 {
	return Vec4{v.X + w.X, v.Y + w.Y, v.Z + w.Z, v.W + w.W}
}

func (v Vec4) Sub(w Vec4) Vec4 {
	return Vec4{v.X - w.X, v.Y - w.Y, v.Z - w.Z, v.W - w.W}
}

func (v Vec4) Mul(s float64) Vec4 {
	return Vec4{v.X * s, v.Y * s, v.Z * s, v.W * s}
}

func (v Vec4) Dot(w Vec4) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z + v.W*w.W
}

// Channel returns component i (0-3), for callers that pick a channel by
// index; any other i returns W.
func (v Vec4) Channel(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	default:
		return v.W
	}
}
