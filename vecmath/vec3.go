package vecmath

import "math"

// Vec3 is a 3-component vector used for positions, directions and normals.
type Vec3 struct {
	X, Y, Z float64
}

var (
	Vec3Zero = Vec3{}
	Vec3Up   = Vec3{0, 1, 0}
)

func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }
func (v Vec3) Mul(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Div(s float64) Vec3 { return v.Mul(1 / s) }
func (v Vec3) Neg() Vec3          { return Vec3{-v.X, -v.Y, -v.Z} }

// MulVec multiplies component-wise.
func (v Vec3) MulVec(w Vec3) Vec3 { return Vec3{v.X * w.X, v.Y * w.Y, v.Z * w.Z} }

func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

func (v Vec3) LengthSq() float64 { return v.Dot(v) }
func (v Vec3) Length() float64   { return math.Sqrt(v.LengthSq()) }

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged (division by zero is avoided deliberately: callers that need a
// normalized direction must ensure v is non-degenerate).
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Div(l)
}

// Abs returns the component-wise absolute value.
func (v Vec3) Abs() Vec3 { return Vec3{math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)} }

// MaxComponent returns the largest of the three components.
func (v Vec3) MaxComponent() float64 { return math.Max(v.X, math.Max(v.Y, v.Z)) }

// Lerp linearly interpolates between v and w at parameter t.
func (v Vec3) Lerp(w Vec3, t float64) Vec3 {
	return v.Mul(1 - t).Add(w.Mul(t))
}

// Reflect reflects v (pointing away from the surface, as in BSDF
// conventions) about normal n.
func (v Vec3) Reflect(n Vec3) Vec3 {
	return n.Mul(2 * v.Dot(n)).Sub(v)
}

// FaceForward flips v so that it lies in the same hemisphere as n.
func (v Vec3) FaceForward(n Vec3) Vec3 {
	if v.Dot(n) < 0 {
		return v.Neg()
	}
	return v
}
