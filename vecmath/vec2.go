// Package vecmath provides the vector, matrix and frame primitives of
// spec §4.A: 2/3/4-vectors with swizzle, 4x4 column-major matrices (there
// is no 3x3 matrix type), and shading frames. Grounded on the teacher's Vec2/Matrix idiom (vec.go,
// matrix.go), extended to 3D/4D since a path tracer operates in world space.
package vecmath

import "math"

// Vec2 is a 2-component vector, used for UV coordinates and 2D samples.
type Vec2 struct {
	X, Y float64
}

func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(w Vec2) Vec2 { return Vec2{v.X + w.X, v.Y + w.Y} }
func (v Vec2) Sub(w Vec2) Vec2 { return Vec2{v.X - w.X, v.Y - w.Y} }
func (v Vec2) Mul(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Div(s float64) Vec2 { return Vec2{v.X / s, v.Y / s} }
func (v Vec2) Dot(w Vec2) float64 { return v.X*w.X + v.Y*w.Y }
func (v Vec2) Length() float64    { return math.Sqrt(v.Dot(v)) }
