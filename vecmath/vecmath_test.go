package vecmath

import (
	"math"
	"testing"
)

func approxEqual(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got %v, want %v (eps %v)", got, want, eps)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := V3(3, 4, 0).Normalize()
	approxEqual(t, v.Length(), 1, 1e-9)
}

func TestVec3Cross(t *testing.T) {
	x := V3(1, 0, 0)
	y := V3(0, 1, 0)
	z := x.Cross(y)
	approxEqual(t, z.Z, 1, 1e-12)
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := Mat4Translate(V3(1, 2, 3)).Mul(Mat4RotateY(0.7)).Mul(Mat4Scale(V3(2, 3, 4)))
	inv, ok := m.Inverse()
	if !ok {
		t.Fatal("expected invertible matrix")
	}
	p := V3(1, 1, 1)
	got := inv.MulPoint(m.MulPoint(p))
	approxEqual(t, got.X, p.X, 1e-9)
	approxEqual(t, got.Y, p.Y, 1e-9)
	approxEqual(t, got.Z, p.Z, 1e-9)
}

func TestFrameRoundTrip(t *testing.T) {
	n := V3(0.3, 0.9, 0.3).Normalize()
	f := FrameFromNormal(n)
	world := V3(1, 2, 3)
	local := f.WorldToLocal(world)
	back := f.LocalToWorld(local)
	approxEqual(t, back.X, world.X, 1e-9)
	approxEqual(t, back.Y, world.Y, 1e-9)
	approxEqual(t, back.Z, world.Z, 1e-9)
}

func TestSolveQuadratic(t *testing.T) {
	roots := SolveQuadratic(1, -3, 2) // (x-1)(x-2)
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	approxEqual(t, roots[0], 1, 1e-9)
	approxEqual(t, roots[1], 2, 1e-9)
}

func TestHornerEval(t *testing.T) {
	// 2x^2 + 3x + 1 at x=2 -> 8+6+1=15
	got := HornerEval([]float64{2, 3, 1}, 2)
	approxEqual(t, got, 15, 1e-12)
}
