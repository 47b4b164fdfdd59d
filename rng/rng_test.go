package rng

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/vecmath"
)

func TestPCG32Deterministic(t *testing.T) {
	a := NewPCG32()
	b := NewPCG32()
	for i := 0; i < 100; i++ {
		if a.UniformUint32() != b.UniformUint32() {
			t.Fatalf("two default-seeded generators diverged at draw %d", i)
		}
	}
}

func TestPCG32DifferentStreams(t *testing.T) {
	a := NewPCG32Seeded(1, 1)
	b := NewPCG32Seeded(1, 2)
	same := true
	for i := 0; i < 8; i++ {
		if a.UniformUint32() != b.UniformUint32() {
			same = false
		}
	}
	if same {
		t.Fatal("distinct streams should diverge within 8 draws")
	}
}

func TestPCG32FloatRange(t *testing.T) {
	p := NewPCG32()
	for i := 0; i < 10000; i++ {
		u := p.UniformFloat64()
		if u < 0 || u >= 1 {
			t.Fatalf("draw %v out of [0,1)", u)
		}
	}
}

func TestAliasTableDistribution(t *testing.T) {
	weights := []float64{1, 2, 3, 4}
	at := NewAliasTable(weights)
	counts := make([]int, len(weights))
	p := NewPCG32()
	const n = 200000
	for i := 0; i < n; i++ {
		idx, _ := at.Sample(p.UniformFloat64(), p.UniformFloat64())
		counts[idx]++
	}
	for i, w := range weights {
		want := w / 10 * n
		got := float64(counts[i])
		if math.Abs(got-want)/want > 0.05 {
			t.Fatalf("bin %d: got %v samples, want ~%v", i, got, want)
		}
	}
}

func TestAliasTablePDFSumsToOne(t *testing.T) {
	at := NewAliasTable([]float64{5, 1, 1, 1})
	sum := 0.0
	for i := 0; i < at.Len(); i++ {
		sum += at.PDF(i)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("pdf sum = %v, want 1", sum)
	}
}

func TestBalanceHeuristicZero(t *testing.T) {
	if BalanceHeuristic(0, 0) != 0 {
		t.Fatal("0/0 should be 0")
	}
	if got := BalanceHeuristic(1, 1); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("got %v, want 0.5", got)
	}
}

func TestPowerHeuristicZero(t *testing.T) {
	if PowerHeuristic(0, 0, 0, 0) != 0 {
		t.Fatal("degenerate inputs should yield 0, not NaN")
	}
}

func TestPcg4DDeterministicAndSensitive(t *testing.T) {
	a := Pcg4D([4]uint32{1, 2, 3, 4})
	b := Pcg4D([4]uint32{1, 2, 3, 4})
	if a != b {
		t.Fatal("Pcg4D should be a pure deterministic function")
	}
	c := Pcg4D([4]uint32{1, 2, 3, 5})
	if a == c {
		t.Fatal("changing one input lane should change the hash")
	}
}

func TestCosineSampleHemisphereUpperHalf(t *testing.T) {
	for _, u := range []vecmath.Vec2{{X: 0.1, Y: 0.2}, {X: 0.9, Y: 0.4}, {X: 0.5, Y: 0.5}} {
		d := CosineSampleHemisphere(u)
		if d.Z < 0 {
			t.Fatalf("cosine hemisphere sample should have z>=0, got %v", d.Z)
		}
		l := d.Length()
		if math.Abs(l-1) > 1e-9 {
			t.Fatalf("sample should be unit length, got %v", l)
		}
	}
}
