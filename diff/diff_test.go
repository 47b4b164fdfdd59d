package diff

import (
	"math"
	"testing"

	"github.com/lumenray/lumenray/imageio"
	"github.com/lumenray/lumenray/vecmath"
)

func TestCatalogParameterConstantRoundTrip(t *testing.T) {
	c := NewCatalog(8)
	h := c.ParameterVec3(1, 2, 3, Range{Lo: -10, Hi: 10})
	if h.Channels != 3 {
		t.Fatalf("expected 3 channels, got %d", h.Channels)
	}
	buf := Materialize(c)
	got := buf.Decode(h)
	if got[0] != 1 || got[1] != 2 || got[2] != 3 || got[3] != 0 {
		t.Fatalf("expected (1,2,3,0), got %v", got)
	}
}

func TestAccumulateConstantReduceAveragesAcrossSlots(t *testing.T) {
	c := NewCatalog(8)
	h := c.ParameterScalar(0, Range{Lo: -10, Hi: 10})
	buf := Materialize(c)

	for seed := uint32(0); seed < 20; seed++ {
		buf.AccumulateConstant(h, [4]float64{2, 0, 0, 0}, seed, c.CollisionBlockSize)
	}
	buf.ReduceConstants(c)
	if math.Abs(buf.ParamGradBuffer[0]-2) > 1e-9 {
		t.Fatalf("expected averaged gradient 2, got %v", buf.ParamGradBuffer[0])
	}
}

func TestAccumulateTexturedRespectsAddressZero(t *testing.T) {
	c := NewCatalog(8)
	img := imageio.NewImage(2, 2, 1)
	h := c.ParameterTextured(img, imageio.AddressZero, Range{Lo: 0, Hi: 1})
	buf := Materialize(c)

	buf.AccumulateTextured(h, vecmath.V2(1.5, 0.5), []float64{5})
	for _, g := range buf.GradBuffer {
		if g != 0 {
			t.Fatal("expected out-of-range AddressZero accumulate to be a no-op")
		}
	}

	buf.AccumulateTextured(h, vecmath.V2(0.25, 0.25), []float64{5})
	buf.ReduceTextured(c)
	found := false
	for _, g := range buf.ParamGradBuffer[h.ParamOffset : h.ParamOffset+4] {
		if g == 5 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected in-range accumulate to land in exactly one texel")
	}
}

func TestAdamOptimizerStepMovesTowardGradientDescent(t *testing.T) {
	opt := NewAdamOptimizer()
	opt.Initialize(1)
	params := []float64{1.0}
	grad := []float64{1.0}
	ranges := []Range{{Lo: -100, Hi: 100}}

	opt.Step(params, grad, ranges)
	if params[0] >= 1.0 {
		t.Fatalf("expected parameter to decrease under positive gradient, got %v", params[0])
	}
}

func TestAdamOptimizerClampsToRange(t *testing.T) {
	opt := NewAdamOptimizer()
	opt.LR = 10
	opt.Initialize(1)
	params := []float64{0.5}
	grad := []float64{1.0}
	ranges := []Range{{Lo: 0, Hi: 1}}

	for i := 0; i < 50; i++ {
		opt.Step(params, grad, ranges)
	}
	if params[0] < 0 || params[0] > 1 {
		t.Fatalf("expected parameter clamped to [0,1], got %v", params[0])
	}
}

func TestDifferentiationStepClearsGradientsAfterApply(t *testing.T) {
	d := New(8, NewAdamOptimizer())
	h := d.Catalog.ParameterScalar(0, Range{Lo: -10, Hi: 10})
	d.Materialize()

	d.AccumulateConstant(h, [4]float64{1, 0, 0, 0}, 0)
	d.Step()

	for _, g := range d.Buffers.GradBuffer {
		if g != 0 {
			t.Fatal("expected Step to clear the raw gradient accumulator")
		}
	}
	for _, cnt := range d.Buffers.Counter {
		if cnt != 0 {
			t.Fatal("expected Step to clear the hit counters")
		}
	}
}
