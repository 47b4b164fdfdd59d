package camera

import (
	"testing"

	"github.com/lumenray/lumenray/rng"
)

func TestNewRejectsInvertedSpan(t *testing.T) {
	if _, err := New([2]float64{1, 0}, 0, 16, nil, nil); err == nil {
		t.Fatalf("expected error for inverted shutter span")
	}
}

func TestNewInstantSpanSkipsShutterLogic(t *testing.T) {
	c, err := New([2]float64{0.5, 0.5}, 0, 16, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ShutterWeight(0.5) != 1 {
		t.Fatalf("expected weight 1 at the single instant")
	}
	if c.ShutterWeight(0.4) != 0 {
		t.Fatalf("expected weight 0 outside the instant")
	}
}

func TestNewDefaultsShutterSamplesToMinSPPAnd256(t *testing.T) {
	c, err := New([2]float64{0, 1}, 0, 64, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ShutterSampleCount != 64 {
		t.Fatalf("got %d, want 64", c.ShutterSampleCount)
	}
}

func TestNewClampsExcessiveShutterSamples(t *testing.T) {
	c, err := New([2]float64{0, 1}, 1000, 64, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ShutterSampleCount != 64 {
		t.Fatalf("got %d, want clamped to 64", c.ShutterSampleCount)
	}
}

func TestNewRejectsMismatchedTimePointsAndWeights(t *testing.T) {
	if _, err := New([2]float64{0, 1}, 4, 16, []float64{0, 1}, []float64{1}); err == nil {
		t.Fatalf("expected error for length mismatch")
	}
}

func TestNewRejectsNegativeWeight(t *testing.T) {
	if _, err := New([2]float64{0, 1}, 4, 16, []float64{0, 1}, []float64{1, -1}); err == nil {
		t.Fatalf("expected error for negative weight")
	}
}

func TestNewEmptyTimePointsProducesEndpointPair(t *testing.T) {
	c, err := New([2]float64{0, 2}, 4, 16, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.shutterPoints) != 2 || c.shutterPoints[0].Time != 0 || c.shutterPoints[1].Time != 2 {
		t.Fatalf("got %+v, want endpoint pair", c.shutterPoints)
	}
}

func TestNewDropsOutOfSpanAndDuplicateTimePoints(t *testing.T) {
	c, err := New([2]float64{0, 1}, 4, 16,
		[]float64{-1, 0.2, 0.2, 0.6, 2},
		[]float64{1, 1, 1, 1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	times := make([]float64, len(c.shutterPoints))
	for i, p := range c.shutterPoints {
		times[i] = p.Time
	}
	want := []float64{0, 0.2, 0.6, 1}
	if len(times) != len(want) {
		t.Fatalf("got %v, want %v", times, want)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Fatalf("got %v, want %v", times, want)
		}
	}
}

func TestShutterWeightInterpolatesLinearly(t *testing.T) {
	c, err := New([2]float64{0, 1}, 4, 16, []float64{0, 1}, []float64{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.ShutterWeight(0.5); got != 0.5 {
		t.Fatalf("got %v, want 0.5", got)
	}
}

func TestShutterWeightZeroOutsideSpan(t *testing.T) {
	c, err := New([2]float64{0, 1}, 4, 16, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ShutterWeight(-0.1) != 0 || c.ShutterWeight(1.1) != 0 {
		t.Fatalf("expected zero weight outside span")
	}
}

func TestShutterSamplesDistributesSPPAcrossBuckets(t *testing.T) {
	c, err := New([2]float64{0, 1}, 3, 10, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := rng.NewPCG32Seeded(1, 1)
	buckets := c.ShutterSamples(src)
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}
	total := 0
	for _, b := range buckets {
		total += b.SPP
	}
	if total != 10 {
		t.Fatalf("got total spp %d, want 10", total)
	}
}

func TestShutterSamplesSingleInstantReturnsOneBucketWithFullSPP(t *testing.T) {
	c, err := New([2]float64{0.25, 0.25}, 0, 32, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := rng.NewPCG32Seeded(1, 1)
	buckets := c.ShutterSamples(src)
	if len(buckets) != 1 || buckets[0].SPP != 32 || buckets[0].Point.Time != 0.25 {
		t.Fatalf("got %+v, want single bucket with full spp at the instant", buckets)
	}
}

func TestShutterSamplesWeightedSumMatchesSPP(t *testing.T) {
	c, err := New([2]float64{0, 1}, 4, 17, []float64{0, 0.5, 1}, []float64{1, 2, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := rng.NewPCG32Seeded(7, 7)
	buckets := c.ShutterSamples(src)
	sum := 0.0
	for _, b := range buckets {
		sum += b.Point.Weight * float64(b.SPP)
	}
	if diff := sum - float64(c.SPP); diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got weighted sum %v, want %v", sum, c.SPP)
	}
}
