package camera

import (
	"sort"

	"github.com/lumenray/lumenray/internal/rlog"
	"github.com/lumenray/lumenray/rng"
)

// ShutterWeight interpolates the piecewise-linear shutter response
// curve at time, returning 0 outside the shutter span.
func (c *Config) ShutterWeight(time float64) float64 {
	if time < c.ShutterSpan[0] || time > c.ShutterSpan[1] {
		return 0
	}
	if c.ShutterSpan[0] == c.ShutterSpan[1] {
		return 1
	}
	points := c.shutterPoints
	u := sort.Search(len(points), func(i int) bool { return points[i].Time > time })
	if u == 0 {
		u = 1
	}
	if u >= len(points) {
		u = len(points) - 1
	}
	p0, p1 := points[u-1], points[u]
	if p1.Time == p0.Time {
		return p0.Weight
	}
	t := (time - p0.Time) / (p1.Time - p0.Time)
	return p0.Weight + t*(p1.Weight-p0.Weight)
}

// ShutterSamples partitions the shutter span into ShutterSampleCount
// buckets, each with a jittered representative time and a share of SPP
// (remainder distributed to a randomly shuffled subset of buckets so no
// fixed bucket always gets the extra sample), then rescales bucket
// weights so sum(weight*spp) == SPP — the total sample count an
// integrator accumulates stays correct regardless of the shutter curve.
func (c *Config) ShutterSamples(src *rng.PCG32) []ShutterSample {
	if c.ShutterSpan[0] == c.ShutterSpan[1] {
		return []ShutterSample{{Point: ShutterPoint{Time: c.ShutterSpan[0], Weight: 1}, SPP: c.SPP}}
	}

	n := c.ShutterSampleCount
	duration := c.ShutterSpan[1] - c.ShutterSpan[0]
	invN := 1 / float64(n)
	buckets := make([]ShutterSample, n)
	for bucket := 0; bucket < n; bucket++ {
		ts := c.ShutterSpan[0] + float64(bucket)*invN*duration
		te := c.ShutterSpan[0] + float64(bucket+1)*invN*duration
		a := src.UniformFloat64()
		t := ts + a*(te-ts)
		buckets[bucket].Point = ShutterPoint{Time: t, Weight: c.ShutterWeight(t)}
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	shuffleInts(indices, src)

	remainder := c.SPP % n
	perBucket := c.SPP / n
	for i := 0; i < remainder; i++ {
		buckets[indices[i]].SPP = perBucket + 1
	}
	for i := remainder; i < n; i++ {
		buckets[indices[i]].SPP = perBucket
	}

	sumWeights := 0.0
	for _, b := range buckets {
		sumWeights += b.Point.Weight * float64(b.SPP)
	}
	if sumWeights == 0 {
		rlog.Get().Warn("invalid shutter samples generated, falling back to a uniform shutter curve")
		for i := range buckets {
			buckets[i].Point.Weight = 1
		}
	} else {
		scale := float64(c.SPP) / sumWeights
		for i := range buckets {
			buckets[i].Point.Weight *= scale
		}
	}
	return buckets
}

func shuffleInts(xs []int, src *rng.PCG32) {
	for i := len(xs) - 1; i > 0; i-- {
		j := int(src.UniformFloat64() * float64(i+1))
		if j > i {
			j = i
		}
		xs[i], xs[j] = xs[j], xs[i]
	}
}
