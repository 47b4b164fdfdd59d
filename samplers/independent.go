package samplers

import (
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/vecmath"
)

// Independent draws every sample from a PCG32 stream seeded uniquely
// per (pixel, sample_index), spec §4.J's simplest sampler: dimensions
// within one sample are independent draws rather than stratified
// against each other.
type Independent struct {
	seed  uint64
	cur   *rng.PCG32
	saved map[int]rng.PCG32
}

// NewIndependent constructs a sampler seeded by an arbitrary render-wide
// seed (distinct seeds give decorrelated images of the same scene).
func NewIndependent(seed uint64) *Independent {
	return &Independent{seed: seed, saved: make(map[int]rng.PCG32)}
}

// Reset is a no-op: Independent's stream depends only on (pixel,
// sample_index), never on resolution or the device's state count.
func (s *Independent) Reset(resolution [2]int, stateCount, spp int) {}

// Start reseeds the stream for pixel's sampleIndex-th sample.
func (s *Independent) Start(pixel [2]int, sampleIndex int) {
	state, sequence := rng.HashPixelSample(pixel[0], pixel[1], sampleIndex, s.seed)
	s.cur = rng.NewPCG32Seeded(state, sequence)
}

func (s *Independent) Generate1D() float64 { return s.cur.UniformFloat64() }

func (s *Independent) Generate2D() vecmath.Vec2 {
	return vecmath.V2(s.cur.UniformFloat64(), s.cur.UniformFloat64())
}

// GeneratePixel2D draws from the same stream as Generate2D: an
// independent sampler has no separate pixel-space reservation to keep,
// since every draw is already decorrelated from every other.
func (s *Independent) GeneratePixel2D() vecmath.Vec2 { return s.Generate2D() }

// SaveState/LoadState persist the PCG32 stream position by value, so a
// device scheduler can suspend one thread's sampling and resume another
// thread's between kernel stages.
func (s *Independent) SaveState(stateID int) { s.saved[stateID] = *s.cur }

func (s *Independent) LoadState(stateID int) {
	state := s.saved[stateID]
	s.cur = &state
}
