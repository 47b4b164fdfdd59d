package samplers

import (
	"math/bits"

	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/vecmath"
)

// PMJ02BN draws from a precomputed low-discrepancy base set, reindexed
// per pixel by a bijective index permutation and Owen-scrambled per
// dimension, per spec §4.J. No source for this plugin survived into
// the retrieved pack (only tile_shared.cpp did), so the base set here
// is an N-rooks (Latin-hypercube) construction rather than a literal
// reproduction of the progressive-multi-jittered-(0,2) table-generation
// algorithm; see DESIGN.md for why that substitution was made. The
// pixel-unique reindexing and Owen scrambling are the well-known
// constructions from the sampling literature: a cycle-walking hashed
// index permutation (Laine & Karras) and a hash-based nested-uniform
// scramble (Burley).
type PMJ02BN struct {
	seed      uint32
	tableSize uint32
	table     []vecmath.Vec2

	pixelBase   uint32
	sampleIndex int
	dim         int

	saved map[int]pmjState
}

type pmjState struct {
	pixelBase   uint32
	sampleIndex int
	dim         int
}

// NewPMJ02BN builds a base set of 1<<tableSizeLog2 points, seeded so
// repeated runs with the same seed reproduce the same table.
func NewPMJ02BN(seed uint32, tableSizeLog2 int) *PMJ02BN {
	n := uint32(1) << uint(tableSizeLog2)
	return &PMJ02BN{
		seed:      seed,
		tableSize: n,
		table:     buildNRooksTable(n, seed),
		saved:     make(map[int]pmjState),
	}
}

// buildNRooksTable builds an N-rooks (Latin-hypercube) point set: x and
// y are each an independently-shuffled, jittered equipartition of
// [0, 1), so every axis-aligned 1/N-wide strip contains exactly one
// sample in both projections.
func buildNRooksTable(n uint32, seed uint32) []vecmath.Vec2 {
	src := rng.NewPCG32Seeded(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := uint32(0); i < n; i++ {
		xs[i] = (float64(i) + src.UniformFloat64()) / float64(n)
		ys[i] = (float64(i) + src.UniformFloat64()) / float64(n)
	}
	shuffleFloat64(xs, src)
	shuffleFloat64(ys, src)
	pts := make([]vecmath.Vec2, n)
	for i := range pts {
		pts[i] = vecmath.V2(xs[i], ys[i])
	}
	return pts
}

func shuffleFloat64(xs []float64, src *rng.PCG32) {
	for i := len(xs) - 1; i > 0; i-- {
		j := int(src.UniformFloat64() * float64(i+1))
		if j > i {
			j = i
		}
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// Reset is a no-op: the base set is independent of film resolution.
func (s *PMJ02BN) Reset(resolution [2]int, stateCount, spp int) {}

func (s *PMJ02BN) Start(pixel [2]int, sampleIndex int) {
	s.pixelBase = rng.Hash32(uint32(pixel[0])*73856093 ^ uint32(pixel[1])*19349663 ^ s.seed)
	s.sampleIndex = sampleIndex
	s.dim = 0
}

func (s *PMJ02BN) nextPoint() vecmath.Vec2 {
	dimSeed := s.pixelBase + uint32(s.dim)*0x9e3779b9
	idx := permuteIndex(uint32(s.sampleIndex), s.tableSize, dimSeed)
	pt := s.table[idx]
	ux := owenScrambleFloat(pt.X, dimSeed*2+1)
	uy := owenScrambleFloat(pt.Y, dimSeed*2+2)
	s.dim++
	return vecmath.V2(ux, uy)
}

func (s *PMJ02BN) Generate1D() float64 { return s.nextPoint().X }

func (s *PMJ02BN) Generate2D() vecmath.Vec2 { return s.nextPoint() }

// GeneratePixel2D draws from a dimension slot reserved outside the
// general counter, so repeated filter-jitter lookups for the same
// sample don't perturb the path-sampling stream.
func (s *PMJ02BN) GeneratePixel2D() vecmath.Vec2 {
	dimSeed := s.pixelBase ^ 0x2d2d2d2d
	idx := permuteIndex(uint32(s.sampleIndex), s.tableSize, dimSeed)
	pt := s.table[idx]
	return vecmath.V2(owenScrambleFloat(pt.X, dimSeed*2+1), owenScrambleFloat(pt.Y, dimSeed*2+2))
}

func (s *PMJ02BN) SaveState(stateID int) {
	s.saved[stateID] = pmjState{pixelBase: s.pixelBase, sampleIndex: s.sampleIndex, dim: s.dim}
}

func (s *PMJ02BN) LoadState(stateID int) {
	st := s.saved[stateID]
	s.pixelBase, s.sampleIndex, s.dim = st.pixelBase, st.sampleIndex, st.dim
}

// permuteIndex bijectively maps i into [0, n) as a function of seed, so
// each pixel effectively reads the shared table through its own
// permutation instead of the raw sample order — the "pixel-unique
// permutation" spec §4.J names. Cycle-walking hashed permutation in the
// style of Laine & Karras's GPU random-number-free shuffle.
func permuteIndex(i, n, seed uint32) uint32 {
	if n <= 1 {
		return 0
	}
	w := n - 1
	w |= w >> 1
	w |= w >> 2
	w |= w >> 4
	w |= w >> 8
	w |= w >> 16
	for {
		i ^= seed
		i *= 0xe170893d
		i ^= seed >> 16
		i ^= (i & w) >> 4
		i ^= seed >> 8
		i *= 0x0929eb3f
		i ^= seed >> 23
		i ^= (i & w) >> 1
		i *= 1 | seed>>27
		i *= 0x6935fa69
		i ^= (i & w) >> 11
		i *= 0x74dcb303
		i ^= (i & w) >> 2
		i *= 0x9e501cc3
		i ^= (i & w) >> 2
		i *= 0xc860a3df
		i &= w
		i ^= i >> 5
		if i < n {
			break
		}
	}
	return (i + seed) % n
}

// owenScrambleFloat applies a hash-based nested-uniform (Owen) scramble
// to a [0, 1) coordinate, per Burley's construction: reverse the bits,
// run a small invertible hash, reverse again.
func owenScrambleFloat(u float64, seed uint32) float64 {
	const scale = 1 << 32
	v := uint32(u * scale)
	v = bits.Reverse32(v)
	v ^= v * 0x3d20adea
	v += seed
	v *= (seed >> 16) | 1
	v ^= v * 0x05526c56
	v ^= v * 0x53a22864
	v = bits.Reverse32(v)
	return float64(v) / scale
}
