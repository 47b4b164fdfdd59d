package samplers

import (
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/vecmath"
)

// TileShared wraps another sampler and maps (pixel, sample) down to
// (pixel/tile_size, sample), so every pixel within a tile shares the
// underlying sampler's sequence — trading per-pixel stratification for
// a much smaller, cacheable sampler state. Grounded on
// _examples/original_source/src/samplers/tile_shared.cpp.
type TileShared struct {
	base     Sampler
	tileSize [2]int
	jitter   bool

	resolution [2]int
	effective  [2]int
}

// NewTileShared constructs a TileShared sampler delegating to base,
// tiling pixels into tileSize blocks. If jitter is set, the tile
// assignment is perturbed by a per-sample hashed offset so successive
// samples of the same pixel don't always land in the same tile.
func NewTileShared(base Sampler, tileSize [2]int, jitter bool) *TileShared {
	return &TileShared{base: base, tileSize: tileSize, jitter: jitter}
}

func (s *TileShared) Reset(resolution [2]int, stateCount, spp int) {
	s.resolution = resolution
	s.effective = [2]int{min(resolution[0], s.tileSize[0]), min(resolution[1], s.tileSize[1])}
	tileCount := [2]int{
		(resolution[0] + s.effective[0] - 1) / s.effective[0],
		(resolution[1] + s.effective[1] - 1) / s.effective[1],
	}
	s.base.Reset(tileCount, stateCount, spp)
}

func (s *TileShared) Start(pixel [2]int, sampleIndex int) {
	p := pixel
	if s.jitter {
		offset := rng.Hash32(uint32(sampleIndex))
		ox := float64(offset>>16) * 0x1p-16
		oy := float64(offset&0xffff) * 0x1p-16
		p[0] = (p[0] + int(ox*float64(s.resolution[0]))) % s.resolution[0]
		p[1] = (p[1] + int(oy*float64(s.resolution[1]))) % s.resolution[1]
	}
	tile := [2]int{p[0] / s.effective[0], p[1] / s.effective[1]}
	s.base.Start(tile, sampleIndex)
}

func (s *TileShared) Generate1D() float64          { return s.base.Generate1D() }
func (s *TileShared) Generate2D() vecmath.Vec2     { return s.base.Generate2D() }
func (s *TileShared) GeneratePixel2D() vecmath.Vec2 { return s.base.GeneratePixel2D() }

func (s *TileShared) SaveState(stateID int) { s.base.SaveState(stateID) }
func (s *TileShared) LoadState(stateID int) { s.base.LoadState(stateID) }
