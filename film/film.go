package film

import (
	"math"
	"math/bits"

	"github.com/lumenray/lumenray/spectrum"
)

// DumpStrategy controls when the AOV/film dump callback fires, per spec
// §4.G ("dump strategy ∈ {power2, all, final}") and L.4's "power-of-two,
// every sample, or only final" schedule for the AOV integrator.
type DumpStrategy uint8

const (
	DumpPower2 DumpStrategy = iota
	DumpAll
	DumpFinal
)

// ShouldDump reports whether the film should be written out after
// completedSamples samples have been accumulated out of totalSamples.
func (d DumpStrategy) ShouldDump(completedSamples, totalSamples int) bool {
	switch d {
	case DumpAll:
		return true
	case DumpFinal:
		return completedSamples == totalSamples
	case DumpPower2:
		if completedSamples == totalSamples {
			return true
		}
		return completedSamples > 0 && bits.OnesCount(uint(completedSamples)) == 1
	default:
		return false
	}
}

// Film is the main beauty accumulator: per-pixel weighted running sums
// of RGB radiance, per spec §4.G's `Film::accumulate(px, spec, weight)`.
// Radiance arrives already reduced to RGB by the caller: the Pipeline's
// render loops store a Spectrum's lane average in all three channels,
// with no CIE conversion. Film itself is a pure weighted-average
// raster, matching gg.Pixmap's flat row-major layout.
type Film struct {
	Width, Height int
	sum           []spectrum.RGB
	weight        []float64
	Filter        Filter
	AOVs          map[Component]*Buffer
}

// New allocates a zeroed film of the given resolution and pixel filter.
func New(width, height int, filter Filter) *Film {
	return &Film{
		Width:  width,
		Height: height,
		sum:    make([]spectrum.RGB, width*height),
		weight: make([]float64, width*height),
		Filter: filter,
		AOVs:   make(map[Component]*Buffer),
	}
}

// EnableAOV allocates a buffer for one declared AOV component.
func (f *Film) EnableAOV(component Component) *Buffer {
	buf := NewBuffer(f.Width, f.Height, component)
	f.AOVs[component] = buf
	return buf
}

func (f *Film) index(x, y int) (int, bool) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return 0, false
	}
	return y*f.Width + x, true
}

// Accumulate adds a weighted radiance sample into pixel (x,y). NaN/Inf
// radiance is silently dropped, matching spec §7's "NaN/Inf in beta or
// gradient is silently zeroed per path" error-handling rule.
func (f *Film) Accumulate(x, y int, rgb spectrum.RGB, weight float64) {
	i, ok := f.index(x, y)
	if !ok || weight <= 0 {
		return
	}
	if hasNaN(rgb) || hasInf(rgb) || weight != weight {
		return
	}
	f.sum[i].R += rgb.R * weight
	f.sum[i].G += rgb.G * weight
	f.sum[i].B += rgb.B * weight
	f.weight[i] += weight
}

func hasNaN(c spectrum.RGB) bool {
	return c.R != c.R || c.G != c.G || c.B != c.B
}

func hasInf(c spectrum.RGB) bool {
	return math.IsInf(c.R, 0) || math.IsInf(c.G, 0) || math.IsInf(c.B, 0)
}

// Read returns the weighted-average radiance at pixel (x,y), or black
// if no samples have landed there yet.
func (f *Film) Read(x, y int) spectrum.RGB {
	i, ok := f.index(x, y)
	if !ok || f.weight[i] <= 0 {
		return spectrum.RGB{}
	}
	w := f.weight[i]
	return spectrum.RGB{R: f.sum[i].R / w, G: f.sum[i].G / w, B: f.sum[i].B / w}
}

// Download returns the whole film as a row-major RGB raster of
// weighted averages, ready for tone mapping and encode via imageio.
func (f *Film) Download() []spectrum.RGB {
	out := make([]spectrum.RGB, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			out[y*f.Width+x] = f.Read(x, y)
		}
	}
	return out
}

// Clear zeroes the film and every registered AOV buffer.
func (f *Film) Clear() {
	for i := range f.sum {
		f.sum[i] = spectrum.RGB{}
		f.weight[i] = 0
	}
	for _, buf := range f.AOVs {
		buf.Clear()
	}
}
