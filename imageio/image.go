// Package imageio implements spec §4.B: HDR image storage, decode/encode
// for the renderer's texture and film formats, and texel addressing.
//
// Grounded on the teacher's internal/image package
// (_examples/gogpu-gg/internal/image/{buf,format,io,affine,interp}.go):
// a row-major pixel buffer with a small format-metadata table and
// stride-aware accessors. That package stores 8-bit-per-channel
// integer pixels for UI compositing; a renderer's textures and film
// need unbounded-range HDR values, so Image here generalizes the same
// buffer shape to a float64 plane with a variable channel count (1-4)
// instead of a fixed set of 8-bit formats.
package imageio

import "github.com/lumenray/lumenray/vecmath"

// AddressMode controls how out-of-[0,1) UV coordinates are mapped back
// onto the image, per spec §4.H's texture address modes (also used
// directly by the differentiable-texture gradient scatter in package
// diff, which must apply the identical mapping in reverse).
type AddressMode uint8

const (
	AddressEdge AddressMode = iota
	AddressRepeat
	AddressMirror
	AddressZero
)

// Interpolation selects the texel reconstruction filter.
type Interpolation uint8

const (
	InterpNearest Interpolation = iota
	InterpBilinear
)

// Image is a row-major HDR raster with Channels float64 values per
// texel, the storage shape every decoder in this package converts
// into and the scatter/diff packages read textures from.
type Image struct {
	Width, Height, Channels int
	Data                    []float64
}

// NewImage allocates a zeroed image of the given shape.
func NewImage(width, height, channels int) *Image {
	return &Image{Width: width, Height: height, Channels: channels, Data: make([]float64, width*height*channels)}
}

// At returns a copy of the texel at (x,y). Out-of-bounds coordinates
// return a zeroed slice.
func (img *Image) At(x, y int) []float64 {
	out := make([]float64, img.Channels)
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return out
	}
	base := (y*img.Width + x) * img.Channels
	copy(out, img.Data[base:base+img.Channels])
	return out
}

// Set writes the texel at (x,y), ignoring out-of-bounds coordinates.
func (img *Image) Set(x, y int, v []float64) {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return
	}
	base := (y*img.Width + x) * img.Channels
	n := img.Channels
	if len(v) < n {
		n = len(v)
	}
	copy(img.Data[base:base+n], v[:n])
}

// MapUV folds a UV coordinate into a defined texel according to mode,
// mirroring the teacher's address-mode switch and the original's
// Differentiation::accumulate map_uv lambda exactly, so forward
// sampling and the backward gradient scatter agree on which texel a
// given UV resolves to. The second return is false only for
// AddressZero when uv falls outside [0,1), meaning "no texel".
func MapUV(uv vecmath.Vec2, mode AddressMode) (vecmath.Vec2, bool) {
	switch mode {
	case AddressEdge:
		return vecmath.V2(clamp01(uv.X), clamp01(uv.Y)), true
	case AddressRepeat:
		return vecmath.V2(fract(uv.X), fract(uv.Y)), true
	case AddressMirror:
		return vecmath.V2(mirror(uv.X), mirror(uv.Y)), true
	case AddressZero:
		if uv.X < 0 || uv.X >= 1 || uv.Y < 0 || uv.Y >= 1 {
			return uv, false
		}
		return uv, true
	default:
		return uv, true
	}
}

const oneMinusEpsilon = 1 - 1e-7

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > oneMinusEpsilon {
		return oneMinusEpsilon
	}
	return v
}

func fract(v float64) float64 {
	f := v - floor(v)
	if f < 0 {
		f += 1
	}
	return f
}

func mirror(v float64) float64 {
	t := floor(v)
	frac := v - t
	if int64(t)%2 == 0 {
		return frac
	}
	return 1 - frac
}

func floor(v float64) float64 {
	i := float64(int64(v))
	if v < 0 && i != v {
		i--
	}
	return i
}

// Sample reconstructs a texel value at UV coordinate uv using the
// given address mode and interpolation filter. It returns a zeroed
// slice if AddressZero maps uv outside the image.
func (img *Image) Sample(uv vecmath.Vec2, mode AddressMode, interp Interpolation) []float64 {
	mapped, ok := MapUV(uv, mode)
	if !ok {
		return make([]float64, img.Channels)
	}
	fx := mapped.X * float64(img.Width)
	fy := mapped.Y * float64(img.Height)
	switch interp {
	case InterpNearest:
		x := int(fx)
		y := int(fy)
		if x >= img.Width {
			x = img.Width - 1
		}
		if y >= img.Height {
			y = img.Height - 1
		}
		return img.At(x, y)
	default:
		return img.bilinear(fx, fy)
	}
}

func (img *Image) bilinear(fx, fy float64) []float64 {
	x0 := int(floor(fx - 0.5))
	y0 := int(floor(fy - 0.5))
	tx := (fx - 0.5) - float64(x0)
	ty := (fy - 0.5) - float64(y0)
	c00 := img.At(wrapClamp(x0, img.Width), wrapClamp(y0, img.Height))
	c10 := img.At(wrapClamp(x0+1, img.Width), wrapClamp(y0, img.Height))
	c01 := img.At(wrapClamp(x0, img.Width), wrapClamp(y0+1, img.Height))
	c11 := img.At(wrapClamp(x0+1, img.Width), wrapClamp(y0+1, img.Height))
	out := make([]float64, img.Channels)
	for i := range out {
		top := c00[i]*(1-tx) + c10[i]*tx
		bot := c01[i]*(1-tx) + c11[i]*tx
		out[i] = top*(1-ty) + bot*ty
	}
	return out
}

func wrapClamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
