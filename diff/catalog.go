// Package diff implements spec §4.H's differentiation engine: the
// parameter catalog, materialized gradient/parameter buffers,
// collision-avoided gradient accumulation, the reduction pass, and the
// optimizer step.
//
// Grounded on _examples/original_source/src/base/differentiation.cpp.
// That file's buffer allocation, slot hashing, and reduction kernels
// are device compute kernels dispatched through a GPU command buffer;
// this package keeps the exact same buffer layout and collision-
// avoidance arithmetic but expresses it as plain Go functions over
// slices, since kernel compilation and dispatch are the external
// device's job (out of this module's scope per spec §6).
package diff

import "github.com/lumenray/lumenray/imageio"

// Range is a parameter's clamp range, the `float2` the original calls
// `range` in both `parameter(...)` overloads and `_param_range_buffer`.
type Range struct {
	Lo, Hi float64
}

// Handle identifies a constant parameter: a packed group of up to 4
// floats at Index, matching `Differentiation::ConstantParameter`.
type Handle struct {
	Index    int
	Channels int
}

// TexturedHandle identifies a textured parameter: per-texel gradient
// and counter storage at fixed buffer offsets, matching
// `Differentiation::TexturedParameter`.
type TexturedHandle struct {
	Image         *imageio.Image
	Address       imageio.AddressMode
	Channels      int
	GradOffset    int
	ParamOffset   int
	CounterOffset int
	Range         Range
}

// Catalog tracks every registered differentiable parameter and the
// buffer sizes `materialize` will need to allocate, mirroring the
// bookkeeping `Differentiation::parameter(...)` performs incrementally
// as scene nodes register their differentiable inputs.
type Catalog struct {
	// CollisionBlockSize is `gradiant_collision_avoidance_block_size`:
	// the number of pseudo-random slots each constant parameter's
	// gradient is scattered across to avoid write contention. Must be
	// a power of two (the slot selection masks with blockSize-1).
	CollisionBlockSize int

	constantValues []float64 // 4 floats per constant parameter
	constantRanges []Range   // one range per constant parameter (replicated across its 4 lanes at materialize time)

	texturedParams []TexturedHandle

	gradientBufferSize int
	paramBufferSize    int
	counterSize        int
}

// NewCatalog creates an empty catalog. blockSize must be a power of
// two; 32 matches the magnitude the original's debug logging implies
// for typical scenes.
func NewCatalog(blockSize int) *Catalog {
	return &Catalog{
		CollisionBlockSize: blockSize,
		gradientBufferSize: 0,
		paramBufferSize:    0,
		counterSize:        0,
	}
}

func round4(n int) int { return (n + 3) &^ 3 }

// ParameterConstant registers a constant parameter packing up to 4
// scalar lanes, returning a Handle for later accumulate/decode calls.
// Unset lanes beyond channels are zero-padded, mirroring the
// `parameter(float, ...)`/`parameter(float2, ...)` overloads which all
// funnel into the float4 form.
func (c *Catalog) ParameterConstant(value [4]float64, channels int, rng Range) Handle {
	index := len(c.constantValues) / 4
	c.constantValues = append(c.constantValues, value[0], value[1], value[2], value[3])
	c.constantRanges = append(c.constantRanges, rng)
	c.gradientBufferSize += 4 * c.CollisionBlockSize
	c.paramBufferSize += 4
	c.counterSize += c.CollisionBlockSize
	return Handle{Index: index, Channels: channels}
}

// ParameterScalar registers a single-channel constant parameter.
func (c *Catalog) ParameterScalar(v float64, rng Range) Handle {
	return c.ParameterConstant([4]float64{v, 0, 0, 0}, 1, rng)
}

// ParameterVec2 registers a 2-channel constant parameter.
func (c *Catalog) ParameterVec2(x, y float64, rng Range) Handle {
	return c.ParameterConstant([4]float64{x, y, 0, 0}, 2, rng)
}

// ParameterVec3 registers a 3-channel constant parameter.
func (c *Catalog) ParameterVec3(x, y, z float64, rng Range) Handle {
	return c.ParameterConstant([4]float64{x, y, z, 0}, 3, rng)
}

// ParameterVec4 registers a 4-channel constant parameter.
func (c *Catalog) ParameterVec4(v [4]float64, rng Range) Handle {
	return c.ParameterConstant(v, 4, rng)
}

// ParameterTextured registers a textured parameter backed by img,
// allocating its slice of the gradient/param/counter buffers. Buffer
// regions are rounded up to a multiple of 4, matching the original's
// `& ~0b11u` alignment.
func (c *Catalog) ParameterTextured(img *imageio.Image, addr imageio.AddressMode, rng Range) TexturedHandle {
	pixelCount := img.Width * img.Height
	channels := img.Channels
	paramCount := pixelCount * channels

	h := TexturedHandle{
		Image:         img,
		Address:       addr,
		Channels:      channels,
		GradOffset:    c.gradientBufferSize,
		ParamOffset:   c.paramBufferSize,
		CounterOffset: c.counterSize,
		Range:         rng,
	}
	c.counterSize = round4(c.counterSize + pixelCount)
	c.paramBufferSize = round4(c.paramBufferSize + paramCount)
	c.gradientBufferSize = round4(c.gradientBufferSize + paramCount)
	c.texturedParams = append(c.texturedParams, h)
	return h
}

// NumConstants reports how many constant parameters are registered.
func (c *Catalog) NumConstants() int { return len(c.constantRanges) }

// TexturedParameters returns every registered textured parameter.
func (c *Catalog) TexturedParameters() []TexturedHandle { return c.texturedParams }
