package diff

import (
	"math"

	"github.com/lumenray/lumenray/imageio"
	"github.com/lumenray/lumenray/rng"
	"github.com/lumenray/lumenray/vecmath"
)

// AccumulateConstant scatters a 4-lane gradient into one of
// CollisionBlockSize pseudo-random slots for parameter h, matching
// `Differentiation::accumulate(ConstantParameter, grad, slot_seed)`:
// `slot = (slot_seed ^ pcg4d(as_uint4(grad))) & (C-1)`. Each channel
// gets its own slot (the hash mixes all 4 lanes, then each of the 4
// output lanes picks that channel's slot), and the counter is bumped
// once per call using lane 0's slot, exactly as the original does.
func (b *Buffers) AccumulateConstant(h Handle, grad [4]float64, slotSeed uint32, blockSize int) {
	bits := [4]uint32{
		math.Float32bits(float32(grad[0])),
		math.Float32bits(float32(grad[1])),
		math.Float32bits(float32(grad[2])),
		math.Float32bits(float32(grad[3])),
	}
	hashed := rng.Pcg4D(bits)
	mask := uint32(blockSize - 1)

	for i := 0; i < h.Channels; i++ {
		slot := (slotSeed ^ hashed[i]) & mask
		gradOffset := (h.Index*blockSize + int(slot))*4 + i
		b.GradBuffer[gradOffset] += grad[i]
	}
	slot0 := (slotSeed ^ hashed[0]) & mask
	counterOffset := h.Index*blockSize + int(slot0)
	b.Counter[counterOffset]++
}

// AccumulateTextured scatters a gradient into the texel UV addresses
// to, applying h's address mode exactly as
// `Differentiation::accumulate(TexturedParameter, p, grad)`'s map_uv
// lambda does. A AddressZero UV outside [0,1) is a documented no-op
// (`$if(all(uv >= 0 && uv < 1))` in the original).
func (b *Buffers) AccumulateTextured(h TexturedHandle, uv vecmath.Vec2, grad []float64) {
	mapped, ok := imageio.MapUV(uv, h.Address)
	if !ok {
		return
	}
	x := int(mapped.X * float64(h.Image.Width))
	y := int(mapped.Y * float64(h.Image.Height))
	if x >= h.Image.Width {
		x = h.Image.Width - 1
	}
	if y >= h.Image.Height {
		y = h.Image.Height - 1
	}
	pixelID := y*h.Image.Width + x
	gradOffset := h.GradOffset + pixelID*h.Channels
	counterOffset := h.CounterOffset + pixelID

	for i := 0; i < h.Channels && i < len(grad); i++ {
		b.GradBuffer[gradOffset+i] += grad[i]
	}
	b.Counter[counterOffset]++
}
