package diff

import "math"

// ReduceConstants implements `accumulate_grad_const_kernel`: for each
// constant parameter, sum the raw gradient and hit count across all
// CollisionBlockSize slots and divide by max(count,1), writing the
// averaged float4 into ParamGradBuffer.
func (b *Buffers) ReduceConstants(catalog *Catalog) {
	blockSize := catalog.CollisionBlockSize
	for i := 0; i < catalog.NumConstants(); i++ {
		var grad [4]float64
		var count uint32
		base := i * blockSize * 4
		for slot := 0; slot < blockSize; slot++ {
			off := base + slot*4
			grad[0] += b.GradBuffer[off+0]
			grad[1] += b.GradBuffer[off+1]
			grad[2] += b.GradBuffer[off+2]
			grad[3] += b.GradBuffer[off+3]
			count += b.Counter[i*blockSize+slot]
		}
		denom := math.Max(float64(count), 1)
		paramOffset := i * 4
		for lane := 0; lane < 4; lane++ {
			b.ParamGradBuffer[paramOffset+lane] = grad[lane] / denom
		}
	}
}

// ReduceTextured implements `accumulate_grad_tex_kernel`: for every
// texel-channel slot, divide the raw accumulated gradient by
// max(that texel's hit count,1) and write the result into the
// textured parameter's slice of ParamGradBuffer.
func (b *Buffers) ReduceTextured(catalog *Catalog) {
	for _, p := range catalog.texturedParams {
		length := p.Image.Width * p.Image.Height * p.Channels
		for idx := 0; idx < length; idx++ {
			texel := idx / p.Channels
			count := b.Counter[p.CounterOffset+texel]
			denom := float64(count)
			if denom < 1 {
				denom = 1
			}
			b.ParamGradBuffer[p.ParamOffset+idx] = b.GradBuffer[p.GradOffset+idx] / denom
		}
	}
}
