package diff

// Buffers holds the five materialized arrays `Differentiation::materialize`
// allocates: the current parameter values, their clamp ranges, the
// reduced per-parameter gradient, the raw collision-distributed
// accumulator, and per-lane hit counts.
type Buffers struct {
	ParamBuffer      []float64 // current values, concatenated
	ParamRangeBuffer []Range   // per-scalar clamp range
	ParamGradBuffer  []float64 // reduced gradient
	GradBuffer       []float64 // raw collision-distributed accumulator
	Counter          []uint32  // per-lane hit counts
}

// Materialize allocates and fills Buffers from a catalog's registered
// parameters: constant values/ranges are copied in directly, textured
// parameters have their backing image's pixel data copied into their
// param-buffer slice, and both gradient accumulators start cleared.
func Materialize(catalog *Catalog) *Buffers {
	b := &Buffers{
		ParamBuffer:      make([]float64, max1(catalog.paramBufferSize)),
		ParamRangeBuffer: make([]Range, max1(catalog.paramBufferSize)),
		ParamGradBuffer:  make([]float64, max1(catalog.paramBufferSize)),
		GradBuffer:       make([]float64, max1(catalog.gradientBufferSize)),
		Counter:          make([]uint32, max1(catalog.counterSize)),
	}

	for i, rng := range catalog.constantRanges {
		base := i * 4
		for lane := 0; lane < 4; lane++ {
			b.ParamBuffer[base+lane] = catalog.constantValues[base+lane]
			b.ParamRangeBuffer[base+lane] = rng
		}
	}

	for _, p := range catalog.texturedParams {
		data := p.Image.Data
		copy(b.ParamBuffer[p.ParamOffset:p.ParamOffset+len(data)], data)
		for i := 0; i < len(data); i++ {
			b.ParamRangeBuffer[p.ParamOffset+i] = p.Range
		}
	}

	return b
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ClearGradients zeroes the raw gradient accumulator and hit counters,
// matching `Differentiation::clear_gradients`; called once at
// materialize time and again after every `step`.
func (b *Buffers) ClearGradients() {
	for i := range b.GradBuffer {
		b.GradBuffer[i] = 0
	}
	for i := range b.Counter {
		b.Counter[i] = 0
	}
}

// Decode reads back a constant parameter's current 4-lane value,
// matching `Differentiation::decode`.
func (b *Buffers) Decode(h Handle) [4]float64 {
	base := h.Index * 4
	return [4]float64{b.ParamBuffer[base], b.ParamBuffer[base+1], b.ParamBuffer[base+2], b.ParamBuffer[base+3]}
}
