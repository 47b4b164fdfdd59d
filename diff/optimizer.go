package diff

import "math"

// Optimizer applies an in-place parameter update from a reduced
// gradient buffer, matching `Optimizer::Instance::initialize`/`step`.
// apply_gradients calls Step once per reduction pass.
type Optimizer interface {
	Initialize(paramCount int)
	Step(params []float64, grad []float64, ranges []Range)
}

// AdamOptimizer is the "e.g., Adam" optimizer step spec §4.H names.
type AdamOptimizer struct {
	LR, Beta1, Beta2, Epsilon float64

	m, v []float64
	t    int
}

// NewAdamOptimizer returns an Adam optimizer with the standard
// defaults (lr=1e-2, beta1=0.9, beta2=0.999, eps=1e-8), tunable via
// the returned struct's fields before the first Step.
func NewAdamOptimizer() *AdamOptimizer {
	return &AdamOptimizer{LR: 1e-2, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
}

func (a *AdamOptimizer) Initialize(paramCount int) {
	a.m = make([]float64, paramCount)
	a.v = make([]float64, paramCount)
	a.t = 0
}

// Step applies one Adam update to params using grad, then clamps each
// scalar back into its registered range — the clamp the original
// performs by construction via `_param_range_buffer` feeding the
// device-side clamp in the optimizer kernel.
func (a *AdamOptimizer) Step(params []float64, grad []float64, ranges []Range) {
	a.t++
	biasCorr1 := 1 - math.Pow(a.Beta1, float64(a.t))
	biasCorr2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for i := range params {
		if i >= len(a.m) {
			break
		}
		g := grad[i]
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g

		mHat := a.m[i] / biasCorr1
		vHat := a.v[i] / biasCorr2

		params[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Epsilon)

		if i < len(ranges) {
			r := ranges[i]
			if params[i] < r.Lo {
				params[i] = r.Lo
			}
			if params[i] > r.Hi {
				params[i] = r.Hi
			}
		}
	}
}
