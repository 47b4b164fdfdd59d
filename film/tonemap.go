package film

import "github.com/lumenray/lumenray/spectrum"

// ToneMap converts linear HDR radiance to a displayable value, per spec
// §4.G's "Tone mapping options: linear, ACES-like (a,b,c,d,e)".
type ToneMap interface {
	Map(c spectrum.RGB) spectrum.RGB
}

// LinearToneMap passes radiance through unchanged (the "linear" option):
// callers still apply sRGB gamma separately via spectrum.LinearToSRGB
// when encoding to 8-bit formats.
type LinearToneMap struct{}

func (LinearToneMap) Map(c spectrum.RGB) spectrum.RGB { return c }

// ACESToneMap is the Narkowicz fitted ACES filmic curve,
// `(a,b,c,d,e)` parameterized per spec §4.G: `x*(a*x+b) / (x*(c*x+d)+e)`.
// Defaults (a=2.51, b=0.03, c=2.43, d=0.59, e=0.14) reproduce the
// standard approximation; the struct exposes all five so a scene can
// retune the curve's shoulder/toe.
type ACESToneMap struct {
	A, B, C, D, E float64
}

// DefaultACES returns the standard Narkowicz fit coefficients.
func DefaultACES() ACESToneMap {
	return ACESToneMap{A: 2.51, B: 0.03, C: 2.43, D: 0.59, E: 0.14}
}

func (t ACESToneMap) curve(x float64) float64 {
	num := x * (t.A*x + t.B)
	den := x*(t.C*x+t.D) + t.E
	if den == 0 {
		return 0
	}
	v := num / den
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (t ACESToneMap) Map(c spectrum.RGB) spectrum.RGB {
	return spectrum.RGB{R: t.curve(c.R), G: t.curve(c.G), B: t.curve(c.B)}
}
