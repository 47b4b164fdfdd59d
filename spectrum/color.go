// Package spectrum implements spec §4.A's color half and §3's Spectrum
// data model: sRGB/linear/XYZ conversions, half-float packing, Fraunhofer
// wavelengths, and the sampled-spectrum arithmetic consumed by textures and
// the scattering library.
//
// Grounded on the teacher's internal/color/convert.go formulas (kept
// verbatim) rather than its internal/color/lut.go LUT variant: spec §8
// requires an exact (1e-5) linear-sRGB/XYZ round trip, which a LUT cannot
// guarantee.
package spectrum

import "math"

// SRGBToLinear converts a single sRGB component to linear light.
func SRGBToLinear(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

// srgbKnee is the sRGB-encoded breakpoint; LinearToSRGB switches branches at
// its linear image so that both directions agree at the knee.
var srgbKnee = 0.04045

// LinearToSRGB converts a single linear component to sRGB.
func LinearToSRGB(l float64) float64 {
	if l <= srgbKnee/12.92 {
		return l * 12.92
	}
	return 1.055*math.Pow(l, 1.0/2.4) - 0.055
}

// RGB is a linear RGB triple.
type RGB struct{ R, G, B float64 }

// SRGBToLinearRGB converts an sRGB-encoded triple to linear light.
func SRGBToLinearRGB(c RGB) RGB {
	return RGB{SRGBToLinear(c.R), SRGBToLinear(c.G), SRGBToLinear(c.B)}
}

// LinearToSRGBRGB gamma-encodes a linear triple for display/storage.
func LinearToSRGBRGB(c RGB) RGB {
	return RGB{LinearToSRGB(c.R), LinearToSRGB(c.G), LinearToSRGB(c.B)}
}

// linearSRGBToXYZ is the standard Rec.709/sRGB primaries matrix, row-major.
var linearSRGBToXYZ = [3][3]float64{
	{0.4124564, 0.3575761, 0.1804375},
	{0.2126729, 0.7151522, 0.0721750},
	{0.0193339, 0.1191920, 0.9503041},
}

var xyzToLinearSRGB = [3][3]float64{
	{3.2404542, -1.5371385, -0.4985314},
	{-0.9692660, 1.8760108, 0.0415560},
	{0.0556434, -0.2040259, 1.0572252},
}

// XYZ is a CIE 1931 tristimulus value.
type XYZ struct{ X, Y, Z float64 }

// LinearSRGBToXYZ converts a linear-sRGB triple to CIE XYZ.
func LinearSRGBToXYZ(c RGB) XYZ {
	m := linearSRGBToXYZ
	return XYZ{
		X: m[0][0]*c.R + m[0][1]*c.G + m[0][2]*c.B,
		Y: m[1][0]*c.R + m[1][1]*c.G + m[1][2]*c.B,
		Z: m[2][0]*c.R + m[2][1]*c.G + m[2][2]*c.B,
	}
}

// XYZToLinearSRGB converts CIE XYZ to linear sRGB.
func XYZToLinearSRGB(c XYZ) RGB {
	m := xyzToLinearSRGB
	return RGB{
		R: m[0][0]*c.X + m[0][1]*c.Y + m[0][2]*c.Z,
		G: m[1][0]*c.X + m[1][1]*c.Y + m[1][2]*c.Z,
		B: m[2][0]*c.X + m[2][1]*c.Y + m[2][2]*c.Z,
	}
}

// CIEYFromSRGB returns luminance directly from an sRGB-encoded triple,
// without a separate linearize step, matching spec §4.A's "CIE-Y from sRGB".
func CIEYFromSRGB(c RGB) float64 {
	lin := SRGBToLinearRGB(c)
	return LinearSRGBToXYZ(lin).Y
}

// fraunhoferLines lists the named Fraunhofer reference lines in nanometers,
// used to tabulate default IOR/absorption spectra when a material provides
// none (spec §4.A). Primed lines are keyed with a "p" suffix ("Cp" for C',
// "Fp" for F').
var fraunhoferLines = map[string]float64{
	"i":  365.01,
	"h":  404.66,
	"g":  435.84,
	"Fp": 479.99,
	"F":  486.13,
	"e":  546.07,
	"d":  587.56,
	"D":  589.29,
	"C":  656.27,
	"Cp": 643.85,
	"r":  706.52,
	"A":  768.20,
}

// FraunhoferWavelength returns the wavelength in nanometers for a named
// Fraunhofer line (e.g. "d", "F", "C"), and whether the name is known.
func FraunhoferWavelength(name string) (float64, bool) {
	v, ok := fraunhoferLines[name]
	return v, ok
}

// HalfToFloat decodes an IEEE-754 binary16 value to float64, used for HALF
// image storage (spec §4.B).
func HalfToFloat(h uint16) float64 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	var f uint32
	switch {
	case exp == 0 && mant == 0:
		f = sign << 31
	case exp == 0x1f:
		f = sign<<31 | 0xff<<23 | mant<<13
	case exp == 0:
		// Subnormal half -> normalize.
		e := 0
		m := mant
		for m&0x400 == 0 {
			m <<= 1
			e--
		}
		m &= 0x3ff
		exp32 := uint32(int(127-15) + e + 1)
		f = sign<<31 | exp32<<23 | m<<13
	default:
		exp32 := exp - 15 + 127
		f = sign<<31 | exp32<<23 | mant<<13
	}
	return float64(math.Float32frombits(f))
}

// FloatToHalf encodes a float64 as IEEE-754 binary16, round-to-nearest.
func FloatToHalf(v float64) uint16 {
	f := math.Float32bits(float32(v))
	sign := uint16(f>>16) & 0x8000
	exp := int32(f>>23)&0xff - 127 + 15
	mant := f & 0x7fffff

	switch {
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := mant >> shift
		if (mant>>(shift-1))&1 != 0 {
			half++
		}
		return sign | uint16(half)
	case exp >= 0x1f:
		return sign | 0x7c00
	default:
		halfMant := uint16(mant >> 13)
		if mant&0x1000 != 0 {
			halfMant++
			if halfMant == 0x400 {
				halfMant = 0
				exp++
			}
		}
		return sign | uint16(exp)<<10 | halfMant
	}
}
