package spectrum

import (
	"math"
	"testing"
)

func approxEqual(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got %v, want %v (eps %v)", got, want, eps)
	}
}

func TestSRGBLinearRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.01, 0.04045, 0.2, 0.5, 0.9, 1.0} {
		approxEqual(t, LinearToSRGB(SRGBToLinear(v)), v, 1e-9)
	}
}

func TestLinearSRGBXYZRoundTrip(t *testing.T) {
	c := RGB{0.2, 0.5, 0.8}
	back := XYZToLinearSRGB(LinearSRGBToXYZ(c))
	approxEqual(t, back.R, c.R, 1e-5)
	approxEqual(t, back.G, c.G, 1e-5)
	approxEqual(t, back.B, c.B, 1e-5)
}

func TestWhiteIsNeutralXYZ(t *testing.T) {
	xyz := LinearSRGBToXYZ(RGB{1, 1, 1})
	// D65-normalized white should have Y close to 1.
	approxEqual(t, xyz.Y, 1, 1e-4)
}

func TestFraunhoferWavelength(t *testing.T) {
	v, ok := FraunhoferWavelength("D")
	if !ok {
		t.Fatal("expected D line to be known")
	}
	approxEqual(t, v, 589.29, 1e-9)
	if _, ok := FraunhoferWavelength("nope"); ok {
		t.Fatal("expected unknown line to report false")
	}
}

func TestHalfFloatRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 0.5, 2.25, 65504, -65504, 1e-5} {
		h := FloatToHalf(v)
		got := HalfToFloat(h)
		approxEqual(t, got, v, 0.01*math.Max(1, math.Abs(v)))
	}
}

func TestHalfFloatZero(t *testing.T) {
	if HalfToFloat(FloatToHalf(0)) != 0 {
		t.Fatal("zero should round-trip exactly")
	}
}

func TestSpectrumArithmetic(t *testing.T) {
	a := NewSpectrum(2)
	b := NewSpectrum(3)
	sum := a.Add(b)
	for _, v := range sum.V {
		approxEqual(t, v, 5, 1e-12)
	}
	if a.IsBlack() {
		t.Fatal("spectrum of 2s should not be black")
	}
	if !NewSpectrum(0).IsBlack() {
		t.Fatal("spectrum of 0s should be black")
	}
}

func TestSpectrumTermination(t *testing.T) {
	s := NewSpectrum(1)
	ws := NewWavelengthSample(550, 360, 830)
	ws.Terminate()
	out := s.ApplyTermination(ws)
	if out.V[0] != 1 {
		t.Fatal("hero lane must survive termination")
	}
	for i := 1; i < NumLanes; i++ {
		if out.V[i] != 0 {
			t.Fatalf("lane %d should be zeroed after termination", i)
		}
	}
}

func TestWavelengthSampleSpacing(t *testing.T) {
	ws := NewWavelengthSample(400, 360, 830)
	for _, lam := range ws.Lambda {
		if lam < 360 || lam > 830 {
			t.Fatalf("wavelength %v out of range", lam)
		}
	}
}
