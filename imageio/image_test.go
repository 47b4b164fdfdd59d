package imageio

import (
	"bytes"
	"math"
	"testing"

	"github.com/lumenray/lumenray/vecmath"
)

func TestMapUVEdgeClampsInsideUnitRange(t *testing.T) {
	uv, ok := MapUV(vecmath.V2(1.5, -0.5), AddressEdge)
	if !ok {
		t.Fatal("edge mode should never report out-of-range")
	}
	if uv.X < 0 || uv.X >= 1 || uv.Y < 0 || uv.Y >= 1 {
		t.Fatalf("expected clamped uv in [0,1), got %+v", uv)
	}
}

func TestMapUVRepeatWraps(t *testing.T) {
	uv, _ := MapUV(vecmath.V2(1.25, -0.25), AddressRepeat)
	if math.Abs(uv.X-0.25) > 1e-9 || math.Abs(uv.Y-0.75) > 1e-9 {
		t.Fatalf("expected wrapped (0.25,0.75), got %+v", uv)
	}
}

func TestMapUVMirrorFolds(t *testing.T) {
	uv, _ := MapUV(vecmath.V2(1.25, 0), AddressMirror)
	if math.Abs(uv.X-0.75) > 1e-9 {
		t.Fatalf("expected mirrored 0.75, got %v", uv.X)
	}
}

func TestMapUVZeroReportsOutOfRange(t *testing.T) {
	_, ok := MapUV(vecmath.V2(1.1, 0.5), AddressZero)
	if ok {
		t.Fatal("expected out-of-range uv to report false under AddressZero")
	}
	_, ok = MapUV(vecmath.V2(0.5, 0.5), AddressZero)
	if !ok {
		t.Fatal("expected in-range uv to report true under AddressZero")
	}
}

func TestImageSetAtRoundTrip(t *testing.T) {
	img := NewImage(4, 4, 3)
	img.Set(1, 2, []float64{0.1, 0.2, 0.3})
	got := img.At(1, 2)
	if got[0] != 0.1 || got[1] != 0.2 || got[2] != 0.3 {
		t.Fatalf("expected round-tripped texel, got %v", got)
	}
}

func TestImageSampleNearestMatchesTexel(t *testing.T) {
	img := NewImage(2, 2, 1)
	img.Set(0, 0, []float64{1})
	img.Set(1, 0, []float64{2})
	img.Set(0, 1, []float64{3})
	img.Set(1, 1, []float64{4})
	got := img.Sample(vecmath.V2(0.9, 0.1), AddressEdge, InterpNearest)
	if got[0] != 2 {
		t.Fatalf("expected nearest texel 2, got %v", got[0])
	}
}

func TestImageSampleBilinearAveragesNeighbors(t *testing.T) {
	img := NewImage(2, 2, 1)
	img.Set(0, 0, []float64{0})
	img.Set(1, 0, []float64{2})
	img.Set(0, 1, []float64{0})
	img.Set(1, 1, []float64{2})
	got := img.Sample(vecmath.V2(0.5, 0.5), AddressEdge, InterpBilinear)
	if math.Abs(got[0]-1) > 0.2 {
		t.Fatalf("expected bilinear value near 1, got %v", got[0])
	}
}

func TestHDRRoundTrip(t *testing.T) {
	img := NewImage(3, 2, 3)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, []float64{float64(x) * 0.1, float64(y) * 0.2, 0.5})
		}
	}
	var buf bytes.Buffer
	if err := encodeHDR(&buf, img); err != nil {
		t.Fatalf("encodeHDR: %v", err)
	}
	got, err := decodeHDR(&buf)
	if err != nil {
		t.Fatalf("decodeHDR: %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height {
		t.Fatalf("expected %dx%d, got %dx%d", img.Width, img.Height, got.Width, got.Height)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			want := img.At(x, y)
			have := got.At(x, y)
			for c := range want {
				if math.Abs(want[c]-have[c]) > 0.05 {
					t.Fatalf("pixel (%d,%d) channel %d: want %v, got %v", x, y, c, want[c], have[c])
				}
			}
		}
	}
}

func TestTGARoundTrip(t *testing.T) {
	img := NewImage(2, 2, 3)
	img.Set(0, 0, []float64{1, 0, 0})
	img.Set(1, 0, []float64{0, 1, 0})
	img.Set(0, 1, []float64{0, 0, 1})
	img.Set(1, 1, []float64{1, 1, 1})

	var buf bytes.Buffer
	if err := encodeTGA(&buf, img); err != nil {
		t.Fatalf("encodeTGA: %v", err)
	}
	got, err := decodeTGA(&buf)
	if err != nil {
		t.Fatalf("decodeTGA: %v", err)
	}
	if got.Width != 2 || got.Height != 2 {
		t.Fatalf("expected 2x2, got %dx%d", got.Width, got.Height)
	}
	red := got.At(0, 0)
	if red[0] < 0.9 || red[1] > 0.1 || red[2] > 0.1 {
		t.Fatalf("expected red-dominant texel, got %v", red)
	}
}

func TestEXRRoundTrip(t *testing.T) {
	img := NewImage(4, 3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, []float64{float64(x) / 4, float64(y) / 3, 0.25})
		}
	}
	var buf bytes.Buffer
	if err := encodeEXR(&buf, img); err != nil {
		t.Fatalf("encodeEXR: %v", err)
	}
	got, err := decodeEXR(&buf)
	if err != nil {
		t.Fatalf("decodeEXR: %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height {
		t.Fatalf("expected %dx%d, got %dx%d", img.Width, img.Height, got.Width, got.Height)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			want := img.At(x, y)
			have := got.At(x, y)
			for c := range want {
				if math.Abs(want[c]-have[c]) > 1e-6 {
					t.Fatalf("pixel (%d,%d) channel %d: want %v, got %v", x, y, c, want[c], have[c])
				}
			}
		}
	}
}
