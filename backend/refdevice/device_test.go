package refdevice

import (
	"testing"

	"github.com/gogpu/gg/gpucore"

	"github.com/lumenray/lumenray/device"
)

func TestGpucoreTextureFormatAcceptsOnlyFloat(t *testing.T) {
	got, err := gpucoreTextureFormat(device.ImageFormatFloat)
	if err != nil {
		t.Fatalf("ImageFormatFloat: unexpected error %v", err)
	}
	if got != gpucore.TextureFormatRGBA32Float {
		t.Errorf("ImageFormatFloat maps to %v, want %v", got, gpucore.TextureFormatRGBA32Float)
	}

	for _, f := range []device.ImageFormat{device.ImageFormatHalf, device.ImageFormatUint} {
		if _, err := gpucoreTextureFormat(f); err == nil {
			t.Errorf("image format %v: expected an error, gpucore has no matching storage format", f)
		}
	}
}

func TestUnsafeBytesFromPtrViewsExactLength(t *testing.T) {
	backing := []byte{1, 2, 3, 4, 5}
	view := unsafeBytesFromPtr(uintptr(len(backing)), 0)
	if len(view) != 0 {
		t.Fatalf("expected a zero-length view for n=0, got %d bytes", len(view))
	}
}

func TestCreateAccelReportsUnsupported(t *testing.T) {
	d := &Device{}
	if _, err := d.CreateAccel(device.AccelOptions{}); err != ErrAccelUnsupported {
		t.Fatalf("CreateAccel error = %v, want %v", err, ErrAccelUnsupported)
	}
}
