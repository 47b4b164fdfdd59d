package imageio

import (
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/lumenray/lumenray/spectrum"
)

// ErrUnsupportedFormat matches the teacher's LoadImage: no codec could
// handle the path/content.
var ErrUnsupportedFormat = errors.New("imageio: unsupported format")

// Load reads an image file, auto-detecting its format from extension
// (falling back to content sniffing for 8-bit formats), and returns
// it decoded to linear-light float64, per the teacher's LoadImage
// dispatch (_examples/gogpu-gg/internal/image/io.go).
func Load(path string) (*Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("imageio: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err := png.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("imageio: decode png: %w", err)
		}
		return fromStdImageSRGB(img), nil
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("imageio: decode jpeg: %w", err)
		}
		return fromStdImageSRGB(img), nil
	case ".bmp":
		img, err := bmp.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("imageio: decode bmp: %w", err)
		}
		return fromStdImageSRGB(img), nil
	case ".hdr", ".pic":
		return decodeHDR(f)
	case ".exr":
		return decodeEXR(f)
	case ".tga":
		return decodeTGA(f)
	default:
		img, _, err := stdimage.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return fromStdImageSRGB(img), nil
	}
}

// Save writes an image file, choosing the codec by extension. LDR
// formats (PNG/JPEG/BMP) tone-encode via sRGB gamma; HDR formats
// (EXR/HDR) write linear values directly.
func Save(path string, img *Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode(f, toStdImageSRGB(img))
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, toStdImageSRGB(img), &jpeg.Options{Quality: 95})
	case ".bmp":
		return bmp.Encode(f, toStdImageSRGB(img))
	case ".hdr", ".pic":
		return encodeHDR(f, img)
	case ".exr":
		return encodeEXR(f, img)
	case ".tga":
		return encodeTGA(f, img)
	default:
		return ErrUnsupportedFormat
	}
}

// fromStdImageSRGB converts a decoded 8-bit image.Image (assumed
// sRGB-encoded, the universal convention for PNG/JPEG/BMP) into a
// linear-light RGB Image.
func fromStdImageSRGB(src stdimage.Image) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := NewImage(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bch, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rgb := spectrum.RGB{
				R: spectrum.SRGBToLinear(float64(r) / 65535),
				G: spectrum.SRGBToLinear(float64(g) / 65535),
				B: spectrum.SRGBToLinear(float64(bch) / 65535),
			}
			out.Set(x, y, []float64{rgb.R, rgb.G, rgb.B})
		}
	}
	return out
}

func toStdImageSRGB(img *Image) stdimage.Image {
	out := stdimage.NewRGBA(stdimage.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := img.At(x, y)
			var rgb spectrum.RGB
			switch {
			case len(v) >= 3:
				rgb = spectrum.RGB{R: v[0], G: v[1], B: v[2]}
			case len(v) == 1:
				rgb = spectrum.RGB{R: v[0], G: v[0], B: v[0]}
			}
			enc := spectrum.LinearToSRGBRGB(rgb)
			out.SetRGBA(x, y, color.RGBA{
				R: to8(enc.R), G: to8(enc.G), B: to8(enc.B), A: 255,
			})
		}
	}
	return out
}

func to8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
