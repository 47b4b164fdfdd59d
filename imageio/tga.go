package imageio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/lumenray/lumenray/spectrum"
)

// TGA (Truevision Targa) has no decoder anywhere in the example corpus
// or its transitive module closure; this is a from-scratch,
// stdlib-only implementation, documented as such in DESIGN.md. It
// supports uncompressed 24/32-bit true-color images (image type 2),
// the common case emitted by asset pipelines; RLE (type 10) and
// color-mapped (type 1) TGAs are not supported.

func decodeTGA(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	var header [18]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("imageio: read tga header: %w", err)
	}
	idLength := header[0]
	imageType := header[2]
	width := int(header[12]) | int(header[13])<<8
	height := int(header[14]) | int(header[15])<<8
	bpp := int(header[16])
	descriptor := header[17]

	if imageType != 2 {
		return nil, fmt.Errorf("imageio: unsupported tga image type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("imageio: unsupported tga bit depth %d", bpp)
	}
	if idLength > 0 {
		if _, err := io.CopyN(io.Discard, br, int64(idLength)); err != nil {
			return nil, err
		}
	}

	bytesPerPixel := bpp / 8
	row := make([]byte, width*bytesPerPixel)
	img := NewImage(width, height, 3)
	topToBottom := descriptor&0x20 != 0

	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("imageio: read tga row %d: %w", y, err)
		}
		destY := y
		if !topToBottom {
			destY = height - 1 - y
		}
		for x := 0; x < width; x++ {
			b := row[x*bytesPerPixel+0]
			g := row[x*bytesPerPixel+1]
			rr := row[x*bytesPerPixel+2]
			rgb := spectrum.RGB{
				R: spectrum.SRGBToLinear(float64(rr) / 255),
				G: spectrum.SRGBToLinear(float64(g) / 255),
				B: spectrum.SRGBToLinear(float64(b) / 255),
			}
			img.Set(x, destY, []float64{rgb.R, rgb.G, rgb.B})
		}
	}
	return img, nil
}

func encodeTGA(w io.Writer, img *Image) error {
	bw := bufio.NewWriter(w)
	header := make([]byte, 18)
	header[2] = 2 // uncompressed true-color
	header[12] = byte(img.Width & 0xff)
	header[13] = byte(img.Width >> 8)
	header[14] = byte(img.Height & 0xff)
	header[15] = byte(img.Height >> 8)
	header[16] = 24
	header[17] = 0x20 // top-to-bottom origin
	if _, err := bw.Write(header); err != nil {
		return err
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := img.At(x, y)
			var rgb spectrum.RGB
			if len(v) >= 3 {
				rgb = spectrum.RGB{R: v[0], G: v[1], B: v[2]}
			} else if len(v) == 1 {
				rgb = spectrum.RGB{R: v[0], G: v[0], B: v[0]}
			}
			enc := spectrum.LinearToSRGBRGB(rgb)
			if _, err := bw.Write([]byte{to8(enc.B), to8(enc.G), to8(enc.R)}); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
