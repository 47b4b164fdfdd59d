package imageio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/lumenray/lumenray/spectrum"
)

// OpenEXR has no decoder anywhere in the example corpus or its
// transitive module closure; this is a from-scratch, stdlib-only
// implementation, documented as such in DESIGN.md. It supports the
// common subset this renderer needs: single-part scanline images,
// NO_COMPRESSION, HALF or FLOAT channels named from {R,G,B,A}. It does
// not support tiled, deep, or multi-part files, or any of EXR's
// compressed chunk formats (ZIP/PIZ/PXR24/...).

const (
	exrMagic   = 0x01312f76
	exrVersion = 2

	exrPixelUint  = int32(0)
	exrPixelHalf  = int32(1)
	exrPixelFloat = int32(2)

	exrCompressionNone = byte(0)
)

type exrChannel struct {
	name       string
	pixelType  int32
	xSampling  int32
	ySampling  int32
	pLinear    byte
	reserved   [3]byte
}

func decodeEXR(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	var magic, version int32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("imageio: read exr magic: %w", err)
	}
	if magic != exrMagic {
		return nil, fmt.Errorf("imageio: not an OpenEXR file")
	}
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("imageio: read exr version: %w", err)
	}
	if version&0x200 != 0 {
		return nil, fmt.Errorf("imageio: tiled EXR not supported")
	}
	if version&0x1000 != 0 {
		return nil, fmt.Errorf("imageio: multi-part EXR not supported")
	}

	var channels []exrChannel
	var compression byte
	var dataWindow [4]int32
	haveChannels, haveCompression, haveDataWindow := false, false, false

	for {
		name, err := readCString(br)
		if err != nil {
			return nil, fmt.Errorf("imageio: read exr attribute name: %w", err)
		}
		if name == "" {
			break
		}
		typeName, err := readCString(br)
		if err != nil {
			return nil, err
		}
		var size int32
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, err
		}
		switch name {
		case "channels":
			channels, err = parseChannelList(data)
			if err != nil {
				return nil, err
			}
			haveChannels = true
		case "compression":
			if len(data) != 1 {
				return nil, fmt.Errorf("imageio: malformed exr compression attribute")
			}
			compression = data[0]
			haveCompression = true
		case "dataWindow":
			if len(data) != 16 {
				return nil, fmt.Errorf("imageio: malformed exr dataWindow attribute")
			}
			for i := 0; i < 4; i++ {
				dataWindow[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
			}
			haveDataWindow = true
		}
		_ = typeName
	}
	if !haveChannels || !haveCompression || !haveDataWindow {
		return nil, fmt.Errorf("imageio: exr file missing required attributes")
	}
	if compression != exrCompressionNone {
		return nil, fmt.Errorf("imageio: unsupported exr compression %d", compression)
	}

	width := int(dataWindow[2] - dataWindow[0] + 1)
	height := int(dataWindow[3] - dataWindow[1] + 1)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("imageio: invalid exr dimensions %dx%d", width, height)
	}

	sort.Slice(channels, func(i, j int) bool { return channels[i].name < channels[j].name })

	// Scanline offset table: one int64 per row, unused by a sequential reader.
	offsets := make([]int64, height)
	if err := binary.Read(br, binary.LittleEndian, &offsets); err != nil {
		return nil, fmt.Errorf("imageio: read exr offset table: %w", err)
	}

	channelIndex := map[string]int{}
	outChannels := 0
	for _, order := range []string{"R", "G", "B", "A"} {
		for _, c := range channels {
			if c.name == order {
				channelIndex[order] = outChannels
				outChannels++
			}
		}
	}
	if outChannels == 0 {
		return nil, fmt.Errorf("imageio: exr file has no R/G/B/A channels")
	}
	img := NewImage(width, height, outChannels)

	for row := 0; row < height; row++ {
		var y, dataSize int32
		if err := binary.Read(br, binary.LittleEndian, &y); err != nil {
			return nil, fmt.Errorf("imageio: read exr scanline header: %w", err)
		}
		if err := binary.Read(br, binary.LittleEndian, &dataSize); err != nil {
			return nil, err
		}
		chunk := make([]byte, dataSize)
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, err
		}
		offset := 0
		values := make([]float64, width)
		for _, c := range channels {
			for x := 0; x < width; x++ {
				var v float64
				switch c.pixelType {
				case exrPixelHalf:
					v = spectrum.HalfToFloat(binary.LittleEndian.Uint16(chunk[offset:]))
					offset += 2
				case exrPixelFloat:
					v = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk[offset:])))
					offset += 4
				default:
					v = float64(binary.LittleEndian.Uint32(chunk[offset:]))
					offset += 4
				}
				values[x] = v
			}
			if idx, ok := channelIndex[c.name]; ok {
				for x := 0; x < width; x++ {
					px := img.At(x, int(y)-int(dataWindow[1]))
					px[idx] = values[x]
					img.Set(x, int(y)-int(dataWindow[1]), px)
				}
			}
		}
	}
	return img, nil
}

func parseChannelList(data []byte) ([]exrChannel, error) {
	var out []exrChannel
	r := data
	for len(r) > 0 && r[0] != 0 {
		i := 0
		for i < len(r) && r[i] != 0 {
			i++
		}
		if i+17 > len(r) {
			return nil, fmt.Errorf("imageio: truncated exr channel list")
		}
		name := string(r[:i])
		r = r[i+1:]
		ch := exrChannel{
			name:      name,
			pixelType: int32(binary.LittleEndian.Uint32(r[0:4])),
			pLinear:   r[4],
			xSampling: int32(binary.LittleEndian.Uint32(r[8:12])),
			ySampling: int32(binary.LittleEndian.Uint32(r[12:16])),
		}
		out = append(out, ch)
		r = r[16:]
	}
	return out, nil
}

func readCString(r io.ByteReader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

func encodeEXR(w io.Writer, img *Image) error {
	bw := bufio.NewWriter(w)
	names := []string{"B", "G", "R"}
	if img.Channels >= 4 {
		names = []string{"A", "B", "G", "R"}
	}
	sort.Strings(names)

	if err := binary.Write(bw, binary.LittleEndian, int32(exrMagic)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(exrVersion)); err != nil {
		return err
	}

	writeAttr := func(name, typeName string, data []byte) error {
		if _, err := bw.WriteString(name); err != nil {
			return err
		}
		if err := bw.WriteByte(0); err != nil {
			return err
		}
		if _, err := bw.WriteString(typeName); err != nil {
			return err
		}
		if err := bw.WriteByte(0); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, int32(len(data))); err != nil {
			return err
		}
		_, err := bw.Write(data)
		return err
	}

	var chlist []byte
	for _, n := range names {
		chlist = append(chlist, []byte(n)...)
		chlist = append(chlist, 0)
		var entry [16]byte
		binary.LittleEndian.PutUint32(entry[0:4], uint32(exrPixelFloat))
		entry[4] = 0
		binary.LittleEndian.PutUint32(entry[8:12], 1)
		binary.LittleEndian.PutUint32(entry[12:16], 1)
		chlist = append(chlist, entry[:]...)
	}
	chlist = append(chlist, 0)
	if err := writeAttr("channels", "chlist", chlist); err != nil {
		return err
	}
	if err := writeAttr("compression", "compression", []byte{exrCompressionNone}); err != nil {
		return err
	}
	box := make([]byte, 16)
	binary.LittleEndian.PutUint32(box[0:4], 0)
	binary.LittleEndian.PutUint32(box[4:8], 0)
	binary.LittleEndian.PutUint32(box[8:12], uint32(img.Width-1))
	binary.LittleEndian.PutUint32(box[12:16], uint32(img.Height-1))
	if err := writeAttr("dataWindow", "box2i", box); err != nil {
		return err
	}
	if err := writeAttr("displayWindow", "box2i", box); err != nil {
		return err
	}
	if err := writeAttr("lineOrder", "lineOrder", []byte{0}); err != nil {
		return err
	}
	var f1 [4]byte
	binary.LittleEndian.PutUint32(f1[:], math.Float32bits(1))
	if err := writeAttr("pixelAspectRatio", "float", f1[:]); err != nil {
		return err
	}
	var center [8]byte
	if err := writeAttr("screenWindowCenter", "v2f", center[:]); err != nil {
		return err
	}
	if err := writeAttr("screenWindowWidth", "float", f1[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(0); err != nil { // end of header
		return err
	}

	rowBytes := img.Width * 4 * len(names)
	chunkBytes := rowBytes + 8

	// Offset table: one absolute file offset per scanline chunk.
	// Sequential readers (like decodeEXR above) never use it. The header
	// is far smaller than bw's buffer, so nothing has been flushed yet and
	// bw.Buffered() is the number of bytes written so far.
	base := int64(bw.Buffered()) + int64(img.Height)*8
	offsets := make([]int64, img.Height)
	for i := range offsets {
		offsets[i] = base + int64(i)*int64(chunkBytes)
	}
	if err := binary.Write(bw, binary.LittleEndian, offsets); err != nil {
		return err
	}

	rowBuf := make([]float64, img.Width)
	for y := 0; y < img.Height; y++ {
		if err := binary.Write(bw, binary.LittleEndian, int32(y)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, int32(rowBytes)); err != nil {
			return err
		}
		for _, n := range names {
			idx := channelOutIndex(n, img.Channels)
			for x := 0; x < img.Width; x++ {
				px := img.At(x, y)
				if idx < len(px) {
					rowBuf[x] = px[idx]
				} else {
					rowBuf[x] = 0
				}
			}
			for x := 0; x < img.Width; x++ {
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(rowBuf[x])))
				if _, err := bw.Write(buf[:]); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}

func channelOutIndex(name string, channels int) int {
	switch name {
	case "R":
		return 0
	case "G":
		return 1
	case "B":
		return 2
	case "A":
		if channels >= 4 {
			return 3
		}
	}
	return 0
}
