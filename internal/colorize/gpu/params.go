package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/ironsheep/colorizer/internal/colorize"
)

// Workgroup geometry; must match the @workgroup_size attributes in shaders/.
const (
	tileSize    = 16
	scanThreads = 256

	// maxDispatch is the WebGPU default limit on workgroups per dimension.
	// The scan passes dispatch one workgroup per row.
	maxDispatch = 65535

	// labStride is the byte size of one Lab entry (four f32) in the
	// matched, sums and palette buffers.
	labStride = 16

	// abMagnitude bounds |a| and |b| for colors inside the sRGB gamut.
	abMagnitude = 128
)

// maxBindingBytes is the largest storage buffer a kernel may bind under the
// default device limits.
var maxBindingBytes = gputypes.DefaultLimits().MaxStorageBufferBindingSize

// params mirrors the Params uniform shared by match.wgsl and blend.wgsl.
type params struct {
	Width          uint32
	Height         uint32
	BlendFactor    float32
	DitherAmount   float32
	SpatialRadius  uint32
	PaletteLen     uint32
	Seed           uint32
	DitherOriginal uint32
}

func newParams(width, height int, cfg colorize.Config, seed uint64) params {
	p := params{
		Width:         uint32(width),
		Height:        uint32(height),
		BlendFactor:   float32(cfg.BlendFactor),
		DitherAmount:  float32(cfg.DitherAmount),
		SpatialRadius: uint32(cfg.SpatialRadius),
		PaletteLen:    uint32(len(cfg.Palette)),
		Seed:          uint32(seed) ^ uint32(seed>>32),
	}
	if cfg.DitherReference == colorize.DitherOriginal {
		p.DitherOriginal = 1
	}
	return p
}

// bytes encodes p in std140 layout (eight 4-byte scalars, 32 bytes).
func (p params) bytes() []byte {
	le := binary.LittleEndian
	buf := make([]byte, 32)
	le.PutUint32(buf[0:], p.Width)
	le.PutUint32(buf[4:], p.Height)
	le.PutUint32(buf[8:], math.Float32bits(p.BlendFactor))
	le.PutUint32(buf[12:], math.Float32bits(p.DitherAmount))
	le.PutUint32(buf[16:], p.SpatialRadius)
	le.PutUint32(buf[20:], p.PaletteLen)
	le.PutUint32(buf[24:], p.Seed)
	le.PutUint32(buf[28:], p.DitherOriginal)
	return buf
}

// scanParams mirrors the ScanParams uniform of scan.wgsl and transpose.wgsl:
// the dimensions of the row-major grid being scanned or transposed.
type scanParams struct {
	Width  uint32
	Height uint32
}

func (p scanParams) bytes() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], p.Width)
	binary.LittleEndian.PutUint32(buf[4:], p.Height)
	return buf
}

// checkDimensions rejects images the scan dispatch cannot cover and images
// whose Lab buffers exceed the storage binding limit.
func checkDimensions(width, height int) error {
	if width > maxDispatch || height > maxDispatch {
		return fmt.Errorf("gpu: image %dx%d exceeds %d rows or columns", width, height, maxDispatch)
	}
	if size := uint64(width) * uint64(height) * labStride; size > maxBindingBytes {
		return fmt.Errorf("gpu: image %dx%d needs %d-byte buffers, limit is %d", width, height, size, maxBindingBytes)
	}
	return nil
}

// averageErrorBound estimates, in Lab units, how far a window average built
// from f32 prefix sums can drift from the exact one. Each of the four
// lookups carries about one f32 step at the largest prefix magnitude, which
// is abMagnitude*width*height, and the window area divides the sum.
func averageErrorBound(width, height, radius int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	peak := float64(abMagnitude) * float64(width) * float64(height)
	step := math.Ldexp(1, int(math.Floor(math.Log2(peak)))-23)
	area := float64(min(2*radius+1, width) * min(2*radius+1, height))
	return 4 * step / area
}

// packPixels flattens img into one little-endian u32 per pixel,
// R | G<<8 | B<<16 | 0xff<<24.
func packPixels(img *image.NRGBA) []byte {
	b := img.Bounds()
	out := make([]byte, b.Dx()*b.Dy()*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			packed := uint32(row[x*4]) | uint32(row[x*4+1])<<8 | uint32(row[x*4+2])<<16 | 0xff<<24
			binary.LittleEndian.PutUint32(out[i:], packed)
			i += 4
		}
	}
	return out
}

// unpackPixels is the inverse of packPixels. Alpha is forced to 255.
func unpackPixels(data []byte, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height && i*4+4 <= len(data); i++ {
		v := binary.LittleEndian.Uint32(data[i*4:])
		img.Pix[i*4] = uint8(v)
		img.Pix[i*4+1] = uint8(v >> 8)
		img.Pix[i*4+2] = uint8(v >> 16)
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// packPalette encodes the palette as four f32 per entry (L, a, b, 0).
func packPalette(p colorize.Palette) []byte {
	out := make([]byte, len(p)*16)
	for i, c := range p {
		binary.LittleEndian.PutUint32(out[i*16:], math.Float32bits(float32(c.L)))
		binary.LittleEndian.PutUint32(out[i*16+4:], math.Float32bits(float32(c.A)))
		binary.LittleEndian.PutUint32(out[i*16+8:], math.Float32bits(float32(c.B)))
	}
	return out
}

func groups(n, size int) uint32 {
	return uint32((n + size - 1) / size)
}
