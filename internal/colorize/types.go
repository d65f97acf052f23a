package colorize

import (
	"context"
	"fmt"
	"image"
	"math"
)

// Pixel is an opaque 8-bit sRGB color.
type Pixel struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// key packs the pixel into the 24-bit value used by ColorCache.
func (p Pixel) key() uint32 {
	return uint32(p.R)<<16 | uint32(p.G)<<8 | uint32(p.B)
}

// Lab is a CIE L*a*b* color relative to the D65 white point.
//
//   - L: lightness, 0 (black) to 100 (white)
//   - A: green (negative) to red (positive), roughly -128 to 128
//   - B: blue (negative) to yellow (positive), roughly -128 to 128
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Palette is the ordered list of target colors. Order decides ties: when two
// entries are equally close to a pixel, the earlier one wins.
type Palette []Lab

// DitherReference selects the color Stage 1 dithers toward.
type DitherReference int

const (
	// DitherMatched dithers the matched color toward itself, which leaves it
	// unchanged.
	DitherMatched DitherReference = iota

	// DitherOriginal dithers the matched color toward the source pixel's Lab.
	DitherOriginal
)

// String returns the name used on the command line.
func (d DitherReference) String() string {
	switch d {
	case DitherMatched:
		return "matched"
	case DitherOriginal:
		return "original"
	default:
		return fmt.Sprintf("DitherReference(%d)", int(d))
	}
}

// Config holds the parameters of one colorize run. It is resolved once by
// the caller and treated as read-only for the duration of the run.
type Config struct {
	// Palette is the set of target colors. Must not be empty.
	Palette Palette

	// BlendFactor mixes the stylized result with the original, in [0,1].
	// 1 yields the fully stylized pixel, 0 returns the original pixel.
	BlendFactor float64

	// DitherAmount scales the random perturbation of matched colors, in [0,1].
	DitherAmount float64

	// SpatialRadius is the half-width in pixels of the chroma averaging
	// window. 0 averages over the pixel alone.
	SpatialRadius int

	// DitherReference selects the dither target. The zero value dithers
	// toward the matched color.
	DitherReference DitherReference

	// Seed seeds the dither random source. 0 picks a fresh seed per run.
	Seed uint64
}

// Validate reports whether the configuration can drive a run. An empty
// palette yields ErrPaletteEmpty; out-of-range scalars yield ErrInvalidConfig.
func (c Config) Validate() error {
	if len(c.Palette) == 0 {
		return ErrPaletteEmpty
	}
	if !inUnit(c.BlendFactor) {
		return fmt.Errorf("%w: blend factor %v outside [0,1]", ErrInvalidConfig, c.BlendFactor)
	}
	if !inUnit(c.DitherAmount) {
		return fmt.Errorf("%w: dither amount %v outside [0,1]", ErrInvalidConfig, c.DitherAmount)
	}
	if c.SpatialRadius < 0 {
		return fmt.Errorf("%w: spatial radius %d is negative", ErrInvalidConfig, c.SpatialRadius)
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Output is the result of one colorize run.
type Output struct {
	// Image is the final recolored image, same dimensions as the input.
	Image *image.NRGBA

	// Matched is the Stage-1 image: palette-matched and dithered colors
	// before spatial averaging and blending.
	Matched *image.NRGBA
}

// Colorizer is implemented by each backend. A backend is chosen once per run
// and used for every image in it.
type Colorizer interface {
	// Name identifies the backend in logs ("cpu", "gpu").
	Name() string

	// Colorize recolors src according to cfg and returns a new image of the
	// same dimensions. src is never modified.
	Colorize(ctx context.Context, src image.Image, cfg Config) (*Output, error)
}
