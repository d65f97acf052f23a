package colorize

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// go-colorful expresses Lab with L in [0,1]; this package uses [0,100].
const labScale = 100.0

// RGBToLab converts an 8-bit sRGB pixel to Lab (D65).
//
// The conversion follows the standard chain: sRGB gamma decode to linear
// light, linear RGB to CIE XYZ, XYZ to Lab. It is a pure function, so equal
// pixels always produce bit-identical Lab values.
func RGBToLab(p Pixel) Lab {
	l, a, b := colorful.Color{
		R: float64(p.R) / 255.0,
		G: float64(p.G) / 255.0,
		B: float64(p.B) / 255.0,
	}.Lab()
	return Lab{L: l * labScale, A: a * labScale, B: b * labScale}
}

// LabToRGB converts a Lab color to an 8-bit sRGB pixel.
//
// Lab values outside the sRGB gamut map to linear components below 0 or
// above 1. Those are clamped to [0,1] in linear light before gamma encoding,
// so the 8-bit result never wraps.
func LabToRGB(c Lab) Pixel {
	x, y, z := colorful.LabToXyz(c.L/labScale, c.A/labScale, c.B/labScale)
	r, g, b := colorful.XyzToLinearRgb(x, y, z)
	r8, g8, b8 := colorful.LinearRgb(clamp01(r), clamp01(g), clamp01(b)).RGB255()
	return Pixel{R: r8, G: g8, B: b8}
}

// toColorful returns the go-colorful value for a Lab color without clamping.
func (c Lab) toColorful() colorful.Color {
	return colorful.Lab(c.L/labScale, c.A/labScale, c.B/labScale)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CloneOpaque copies src into a fresh NRGBA buffer with its origin at (0,0).
// Alpha is forced to 255.
func CloneOpaque(src image.Image) *image.NRGBA {
	dst := imaging.Clone(src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func pixelAt(img *image.NRGBA, x, y int) Pixel {
	i := img.PixOffset(x, y)
	return Pixel{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2]}
}

func setPixel(img *image.NRGBA, x, y int, p Pixel) {
	i := img.PixOffset(x, y)
	img.Pix[i] = p.R
	img.Pix[i+1] = p.G
	img.Pix[i+2] = p.B
	img.Pix[i+3] = 0xff
}

// NRGBA returns the pixel as a color.NRGBA with full opacity.
func (p Pixel) NRGBA() color.NRGBA {
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
}
