package colorize

import "math"

// Blend produces the final pixel from the spatially averaged Stage-1 color.
//
// The stylized color keeps the original pixel's lightness and takes a and b
// from averaged (luminance transfer), so texture and shading survive the
// recolor. It is then mixed with originalRGB per channel:
//
//	out = original + (stylized - original) · factor
//
// rounded and clamped to [0,255]. factor 1 returns the stylized pixel and
// factor 0 returns originalRGB, both exactly.
func Blend(averaged, originalLab Lab, originalRGB Pixel, factor float64) Pixel {
	s := LabToRGB(Lab{L: originalLab.L, A: averaged.A, B: averaged.B})
	return Pixel{
		R: mix(originalRGB.R, s.R, factor),
		G: mix(originalRGB.G, s.G, factor),
		B: mix(originalRGB.B, s.B, factor),
	}
}

func mix(orig, styl uint8, factor float64) uint8 {
	v := math.Round(float64(orig) + (float64(styl)-float64(orig))*factor)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
