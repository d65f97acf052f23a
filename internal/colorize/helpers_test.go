package colorize

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"testing"
)

// createSolidImage creates an in-memory image filled with one color.
func createSolidImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createNoiseImage creates an image of reproducible random colors.
func createNoiseImage(width, height int, seed uint64) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, 0))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.IntN(256))
		img.Pix[i+1] = uint8(rng.IntN(256))
		img.Pix[i+2] = uint8(rng.IntN(256))
		img.Pix[i+3] = 0xff
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant.
func createPatternImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.NRGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.NRGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.NRGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.NRGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func labOf(r, g, b uint8) Lab {
	return RGBToLab(Pixel{R: r, G: g, B: b})
}

func assertLabNear(t *testing.T, what string, got, want Lab, tol float64) {
	t.Helper()
	if math.Abs(got.L-want.L) > tol || math.Abs(got.A-want.A) > tol || math.Abs(got.B-want.B) > tol {
		t.Errorf("%s: got %+v, want %+v (tol %g)", what, got, want, tol)
	}
}
