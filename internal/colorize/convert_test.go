package colorize

import (
	"image"
	"image/color"
	"testing"
)

func TestRGBToLab_KnownColors(t *testing.T) {
	tests := []struct {
		name string
		px   Pixel
		want Lab
	}{
		{"white", Pixel{255, 255, 255}, Lab{100, 0, 0}},
		{"black", Pixel{0, 0, 0}, Lab{0, 0, 0}},
		{"red", Pixel{255, 0, 0}, Lab{53.2371, 80.0882, 67.1996}},
		{"blue", Pixel{0, 0, 255}, Lab{32.3009, 79.1939, -107.8688}},
		{"gray", Pixel{128, 128, 128}, Lab{53.5850, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertLabNear(t, "RGBToLab", RGBToLab(tt.px), tt.want, 0.01)
		})
	}
}

func TestLabToRGB_RoundTrip(t *testing.T) {
	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 15 {
			for b := 0; b < 256; b += 15 {
				px := Pixel{uint8(r), uint8(g), uint8(b)}
				if got := LabToRGB(RGBToLab(px)); got != px {
					t.Fatalf("round trip %v: got %v", px, got)
				}
			}
		}
	}
}

func TestLabToRGB_ClampsOutOfGamut(t *testing.T) {
	tests := []struct {
		name string
		in   Lab
		want Pixel
	}{
		{"above white", Lab{150, 0, 0}, Pixel{255, 255, 255}},
		{"below black", Lab{-20, 0, 0}, Pixel{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabToRGB(tt.in); got != tt.want {
				t.Errorf("LabToRGB(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	// Extreme chroma must saturate rather than wrap around.
	got := LabToRGB(Lab{50, 200, 0})
	if got.R != 255 {
		t.Errorf("LabToRGB saturated red: R = %d, want 255", got.R)
	}
}

func TestCloneOpaque(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 20, 14, 22))
	src.Set(10, 20, color.NRGBA{1, 2, 3, 0})

	dst := CloneOpaque(src)
	if dst.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("bounds = %v, want origin-aligned 4x2", dst.Bounds())
	}
	if got := pixelAt(dst, 0, 0); got != (Pixel{1, 2, 3}) {
		t.Errorf("pixel = %v, want {1 2 3}", got)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 0xff {
			t.Fatalf("alpha at %d = %d, want 255", i, dst.Pix[i])
		}
	}
}
