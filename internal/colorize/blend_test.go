package colorize

import "testing"

func TestBlend_Extremes(t *testing.T) {
	orig := Pixel{200, 120, 40}
	origLab := RGBToLab(orig)
	avg := RGBToLab(Pixel{30, 60, 220})
	stylized := LabToRGB(Lab{L: origLab.L, A: avg.A, B: avg.B})

	if got := Blend(avg, origLab, orig, 0); got != orig {
		t.Errorf("factor 0: got %v, want original %v", got, orig)
	}
	if got := Blend(avg, origLab, orig, 1); got != stylized {
		t.Errorf("factor 1: got %v, want stylized %v", got, stylized)
	}
}

func TestBlend_KeepsOriginalLightness(t *testing.T) {
	orig := Pixel{128, 128, 128}
	origLab := RGBToLab(orig)

	// Neutral chroma leaves the gray unchanged at any factor.
	for _, f := range []float64{0, 0.25, 0.5, 1} {
		if got := Blend(Lab{L: 90, A: 0, B: 0}, origLab, orig, f); got != orig {
			t.Errorf("factor %v: got %v, want %v", f, got, orig)
		}
	}
}

func TestMix(t *testing.T) {
	tests := []struct {
		orig, styl uint8
		factor     float64
		want       uint8
	}{
		{0, 255, 0.5, 128},
		{255, 0, 0.5, 128},
		{100, 200, 0.25, 125},
		{10, 10, 0.7, 10},
		{0, 255, 1, 255},
		{255, 0, 1, 0},
	}

	for _, tt := range tests {
		if got := mix(tt.orig, tt.styl, tt.factor); got != tt.want {
			t.Errorf("mix(%d, %d, %v) = %d, want %d", tt.orig, tt.styl, tt.factor, got, tt.want)
		}
	}
}
