package palette

import (
	"math"
	"testing"

	"github.com/ironsheep/colorizer/internal/colorize"
)

func TestInterpolate_SortsByLightness(t *testing.T) {
	p := colorize.Palette{{L: 80}, {L: 20}, {L: 50}}
	got := Interpolate(p, 1000)

	want := []float64{20, 50, 80}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, l := range want {
		if got[i].L != l {
			t.Errorf("got[%d].L = %v, want %v", i, got[i].L, l)
		}
	}
	if p[0].L != 80 {
		t.Error("input palette was modified")
	}
}

func TestInterpolate_StableForEqualLightness(t *testing.T) {
	p := colorize.Palette{{L: 50, A: 1}, {L: 10}, {L: 50, A: 2}, {L: 50, A: 3}}
	got := Interpolate(p, math.Inf(1))

	for i, a := range []float64{0, 1, 2, 3} {
		if got[i].A != a {
			t.Errorf("got[%d].A = %v, want %v", i, got[i].A, a)
		}
	}
}

func TestInterpolate_InsertsSteps(t *testing.T) {
	black := colorize.RGBToLab(colorize.Pixel{})
	white := colorize.RGBToLab(colorize.Pixel{R: 255, G: 255, B: 255})
	d := colorize.ImprovedDistance(black, white)

	threshold := d / 3.5 // ceil(3.5) = 4 steps, 3 intermediates
	got := Interpolate(colorize.Palette{white, black}, threshold)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0] != black || got[4] != white {
		t.Errorf("endpoints = %v, %v", got[0], got[4])
	}
	for i := 1; i < 4; i++ {
		want := black.L + (white.L-black.L)*float64(i)/4
		if math.Abs(got[i].L-want) > 1e-9 {
			t.Errorf("got[%d].L = %v, want %v", i, got[i].L, want)
		}
	}
}

func TestInterpolate_NoStepsBelowThreshold(t *testing.T) {
	a := colorize.Lab{L: 50, A: 10, B: 10}
	b := colorize.Lab{L: 51, A: 10, B: 10}
	if got := Interpolate(colorize.Palette{a, b}, 2.5); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestInterpolate_Degenerate(t *testing.T) {
	if got := Interpolate(nil, 2.5); len(got) != 0 {
		t.Errorf("nil palette gave %v", got)
	}
	one := colorize.Palette{{L: 40}}
	if got := Interpolate(one, 2.5); len(got) != 1 || got[0] != one[0] {
		t.Errorf("single entry gave %v", got)
	}
	two := colorize.Palette{{L: 0}, {L: 100}}
	if got := Interpolate(two, 0); len(got) != 2 {
		t.Errorf("zero threshold gave %d entries, want 2", len(got))
	}
}
