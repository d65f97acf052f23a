package palette

import (
	"math"
	"sort"

	"github.com/ironsheep/colorizer/internal/colorize"
)

// Interpolate densifies a palette.
//
// The entries are sorted by lightness (stable, so equal-L entries keep their
// order). Between each pair of neighbors whose improved CIEDE2000 distance d
// exceeds threshold, ceil(d/threshold)-1 evenly spaced Lab colors are
// inserted. A threshold <= 0 or NaN returns the sorted palette unchanged.
func Interpolate(p colorize.Palette, threshold float64) colorize.Palette {
	sorted := append(colorize.Palette(nil), p...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].L < sorted[j].L })
	if len(sorted) < 2 || !(threshold > 0) {
		return sorted
	}

	out := make(colorize.Palette, 0, len(sorted))
	for i := 0; i < len(sorted)-1; i++ {
		a, b := sorted[i], sorted[i+1]
		out = append(out, a)

		d := colorize.ImprovedDistance(a, b)
		if d <= threshold {
			continue
		}
		steps := int(math.Ceil(d / threshold))
		for s := 1; s < steps; s++ {
			out = append(out, lerp(a, b, float64(s)/float64(steps)))
		}
	}
	return append(out, sorted[len(sorted)-1])
}

func lerp(a, b colorize.Lab, t float64) colorize.Lab {
	return colorize.Lab{
		L: a.L + (b.L-a.L)*t,
		A: a.A + (b.A-a.A)*t,
		B: a.B + (b.B-a.B)*t,
	}
}
