package colorize

import "math"

// DeltaE2000 returns the CIEDE2000 color difference between two Lab colors,
// on the conventional scale where 1.0 is about one just-noticeable difference.
func DeltaE2000(x, y Lab) float64 {
	return x.toColorful().DistanceCIEDE2000(y.toColorful()) * labScale
}

// ImprovedDistance returns the improved CIEDE2000 difference
// (ΔE_I = 1.43 · ΔE00^0.7, Huang et al. 2015). It is strictly increasing in
// ΔE00, so nearest-color search under either metric picks the same entry.
func ImprovedDistance(x, y Lab) float64 {
	return improve(DeltaE2000(x, y))
}

func improve(de float64) float64 {
	return 1.43 * math.Pow(de, 0.7)
}
