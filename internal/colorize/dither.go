package colorize

import "math/rand/v2"

// Dither moves color toward target by amount·U per channel, where U is an
// independent uniform draw in [0,1) for each channel. It is a no-op when
// amount is 0 or color equals target.
func Dither(color, target Lab, amount float64, rng *rand.Rand) Lab {
	if amount == 0 || color == target {
		return color
	}
	return Lab{
		L: color.L + (target.L-color.L)*amount*rng.Float64(),
		A: color.A + (target.A-color.A)*amount*rng.Float64(),
		B: color.B + (target.B-color.B)*amount*rng.Float64(),
	}
}

// newRand returns the dither source for the row range starting at row.
// Sources are independent per range so workers never share one.
func newRand(seed uint64, row int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(row)))
}
