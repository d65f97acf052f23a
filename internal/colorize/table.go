package colorize

import "image"

// Table is a summed-area table (integral image) of Lab values.
//
// For an image of W×H pixels the table has (W+1)×(H+1) cells of three
// channels each. Row 0 and column 0 are zero, and cell (x,y) holds the sum of
// the Lab channels of every pixel in the rectangle (0,0)-(x-1,y-1):
//
//	T[y][x] = Σ lab(i,j) for 0 ≤ i < x, 0 ≤ j < y
//
// so the sum over any pixel rectangle takes four lookups.
type Table struct {
	width  int
	height int
	sums   []float64
}

// NewTable allocates a zeroed table for a width×height image.
func NewTable(width, height int) *Table {
	return &Table{
		width:  width,
		height: height,
		sums:   make([]float64, (width+1)*(height+1)*3),
	}
}

// Width returns the image width the table covers.
func (t *Table) Width() int { return t.width }

// Height returns the image height the table covers.
func (t *Table) Height() int { return t.height }

func (t *Table) index(x, y int) int {
	return (y*(t.width+1) + x) * 3
}

// At returns table cell (x,y), for 0 ≤ x ≤ W and 0 ≤ y ≤ H.
func (t *Table) At(x, y int) Lab {
	i := t.index(x, y)
	return Lab{L: t.sums[i], A: t.sums[i+1], B: t.sums[i+2]}
}

// BuildTable builds the summed-area table of img in Lab using the row-major
// recurrence
//
//	T[y][x] = T[y-1][x] + T[y][x-1] - T[y-1][x-1] + lab(x-1, y-1)
//
// Each cell depends on its upper and left neighbours, so this runs on one
// goroutine. BuildTableSeparable computes the same table in parallel.
func BuildTable(img *image.NRGBA) *Table {
	b := img.Bounds()
	t := NewTable(b.Dx(), b.Dy())
	stride := (t.width + 1) * 3

	for y := 1; y <= t.height; y++ {
		for x := 1; x <= t.width; x++ {
			lab := RGBToLab(pixelAt(img, b.Min.X+x-1, b.Min.Y+y-1))
			i := t.index(x, y)
			up, left, diag := i-stride, i-3, i-stride-3
			t.sums[i] = t.sums[up] + t.sums[left] - t.sums[diag] + lab.L
			t.sums[i+1] = t.sums[up+1] + t.sums[left+1] - t.sums[diag+1] + lab.A
			t.sums[i+2] = t.sums[up+2] + t.sums[left+2] - t.sums[diag+2] + lab.B
		}
	}
	return t
}

// Sum returns the channel sums over the closed pixel rectangle
// (x0,y0)-(x1,y1). The rectangle must lie inside the image.
func (t *Table) Sum(x0, y0, x1, y1 int) Lab {
	br := t.At(x1+1, y1+1)
	tl := t.At(x0, y0)
	tr := t.At(x1+1, y0)
	bl := t.At(x0, y1+1)
	return Lab{
		L: tl.L + br.L - tr.L - bl.L,
		A: tl.A + br.A - tr.A - bl.A,
		B: tl.B + br.B - tr.B - bl.B,
	}
}

// WindowAverage returns the mean Lab over the square window of the given
// radius centred on (x,y).
//
// The window is clamped to the image, not wrapped. Near borders the window
// shrinks and the divisor is the number of pixels actually inside it, so a
// corner pixel with radius 5 on a 4×4 image averages 16 pixels, not 121.
func (t *Table) WindowAverage(x, y, radius int) Lab {
	x0 := max(x-radius, 0)
	y0 := max(y-radius, 0)
	x1 := min(x+radius, t.width-1)
	y1 := min(y+radius, t.height-1)

	s := t.Sum(x0, y0, x1, y1)
	n := float64((x1 - x0 + 1) * (y1 - y0 + 1))
	return Lab{L: s.L / n, A: s.A / n, B: s.B / n}
}
