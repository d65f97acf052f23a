package colorize

import (
	"image"

	"github.com/anthonynsimon/bild/parallel"
)

// BuildTableSeparable builds the same table as BuildTable without the
// sequential 2D dependency chain.
//
// The 2D prefix sum is separable: an inclusive prefix scan along every row
// followed by one along every column. Columns are scanned as rows of the
// transposed table, so both passes are independent per row and fan out
// across goroutines:
//
//  1. scan each image row into table row y+1 (column 0 stays zero)
//  2. transpose
//  3. scan each row of the transposed table
//  4. transpose back
//
// The GPU backend runs the same four steps as compute passes. Results match
// BuildTable up to floating-point summation order.
func BuildTableSeparable(img *image.NRGBA) *Table {
	b := img.Bounds()
	t := NewTable(b.Dx(), b.Dy())
	cols, rows := t.width+1, t.height+1

	parallel.Line(t.height, func(start, end int) {
		for y := start; y < end; y++ {
			row := t.sums[t.index(0, y+1):t.index(0, y+2)]
			var l, a, bb float64
			for x := 0; x < t.width; x++ {
				lab := RGBToLab(pixelAt(img, b.Min.X+x, b.Min.Y+y))
				l, a, bb = l+lab.L, a+lab.A, bb+lab.B
				i := (x + 1) * 3
				row[i], row[i+1], row[i+2] = l, a, bb
			}
		}
	})

	tr := transpose(t.sums, cols, rows)
	scanRows(tr, rows, cols)
	t.sums = transpose(tr, rows, cols)
	return t
}

// scanRows replaces every row of a rows×cols grid of Lab triples with its
// inclusive prefix sum.
func scanRows(grid []float64, cols, rows int) {
	parallel.Line(rows, func(start, end int) {
		for y := start; y < end; y++ {
			row := grid[y*cols*3 : (y+1)*cols*3]
			for i := 3; i < len(row); i += 3 {
				row[i] += row[i-3]
				row[i+1] += row[i-2]
				row[i+2] += row[i-1]
			}
		}
	})
}

// transpose returns the cols×rows transpose of a grid of Lab triples laid
// out row-major with cols triples per row.
func transpose(src []float64, cols, rows int) []float64 {
	dst := make([]float64, len(src))
	parallel.Line(rows, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < cols; x++ {
				s := (y*cols + x) * 3
				d := (x*rows + y) * 3
				dst[d], dst[d+1], dst[d+2] = src[s], src[s+1], src[s+2]
			}
		}
	})
	return dst
}
