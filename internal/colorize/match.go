package colorize

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Matcher finds the nearest palette entry for pixels of one run.
//
// Palette entries are converted to go-colorful values once at construction,
// and matches are memoized in the cache. A Matcher is safe for concurrent use
// as long as its cache is.
type Matcher struct {
	palette Palette
	colors  []colorful.Color
	cache   *ColorCache
}

// NewMatcher prepares a matcher for palette. A nil cache gets a fresh one.
// It returns ErrPaletteEmpty if the palette has no entries.
func NewMatcher(palette Palette, cache *ColorCache) (*Matcher, error) {
	if len(palette) == 0 {
		return nil, ErrPaletteEmpty
	}
	if cache == nil {
		cache = NewColorCache()
	}
	colors := make([]colorful.Color, len(palette))
	for i, c := range palette {
		colors[i] = c.toColorful()
	}
	return &Matcher{palette: palette, colors: colors, cache: cache}, nil
}

// Cache returns the cache backing this matcher.
func (m *Matcher) Cache() *ColorCache {
	return m.cache
}

// Match returns the palette-matched Lab for p: L from p itself, a and b from
// the nearest palette entry.
func (m *Matcher) Match(p Pixel) Lab {
	if v, ok := m.cache.Get(p); ok {
		return v
	}

	src := colorful.Color{R: float64(p.R) / 255.0, G: float64(p.G) / 255.0, B: float64(p.B) / 255.0}
	win := m.palette[m.nearest(src)]
	v := Lab{L: RGBToLab(p).L, A: win.A, B: win.B}

	m.cache.Put(p, v)
	return v
}

// Nearest returns the index of the palette entry closest to c.
func (m *Matcher) Nearest(c Lab) int {
	return m.nearest(c.toColorful())
}

// nearest scans the full palette. Plain ΔE00 orders entries exactly as
// ImprovedDistance does. A strict less-than keeps the first of equally
// distant entries.
func (m *Matcher) nearest(src colorful.Color) int {
	best := 0
	bestDist := src.DistanceCIEDE2000(m.colors[0])
	for i := 1; i < len(m.colors); i++ {
		if d := src.DistanceCIEDE2000(m.colors[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Match resolves rgb against palette, consulting and filling cache.
//
// This is the one-shot form of Matcher.Match. Runs that match many pixels
// should build a Matcher once instead.
func Match(rgb Pixel, palette Palette, cache *ColorCache) (Lab, error) {
	m, err := NewMatcher(palette, cache)
	if err != nil {
		return Lab{}, err
	}
	return m.Match(rgb), nil
}

// Nearest returns the index of the palette entry closest to c, first entry
// winning ties.
func Nearest(c Lab, palette Palette) (int, error) {
	m, err := NewMatcher(palette, nil)
	if err != nil {
		return 0, err
	}
	return m.Nearest(c), nil
}
