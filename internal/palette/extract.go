package palette

import (
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ironsheep/colorizer/internal/imageio"
)

// DefaultImageColors is the number of colors taken from an image used as a
// colorscheme.
const DefaultImageColors = 16

// Dominant returns the hex codes of the count most frequent colors in img.
//
// Each channel is quantized to 16 levels (0x00, 0x11, ... 0xFF) before
// counting, so near-identical shades are grouped. Colors are ordered by
// frequency, most common first; equal counts are ordered by code, so the
// result is deterministic.
func Dominant(img image.Image, count int) []string {
	if count <= 0 {
		return nil
	}

	counts := make(map[uint32]int)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			key := quantize(r)<<16 | quantize(g)<<8 | quantize(bl)
			counts[key]++
		}
	}

	keys := make([]uint32, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > count {
		keys = keys[:count]
	}

	codes := make([]string, len(keys))
	for i, k := range keys {
		codes[i] = fmt.Sprintf("#%02X%02X%02X", k>>16&0xff, k>>8&0xff, k&0xff)
	}
	return codes
}

// quantize maps a 16-bit channel to one of 16 evenly spaced 8-bit levels.
func quantize(v uint32) uint32 {
	return (v >> 12) * 17
}

func isImagePath(ref string) bool {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

func loadImage(path string, count int) ([]string, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read colorscheme image: %w", err)
	}
	if count <= 0 {
		count = DefaultImageColors
	}
	return Dominant(img, count), nil
}
