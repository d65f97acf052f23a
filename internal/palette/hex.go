package palette

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/colorizer/internal/colorize"
)

// ErrInvalidHex is returned for color codes that are not 3 or 6 hex digits.
var ErrInvalidHex = errors.New("palette: invalid hex color")

// ParseHex parses a 3- or 6-digit hex color code with an optional leading
// '#'. Three-digit codes expand each digit, so "#abc" equals "#aabbcc".
func ParseHex(s string) (colorize.Pixel, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(digits) != 3 && len(digits) != 6 {
		return colorize.Pixel{}, fmt.Errorf("%w: %q: expected 3 or 6 digits", ErrInvalidHex, s)
	}
	for _, r := range digits {
		if !isHexDigit(r) {
			return colorize.Pixel{}, fmt.Errorf("%w: %q: bad digit %q", ErrInvalidHex, s, r)
		}
	}

	c, err := colorful.Hex("#" + strings.ToLower(digits))
	if err != nil {
		return colorize.Pixel{}, fmt.Errorf("%w: %q: %v", ErrInvalidHex, s, err)
	}
	r, g, b := c.RGB255()
	return colorize.Pixel{R: r, G: g, B: b}, nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// FromHex converts hex codes to a palette in the same order.
func FromHex(codes []string) (colorize.Palette, error) {
	p := make(colorize.Palette, 0, len(codes))
	for i, code := range codes {
		px, err := ParseHex(code)
		if err != nil {
			return nil, fmt.Errorf("color %d: %w", i, err)
		}
		p = append(p, colorize.RGBToLab(px))
	}
	return p, nil
}
