// Package config loads colorizer settings.
//
// Settings are merged in increasing precedence: built-in defaults, the user
// config file (~/.config/colorizer/config.toml) when it exists, an explicit
// config file when one is given, and finally command-line overrides.
//
// Numeric values may be written as TOML numbers or as quoted strings
// (blend_factor = "0.9"); older config files use the string form.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/ironsheep/colorizer/internal/colorize"
)

// Defaults.
const (
	DefaultBlendFactor            = 0.9
	DefaultColorscheme            = "kanagawa"
	DefaultInterpolationThreshold = 2.5
	DefaultDitherAmount           = 0.1
	DefaultSpatialAveragingRadius = 10
	DefaultBackend                = "cpu"
)

// Settings is the merged configuration of one run.
type Settings struct {
	BlendFactor            float64
	Colorscheme            string
	InterpolationThreshold float64
	DitherAmount           float64
	SpatialAveragingRadius int
	DitherReference        colorize.DitherReference
	Backend                string
	CacheDir               string
	Seed                   uint64
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		BlendFactor:            DefaultBlendFactor,
		Colorscheme:            DefaultColorscheme,
		InterpolationThreshold: DefaultInterpolationThreshold,
		DitherAmount:           DefaultDitherAmount,
		SpatialAveragingRadius: DefaultSpatialAveragingRadius,
		DitherReference:        colorize.DitherMatched,
		Backend:                DefaultBackend,
	}
}

// Dir returns the user config directory, ~/.config/colorizer. Colorscheme
// files live there too.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "colorizer"), nil
}

// Load merges the defaults with userPath, if that file exists, and then with
// explicitPath, which must exist when it is not empty.
func Load(userPath, explicitPath string) (Settings, error) {
	s := Default()
	if userPath != "" {
		if _, err := os.Stat(userPath); err == nil {
			if err := s.mergeFile(userPath); err != nil {
				return Settings{}, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to stat config: %w", err)
		}
	}
	if explicitPath != "" {
		if err := s.mergeFile(explicitPath); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// fileSettings is the on-disk layout. Nil fields are absent from the file.
type fileSettings struct {
	BlendFactor            *number `toml:"blend_factor"`
	Colorscheme            *string `toml:"colorscheme"`
	InterpolationThreshold *number `toml:"interpolation_threshold"`
	DitherAmount           *number `toml:"dither_amount"`
	SpatialAveragingRadius *number `toml:"spatial_averaging_radius"`
	DitherReference        *string `toml:"dither_reference"`
	Backend                *string `toml:"backend"`
	CacheDir               *string `toml:"cache_dir"`
}

func (s *Settings) mergeFile(path string) error {
	var f fileSettings
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		colorize.Logger().Warn("unknown config key", "file", path, "key", key.String())
	}

	if f.BlendFactor != nil {
		s.BlendFactor = float64(*f.BlendFactor)
	}
	if f.Colorscheme != nil {
		s.Colorscheme = *f.Colorscheme
	}
	if f.InterpolationThreshold != nil {
		s.InterpolationThreshold = float64(*f.InterpolationThreshold)
	}
	if f.DitherAmount != nil {
		s.DitherAmount = float64(*f.DitherAmount)
	}
	if f.SpatialAveragingRadius != nil {
		r := float64(*f.SpatialAveragingRadius)
		if r != math.Trunc(r) {
			return fmt.Errorf("%w: %s: spatial_averaging_radius %v is not an integer", colorize.ErrInvalidConfig, path, r)
		}
		s.SpatialAveragingRadius = int(r)
	}
	if f.DitherReference != nil {
		ref, err := ParseDitherReference(*f.DitherReference)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.DitherReference = ref
	}
	if f.Backend != nil {
		s.Backend = *f.Backend
	}
	if f.CacheDir != nil {
		s.CacheDir = *f.CacheDir
	}
	return nil
}

// number accepts a TOML integer, float or numeric string.
type number float64

func (n *number) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		*n = number(x)
	case float64:
		*n = number(x)
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", x)
		}
		*n = number(f)
	default:
		return fmt.Errorf("expected a number, got %T", v)
	}
	return nil
}

// ParseDitherReference parses "matched" or "original".
func ParseDitherReference(s string) (colorize.DitherReference, error) {
	switch s {
	case "matched", "":
		return colorize.DitherMatched, nil
	case "original":
		return colorize.DitherOriginal, nil
	}
	return 0, fmt.Errorf("%w: dither reference %q (want matched or original)", colorize.ErrInvalidConfig, s)
}

// Overrides holds command-line values. Nil fields were not given.
type Overrides struct {
	BlendFactor            *float64
	Colorscheme            *string
	InterpolationThreshold *float64
	DitherAmount           *float64
	SpatialAveragingRadius *int
	DitherReference        *colorize.DitherReference
	Backend                *string
	CacheDir               *string
	Seed                   *uint64
}

// Apply copies every set override into s.
func (s *Settings) Apply(o Overrides) {
	if o.BlendFactor != nil {
		s.BlendFactor = *o.BlendFactor
	}
	if o.Colorscheme != nil {
		s.Colorscheme = *o.Colorscheme
	}
	if o.InterpolationThreshold != nil {
		s.InterpolationThreshold = *o.InterpolationThreshold
	}
	if o.DitherAmount != nil {
		s.DitherAmount = *o.DitherAmount
	}
	if o.SpatialAveragingRadius != nil {
		s.SpatialAveragingRadius = *o.SpatialAveragingRadius
	}
	if o.DitherReference != nil {
		s.DitherReference = *o.DitherReference
	}
	if o.Backend != nil {
		s.Backend = *o.Backend
	}
	if o.CacheDir != nil {
		s.CacheDir = *o.CacheDir
	}
	if o.Seed != nil {
		s.Seed = *o.Seed
	}
}

// Validate checks the merged settings. Errors wrap colorize.ErrInvalidConfig.
func (s Settings) Validate() error {
	switch {
	case !(s.BlendFactor >= 0 && s.BlendFactor <= 1):
		return fmt.Errorf("%w: blend_factor %v is outside [0,1]", colorize.ErrInvalidConfig, s.BlendFactor)
	case !(s.DitherAmount >= 0 && s.DitherAmount <= 1):
		return fmt.Errorf("%w: dither_amount %v is outside [0,1]", colorize.ErrInvalidConfig, s.DitherAmount)
	case !(s.InterpolationThreshold > 0) || math.IsInf(s.InterpolationThreshold, 1):
		return fmt.Errorf("%w: interpolation_threshold %v must be positive", colorize.ErrInvalidConfig, s.InterpolationThreshold)
	case s.SpatialAveragingRadius < 0:
		return fmt.Errorf("%w: spatial_averaging_radius %d is negative", colorize.ErrInvalidConfig, s.SpatialAveragingRadius)
	case s.Colorscheme == "":
		return fmt.Errorf("%w: colorscheme is empty", colorize.ErrInvalidConfig)
	case s.Backend != "cpu" && s.Backend != "gpu":
		return fmt.Errorf("%w: backend %q (want cpu or gpu)", colorize.ErrInvalidConfig, s.Backend)
	}
	return nil
}

// ColorizeConfig returns the per-image parameters for palette p.
func (s Settings) ColorizeConfig(p colorize.Palette) colorize.Config {
	return colorize.Config{
		Palette:         p,
		BlendFactor:     s.BlendFactor,
		DitherAmount:    s.DitherAmount,
		SpatialRadius:   s.SpatialAveragingRadius,
		DitherReference: s.DitherReference,
		Seed:            s.Seed,
	}
}
