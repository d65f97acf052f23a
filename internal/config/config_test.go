package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/colorizer/internal/colorize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.toml"), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s != Default() {
		t.Errorf("settings = %+v, want defaults", s)
	}
	if s.BlendFactor != 0.9 || s.Colorscheme != "kanagawa" || s.InterpolationThreshold != 2.5 ||
		s.DitherAmount != 0.1 || s.SpatialAveragingRadius != 10 {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestLoad_Precedence(t *testing.T) {
	user := writeConfig(t, `
blend_factor = 0.5
colorscheme = "nord"
dither_amount = 0.2
`)
	explicit := writeConfig(t, `
blend_factor = "0.7"
spatial_averaging_radius = 4
`)

	s, err := Load(user, explicit)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"blend from explicit", s.BlendFactor, 0.7},
		{"scheme from user", s.Colorscheme, "nord"},
		{"dither from user", s.DitherAmount, 0.2},
		{"radius from explicit", s.SpatialAveragingRadius, 4},
		{"threshold default", s.InterpolationThreshold, 2.5},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	blend := 0.1
	scheme := "gruvbox"
	s.Apply(Overrides{BlendFactor: &blend, Colorscheme: &scheme})
	if s.BlendFactor != 0.1 || s.Colorscheme != "gruvbox" {
		t.Errorf("overrides not applied: %+v", s)
	}
	if s.SpatialAveragingRadius != 4 {
		t.Errorf("unset override changed radius to %d", s.SpatialAveragingRadius)
	}
}

func TestLoad_ExplicitMustExist(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load should fail for a missing explicit config")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "blend_factor = = 1"},
		{"bad number", `blend_factor = "lots"`},
		{"fractional radius", "spatial_averaging_radius = 2.5"},
		{"bad dither reference", `dither_reference = "neighbor"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load("", writeConfig(t, tt.content)); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoad_DitherReferenceAndBackend(t *testing.T) {
	s, err := Load("", writeConfig(t, `
dither_reference = "original"
backend = "gpu"
cache_dir = "/tmp/colorizer"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.DitherReference != colorize.DitherOriginal || s.Backend != "gpu" || s.CacheDir != "/tmp/colorizer" {
		t.Errorf("settings = %+v", s)
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"blend above 1", func(s *Settings) { s.BlendFactor = 1.01 }},
		{"blend negative", func(s *Settings) { s.BlendFactor = -0.1 }},
		{"blend NaN", func(s *Settings) { s.BlendFactor = math.NaN() }},
		{"dither above 1", func(s *Settings) { s.DitherAmount = 2 }},
		{"threshold zero", func(s *Settings) { s.InterpolationThreshold = 0 }},
		{"threshold infinite", func(s *Settings) { s.InterpolationThreshold = math.Inf(1) }},
		{"negative radius", func(s *Settings) { s.SpatialAveragingRadius = -1 }},
		{"empty scheme", func(s *Settings) { s.Colorscheme = "" }},
		{"unknown backend", func(s *Settings) { s.Backend = "tpu" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(&s)
			if err := s.Validate(); !errors.Is(err, colorize.ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSettings_ColorizeConfig(t *testing.T) {
	s := Default()
	s.Seed = 42
	s.DitherReference = colorize.DitherOriginal
	p := colorize.Palette{{L: 50}}

	cfg := s.ColorizeConfig(p)
	if cfg.BlendFactor != 0.9 || cfg.DitherAmount != 0.1 || cfg.SpatialRadius != 10 ||
		cfg.Seed != 42 || cfg.DitherReference != colorize.DitherOriginal || len(cfg.Palette) != 1 {
		t.Errorf("config = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestParseDitherReference(t *testing.T) {
	for in, want := range map[string]colorize.DitherReference{
		"":         colorize.DitherMatched,
		"matched":  colorize.DitherMatched,
		"original": colorize.DitherOriginal,
	} {
		got, err := ParseDitherReference(in)
		if err != nil || got != want {
			t.Errorf("ParseDitherReference(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
