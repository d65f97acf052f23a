package colorize

import (
	"context"
	"image"
	"math/rand/v2"
	"time"

	"github.com/anthonynsimon/bild/parallel"
)

// Options configures a CPU Pipeline.
type Options struct {
	// Cache is shared by every image the pipeline colorizes. Nil gives each
	// Colorize call its own cache.
	Cache *ColorCache

	// Separable builds the summed-area table with parallel row scans and
	// transposes instead of the sequential recurrence.
	Separable bool
}

// Pipeline is the CPU backend.
//
// Stages 1 and 3 split the image into disjoint row ranges, one per worker,
// and each worker writes only its own rows of the output buffer. Stage 2 is a
// barrier between them.
type Pipeline struct {
	opts Options
}

var _ Colorizer = (*Pipeline)(nil)

// NewPipeline creates a CPU pipeline.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Name returns "cpu".
func (p *Pipeline) Name() string { return "cpu" }

// Colorize runs the three stages over src.
//
// The configuration is validated before any pixel is touched. ctx is checked
// between stages; a stage that has started runs to completion.
func (p *Pipeline) Colorize(ctx context.Context, src image.Image, cfg Config) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	matcher, err := NewMatcher(cfg.Palette, p.opts.Cache)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := Logger().With("backend", p.Name())
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	orig := CloneOpaque(src)

	start := time.Now()
	matched := matchStage(orig, matcher, cfg, seed)
	log.Debug("stage 1 complete", "elapsed", time.Since(start), "cached_colors", matcher.Cache().Len())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	var table *Table
	if p.opts.Separable {
		table = BuildTableSeparable(matched)
	} else {
		table = BuildTable(matched)
	}
	log.Debug("stage 2 complete", "elapsed", time.Since(start), "separable", p.opts.Separable)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	final := blendStage(orig, table, cfg)
	log.Debug("stage 3 complete", "elapsed", time.Since(start))

	return &Output{Image: final, Matched: matched}, nil
}

// matchStage writes the palette-matched, dithered color of every pixel.
func matchStage(orig *image.NRGBA, m *Matcher, cfg Config, seed uint64) *image.NRGBA {
	b := orig.Bounds()
	out := image.NewNRGBA(b)

	parallel.Line(b.Dy(), func(start, end int) {
		rng := newRand(seed, start)
		for y := b.Min.Y + start; y < b.Min.Y+end; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				px := pixelAt(orig, x, y)
				c := m.Match(px)
				target := c
				if cfg.DitherReference == DitherOriginal {
					target = RGBToLab(px)
				}
				setPixel(out, x, y, LabToRGB(Dither(c, target, cfg.DitherAmount, rng)))
			}
		}
	})
	return out
}

// blendStage averages the chroma around every pixel and blends it with the
// original.
func blendStage(orig *image.NRGBA, t *Table, cfg Config) *image.NRGBA {
	b := orig.Bounds()
	out := image.NewNRGBA(b)

	parallel.Line(b.Dy(), func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < b.Dx(); x++ {
				px := pixelAt(orig, b.Min.X+x, b.Min.Y+y)
				avg := t.WindowAverage(x, y, cfg.SpatialRadius)
				setPixel(out, b.Min.X+x, b.Min.Y+y, Blend(avg, RGBToLab(px), px, cfg.BlendFactor))
			}
		}
	})
	return out
}
