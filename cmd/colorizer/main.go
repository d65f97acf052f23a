package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ironsheep/colorizer/internal/batch"
	"github.com/ironsheep/colorizer/internal/colorize"
	"github.com/ironsheep/colorizer/internal/colorize/gpu"
	"github.com/ironsheep/colorizer/internal/config"
	"github.com/ironsheep/colorizer/internal/imageio"
	"github.com/ironsheep/colorizer/internal/palette"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version":
			fmt.Printf("colorizer %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			newFlagSet(&cliFlags{}, os.Stdout).Usage()
			return
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "colorizer: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	blendFactor float64
	dither      float64
	threshold   float64
	radius      int
	configPath  string
	scheme      string
	backend     string
	ditherRef   string
	cacheDir    string
	seed        uint64
	workers     int
	separable   bool
	fallback    bool
	keepMatched bool
	verbose     bool
}

func newFlagSet(f *cliFlags, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("colorizer", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.Float64Var(&f.blendFactor, "b", config.DefaultBlendFactor, "")
	fs.Float64Var(&f.blendFactor, "blend-factor", config.DefaultBlendFactor, "[0.0-1.0] overrides the blend factor set in config")
	fs.Float64Var(&f.dither, "d", config.DefaultDitherAmount, "")
	fs.Float64Var(&f.dither, "dither-amount", config.DefaultDitherAmount, "[0.0-1.0] overrides the dither amount set in config")
	fs.Float64Var(&f.threshold, "interpolation-threshold", config.DefaultInterpolationThreshold, "overrides the palette interpolation threshold set in config")
	fs.IntVar(&f.radius, "spatial-averaging-radius", config.DefaultSpatialAveragingRadius, "overrides the spatial averaging radius set in config")
	fs.StringVar(&f.configPath, "c", "", "")
	fs.StringVar(&f.configPath, "config", "", "custom config file (must exist)")
	fs.StringVar(&f.scheme, "s", config.DefaultColorscheme, "")
	fs.StringVar(&f.scheme, "colorscheme", config.DefaultColorscheme, "colorscheme name, file path or URL")
	fs.StringVar(&f.backend, "backend", config.DefaultBackend, "cpu or gpu")
	fs.StringVar(&f.ditherRef, "dither-reference", "matched", "dither toward the matched color or the original pixel (matched|original)")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "directory for downloaded colorschemes")
	fs.Uint64Var(&f.seed, "seed", 0, "dither seed; 0 picks a random one")
	fs.IntVar(&f.workers, "workers", 1, "images processed at once")
	fs.BoolVar(&f.separable, "separable", false, "build the summed-area table with parallel scans (cpu backend)")
	fs.BoolVar(&f.fallback, "fallback", false, "use the cpu backend when no GPU is available")
	fs.BoolVar(&f.keepMatched, "keep-matched", false, "also write the palette-matched image before smoothing")
	fs.BoolVar(&f.verbose, "v", false, "verbose logging")

	fs.Usage = func() {
		fmt.Fprintln(out, "colorizer - applies color schemes to images")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Usage: colorizer [options] IMAGE...")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Each IMAGE is written next to itself as <name>_<colorscheme>.<ext>.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Options:")
		fs.VisitAll(func(fl *flag.Flag) {
			if fl.Usage == "" {
				return
			}
			fmt.Fprintf(out, "  -%-26s %s\n", fl.Name, fl.Usage)
		})
		fmt.Fprintln(out, "  (short forms: -b blend-factor, -d dither-amount, -c config, -s colorscheme)")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Config is read from ~/.config/colorizer/config.toml, then -config.")
		fmt.Fprintln(out, "Colorscheme files are looked up as ~/.config/colorizer/<name>.toml.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Environment variables:")
		fmt.Fprintln(out, "  COLORIZER_LOG_LEVEL=debug    Enable debug logging")
	}
	return fs
}

// overrides collects the flags that were set explicitly.
func overrides(fs *flag.FlagSet, f *cliFlags) (config.Overrides, error) {
	var o config.Overrides
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "b", "blend-factor":
			o.BlendFactor = &f.blendFactor
		case "d", "dither-amount":
			o.DitherAmount = &f.dither
		case "interpolation-threshold":
			o.InterpolationThreshold = &f.threshold
		case "spatial-averaging-radius":
			o.SpatialAveragingRadius = &f.radius
		case "s", "colorscheme":
			o.Colorscheme = &f.scheme
		case "backend":
			o.Backend = &f.backend
		case "cache-dir":
			o.CacheDir = &f.cacheDir
		case "seed":
			o.Seed = &f.seed
		case "dither-reference":
			ref, perr := config.ParseDitherReference(f.ditherRef)
			if perr != nil {
				err = perr
				return
			}
			o.DitherReference = &ref
		}
	})
	return o, err
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	if strings.EqualFold(os.Getenv("COLORIZER_LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var f cliFlags
	fs := newFlagSet(&f, os.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no input images")
	}

	logger := newLogger(f.verbose)
	colorize.SetLogger(logger)
	logger.Debug("colorizer starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	configDir, err := config.Dir()
	if err != nil {
		return err
	}
	settings, err := config.Load(filepath.Join(configDir, "config.toml"), f.configPath)
	if err != nil {
		return err
	}
	o, err := overrides(fs, &f)
	if err != nil {
		return err
	}
	settings.Apply(o)
	if err := settings.Validate(); err != nil {
		return err
	}

	cacheDir := settings.CacheDir
	if cacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(dir, "colorizer")
		}
	}
	loader := &palette.Loader{ConfigDir: configDir, CacheDir: cacheDir}
	pal, err := loader.Resolve(ctx, settings.Colorscheme, settings.InterpolationThreshold)
	if err != nil {
		return err
	}

	backend, closeBackend, err := newBackend(settings.Backend, f.separable, f.fallback)
	if err != nil {
		return err
	}
	defer closeBackend()

	cfg := settings.ColorizeConfig(pal)
	jobs := make([]batch.Job, 0, fs.NArg())
	for _, input := range fs.Args() {
		job := batch.Job{
			Input:  input,
			Output: imageio.OutputPath(input, settings.Colorscheme),
			Config: cfg,
		}
		if f.keepMatched {
			job.MatchedOutput = imageio.OutputPath(input, imageio.SchemeLabel(settings.Colorscheme)+"_matched")
		}
		jobs = append(jobs, job)
	}

	results := batch.Run(ctx, backend, jobs, batch.Options{Workers: f.workers})
	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintf(stdout, "Saved to: %s\n", r.Job.Output)
		}
	}
	if failed := batch.Failed(results); len(failed) > 0 {
		for _, r := range failed {
			log.Printf("%s: %v", r.Job.Input, r.Err)
		}
		return fmt.Errorf("%d of %d images failed", len(failed), len(results))
	}
	return nil
}

// newBackend returns the requested colorizer and its cleanup function.
func newBackend(name string, separable, fallback bool) (colorize.Colorizer, func(), error) {
	cpu := func() (colorize.Colorizer, func(), error) {
		return colorize.NewPipeline(colorize.Options{
			Cache:     colorize.NewColorCache(),
			Separable: separable,
		}), func() {}, nil
	}
	if name != "gpu" {
		return cpu()
	}

	b, err := gpu.New()
	if err != nil {
		if fallback && errors.Is(err, colorize.ErrDeviceUnavailable) {
			log.Printf("GPU unavailable, using cpu backend: %v", err)
			return cpu()
		}
		return nil, nil, err
	}
	colorize.Logger().Info("using gpu backend", "adapter", b.Adapter())
	return b, b.Close, nil
}
