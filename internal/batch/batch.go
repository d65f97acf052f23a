// Package batch colorizes many images with one backend.
//
// Each image runs its own pipeline; images share only the backend (and
// through it, for the CPU pipeline, the color cache). A failing image is
// reported in its Result and never stops the others.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ironsheep/colorizer/internal/colorize"
	"github.com/ironsheep/colorizer/internal/imageio"
)

// Job is one image to colorize.
type Job struct {
	// Input is the source image path.
	Input string

	// Output is where the final image is written.
	Output string

	// MatchedOutput, when set, receives the Stage-1 (palette-matched)
	// image as well.
	MatchedOutput string

	Config colorize.Config
}

// Result reports the outcome of one Job.
type Result struct {
	Job     Job
	Err     error
	Width   int
	Height  int
	Format  string
	Elapsed time.Duration
}

// Options configures Run.
type Options struct {
	// Workers bounds the number of images processed at once. Values below
	// 1 mean 1.
	Workers int

	// Images caches decoded inputs. Nil creates a cache for this run. An
	// input is evicted once the last job naming it has finished.
	Images *imageio.ImageCache

	// Progress, when set, is called once per finished job from the worker
	// that ran it.
	Progress func(Result)
}

// Run colorizes every job with c and returns one Result per job, in job
// order. Once ctx is done, jobs that have not started fail with ctx.Err().
func Run(ctx context.Context, c colorize.Colorizer, jobs []Job, opts Options) []Result {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	images := opts.Images
	if images == nil {
		images = imageio.NewImageCache()
	}

	refs := newInputRefs(jobs)
	results := make([]Result, len(jobs))
	queue := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range queue {
				results[i] = runJob(ctx, c, images, jobs[i])
				if refs.done(jobs[i].Input) {
					images.Evict(jobs[i].Input)
				}
				if opts.Progress != nil {
					opts.Progress(results[i])
				}
			}
		}()
	}
	for i := range jobs {
		queue <- i
	}
	close(queue)
	wg.Wait()

	return results
}

func runJob(ctx context.Context, c colorize.Colorizer, images *imageio.ImageCache, job Job) Result {
	res := Result{Job: job}
	start := time.Now()

	log := colorize.Logger().With("input", job.Input, "backend", c.Name())
	fail := func(err error) Result {
		res.Err = err
		res.Elapsed = time.Since(start)
		log.Error("image failed", "error", err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	info, err := imageio.LoadInfo(images, job.Input)
	if err != nil {
		return fail(err)
	}
	res.Width, res.Height, res.Format = info.Width, info.Height, info.Format
	log.Debug("image loaded", "width", info.Width, "height", info.Height,
		"format", info.Format, "alpha", info.HasAlpha, "bytes", info.FileSizeBytes)

	src, err := images.Load(job.Input)
	if err != nil {
		return fail(err)
	}

	out, err := c.Colorize(ctx, src, job.Config)
	if err != nil {
		return fail(fmt.Errorf("failed to colorize %s: %w", job.Input, err))
	}
	if err := imageio.Save(out.Image, job.Output); err != nil {
		return fail(err)
	}
	if job.MatchedOutput != "" {
		if err := imageio.Save(out.Matched, job.MatchedOutput); err != nil {
			return fail(err)
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("image saved", "output", job.Output, "elapsed", res.Elapsed)
	return res
}

// inputRefs counts, per input path, the jobs that have not finished yet.
type inputRefs struct {
	mu     sync.Mutex
	counts map[string]int
}

func newInputRefs(jobs []Job) *inputRefs {
	r := &inputRefs{counts: make(map[string]int, len(jobs))}
	for _, j := range jobs {
		r.counts[j.Input]++
	}
	return r
}

// done records that one job reading path finished and reports whether it
// was the last one.
func (r *inputRefs) done(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[path]--
	if r.counts[path] > 0 {
		return false
	}
	delete(r.counts, path)
	return true
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
