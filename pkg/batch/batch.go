// Package batch segments many raster files concurrently. Every file is an
// independent unit of work: it owns its arrays and shares nothing with the
// others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"waterseg/internal/log"
	"waterseg/internal/models"
	"waterseg/pkg/segmentation"
)

// Job is one input file and the path its mask is written to
type Job struct {
	Input  string
	Output string
}

// Result is the outcome of one Job. Err is set when the mask could not be
// produced; HookErr when the mask was written but an AfterFunc failed.
type Result struct {
	Job     Job
	Stats   *segmentation.SceneStats
	Err     error
	HookErr error
}

// Runner processes a single file. *segmentation.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, inputPath, outputPath string) (*models.OutputRaster, *segmentation.SceneStats, error)
}

// AfterFunc is called after a job succeeded, for example to render a
// quicklook or record the run. Its error is kept in Result.HookErr and does
// not stop the remaining AfterFuncs or other jobs.
type AfterFunc func(runID uuid.UUID, job Job, out *models.OutputRaster, stats *segmentation.SceneStats) error

// Params holds the batch parameters
type Params struct {
	// NumCores bounds the number of files processed at once
	NumCores int

	// FailFast cancels the remaining jobs after the first failure
	FailFast bool
}

// Processor runs jobs with bounded concurrency
type Processor struct {
	params Params
	runner Runner
	after  []AfterFunc
	runID  uuid.UUID
	log    zerolog.Logger
}

// NewProcessor creates a processor tagged with a fresh run ID
func NewProcessor(runner Runner, params Params, after ...AfterFunc) *Processor {
	if params.NumCores < 1 {
		params.NumCores = 1
	}
	id := uuid.New()
	return &Processor{
		params: params,
		runner: runner,
		after:  after,
		runID:  id,
		log:    log.Component("batch").With().Str("run_id", id.String()).Logger(),
	}
}

// RunID identifies this batch in logs and in the catalog
func (p *Processor) RunID() uuid.UUID {
	return p.runID
}

// Process runs every job and returns one Result per job, in job order.
// Without FailFast the returned error is always nil and failures are only
// reported in the results. With FailFast the first failure is returned and
// jobs that had not started are marked with the context error.
func (p *Processor) Process(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	for i, job := range jobs {
		results[i].Job = job
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.params.NumCores)

	var completed atomic.Int64
	total := len(jobs)

	for i := range jobs {
		i := i
		g.Go(func() error {
			err := p.processOne(gctx, &results[i])
			done := completed.Add(1)

			event := p.log.Info()
			if err != nil {
				event = p.log.Error().Err(err)
			}
			event.
				Str("input", results[i].Job.Input).
				Int64("done", done).
				Int("total", total).
				Msg("processed file")

			if err != nil && p.params.FailFast {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func (p *Processor) processOne(ctx context.Context, res *Result) error {
	if err := ctx.Err(); err != nil {
		res.Err = err
		return err
	}

	out, stats, err := p.runner.Run(ctx, res.Job.Input, res.Job.Output)
	if err != nil {
		res.Err = err
		return err
	}
	res.Stats = stats

	var hookErrs []error
	for _, after := range p.after {
		if err := after(p.runID, res.Job, out, stats); err != nil {
			p.log.Warn().Err(err).Str("input", res.Job.Input).Msg("post-processing failed")
			hookErrs = append(hookErrs, err)
		}
	}
	res.HookErr = errors.Join(hookErrs...)
	return nil
}

// Summarize counts segmented and failed results, and among the segmented
// ones those whose post-processing failed
func Summarize(results []Result) (succeeded, failed, hookFailed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		succeeded++
		if r.HookErr != nil {
			hookFailed++
		}
	}
	return succeeded, failed, hookFailed
}

// Jobs lists the GeoTIFF files of inputDir, sorted by name, and maps each to
// a file of the same name in outputDir. The output directory is created.
func Jobs(inputDir, outputDir string) ([]Job, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".tif" || ext == ".tiff" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no GeoTIFF files found in %s", inputDir)
	}
	sort.Strings(names)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := make([]Job, len(names))
	for i, name := range names {
		jobs[i] = Job{
			Input:  filepath.Join(inputDir, name),
			Output: filepath.Join(outputDir, name),
		}
	}
	return jobs, nil
}
