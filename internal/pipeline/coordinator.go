// Package pipeline coordinates a merge job: page counting, bounded-parallel
// conversion of every input, and the final merge/compress step.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/pdf-merger/internal/convert"
	"github.com/aliskhannn/pdf-merger/internal/model"
)

// Terminal messages reported through Progress.OnFinished.
const (
	MsgNoValidPages     = "no valid pages"
	MsgCancelled        = "operation cancelled"
	MsgProcessingFailed = "processing failed"
)

// ErrJobRunning is returned by Start while a previous job is still running.
var ErrJobRunning = errors.New("a job is already running")

// State is a coordinator lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateCounting   State = "counting"
	StateConverting State = "converting"
	StateMerging    State = "merging"
	StateDone       State = "done"
)

// PageSource counts and renders input files.
type PageSource interface {
	EstimatePageCount(path string) int
	RenderPages(ctx context.Context, path string, width, dpi int, yield func(model.PageImage) error) error
}

// Merger writes ordered pages to the output file.
type Merger interface {
	Merge(pages []model.PageImage, outputPath string, compress bool, quality int) bool
	Cleanup()
}

// Coordinator runs one job at a time. Start, Cancel, Wait and Snapshot are
// safe for concurrent use.
type Coordinator struct {
	source       PageSource
	merger       Merger
	progress     Progress
	parallelism  int
	releaseEvery int

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	result    model.JobResult

	track state
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithParallelism caps the number of concurrent conversion tasks.
// Values below one fall back to the available parallelism.
func WithParallelism(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithReleaseEvery sets how many pages a task renders between buffer releases.
func WithReleaseEvery(n int) Option {
	return func(c *Coordinator) {
		c.releaseEvery = n
	}
}

// New creates an idle Coordinator. A nil progress discards updates.
func New(source PageSource, merger Merger, progress Progress, opts ...Option) *Coordinator {
	if progress == nil {
		progress = Discard
	}

	c := &Coordinator{
		source:       source,
		merger:       merger,
		progress:     progress,
		parallelism:  runtime.GOMAXPROCS(0),
		releaseEvery: convert.DefaultReleaseEvery,
		state:        StateIdle,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start validates job and runs it in the background. Cancelling ctx has the
// same effect as calling Cancel.
func (c *Coordinator) Start(ctx context.Context, job model.Job) error {
	if err := job.Config.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle && c.state != StateDone {
		return ErrJobRunning
	}

	jobCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.cancelled.Store(false)
	c.done = make(chan struct{})
	c.result = model.JobResult{}
	c.state = StateCounting
	c.track.clear()

	go c.run(jobCtx, job)

	return nil
}

// Run starts job and waits for its result.
func (c *Coordinator) Run(ctx context.Context, job model.Job) (model.JobResult, error) {
	if err := c.Start(ctx, job); err != nil {
		return model.JobResult{}, err
	}

	return c.Wait(), nil
}

// Cancel requests cooperative cancellation of the running job. It is safe to
// call any number of times, including when no job is running.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle || c.state == StateDone {
		return
	}

	c.cancelled.Store(true)
	if c.cancel != nil {
		c.cancel()
	}
}

// Wait blocks until the current job finishes and returns its result. It
// returns the zero result if no job was ever started.
func (c *Coordinator) Wait() model.JobResult {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return model.JobResult{}
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.result
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Snapshot returns the current progress of the job.
func (c *Coordinator) Snapshot() Snapshot {
	return c.track.snapshot()
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) isCancelled(ctx context.Context) bool {
	return c.cancelled.Load() || ctx.Err() != nil
}

// publish clamps value into the progress range and forwards it.
func (c *Coordinator) publish(value int, message string) {
	c.progress.OnProgress(c.track.advance(value, message), message)
}

func (c *Coordinator) run(ctx context.Context, job model.Job) {
	log := zlog.Logger.With().Str("job_id", job.ID.String()).Logger()

	result := model.JobResult{JobID: job.ID}
	finish := func(status model.JobStatus, message string) {
		result.Status = status
		result.Message = message
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("job aborted")
			finish(model.StatusFailed, fmt.Sprint(p))
		}

		c.merger.Cleanup()
		c.track.finish(result.Message)

		c.mu.Lock()
		c.result = result
		c.state = StateDone
		c.cancel()
		done := c.done
		c.mu.Unlock()

		log.Info().Str("status", string(result.Status)).Str("message", result.Message).Msg("job finished")
		c.progress.OnFinished(result)
		close(done)
	}()

	cfg := job.Config

	totalPages := c.countPages(ctx, job.Inputs)
	if c.isCancelled(ctx) {
		finish(model.StatusCancelled, MsgCancelled)
		return
	}
	if totalPages == 0 {
		finish(model.StatusFailed, MsgNoValidPages)
		return
	}

	totalSteps := c.track.reset(totalPages)
	c.progress.OnRangeSet(totalSteps)
	c.publish(0, fmt.Sprintf("Preparing to process %d pages...", totalPages))

	c.setState(StateConverting)
	pages := c.convertAll(ctx, job, totalPages)

	if c.isCancelled(ctx) {
		finish(model.StatusCancelled, MsgCancelled)
		return
	}
	if len(pages) == 0 {
		finish(model.StatusFailed, MsgProcessingFailed)
		return
	}

	c.setState(StateMerging)
	if cfg.Compress {
		c.publish(totalPages, "Merging and compressing PDF...")
	} else {
		c.publish(totalPages, "Merging PDF...")
	}

	if !c.merger.Merge(pages, cfg.OutputPath, cfg.Compress, cfg.Quality) {
		if cfg.Compress {
			finish(model.StatusFailed, "PDF merge and compression failed")
		} else {
			finish(model.StatusFailed, "PDF merge failed")
		}
		return
	}

	if cfg.Compress {
		c.publish(totalSteps, "PDF merge and compression complete")
		finish(model.StatusSucceeded, "PDF saved and compressed: "+cfg.OutputPath)
	} else {
		c.publish(totalSteps, "PDF merge complete")
		finish(model.StatusSucceeded, "PDF saved: "+cfg.OutputPath)
	}
}

// countPages sums the page estimates of all inputs.
func (c *Coordinator) countPages(ctx context.Context, inputs []string) int {
	total := 0
	for _, path := range inputs {
		if c.isCancelled(ctx) {
			return total
		}
		total += c.source.EstimatePageCount(path)
	}
	return total
}

// convertAll runs one conversion task per input on a bounded pool and
// returns the pages in input order. Results are consumed in completion
// order. On cancellation the remaining results are drained and discarded.
func (c *Coordinator) convertAll(ctx context.Context, job model.Job, totalPages int) []model.PageImage {
	cfg := job.Config
	workers := min(c.parallelism, len(job.Inputs))

	results := make(chan convert.Result)

	var g errgroup.Group
	g.SetLimit(workers)

	go func() {
		defer close(results)

		for i, path := range job.Inputs {
			if c.isCancelled(ctx) {
				break
			}

			task := convert.Task{
				Order:        i,
				Path:         path,
				Width:        cfg.Width,
				DPI:          cfg.DPI,
				ReleaseEvery: c.releaseEvery,
			}
			g.Go(func() error {
				results <- task.Run(ctx, c.source)
				return nil
			})
		}

		_ = g.Wait()
	}()

	byInput := make([][]model.PageImage, len(job.Inputs))
	processed := 0
	abandoned := false

	for res := range results {
		if abandoned || res.Cancelled || c.isCancelled(ctx) {
			abandoned = true
			continue
		}

		if res.Err != nil {
			zlog.Logger.Error().
				Err(res.Err).
				Str("job_id", job.ID.String()).
				Str("file", filepath.Base(res.Path)).
				Msg("file conversion failed")
			c.publish(min(processed, totalPages), "Failed to process file: "+filepath.Base(res.Path))
			continue
		}

		byInput[res.Order] = res.Pages
		processed += res.Count
		c.publish(min(processed, totalPages), fmt.Sprintf("Processed %d/%d pages", processed, totalPages))
	}

	if abandoned {
		return nil
	}

	var pages []model.PageImage
	for _, p := range byInput {
		pages = append(pages, p...)
	}

	return pages
}
