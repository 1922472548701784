package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Runner processes a list of bundle files with a fixed number of workers.
type Runner struct {
	processor  Processor
	workers    int
	onProgress func(done, total int)
	logger     zerolog.Logger
}

// NewRunner creates a new runner. If workers <= 0, it defaults to
// runtime.NumCPU().
func NewRunner(processor Processor, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		processor: processor,
		workers:   workers,
		logger:    zerolog.Nop(),
	}
}

// WithProgress sets a callback invoked after each processed bundle.
// Calls are serialized; done increases by one with every call.
func (r *Runner) WithProgress(fn func(done, total int)) *Runner {
	r.onProgress = fn
	return r
}

// WithLogger sets the logger.
func (r *Runner) WithLogger(logger zerolog.Logger) *Runner {
	r.logger = logger
	return r
}

// Run processes sources and returns one item per source in input order.
// Cancelling ctx stops scheduling: bundles already being processed finish,
// the rest are marked skipped with the context error.
func (r *Runner) Run(ctx context.Context, sources []string) *BatchResult {
	start := time.Now()
	total := len(sources)
	items := make([]*BatchItem, total)

	numWorkers := r.workers
	if numWorkers > total {
		numWorkers = total
	}

	jobs := make(chan int)
	var completed atomic.Int64
	var progressMu sync.Mutex

	// In-flight bundles are not interrupted by batch cancellation
	processCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// the send may win the select after cancellation
				if ctx.Err() != nil {
					continue
				}
				items[idx] = r.process(processCtx, sources[idx])

				done := int(completed.Add(1))
				if r.onProgress != nil {
					progressMu.Lock()
					r.onProgress(done, total)
					progressMu.Unlock()
				}
			}
		}()
	}

	// Submit jobs
schedule:
	for i := range sources {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break schedule
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	result := &BatchResult{
		Items:     items,
		TotalJobs: total,
		Duration:  time.Since(start),
	}
	for i, item := range items {
		if item == nil {
			items[i] = &BatchItem{Source: sources[i], Err: context.Cause(ctx), Skipped: true}
			result.SkippedJobs++
			continue
		}
		result.CompletedJobs++
		if item.Err != nil {
			result.FailedJobs++
		}
	}

	r.logger.Info().
		Int("total", result.TotalJobs).
		Int("completed", result.CompletedJobs).
		Int("failed", result.FailedJobs).
		Int("skipped", result.SkippedJobs).
		Dur("duration", result.Duration).
		Msg("batch finished")

	return result
}

func (r *Runner) process(ctx context.Context, source string) *BatchItem {
	start := time.Now()
	report, err := r.processor.ProcessBundle(ctx, source)
	return &BatchItem{
		Source:   source,
		Report:   report,
		Err:      err,
		Duration: time.Since(start),
	}
}
