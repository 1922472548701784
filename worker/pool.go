package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrAlreadyQueued is returned by Submit when the same source is
	// still waiting for a worker. The queued job will read the file's
	// latest content, so the new job is dropped.
	ErrAlreadyQueued = errors.New("bundle is already queued")

	// ErrNoProcessor is reported for jobs of a pool without processor.
	ErrNoProcessor = errors.New("no processor configured")
)

// Pool checks bundle files handed in one at a time, as they arrive in
// watch mode. Results are delivered in completion order.
type Pool struct {
	processor Processor
	workers   int

	jobs    chan Job
	results chan *JobResult
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
	queued map[string]bool

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	coalesced atomic.Uint64
	busy      atomic.Int64
	totalTime atomic.Int64
}

// NewPool starts a pool with the given number of workers.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewPool(processor Processor, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		processor: processor,
		workers:   workers,
		jobs:      make(chan Job, workers*2),
		results:   make(chan *JobResult, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		queued:    make(map[string]bool),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues job, blocking while the queue is full. It fails with
// ErrAlreadyQueued if job.Source is waiting for a worker, and with
// ErrPoolClosed once the pool is closed.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.queued[job.Source] {
		p.mu.Unlock()
		p.coalesced.Add(1)
		return ErrAlreadyQueued
	}
	p.queued[job.Source] = true
	p.mu.Unlock()

	select {
	case p.jobs <- job:
		p.submitted.Add(1)
		return nil
	case <-p.ctx.Done():
		p.dequeue(job.Source)
		return ErrPoolClosed
	}
}

func (p *Pool) dequeue(source string) {
	p.mu.Lock()
	delete(p.queued, source)
	p.mu.Unlock()
}

// Results returns the channel results are delivered on. It is closed by
// Close.
func (p *Pool) Results() <-chan *JobResult {
	return p.results
}

// Close stops the workers and waits for them to exit. Bundles still being
// checked see a cancelled context; their results and those not yet
// received are discarded.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.results)
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers int

	// Submitted counts accepted jobs
	Submitted uint64

	// Completed counts processed jobs, Failed those that returned an error
	Completed uint64
	Failed    uint64

	// Coalesced counts jobs rejected with ErrAlreadyQueued
	Coalesced uint64

	// Busy is the number of workers checking a bundle right now
	Busy int

	AvgDuration time.Duration
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	s := PoolStats{
		Workers:   p.workers,
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Coalesced: p.coalesced.Load(),
		Busy:      int(p.busy.Load()),
	}
	if s.Completed > 0 {
		s.AvgDuration = time.Duration(p.totalTime.Load() / int64(s.Completed))
	}
	return s
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			// a new write to the file may be queued from here on
			p.dequeue(job.Source)

			result := p.run(job)

			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) run(job Job) *JobResult {
	p.busy.Add(1)
	defer p.busy.Add(-1)

	start := time.Now()
	result := &JobResult{ID: job.ID, Source: job.Source}

	if p.processor == nil {
		result.Error = ErrNoProcessor
	} else {
		result.Report, result.Error = p.processor.ProcessBundle(p.ctx, job.Source)
	}
	result.Duration = time.Since(start)

	p.completed.Add(1)
	p.totalTime.Add(int64(result.Duration))
	if result.Error != nil {
		p.failed.Add(1)
	}
	return result
}
