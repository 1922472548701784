package pipeline

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/rules"
)

// Pipeline runs its phases group by group over one bundle. Groups run in
// priority order; the phases of a group may run concurrently.
type Pipeline struct {
	opts  *PipelineOptions
	order func(checkID string) int

	mu      sync.RWMutex
	phases  []*PhaseConfig
	groups  []*PhaseGroup
	metrics *mq.Metrics
}

// PipelineOptions configures pipeline behavior.
type PipelineOptions struct {
	// ParallelExecution runs the phases of a group concurrently
	ParallelExecution bool

	// CollectMetrics records per-phase timings in the metrics collector
	CollectMetrics bool
}

// DefaultPipelineOptions returns the options used when none are given.
func DefaultPipelineOptions() *PipelineOptions {
	return &PipelineOptions{ParallelExecution: true, CollectMetrics: true}
}

// NewPipeline creates an empty pipeline. order ranks check ids; findings of
// the same entry are sorted by it. A nil order keeps phase order.
func NewPipeline(opts *PipelineOptions, order func(checkID string) int) *Pipeline {
	if opts == nil {
		opts = DefaultPipelineOptions()
	}
	if order == nil {
		order = func(string) int { return 0 }
	}
	return &Pipeline{opts: opts, order: order, metrics: mq.NewMetrics()}
}

// NewStandardPipeline creates a pipeline with one phase per check category
// of catalog, at the priority of its standard group. Categories without
// rules get no phase.
func NewStandardPipeline(catalog *rules.Catalog, opts *PipelineOptions) *Pipeline {
	p := NewPipeline(opts, catalog.Order)
	for _, category := range mq.Categories {
		phase := NewCategoryPhase(category, catalog)
		if phase.Len() == 0 {
			continue
		}
		id := PhaseID(category)
		p.Register(id, phase, WithPriority(StandardPriority(id)))
	}
	return p
}

// PhaseOption configures a phase registration.
type PhaseOption func(*PhaseConfig)

// WithPriority sets the phase priority.
func WithPriority(priority PhasePriority) PhaseOption {
	return func(c *PhaseConfig) { c.Priority = priority }
}

// WithParallel sets whether the phase may share its group's goroutines.
// A single serial phase makes its whole group run sequentially.
func WithParallel(parallel bool) PhaseOption {
	return func(c *PhaseConfig) { c.Parallel = parallel }
}

// Register adds phase under id. Registering an id again replaces the
// earlier phase.
func (p *Pipeline) Register(id PhaseID, phase Phase, opts ...PhaseOption) {
	cfg := &PhaseConfig{ID: id, Phase: phase, Priority: PriorityNormal, Parallel: true}
	for _, opt := range opts {
		opt(cfg)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.phases = slices.DeleteFunc(p.phases, func(c *PhaseConfig) bool { return c.ID == id })
	p.phases = append(p.phases, cfg)
	p.groups = groupByPriority(p.phases, p.opts.ParallelExecution)
}

// Has reports whether a phase is registered under id.
func (p *Pipeline) Has(id PhaseID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.ContainsFunc(p.phases, func(c *PhaseConfig) bool { return c.ID == id })
}

// Execute runs every group on pctx and returns the findings sorted by entry
// index, bundle-level first, then by check order. It returns ctx.Err() if
// ctx is done before the last group finished.
func (p *Pipeline) Execute(ctx context.Context, pctx *Context) ([]mq.Finding, error) {
	p.mu.RLock()
	groups := p.groups
	p.mu.RUnlock()

	var findings []mq.Finding
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings = append(findings, p.runGroup(ctx, pctx, g)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// stable: findings of one check on one entry keep their emission order
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i].Target.Index, findings[j].Target.Index
		if a != b {
			return a < b
		}
		return p.order(findings[i].CheckID) < p.order(findings[j].CheckID)
	})
	return findings, nil
}

// runGroup collects the findings of each phase into its own slot, so the
// concatenation follows group order however the phases were scheduled.
func (p *Pipeline) runGroup(ctx context.Context, pctx *Context, g *PhaseGroup) []mq.Finding {
	slots := make([][]mq.Finding, len(g.Phases))

	if g.Parallel && len(g.Phases) > 1 {
		var wg sync.WaitGroup
		wg.Add(len(g.Phases))
		for i, cfg := range g.Phases {
			go func() {
				defer wg.Done()
				slots[i] = p.runPhase(ctx, pctx, cfg)
			}()
		}
		wg.Wait()
	} else {
		for i, cfg := range g.Phases {
			if ctx.Err() != nil {
				break
			}
			slots[i] = p.runPhase(ctx, pctx, cfg)
		}
	}

	return slices.Concat(slots...)
}

func (p *Pipeline) runPhase(ctx context.Context, pctx *Context, cfg *PhaseConfig) []mq.Finding {
	start := time.Now()
	findings := cfg.Phase.Run(ctx, pctx)

	p.mu.RLock()
	m := p.metrics
	p.mu.RUnlock()
	if p.opts.CollectMetrics && m != nil {
		m.RecordPhase(cfg.Phase.Name(), time.Since(start), len(findings))
	}
	return findings
}

// Metrics returns the metrics collector phases are recorded in.
func (p *Pipeline) Metrics() *mq.Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// SetMetrics replaces the metrics collector, typically with the engine's.
func (p *Pipeline) SetMetrics(m *mq.Metrics) {
	p.mu.Lock()
	p.metrics = m
	p.mu.Unlock()
}

// PhaseCount returns the number of registered phases.
func (p *Pipeline) PhaseCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.phases)
}

// Groups returns the phase groups in execution order.
func (p *Pipeline) Groups() []*PhaseGroup {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.groups
}
