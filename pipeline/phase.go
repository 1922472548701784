package pipeline

import (
	"context"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/rules"
)

// Phase is one step of the quality pipeline, usually the rules of one
// check category. Run may be called from several goroutines at once and
// keeps no state outside pctx. It returns early, with the findings so far,
// once ctx is done.
type Phase interface {
	// Name returns the unique identifier for this phase.
	Name() string

	// Run evaluates the bundle held by pctx and returns its findings.
	Run(ctx context.Context, pctx *Context) []mq.Finding
}

type funcPhase struct {
	name string
	fn   func(ctx context.Context, pctx *Context) []mq.Finding
}

// NewPhaseFunc wraps fn as a Phase named name.
func NewPhaseFunc(name string, fn func(ctx context.Context, pctx *Context) []mq.Finding) Phase {
	return funcPhase{name: name, fn: fn}
}

func (p funcPhase) Name() string { return p.name }

func (p funcPhase) Run(ctx context.Context, pctx *Context) []mq.Finding { return p.fn(ctx, pctx) }

// PhaseID uniquely identifies a phase.
type PhaseID string

// Standard phase identifiers, one per check category.
const (
	PhaseIDStructure   = PhaseID(mq.CategoryStructure)
	PhaseIDProfile     = PhaseID(mq.CategoryProfile)
	PhaseIDRequired    = PhaseID(mq.CategoryRequired)
	PhaseIDFormat      = PhaseID(mq.CategoryFormat)
	PhaseIDTerminology = PhaseID(mq.CategoryTerminology)
	PhaseIDReference   = PhaseID(mq.CategoryReference)
	PhaseIDInvariant   = PhaseID(mq.CategoryInvariant)
)

// PhasePriority orders the groups. Lower values run first.
type PhasePriority int

const (
	// PriorityFirst for bundle-level checks
	PriorityFirst PhasePriority = 100

	// PriorityEarly for profile declarations
	PriorityEarly PhasePriority = 200

	// PriorityNormal for per-field checks
	PriorityNormal PhasePriority = 500

	// PriorityLate for checks that look across resources
	PriorityLate PhasePriority = 800

	// PriorityLast for custom invariants
	PriorityLast PhasePriority = 900
)

// PhaseConfig is a registered phase.
type PhaseConfig struct {
	ID       PhaseID
	Phase    Phase
	Priority PhasePriority

	// Parallel allows the phase to run concurrently with the others of its
	// group
	Parallel bool
}

// CategoryPhase runs every catalog rule of one category on the bundle
// subject and on each entry subject.
type CategoryPhase struct {
	category mq.Category
	rules    []*rules.Rule
}

// NewCategoryPhase creates the phase for category from the catalog rules.
func NewCategoryPhase(category mq.Category, catalog *rules.Catalog) *CategoryPhase {
	return &CategoryPhase{
		category: category,
		rules:    catalog.ByCategory(category),
	}
}

// Name returns the category name.
func (p *CategoryPhase) Name() string {
	return string(p.category)
}

// Len returns the number of rules in the phase.
func (p *CategoryPhase) Len() int {
	return len(p.rules)
}

// Run evaluates the rules subject by subject.
func (p *CategoryPhase) Run(ctx context.Context, pctx *Context) []mq.Finding {
	var findings []mq.Finding
	for _, s := range pctx.Subjects() {
		select {
		case <-ctx.Done():
			return findings
		default:
		}

		for _, r := range p.rules {
			if r.Applies(s) {
				findings = append(findings, rules.Evaluate(r, s)...)
			}
		}
	}
	return findings
}
