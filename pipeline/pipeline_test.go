package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
	"github.com/gofhir/miiquality/profile"
	"github.com/gofhir/miiquality/rules"
)

// mockPhase is a test phase that records execution
type mockPhase struct {
	name       string
	findings   []mq.Finding
	delay      time.Duration
	executions atomic.Int32
}

func (p *mockPhase) Name() string {
	return p.name
}

func (p *mockPhase) Run(ctx context.Context, pctx *Context) []mq.Finding {
	p.executions.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil
		}
	}
	return p.findings
}

func finding(checkID string, index int, severity mq.Severity) mq.Finding {
	target := mq.BundleTarget
	if index >= 0 {
		target = mq.Target{ResourceType: "Patient", Index: index}
	}
	return mq.NewFinding(checkID, mq.CategoryRequired, severity).On(target).Build()
}

func testContext(t *testing.T, path string) *Context {
	t.Helper()
	b, err := bundle.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile(%s) error = %v", path, err)
	}
	return NewContext(rules.NewBundleContext(b, profile.Detect(b), nil))
}

func TestPipeline_Register(t *testing.T) {
	pipeline := NewPipeline(nil, nil)

	pipeline.Register(PhaseIDStructure, &mockPhase{name: "structure"}, WithPriority(PriorityFirst))
	pipeline.Register(PhaseIDProfile, &mockPhase{name: "profile"}, WithPriority(PriorityEarly))

	if pipeline.PhaseCount() != 2 {
		t.Errorf("PhaseCount() = %d; want 2", pipeline.PhaseCount())
	}
	if len(pipeline.Groups()) != 2 {
		t.Errorf("len(Groups()) = %d; want 2", len(pipeline.Groups()))
	}
	if !pipeline.Has(PhaseIDProfile) {
		t.Error("Has(profile) = false")
	}
	if pipeline.Has(PhaseIDInvariant) {
		t.Error("Has(invariant) = true")
	}

	// same id, new priority: replaces the earlier registration
	pipeline.Register(PhaseIDProfile, &mockPhase{name: "profile"}, WithPriority(PriorityFirst))
	if pipeline.PhaseCount() != 2 {
		t.Errorf("PhaseCount() after re-register = %d; want 2", pipeline.PhaseCount())
	}
	groups := pipeline.Groups()
	if len(groups) != 1 {
		t.Fatalf("len(Groups()) after re-register = %d; want 1", len(groups))
	}
	if got, want := groups[0].Names(), []string{"profile", "structure"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v; want %v", got, want)
	}
}

func TestPipeline_SerialPhaseDisablesGroupParallelism(t *testing.T) {
	pipeline := NewPipeline(&PipelineOptions{ParallelExecution: true}, nil)
	pipeline.Register("a", &mockPhase{name: "a"})
	pipeline.Register("b", &mockPhase{name: "b"}, WithParallel(false))

	groups := pipeline.Groups()
	if len(groups) != 1 || groups[0].Parallel {
		t.Errorf("Groups() = %+v; want one sequential group", groups)
	}
}

func TestPipeline_ExecuteSortsFindings(t *testing.T) {
	rank := map[string]int{"a": 0, "b": 1, "c": 2}
	pipeline := NewPipeline(&PipelineOptions{ParallelExecution: true}, func(id string) int { return rank[id] })

	phase1 := &mockPhase{name: "phase1", findings: []mq.Finding{
		finding("c", 1, mq.SeverityPass),
		finding("c", 0, mq.SeverityError),
		finding("c", 0, mq.SeverityPass),
	}}
	phase2 := &mockPhase{name: "phase2", findings: []mq.Finding{
		finding("a", 1, mq.SeverityWarning),
		finding("b", -1, mq.SeverityPass),
	}}

	pipeline.Register("phase1", phase1, WithPriority(PriorityNormal))
	pipeline.Register("phase2", phase2, WithPriority(PriorityNormal))

	pctx := NewContext(rules.NewBundleContext(&bundle.Bundle{}, profile.Classification{}, nil))
	got, err := pipeline.Execute(context.Background(), pctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []mq.Finding{
		finding("b", -1, mq.SeverityPass),
		finding("c", 0, mq.SeverityError),
		finding("c", 0, mq.SeverityPass),
		finding("a", 1, mq.SeverityWarning),
		finding("c", 1, mq.SeverityPass),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Execute() =\n%v\nwant\n%v", got, want)
	}
}

func TestPipeline_ParallelExecution(t *testing.T) {
	pipeline := NewPipeline(&PipelineOptions{
		ParallelExecution: true,
		CollectMetrics:    true,
	}, nil)

	// Create phases with delay to verify parallel execution
	delay := 50 * time.Millisecond
	phase1 := &mockPhase{name: "phase1", delay: delay}
	phase2 := &mockPhase{name: "phase2", delay: delay}
	phase3 := &mockPhase{name: "phase3", delay: delay}

	// All same priority = same group = parallel
	pipeline.Register("phase1", phase1, WithPriority(PriorityNormal), WithParallel(true))
	pipeline.Register("phase2", phase2, WithPriority(PriorityNormal), WithParallel(true))
	pipeline.Register("phase3", phase3, WithPriority(PriorityNormal), WithParallel(true))

	pctx := NewContext(rules.NewBundleContext(&bundle.Bundle{}, profile.Classification{}, nil))

	start := time.Now()
	if _, err := pipeline.Execute(context.Background(), pctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	elapsed := time.Since(start)

	// If parallel, should take ~delay; if sequential, ~3*delay
	if elapsed > 2*delay {
		t.Errorf("Parallel execution took %v; expected ~%v", elapsed, delay)
	}

	if phase1.executions.Load() != 1 || phase2.executions.Load() != 1 || phase3.executions.Load() != 1 {
		t.Error("Not all phases executed")
	}
}

func TestPipeline_SequentialGroups(t *testing.T) {
	pipeline := NewPipeline(&PipelineOptions{
		ParallelExecution: true,
		CollectMetrics:    true,
	}, nil)

	var mu sync.Mutex
	var order []string

	makePhase := func(name string) Phase {
		return NewPhaseFunc(name, func(ctx context.Context, pctx *Context) []mq.Finding {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	// Different priorities = different groups = sequential
	pipeline.Register("group3", makePhase("group3"), WithPriority(PriorityLast))
	pipeline.Register("group1", makePhase("group1"), WithPriority(PriorityFirst))
	pipeline.Register("group2", makePhase("group2"), WithPriority(PriorityNormal))

	pctx := NewContext(rules.NewBundleContext(&bundle.Bundle{}, profile.Classification{}, nil))
	if _, err := pipeline.Execute(context.Background(), pctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{"group1", "group2", "group3"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v; want %v", order, want)
	}
}

func TestPipeline_Cancellation(t *testing.T) {
	pipeline := NewPipeline(&PipelineOptions{
		ParallelExecution: false,
		CollectMetrics:    true,
	}, nil)

	// Phase with long delay
	phase1 := &mockPhase{name: "phase1", delay: 1 * time.Second}
	phase2 := &mockPhase{name: "phase2"}

	pipeline.Register("phase1", phase1, WithPriority(PriorityFirst))
	pipeline.Register("phase2", phase2, WithPriority(PriorityNormal))

	pctx := NewContext(rules.NewBundleContext(&bundle.Bundle{}, profile.Classification{}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := pipeline.Execute(ctx, pctx)
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v; want deadline exceeded", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Cancellation took %v; should be faster", elapsed)
	}
	if phase2.executions.Load() != 0 {
		t.Error("phase2 should not execute after cancellation")
	}
}

func TestPipeline_Metrics(t *testing.T) {
	pipeline := NewPipeline(&PipelineOptions{CollectMetrics: true}, nil)
	metrics := mq.NewMetrics()
	pipeline.SetMetrics(metrics)

	phase := &mockPhase{name: "required", findings: []mq.Finding{
		finding("a", 0, mq.SeverityPass),
		finding("b", 0, mq.SeverityError),
	}}
	pipeline.Register(PhaseIDRequired, phase)

	pctx := NewContext(rules.NewBundleContext(&bundle.Bundle{}, profile.Classification{}, nil))
	for i := 0; i < 3; i++ {
		if _, err := pipeline.Execute(context.Background(), pctx); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	stats, ok := metrics.PhaseStats("required")
	if !ok {
		t.Fatal("PhaseStats(required) not recorded")
	}
	if stats.Invocations != 3 {
		t.Errorf("Invocations = %d; want 3", stats.Invocations)
	}
	if stats.Findings != 6 {
		t.Errorf("Findings = %d; want 6", stats.Findings)
	}
}

func TestStandardPipeline_Groups(t *testing.T) {
	pipeline := NewStandardPipeline(rules.Default(), nil)

	// The default catalog has no invariants
	if pipeline.PhaseCount() != 6 {
		t.Errorf("PhaseCount() = %d; want 6", pipeline.PhaseCount())
	}
	if pipeline.Has(PhaseIDInvariant) {
		t.Error("invariant phase registered without invariant rules")
	}

	groups := pipeline.Groups()
	if len(groups) != 4 {
		t.Fatalf("len(groups) = %d; want 4", len(groups))
	}
	want := []string{"format", "required", "terminology"}
	if got := groups[2].Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("groups[2].Names() = %v; want %v", got, want)
	}
}

func TestStandardPipeline_ParallelMatchesSequential(t *testing.T) {
	catalog := rules.Default()
	pctx := testContext(t, "../testdata/messy-bundle.json")

	parallel := NewStandardPipeline(catalog, &PipelineOptions{ParallelExecution: true})
	sequential := NewStandardPipeline(catalog, &PipelineOptions{ParallelExecution: false})

	got1, err := parallel.Execute(context.Background(), pctx)
	if err != nil {
		t.Fatalf("parallel Execute() error = %v", err)
	}
	got2, err := sequential.Execute(context.Background(), pctx)
	if err != nil {
		t.Fatalf("sequential Execute() error = %v", err)
	}

	if len(got1) == 0 {
		t.Fatal("no findings")
	}
	if !reflect.DeepEqual(got1, got2) {
		t.Error("parallel and sequential findings differ")
	}

	// Bundle-level findings first, then entries in order
	last := -1
	for _, f := range got1 {
		if f.Target.Index < last {
			t.Fatalf("finding %v out of order", f)
		}
		last = f.Target.Index
	}
	if got1[0].Target.Index != -1 {
		t.Errorf("first finding = %v; want bundle-level", got1[0])
	}
}

func TestCategoryPhase_Cancelled(t *testing.T) {
	phase := NewCategoryPhase(mq.CategoryRequired, rules.Default())
	pctx := testContext(t, "../testdata/complete-bundle.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := phase.Run(ctx, pctx); len(got) != 0 {
		t.Errorf("Run() on cancelled context = %d findings; want 0", len(got))
	}
	if got := phase.Run(context.Background(), pctx); len(got) == 0 {
		t.Error("Run() = no findings")
	}
}

func TestContext_Pool(t *testing.T) {
	b, err := bundle.ParseFile("../testdata/complete-bundle.json")
	if err != nil {
		t.Fatal(err)
	}
	bc := rules.NewBundleContext(b, profile.Detect(b), nil)

	pctx := AcquireContext(bc)
	if pctx.EntryCount() != b.Len() {
		t.Errorf("EntryCount() = %d; want %d", pctx.EntryCount(), b.Len())
	}
	subjects := pctx.Subjects()
	if subjects[0].Entry != nil {
		t.Error("first subject should be the bundle subject")
	}
	if subjects[1].Entry.Index != 0 {
		t.Errorf("subjects[1].Entry.Index = %d; want 0", subjects[1].Entry.Index)
	}
	pctx.Release()

	again := AcquireContext(bc)
	defer again.Release()
	if again.EntryCount() != b.Len() {
		t.Errorf("EntryCount() after reuse = %d; want %d", again.EntryCount(), b.Len())
	}
}
