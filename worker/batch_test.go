package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	mq "github.com/gofhir/miiquality"
)

func sources(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("bundle-%02d.json", i)
	}
	return out
}

func TestRunner_Empty(t *testing.T) {
	result := NewRunner(&mockProcessor{}, 2).Run(context.Background(), nil)
	if result.TotalJobs != 0 || len(result.Items) != 0 {
		t.Errorf("TotalJobs = %d, Items = %d; want 0", result.TotalJobs, len(result.Items))
	}
	if !result.AllPassed() {
		t.Error("AllPassed() = false for an empty batch")
	}
}

func TestRunner_InputOrder(t *testing.T) {
	// Later inputs finish first
	proc := ProcessorFunc(func(ctx context.Context, path string) (*mq.QualityReport, error) {
		var i int
		fmt.Sscanf(path, "bundle-%02d.json", &i)
		time.Sleep(time.Duration(20-i) * time.Millisecond)
		return mq.NewQualityReport(mq.BundleInfo{Source: path}, nil, false), nil
	})

	in := sources(20)
	result := NewRunner(proc, 8).Run(context.Background(), in)

	if result.CompletedJobs != 20 {
		t.Fatalf("CompletedJobs = %d; want 20", result.CompletedJobs)
	}
	for i, item := range result.Items {
		if item.Source != in[i] || item.Report.Source != in[i] {
			t.Errorf("Items[%d] = %s; want %s", i, item.Source, in[i])
		}
	}
}

func TestRunner_ParallelExecution(t *testing.T) {
	proc := &mockProcessor{delay: 10 * time.Millisecond}

	start := time.Now()
	result := NewRunner(proc, 4).Run(context.Background(), sources(10))
	duration := time.Since(start)

	if result.CompletedJobs != 10 {
		t.Errorf("CompletedJobs = %d; want 10", result.CompletedJobs)
	}
	if int(proc.callCount.Load()) != 10 {
		t.Errorf("callCount = %d; want 10", proc.callCount.Load())
	}

	// With 4 workers and 10 jobs of 10ms each, should complete faster than sequential
	if duration > 200*time.Millisecond {
		t.Errorf("duration = %v; expected < 200ms for parallel execution", duration)
	}
}

func TestRunner_Failures(t *testing.T) {
	in := []string{"ok.json", "broken.json", "error.json"}
	result := NewRunner(&mockProcessor{}, 2).Run(context.Background(), in)

	if result.FailedJobs != 1 {
		t.Errorf("FailedJobs = %d; want 1", result.FailedJobs)
	}
	failed := result.Failed()
	if len(failed) != 1 || failed[0].Source != "broken.json" || !mq.IsParseError(failed[0].Err) {
		t.Errorf("Failed() = %+v", failed)
	}
	if got := len(result.Reports()); got != 2 {
		t.Errorf("len(Reports()) = %d; want 2", got)
	}
	if !result.HasErrors() {
		t.Error("HasErrors() = false; want true")
	}
	if result.ErrorCount() != 1 {
		t.Errorf("ErrorCount() = %d; want 1", result.ErrorCount())
	}
	if result.AllPassed() {
		t.Error("AllPassed() = true; want false")
	}
}

func TestRunner_Progress(t *testing.T) {
	var mu sync.Mutex
	var calls [][2]int

	NewRunner(&mockProcessor{}, 3).
		WithProgress(func(done, total int) {
			mu.Lock()
			calls = append(calls, [2]int{done, total})
			mu.Unlock()
		}).
		Run(context.Background(), sources(5))

	if len(calls) != 5 {
		t.Fatalf("progress calls = %d; want 5", len(calls))
	}
	for i, c := range calls {
		if c[0] != i+1 || c[1] != 5 {
			t.Errorf("call %d = %v; want [%d 5]", i, c, i+1)
		}
	}
}

func TestRunner_Cancellation(t *testing.T) {
	proc := &mockProcessor{delay: 50 * time.Millisecond, started: make(chan string, 10)}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-proc.started
		cancel()
	}()

	result := NewRunner(proc, 1).Run(ctx, sources(5))

	// The bundle in flight finishes
	first := result.Items[0]
	if first.Err != nil || first.Report == nil {
		t.Errorf("Items[0] = %+v; want completed", first)
	}

	if result.SkippedJobs == 0 {
		t.Fatal("SkippedJobs = 0; want skipped bundles")
	}
	if result.CompletedJobs+result.SkippedJobs != 5 {
		t.Errorf("completed %d + skipped %d != 5", result.CompletedJobs, result.SkippedJobs)
	}
	last := result.Items[4]
	if !last.Skipped || !errors.Is(last.Err, context.Canceled) {
		t.Errorf("Items[4] = %+v; want skipped with context.Canceled", last)
	}
}

func TestRunner_NoJobStartsAfterCancel(t *testing.T) {
	for i := 0; i < 20; i++ {
		proc := &mockProcessor{}
		ctx, cancel := context.WithCancel(context.Background())
		// the next send is already pending when the first bundle reports progress
		runner := NewRunner(proc, 1).WithProgress(func(done, total int) { cancel() })

		result := runner.Run(ctx, sources(6))
		cancel()
		if got := proc.callCount.Load(); got != 1 {
			t.Fatalf("run %d: callCount = %d; want 1", i, got)
		}
		if result.CompletedJobs != 1 || result.SkippedJobs != 5 {
			t.Errorf("run %d: completed %d, skipped %d; want 1 and 5", i, result.CompletedJobs, result.SkippedJobs)
		}
	}
}

func TestRunner_PreCancelled(t *testing.T) {
	proc := &mockProcessor{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewRunner(proc, 2).Run(ctx, sources(3))
	if result.SkippedJobs != 3 {
		t.Errorf("SkippedJobs = %d; want 3", result.SkippedJobs)
	}
	if proc.callCount.Load() != 0 {
		t.Errorf("callCount = %d; want 0", proc.callCount.Load())
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"b.json",
		"a.JSON",
		"notes.txt",
		filepath.Join("sub", "c.json"),
		filepath.Join(".hidden", "d.json"),
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover([]string{dir, filepath.Join(dir, "b.json"), filepath.Join(dir, "notes.txt")})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.JSON"),
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "sub", "c.json"),
		filepath.Join(dir, "notes.txt"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover() = %v; want %v", got, want)
	}

	// explicit files keep argument order
	got, err = Discover([]string{filepath.Join(dir, "b.json"), filepath.Join(dir, "a.JSON"), dir})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want = []string{
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "a.JSON"),
		filepath.Join(dir, "sub", "c.json"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover(files first) = %v; want %v", got, want)
	}

	if _, err := Discover([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Discover(missing) error = nil")
	}
}
