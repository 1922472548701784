package worker

import (
	"context"
	"time"

	mq "github.com/gofhir/miiquality"
)

// Processor checks one bundle file. *engine.Engine implements it.
type Processor interface {
	ProcessBundle(ctx context.Context, path string) (*mq.QualityReport, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, path string) (*mq.QualityReport, error)

// ProcessBundle calls f.
func (f ProcessorFunc) ProcessBundle(ctx context.Context, path string) (*mq.QualityReport, error) {
	return f(ctx, path)
}

// Job represents a bundle file to be processed by a worker.
type Job struct {
	// ID is a unique identifier for this job.
	ID string

	// Source is the path of the bundle file.
	Source string
}

// JobResult represents the result of a pool job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Source is the path of the bundle file.
	Source string

	// Report is nil when Error is set.
	Report *mq.QualityReport

	// Error contains any error that occurred while processing.
	Error error

	// Duration is the time taken to process the bundle.
	Duration time.Duration
}

// BatchItem is the outcome for one input of a batch.
type BatchItem struct {
	Source string

	// Report is nil when Err is set
	Report *mq.QualityReport

	// Err is the parse or structure error of the bundle, or the context
	// error for skipped bundles
	Err error

	// Skipped is true for bundles never scheduled because the batch was
	// cancelled
	Skipped bool

	Duration time.Duration
}

// BatchResult aggregates the items of one batch in input order.
type BatchResult struct {
	// Items contains one item per input, in input order.
	Items []*BatchItem

	// TotalJobs is the number of inputs.
	TotalJobs int

	// CompletedJobs is the number of bundles processed (including errors).
	CompletedJobs int

	// FailedJobs is the number of processed bundles that returned an error.
	FailedJobs int

	// SkippedJobs is the number of bundles never scheduled.
	SkippedJobs int

	// Duration is the wall-clock time of the batch.
	Duration time.Duration
}

// Reports returns the reports of all successfully checked bundles, in
// input order.
func (br *BatchResult) Reports() []*mq.QualityReport {
	reports := make([]*mq.QualityReport, 0, len(br.Items))
	for _, item := range br.Items {
		if item.Report != nil {
			reports = append(reports, item.Report)
		}
	}
	return reports
}

// Failed returns the items that produced no report.
func (br *BatchResult) Failed() []*BatchItem {
	var failed []*BatchItem
	for _, item := range br.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// HasErrors returns true if any bundle failed or has error findings.
func (br *BatchResult) HasErrors() bool {
	for _, item := range br.Items {
		if item.Err != nil {
			return true
		}
		if item.Report != nil && item.Report.HasErrors() {
			return true
		}
	}
	return false
}

// AllPassed returns true if every bundle was checked and passed.
func (br *BatchResult) AllPassed() bool {
	for _, item := range br.Items {
		if item.Report == nil || !item.Report.Passed {
			return false
		}
	}
	return true
}

// ErrorCount returns the total number of error findings across all reports.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, item := range br.Items {
		if item.Report != nil {
			count += item.Report.ErrorCount()
		}
	}
	return count
}
