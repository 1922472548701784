// Package report projects quality reports into console text, JSON and HTML.
package report

import (
	"math"
	"time"

	"github.com/google/uuid"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/worker"
)

// Summary aggregates the reports of one batch.
type Summary struct {
	// RunID identifies the inspection run
	RunID string `json:"runId"`

	GeneratedAt time.Time `json:"generatedAt"`

	TotalBundles int `json:"totalBundles"`

	// ValidBundles is the number of bundles that could be parsed
	ValidBundles int `json:"validBundles"`

	// Passed is the number of bundles without error findings
	Passed int `json:"passed"`

	// PassRate is Passed / ValidBundles in percent
	PassRate float64 `json:"passRate"`

	// AverageScore is the mean report score in percent
	AverageScore float64 `json:"averageScore"`

	TotalIssues       int `json:"totalIssues"`
	TotalErrors       int `json:"totalErrors"`
	TotalWarnings     int `json:"totalWarnings"`
	TotalInformation  int `json:"totalInformation"`
	TotalChecks       int `json:"totalChecks"`
	TotalChecksPassed int `json:"totalChecksPassed"`

	// Bundles holds one entry per input in input order
	Bundles []Bundle `json:"bundles"`
}

// Bundle is the outcome for one input file.
type Bundle struct {
	Source string `json:"source"`

	// Valid is false when the file could not be parsed as a Bundle
	Valid bool `json:"valid"`

	Skipped bool `json:"skipped,omitempty"`

	// Error describes why no report exists
	Error string `json:"error,omitempty"`

	Report *mq.QualityReport `json:"report,omitempty"`
}

// Passed returns true if the bundle was checked and passed.
func (b Bundle) Passed() bool {
	return b.Report != nil && b.Report.Passed
}

// NewBundle describes the outcome for one input. err is ignored when r is
// not nil.
func NewBundle(source string, r *mq.QualityReport, err error) Bundle {
	b := Bundle{Source: source, Report: r, Valid: r != nil}
	if r == nil && err != nil {
		b.Error = err.Error()
	}
	return b
}

// NewSummary builds the summary of a batch. now is the generation time.
func NewSummary(items []*worker.BatchItem, now time.Time) *Summary {
	s := &Summary{
		RunID:        uuid.NewString(),
		GeneratedAt:  now,
		TotalBundles: len(items),
		Bundles:      make([]Bundle, 0, len(items)),
	}

	var scoreSum float64
	for _, item := range items {
		b := NewBundle(item.Source, item.Report, item.Err)
		b.Skipped = item.Skipped

		if r := item.Report; r != nil {
			s.ValidBundles++
			if r.Passed {
				s.Passed++
			}
			scoreSum += r.Score

			s.TotalErrors += r.Counts.Error
			s.TotalWarnings += r.Counts.Warning
			s.TotalInformation += r.Counts.Information
			s.TotalIssues += r.Counts.Issues()
			s.TotalChecks += r.ChecksApplicable
			s.TotalChecksPassed += r.ChecksPassed
		}
		s.Bundles = append(s.Bundles, b)
	}

	if s.ValidBundles > 0 {
		s.PassRate = percent(float64(s.Passed) / float64(s.ValidBundles))
		s.AverageScore = percent(scoreSum / float64(s.ValidBundles))
	}
	return s
}

// FromReports builds a summary of reports that were all checked.
func FromReports(reports []*mq.QualityReport, now time.Time) *Summary {
	items := make([]*worker.BatchItem, len(reports))
	for i, r := range reports {
		items[i] = &worker.BatchItem{Source: r.Source, Report: r}
	}
	return NewSummary(items, now)
}

// Failed returns the bundles that produced no report.
func (s *Summary) Failed() []Bundle {
	var out []Bundle
	for _, b := range s.Bundles {
		if b.Report == nil {
			out = append(out, b)
		}
	}
	return out
}

// Imperfect returns the checked bundles scoring below 100%.
func (s *Summary) Imperfect() []Bundle {
	var out []Bundle
	for _, b := range s.Bundles {
		if b.Report != nil && b.Report.Score < 1 {
			out = append(out, b)
		}
	}
	return out
}

// AllPassed returns true if every bundle was checked and passed.
func (s *Summary) AllPassed() bool {
	for _, b := range s.Bundles {
		if !b.Passed() {
			return false
		}
	}
	return true
}

// percent converts a fraction to a percentage rounded to two decimals.
func percent(f float64) float64 {
	return math.Round(f*10000) / 100
}
