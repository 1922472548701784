package miiquality

import "math"

// Counts holds the number of findings per severity.
type Counts struct {
	Pass        int `json:"pass"`
	Information int `json:"information"`
	Warning     int `json:"warning"`
	Error       int `json:"error"`
}

// Add increments the counter for severity.
func (c *Counts) Add(severity Severity) {
	switch severity {
	case SeverityPass:
		c.Pass++
	case SeverityInformation:
		c.Information++
	case SeverityWarning:
		c.Warning++
	case SeverityError:
		c.Error++
	}
}

// Total returns the number of counted findings.
func (c Counts) Total() int {
	return c.Pass + c.Information + c.Warning + c.Error
}

// Issues returns the number of findings that are not passes.
func (c Counts) Issues() int {
	return c.Information + c.Warning + c.Error
}

// BundleInfo carries the bundle metadata a report is assembled from.
type BundleInfo struct {
	Source        string
	Type          string
	EntryCount    int
	ResourceTypes map[string]int
	Modules       []Module
	Unclassified  int
}

// QualityReport aggregates the findings for one bundle.
// It is assembled once by NewQualityReport and not modified afterwards.
type QualityReport struct {
	// Source is the file path or label the bundle was read from
	Source string `json:"source"`

	// BundleType is Bundle.type
	BundleType string `json:"bundleType"`

	// EntryCount is the number of bundle entries
	EntryCount int `json:"entryCount"`

	// ResourceTypes counts entries per resourceType
	ResourceTypes map[string]int `json:"resourceTypes"`

	// Modules lists the MII modules present, in canonical order
	Modules []Module `json:"modules"`

	// Unclassified is the number of resources matching no MII module
	Unclassified int `json:"unclassified"`

	// Counts holds the number of findings per severity
	Counts Counts `json:"counts"`

	// ChecksApplicable is the number of evaluated checks
	ChecksApplicable int `json:"checksApplicable"`

	// ChecksPassed is the number of checks that passed
	ChecksPassed int `json:"checksPassed"`

	// Score is ChecksPassed / ChecksApplicable, 1 when nothing applied
	Score float64 `json:"score"`

	// Passed is true when there are no error findings, and in strict
	// mode no warning findings either
	Passed bool `json:"passed"`

	// Findings in resource appearance order, then catalog order
	Findings []Finding `json:"findings"`
}

// NewQualityReport assembles a report from bundle metadata and the ordered
// findings of one engine run.
func NewQualityReport(info BundleInfo, findings []Finding, strict bool) *QualityReport {
	r := &QualityReport{
		Source:        info.Source,
		BundleType:    info.Type,
		EntryCount:    info.EntryCount,
		ResourceTypes: make(map[string]int, len(info.ResourceTypes)),
		Modules:       make([]Module, len(info.Modules)),
		Unclassified:  info.Unclassified,
		Findings:      make([]Finding, len(findings)),
	}
	for k, v := range info.ResourceTypes {
		r.ResourceTypes[k] = v
	}
	copy(r.Modules, info.Modules)
	copy(r.Findings, findings)

	for _, f := range findings {
		r.Counts.Add(f.Severity)
	}
	r.ChecksApplicable = len(findings)
	r.ChecksPassed = r.Counts.Pass
	r.Score = Score(r.ChecksPassed, r.ChecksApplicable)

	r.Passed = r.Counts.Error == 0
	if strict && r.Counts.Warning > 0 {
		r.Passed = false
	}
	return r
}

// Score returns passed/applicable. When no check applies the score is 1.
func Score(passed, applicable int) float64 {
	if applicable == 0 {
		return 1
	}
	return float64(passed) / float64(applicable)
}

// ScorePercent returns the score as a percentage rounded to two decimals.
func (r *QualityReport) ScorePercent() float64 {
	return math.Round(r.Score*10000) / 100
}

// HasErrors returns true if there are any error findings.
func (r *QualityReport) HasErrors() bool {
	return r.Counts.Error > 0
}

// HasWarnings returns true if there are any warning findings.
func (r *QualityReport) HasWarnings() bool {
	return r.Counts.Warning > 0
}

// ErrorCount returns the number of error findings.
func (r *QualityReport) ErrorCount() int {
	return r.Counts.Error
}

// Issues returns all findings that are not passes.
func (r *QualityReport) Issues() []Finding {
	return r.filter(func(f Finding) bool { return !f.IsPass() })
}

// Errors returns all error findings.
func (r *QualityReport) Errors() []Finding {
	return r.filter(Finding.IsError)
}

// Warnings returns all warning findings.
func (r *QualityReport) Warnings() []Finding {
	return r.filter(Finding.IsWarning)
}

// ByCheck returns all findings produced by checkID.
func (r *QualityReport) ByCheck(checkID string) []Finding {
	return r.filter(func(f Finding) bool { return f.CheckID == checkID })
}

func (r *QualityReport) filter(keep func(Finding) bool) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
