package miiquality

import "strconv"

// Severity is the outcome level of one evaluated check.
type Severity string

const (
	// SeverityPass indicates the check was applicable and satisfied.
	SeverityPass Severity = "pass"
	// SeverityInformation indicates a non-blocking observation.
	SeverityInformation Severity = "information"
	// SeverityWarning indicates a quality problem that should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityError indicates the resource violates an MII quality rule.
	SeverityError Severity = "error"
)

// Severities lists all severities from least to most severe.
var Severities = []Severity{SeverityPass, SeverityInformation, SeverityWarning, SeverityError}

// Category groups checks of the same kind.
type Category string

const (
	// CategoryStructure covers bundle-level checks.
	CategoryStructure Category = "structure"
	// CategoryProfile covers meta.profile declarations.
	CategoryProfile Category = "profile"
	// CategoryRequired covers mandatory field presence.
	CategoryRequired Category = "required"
	// CategoryFormat covers date and postal code formats.
	CategoryFormat Category = "format"
	// CategoryTerminology covers code shapes and code system membership.
	CategoryTerminology Category = "terminology"
	// CategoryReference covers reference integrity inside the bundle.
	CategoryReference Category = "reference"
	// CategoryInvariant covers FHIRPath expressions from custom catalogs.
	CategoryInvariant Category = "invariant"
)

// Categories lists the categories in the order the pipeline runs them.
var Categories = []Category{
	CategoryStructure,
	CategoryProfile,
	CategoryRequired,
	CategoryFormat,
	CategoryTerminology,
	CategoryReference,
	CategoryInvariant,
}

// ParseCategory converts a category name to a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Target identifies the resource a finding is about.
// Index is the entry position in the bundle, -1 for bundle-level findings.
type Target struct {
	ResourceType string `json:"resourceType,omitempty"`
	ID           string `json:"id,omitempty"`
	Index        int    `json:"index"`
}

// BundleTarget is the target of bundle-level findings.
var BundleTarget = Target{ResourceType: "Bundle", Index: -1}

// String returns "Type/id", falling back to the entry index when the
// resource has no id.
func (t Target) String() string {
	if t.Index < 0 {
		return "Bundle"
	}
	if t.ID != "" {
		return t.ResourceType + "/" + t.ID
	}
	return t.ResourceType + " (entry " + strconv.Itoa(t.Index) + ")"
}

// Finding is one evaluated check instance. Findings are values and are not
// modified after they are built.
type Finding struct {
	// CheckID is the catalog identifier of the check (e.g. "person-birthdate")
	CheckID string `json:"checkId"`

	// Category of the check
	Category Category `json:"category"`

	// Severity of the outcome; SeverityPass when the check was satisfied
	Severity Severity `json:"severity"`

	// Target is the resource the check was evaluated on
	Target Target `json:"target"`

	// Path is the FHIR element path the finding refers to
	Path string `json:"path,omitempty"`

	// Message is a human-readable description
	Message string `json:"message"`
}

// IsPass returns true if the check was satisfied.
func (f Finding) IsPass() bool {
	return f.Severity == SeverityPass
}

// IsError returns true if this is an error finding.
func (f Finding) IsError() bool {
	return f.Severity == SeverityError
}

// IsWarning returns true if this is a warning finding.
func (f Finding) IsWarning() bool {
	return f.Severity == SeverityWarning
}

// String returns a human-readable representation of the finding.
func (f Finding) String() string {
	path := ""
	if f.Path != "" {
		path = " at " + f.Path
	}
	return string(f.Severity) + " [" + f.CheckID + "] " + f.Target.String() + ": " + f.Message + path
}

// FindingBuilder provides a fluent API for building findings.
type FindingBuilder struct {
	finding Finding
}

// NewFinding creates a new FindingBuilder.
func NewFinding(checkID string, category Category, severity Severity) *FindingBuilder {
	return &FindingBuilder{
		finding: Finding{
			CheckID:  checkID,
			Category: category,
			Severity: severity,
			Target:   BundleTarget,
		},
	}
}

// On sets the target resource.
func (b *FindingBuilder) On(target Target) *FindingBuilder {
	b.finding.Target = target
	return b
}

// At sets the element path.
func (b *FindingBuilder) At(path string) *FindingBuilder {
	b.finding.Path = path
	return b
}

// Message sets the message.
func (b *FindingBuilder) Message(msg string) *FindingBuilder {
	b.finding.Message = msg
	return b
}

// Build returns the constructed finding.
func (b *FindingBuilder) Build() Finding {
	return b.finding
}
