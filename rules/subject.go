package rules

import (
	"strings"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
	"github.com/gofhir/miiquality/profile"
	"github.com/gofhir/miiquality/terminology"
)

// BundleContext holds the per-bundle state shared by all subjects of one
// run. It is built once and only read afterwards.
type BundleContext struct {
	Bundle         *bundle.Bundle
	Classification profile.Classification

	// Terminology is nil when no code systems are configured
	Terminology *terminology.Catalog

	patientIDs map[string]bool
	byFullURL  map[string]*bundle.Entry
}

// NewBundleContext indexes b for reference lookups.
func NewBundleContext(b *bundle.Bundle, c profile.Classification, cat *terminology.Catalog) *BundleContext {
	bc := &BundleContext{
		Bundle:         b,
		Classification: c,
		Terminology:    cat,
		patientIDs:     make(map[string]bool),
		byFullURL:      make(map[string]*bundle.Entry),
	}
	for i := range b.Entries {
		e := &b.Entries[i]
		if e.Resource.Kind == bundle.KindPatient && e.Resource.ID != "" {
			bc.patientIDs[e.Resource.ID] = true
		}
		if e.FullURL != "" {
			if _, dup := bc.byFullURL[e.FullURL]; !dup {
				bc.byFullURL[e.FullURL] = e
			}
		}
	}
	return bc
}

// BundleSubject returns the subject for bundle-scoped rules.
func (bc *BundleContext) BundleSubject() *Subject {
	return &Subject{BundleContext: bc}
}

// EntrySubject returns the subject for the entry at index.
func (bc *BundleContext) EntrySubject(index int) *Subject {
	var a profile.Assignment
	if index < len(bc.Classification.Assignments) {
		a = bc.Classification.Assignments[index]
	} else {
		a = profile.Classify(bc.Bundle.Entries[index].Resource)
	}
	return &Subject{
		BundleContext: bc,
		Entry:         &bc.Bundle.Entries[index],
		Assignment:    a,
	}
}

// PatientRef is the result of resolving a reference that may point to a
// Patient.
type PatientRef struct {
	// Patient is true when the reference targets a Patient
	Patient bool
	// Resolved is true when that Patient is part of the bundle
	Resolved bool
	// ID is the referenced id, or the full URL if no id can be derived
	ID string
}

// ResolvePatient resolves ref against the bundle. Relative ("Patient/1"),
// absolute (".../Patient/1") and fullUrl ("urn:uuid:...") references are
// understood. hinted marks references whose element or type already says
// they target a Patient. A urn matching no entry fullUrl is reported as an
// unresolved Patient reference.
func (bc *BundleContext) ResolvePatient(ref string, hinted bool) PatientRef {
	// A reference to an entry fullUrl resolves to whatever that entry holds
	if e, ok := bc.byFullURL[ref]; ok {
		if e.Resource.Kind != bundle.KindPatient {
			return PatientRef{ID: e.Resource.ID}
		}
		return PatientRef{Patient: true, Resolved: true, ID: e.Resource.ID}
	}

	if id, ok := patientID(ref); ok {
		if bc.patientIDs[id] {
			return PatientRef{Patient: true, Resolved: true, ID: id}
		}
		for url, e := range bc.byFullURL {
			if e.Resource.Kind == bundle.KindPatient && strings.HasSuffix(url, "Patient/"+id) {
				return PatientRef{Patient: true, Resolved: true, ID: id}
			}
		}
		return PatientRef{Patient: true, ID: id}
	}

	// an unmatched urn can only point into the bundle, so it dangles
	if hinted || strings.HasPrefix(ref, "urn:uuid:") || strings.HasPrefix(ref, "urn:oid:") {
		return PatientRef{Patient: true, ID: ref}
	}
	return PatientRef{}
}

// patientID extracts the id from "Patient/<id>", ".../Patient/<id>" and
// their "/_history/<v>" forms.
func patientID(ref string) (string, bool) {
	if i := strings.Index(ref, "/_history/"); i >= 0 {
		ref = ref[:i]
	}
	var rest string
	switch {
	case strings.HasPrefix(ref, "Patient/"):
		rest = ref[len("Patient/"):]
	case strings.Contains(ref, "/Patient/"):
		rest = ref[strings.LastIndex(ref, "/Patient/")+len("/Patient/"):]
	default:
		return "", false
	}
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// Subject is what a rule is evaluated on: the bundle as a whole, or one
// entry with its module assignment.
type Subject struct {
	*BundleContext

	// Entry is nil for the bundle subject
	Entry *bundle.Entry

	Assignment profile.Assignment
}

// Resource returns the entry resource, nil for the bundle subject.
func (s *Subject) Resource() *bundle.Resource {
	if s.Entry == nil {
		return nil
	}
	return s.Entry.Resource
}

// Target returns the finding target of the subject.
func (s *Subject) Target() mq.Target {
	if s.Entry == nil {
		return mq.BundleTarget
	}
	return s.Entry.Target()
}
