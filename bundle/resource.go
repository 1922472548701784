package bundle

import (
	"encoding/json"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/fieldpath"
)

// Kind is the resource variant the quality rules distinguish.
type Kind string

// Resource kinds. Every resourceType the rules do not know maps to KindOther.
const (
	KindPatient                  Kind = "Patient"
	KindEncounter                Kind = "Encounter"
	KindCondition                Kind = "Condition"
	KindMedication               Kind = "Medication"
	KindMedicationRequest        Kind = "MedicationRequest"
	KindMedicationStatement      Kind = "MedicationStatement"
	KindMedicationAdministration Kind = "MedicationAdministration"
	KindConsent                  Kind = "Consent"
	KindOther                    Kind = "Other"
)

// KindOf maps a resourceType to its Kind.
func KindOf(resourceType string) Kind {
	switch k := Kind(resourceType); k {
	case KindPatient, KindEncounter, KindCondition, KindMedication,
		KindMedicationRequest, KindMedicationStatement,
		KindMedicationAdministration, KindConsent:
		return k
	default:
		return KindOther
	}
}

// IsMedication reports whether k is one of the Medication* kinds.
func (k Kind) IsMedication() bool {
	switch k {
	case KindMedication, KindMedicationRequest, KindMedicationStatement, KindMedicationAdministration:
		return true
	default:
		return false
	}
}

// Resource is one entry resource. Fields holds the decoded JSON object
// verbatim, unknown elements included; numbers are json.Number.
type Resource struct {
	Kind     Kind
	Type     string
	ID       string
	Profiles []string
	Fields   map[string]any
}

// Get returns every value reachable via path.
func (r *Resource) Get(path string) []any {
	return fieldpath.Get(r.Fields, path)
}

// Has reports whether path yields a non-empty value.
func (r *Resource) Has(path string) bool {
	return fieldpath.Has(r.Fields, path)
}

// String returns the first value at path as a string.
func (r *Resource) String(path string) (string, error) {
	return fieldpath.String(r.Fields, path)
}

// Objects returns the objects at path.
func (r *Resource) Objects(path string) ([]map[string]any, error) {
	return fieldpath.Objects(r.Fields, path)
}

// Path returns the FHIR element path of a field, e.g. "Patient.birthDate".
func (r *Resource) Path(field string) string {
	return fieldpath.Join(r.Type, field)
}

// JSON returns the resource serialized as JSON.
func (r *Resource) JSON() ([]byte, error) {
	return json.Marshal(r.Fields)
}

// Entry is one Bundle.entry element.
type Entry struct {
	// Index is the 0-based position in Bundle.entry
	Index int

	// FullURL is entry.fullUrl, empty if absent
	FullURL string

	Resource *Resource
}

// Target returns the finding target for this entry.
func (e *Entry) Target() mq.Target {
	return mq.Target{
		ResourceType: e.Resource.Type,
		ID:           e.Resource.ID,
		Index:        e.Index,
	}
}
