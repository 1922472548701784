package rules

import (
	"fmt"
	"strings"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
	"github.com/gofhir/miiquality/fieldpath"
	"github.com/gofhir/miiquality/profile"
	"github.com/gofhir/miiquality/terminology"
)

// RequireField returns a check that the element at field is present and
// not empty.
func RequireField(field string) CheckFunc {
	return func(s *Subject) ([]Outcome, error) {
		r := s.Resource()
		path := r.Path(field)
		if r.Has(field) {
			return []Outcome{Pass(path, path+" is present")}, nil
		}
		return []Outcome{Fail(path, "required element "+path+" is missing")}, nil
	}
}

// RequireOneOf returns a check that at least one of the choice elements is
// present, e.g. medicationCodeableConcept or medicationReference.
func RequireOneOf(label string, fields ...string) CheckFunc {
	return func(s *Subject) ([]Outcome, error) {
		r := s.Resource()
		path := r.Path(label)
		for _, field := range fields {
			if r.Has(field) {
				return []Outcome{Pass(path, path+" is present")}, nil
			}
		}
		return []Outcome{Fail(path, "required element "+path+" is missing")}, nil
	}
}

// FieldFormat returns a check of the string element at field against valid.
// The rule does not apply when the element is absent.
func FieldFormat(field, typeName string, valid func(string) bool) CheckFunc {
	return func(s *Subject) ([]Outcome, error) {
		r := s.Resource()
		if !r.Has(field) {
			return nil, nil
		}
		value, err := r.String(field)
		if err != nil {
			return nil, err
		}
		path := r.Path(field)
		if valid(value) {
			return []Outcome{Pass(path, path+" is a valid "+typeName)}, nil
		}
		return []Outcome{Fail(path, fmt.Sprintf("%s %q is not a valid FHIR %s", path, value, typeName))}, nil
	}
}

// FieldsFormat checks each present field of a list with FieldFormat.
func FieldsFormat(typeName string, valid func(string) bool, fields ...string) CheckFunc {
	checks := make([]CheckFunc, len(fields))
	for i, field := range fields {
		checks[i] = FieldFormat(field, typeName, valid)
	}
	return func(s *Subject) ([]Outcome, error) {
		var out []Outcome
		for _, check := range checks {
			outcomes, err := check(s)
			if err != nil {
				return nil, err
			}
			out = append(out, outcomes...)
		}
		return out, nil
	}
}

// CodeIn returns a check that the code at field is one of allowed.
func CodeIn(field string, allowed ...string) CheckFunc {
	set := make(map[string]bool, len(allowed))
	for _, code := range allowed {
		set[code] = true
	}
	return func(s *Subject) ([]Outcome, error) {
		r := s.Resource()
		if !r.Has(field) {
			return nil, nil
		}
		value, err := r.String(field)
		if err != nil {
			return nil, err
		}
		path := r.Path(field)
		if set[value] {
			return []Outcome{Pass(path, path+" is a known code")}, nil
		}
		return []Outcome{Fail(path, fmt.Sprintf("%s %q is not one of %s", path, value, strings.Join(allowed, ", ")))}, nil
	}
}

// DeclaresProfile returns a check that the resource declares a profile of
// module m.
func DeclaresProfile(m mq.Module) CheckFunc {
	return func(s *Subject) ([]Outcome, error) {
		path := s.Resource().Path("meta.profile")
		if s.Assignment.Declares(m) {
			return []Outcome{Pass(path, "MII "+m.Canonical()+" profile declared")}, nil
		}
		return []Outcome{Fail(path, "missing MII "+m.Canonical()+" profile")}, nil
	}
}

// checkProfileTypeMatch reports a declared MII profile whose module
// disagrees with the module of the resourceType.
func checkProfileTypeMatch(s *Subject) ([]Outcome, error) {
	a := s.Assignment
	r := s.Resource()
	byType := profile.TypeModule(r.Kind)
	if !a.DeclaresMII() || byType == mq.ModuleUnclassified {
		return nil, nil
	}
	path := r.Path("meta.profile")
	if a.Module == byType {
		return []Outcome{Pass(path, fmt.Sprintf("declared %s profile fits %s", byType, r.Type))}, nil
	}
	return []Outcome{Fail(path, fmt.Sprintf("%s declares a %s profile but belongs to module %s",
		r.Type, a.Module, byType))}, nil
}

func checkProfileUnambiguous(s *Subject) ([]Outcome, error) {
	a := s.Assignment
	if !a.DeclaresMII() {
		return nil, nil
	}
	path := s.Resource().Path("meta.profile")
	if !a.Ambiguous {
		return []Outcome{Pass(path, "profiles of a single MII module declared")}, nil
	}
	names := make([]string, len(a.Declared))
	for i, m := range a.Declared {
		names[i] = m.String()
	}
	return []Outcome{Fail(path, fmt.Sprintf("profiles of several MII modules declared (%s); classified as %s",
		strings.Join(names, ", "), a.Module))}, nil
}

// --- Bundle checks ---

var bundleTypes = []string{"transaction", "collection", "batch", "document", "message"}

func checkBundleType(s *Subject) ([]Outcome, error) {
	const path = "Bundle.type"
	t := s.Bundle.Type
	if t == "" {
		return []Outcome{Fail(path, "Bundle.type is missing")}, nil
	}
	if containsString(bundleTypes, t) {
		return []Outcome{Pass(path, fmt.Sprintf("bundle type %q", t))}, nil
	}
	return []Outcome{Fail(path, fmt.Sprintf("unusual bundle type %q, expected one of %s", t, strings.Join(bundleTypes, ", ")))}, nil
}

func checkBundleMIIProfiles(s *Subject) ([]Outcome, error) {
	const path = "Bundle.entry.resource.meta.profile"
	if s.Classification.DeclaresMII() {
		return []Outcome{Pass(path, "MII profiles declared")}, nil
	}
	return []Outcome{Fail(path, "no MII profiles detected in bundle")}, nil
}

func checkBundleUniqueIDs(s *Subject) ([]Outcome, error) {
	seen := make(map[string][]int)
	var keys []string
	for i := range s.Bundle.Entries {
		r := s.Bundle.Entries[i].Resource
		if r.ID == "" {
			continue
		}
		key := r.Type + "/" + r.ID
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
		seen[key] = append(seen[key], i)
	}

	var out []Outcome
	for _, key := range keys {
		entries := seen[key]
		if len(entries) < 2 {
			continue
		}
		positions := make([]string, len(entries))
		for i, idx := range entries {
			positions[i] = fmt.Sprint(idx)
		}
		path := fieldpath.Index("Bundle.entry", entries[1])
		out = append(out, Fail(path, fmt.Sprintf("duplicate resource %s in entries %s", key, strings.Join(positions, ", "))))
	}
	if len(out) == 0 {
		out = append(out, Pass("Bundle.entry", "resource ids are unique"))
	}
	return out, nil
}

// --- Person ---

func checkPostalCodes(s *Subject) ([]Outcome, error) {
	r := s.Resource()
	addresses, err := r.Objects("address")
	if err != nil {
		return nil, err
	}

	var out []Outcome
	for i, addr := range addresses {
		postal, err := fieldpath.String(addr, "postalCode")
		if err != nil {
			return nil, err
		}
		country, err := fieldpath.String(addr, "country")
		if err != nil {
			return nil, err
		}
		if postal == "" || !IsGermanAddress(country) {
			continue
		}
		path := fieldpath.Build(func(b *fieldpath.Builder) {
			b.Append(r.Type, "address")
			b.AppendIndex(i)
			b.Append("postalCode")
		})
		if ValidGermanPostalCode(postal) {
			out = append(out, Pass(path, "valid German postal code"))
		} else {
			out = append(out, Fail(path, fmt.Sprintf("invalid German postal code %q", postal)))
		}
	}
	return out, nil
}

// --- Fall ---

func checkPeriodOrder(s *Subject) ([]Outcome, error) {
	r := s.Resource()
	start, err := r.String("period.start")
	if err != nil {
		return nil, err
	}
	end, err := r.String("period.end")
	if err != nil {
		return nil, err
	}
	if start == "" || end == "" {
		return nil, nil
	}
	startTime, ok1 := ParseDateTime(start)
	endTime, ok2 := ParseDateTime(end)
	if !ok1 || !ok2 {
		// reported by the format checks
		return nil, nil
	}
	path := r.Path("period")
	if endTime.Before(startTime) {
		return []Outcome{Fail(path, fmt.Sprintf("period end %s is before start %s", end, start))}, nil
	}
	return []Outcome{Pass(path, "period end is not before start")}, nil
}

// --- Diagnose ---

type icdCoding struct {
	path    string
	code    string
	version string
	system  string
}

func icdCodings(s *Subject) ([]icdCoding, error) {
	r := s.Resource()
	codings, err := r.Objects("code.coding")
	if err != nil {
		return nil, err
	}

	var out []icdCoding
	for i, coding := range codings {
		system, err := fieldpath.String(coding, "system")
		if err != nil {
			return nil, err
		}
		if !terminology.IsICD10GM(system) {
			continue
		}
		code, err := fieldpath.String(coding, "code")
		if err != nil {
			return nil, err
		}
		version, err := fieldpath.String(coding, "version")
		if err != nil {
			return nil, err
		}
		out = append(out, icdCoding{
			path: fieldpath.Build(func(b *fieldpath.Builder) {
				b.Append(r.Type, "code", "coding")
				b.AppendIndex(i)
			}),
			code:    code,
			version: version,
			system:  system,
		})
	}
	return out, nil
}

func checkICDFormat(s *Subject) ([]Outcome, error) {
	codings, err := icdCodings(s)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome, 0, len(codings))
	for _, c := range codings {
		path := c.path + ".code"
		switch {
		case c.code == "":
			out = append(out, Fail(path, "ICD-10-GM coding without code"))
		case terminology.ValidICD10GMCode(c.code):
			out = append(out, Pass(path, fmt.Sprintf("valid ICD-10-GM code %s", c.code)))
		default:
			out = append(out, Fail(path, fmt.Sprintf("invalid ICD-10-GM code format: %s", c.code)))
		}
	}
	return out, nil
}

func checkICDVersion(s *Subject) ([]Outcome, error) {
	codings, err := icdCodings(s)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome, 0, len(codings))
	for _, c := range codings {
		path := c.path + ".version"
		if strings.TrimSpace(c.version) != "" {
			out = append(out, Pass(path, "ICD-10-GM version "+c.version))
		} else {
			out = append(out, Fail(path, fmt.Sprintf("ICD-10-GM version not specified for code %s", c.code)))
		}
	}
	return out, nil
}

func checkICDKnown(s *Subject) ([]Outcome, error) {
	if s.Terminology == nil {
		return nil, nil
	}
	codings, err := icdCodings(s)
	if err != nil {
		return nil, err
	}
	var out []Outcome
	for _, c := range codings {
		if !terminology.ValidICD10GMCode(c.code) {
			continue
		}
		known, loaded := s.Terminology.Contains(c.system, c.code)
		if !loaded {
			continue
		}
		path := c.path + ".code"
		if known {
			out = append(out, Pass(path, fmt.Sprintf("ICD-10-GM code %s is defined", c.code)))
			continue
		}
		msg := fmt.Sprintf("ICD-10-GM code %s is not defined in the loaded code system", c.code)
		if v := s.Terminology.Version(c.system); v != "" {
			msg = fmt.Sprintf("ICD-10-GM code %s is not defined in version %s", c.code, v)
		}
		out = append(out, Fail(path, msg))
	}
	return out, nil
}

// --- References ---

// patientElements are the elements whose references are checked.
var patientElements = []string{"subject", "patient"}

// subjectIsPatient reports whether the MII profiles of kind require the
// subject to be a Patient.
func subjectIsPatient(kind bundle.Kind) bool {
	return kind == bundle.KindEncounter || kind == bundle.KindCondition || kind.IsMedication()
}

func checkPatientReferences(s *Subject) ([]Outcome, error) {
	r := s.Resource()
	var out []Outcome
	for _, element := range patientElements {
		refs, err := r.Objects(element)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			reference, err := fieldpath.String(ref, "reference")
			if err != nil {
				return nil, err
			}
			if reference == "" {
				continue
			}
			refType, err := fieldpath.String(ref, "type")
			if err != nil {
				return nil, err
			}
			hinted := element == "patient" || refType == "Patient" ||
				(element == "subject" && subjectIsPatient(r.Kind))

			resolved := s.ResolvePatient(reference, hinted)
			if !resolved.Patient {
				continue
			}
			path := r.Path(element)
			if resolved.Resolved {
				out = append(out, Pass(path, fmt.Sprintf("reference %s resolves to Patient %s", reference, resolved.ID)))
			} else {
				out = append(out, Fail(path, fmt.Sprintf("referenced Patient %s is not contained in the bundle", resolved.ID)))
			}
		}
	}
	return out, nil
}
