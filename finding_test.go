package miiquality

import "testing"

func TestFinding_Predicates(t *testing.T) {
	tests := []struct {
		severity  Severity
		isPass    bool
		isError   bool
		isWarning bool
	}{
		{SeverityPass, true, false, false},
		{SeverityInformation, false, false, false},
		{SeverityWarning, false, false, true},
		{SeverityError, false, true, false},
	}

	for _, tt := range tests {
		f := Finding{Severity: tt.severity}
		if got := f.IsPass(); got != tt.isPass {
			t.Errorf("Finding{%s}.IsPass() = %v; want %v", tt.severity, got, tt.isPass)
		}
		if got := f.IsError(); got != tt.isError {
			t.Errorf("Finding{%s}.IsError() = %v; want %v", tt.severity, got, tt.isError)
		}
		if got := f.IsWarning(); got != tt.isWarning {
			t.Errorf("Finding{%s}.IsWarning() = %v; want %v", tt.severity, got, tt.isWarning)
		}
	}
}

func TestTarget_String(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{BundleTarget, "Bundle"},
		{Target{ResourceType: "Patient", ID: "p1", Index: 0}, "Patient/p1"},
		{Target{ResourceType: "Condition", Index: 3}, "Condition (entry 3)"},
	}

	for _, tt := range tests {
		if got := tt.target.String(); got != tt.want {
			t.Errorf("Target.String() = %q; want %q", got, tt.want)
		}
	}
}

func TestFindingBuilder(t *testing.T) {
	target := Target{ResourceType: "Patient", ID: "p1", Index: 0}
	f := NewFinding("person-birthdate", CategoryRequired, SeverityError).
		On(target).
		At("Patient.birthDate").
		Message("Required field 'birthDate' is missing or empty").
		Build()

	if f.CheckID != "person-birthdate" {
		t.Errorf("CheckID = %q; want %q", f.CheckID, "person-birthdate")
	}
	if f.Target != target {
		t.Errorf("Target = %+v; want %+v", f.Target, target)
	}
	want := "error [person-birthdate] Patient/p1: Required field 'birthDate' is missing or empty at Patient.birthDate"
	if got := f.String(); got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
}

func TestFindingBuilder_DefaultsToBundle(t *testing.T) {
	f := NewFinding("bundle-type", CategoryStructure, SeverityWarning).Build()
	if f.Target.Index != -1 {
		t.Errorf("Target.Index = %d; want -1", f.Target.Index)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		if got, ok := ParseCategory(string(c)); !ok || got != c {
			t.Errorf("ParseCategory(%q) = (%q, %v); want (%q, true)", c, got, ok, c)
		}
	}
	if _, ok := ParseCategory("Format"); ok {
		t.Error("ParseCategory(\"Format\") ok = true; want false")
	}
}
