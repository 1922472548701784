package profile

import (
	"testing"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
)

const (
	personProfile     = "https://www.medizininformatik-initiative.de/fhir/core/modul-person/StructureDefinition/Patient"
	fallProfile       = "https://www.medizininformatik-initiative.de/fhir/core/modul-fall/StructureDefinition/KontaktGesundheitseinrichtung"
	diagnoseProfile   = "https://www.medizininformatik-initiative.de/fhir/core/modul-diagnose/StructureDefinition/Diagnose"
	medikationProfile = "https://www.medizininformatik-initiative.de/fhir/core/modul-medikation/StructureDefinition/Medication"
)

func resource(resourceType string, profiles ...string) *bundle.Resource {
	return &bundle.Resource{
		Kind:     bundle.KindOf(resourceType),
		Type:     resourceType,
		Profiles: profiles,
		Fields:   map[string]any{"resourceType": resourceType},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		resource  *bundle.Resource
		module    mq.Module
		source    Source
		ambiguous bool
	}{
		{"patient by profile", resource("Patient", personProfile), mq.ModulePerson, SourceProfile, false},
		{"patient by type", resource("Patient"), mq.ModulePerson, SourceType, false},
		{"condition without profile", resource("Condition"), mq.ModuleDiagnose, SourceType, false},
		{"encounter by type", resource("Encounter"), mq.ModuleFall, SourceType, false},
		{"medication request by type", resource("MedicationRequest"), mq.ModuleMedikation, SourceType, false},
		{"medication administration by type", resource("MedicationAdministration"), mq.ModuleMedikation, SourceType, false},
		{"observation", resource("Observation"), mq.ModuleUnclassified, SourceNone, false},
		{"consent", resource("Consent"), mq.ModuleUnclassified, SourceNone, false},
		{"foreign profile falls back to type", resource("Patient", "http://hl7.org/fhir/StructureDefinition/Patient"), mq.ModulePerson, SourceType, false},
		{"explicit profile wins over type", resource("Observation", diagnoseProfile), mq.ModuleDiagnose, SourceProfile, false},
		{"ambiguous agrees with type", resource("Condition", personProfile, diagnoseProfile), mq.ModuleDiagnose, SourceProfile, true},
		{"ambiguous first declared", resource("Observation", fallProfile, personProfile), mq.ModuleFall, SourceProfile, true},
		{"same module twice", resource("Medication", medikationProfile, medikationProfile+"|2.0"), mq.ModuleMedikation, SourceProfile, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.resource)
			if got.Module != tt.module {
				t.Errorf("Module = %v; want %v", got.Module, tt.module)
			}
			if got.Source != tt.source {
				t.Errorf("Source = %v; want %v", got.Source, tt.source)
			}
			if got.Ambiguous != tt.ambiguous {
				t.Errorf("Ambiguous = %v; want %v", got.Ambiguous, tt.ambiguous)
			}
		})
	}
}

func TestDeclaredModules(t *testing.T) {
	got := DeclaredModules([]string{fallProfile, "http://example.org/x", personProfile, fallProfile})
	if len(got) != 2 || got[0] != mq.ModuleFall || got[1] != mq.ModulePerson {
		t.Errorf("DeclaredModules() = %v; want [fall person]", got)
	}
	if got := DeclaredModules(nil); len(got) != 0 {
		t.Errorf("DeclaredModules(nil) = %v; want empty", got)
	}
}

func TestAssignment_Declares(t *testing.T) {
	a := Classify(resource("Condition", personProfile, diagnoseProfile))
	if !a.Declares(mq.ModulePerson) || !a.Declares(mq.ModuleDiagnose) {
		t.Errorf("Declares() = false for declared modules %v", a.Declared)
	}
	if a.Declares(mq.ModuleFall) {
		t.Error("Declares(fall) = true; want false")
	}
	if !a.DeclaresMII() {
		t.Error("DeclaresMII() = false; want true")
	}
}

func TestDetect(t *testing.T) {
	b, err := bundle.ParseFile("../testdata/complete-bundle.json")
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	c := Detect(b)
	if len(c.Assignments) != b.Len() {
		t.Fatalf("len(Assignments) = %d; want %d", len(c.Assignments), b.Len())
	}

	want := []mq.Module{mq.ModulePerson, mq.ModuleFall, mq.ModuleDiagnose, mq.ModuleMedikation, mq.ModuleMedikation}
	for i, m := range want {
		if got := c.Module(i); got != m {
			t.Errorf("Module(%d) = %v; want %v", i, got, m)
		}
	}
	if got := c.Module(99); got != mq.ModuleUnclassified {
		t.Errorf("Module(99) = %v; want unclassified", got)
	}

	modules := c.Modules()
	if len(modules) != 4 {
		t.Errorf("Modules() = %v; want all four", modules)
	}
	if c.Count(mq.ModuleMedikation) != 2 {
		t.Errorf("Count(medikation) = %d; want 2", c.Count(mq.ModuleMedikation))
	}
	if c.Unclassified() != 0 {
		t.Errorf("Unclassified() = %d; want 0", c.Unclassified())
	}
	if !c.DeclaresMII() {
		t.Error("DeclaresMII() = false; want true")
	}
}

func TestDetect_CanonicalOrder(t *testing.T) {
	b := &bundle.Bundle{Entries: []bundle.Entry{
		{Index: 0, Resource: resource("MedicationStatement")},
		{Index: 1, Resource: resource("Observation")},
		{Index: 2, Resource: resource("Patient")},
	}}

	c := Detect(b)
	modules := c.Modules()
	if len(modules) != 2 || modules[0] != mq.ModulePerson || modules[1] != mq.ModuleMedikation {
		t.Errorf("Modules() = %v; want [person medikation]", modules)
	}
	if c.Unclassified() != 1 {
		t.Errorf("Unclassified() = %d; want 1", c.Unclassified())
	}
	if c.DeclaresMII() {
		t.Error("DeclaresMII() = true; want false")
	}
}
