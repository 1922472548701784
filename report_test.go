package miiquality

import "testing"

func finding(checkID string, severity Severity) Finding {
	return NewFinding(checkID, CategoryRequired, severity).
		On(Target{ResourceType: "Patient", ID: "p1", Index: 0}).
		Build()
}

func TestNewQualityReport_Counts(t *testing.T) {
	findings := []Finding{
		finding("person-identifier", SeverityPass),
		finding("person-name", SeverityPass),
		finding("person-gender", SeverityError),
		finding("person-postal-code", SeverityWarning),
		finding("diagnose-icd10gm-version", SeverityInformation),
	}
	r := NewQualityReport(BundleInfo{Source: "x.json", Type: "collection", EntryCount: 1}, findings, false)

	want := Counts{Pass: 2, Information: 1, Warning: 1, Error: 1}
	if r.Counts != want {
		t.Errorf("Counts = %+v; want %+v", r.Counts, want)
	}
	if r.ChecksApplicable != 5 {
		t.Errorf("ChecksApplicable = %d; want 5", r.ChecksApplicable)
	}
	if r.ChecksPassed != 2 {
		t.Errorf("ChecksPassed = %d; want 2", r.ChecksPassed)
	}
	if r.Score != 0.4 {
		t.Errorf("Score = %v; want 0.4", r.Score)
	}
	if r.Passed {
		t.Error("Passed = true; want false with an error finding")
	}
	if got := len(r.Issues()); got != 3 {
		t.Errorf("len(Issues()) = %d; want 3", got)
	}
	if got := len(r.Errors()); got != 1 {
		t.Errorf("len(Errors()) = %d; want 1", got)
	}
	if got := len(r.Warnings()); got != 1 {
		t.Errorf("len(Warnings()) = %d; want 1", got)
	}
}

func TestNewQualityReport_ScoreOneIffAllPass(t *testing.T) {
	allPass := []Finding{finding("a", SeverityPass), finding("b", SeverityPass)}
	r := NewQualityReport(BundleInfo{}, allPass, false)
	if r.Score != 1 {
		t.Errorf("Score = %v; want 1", r.Score)
	}

	for _, sev := range []Severity{SeverityInformation, SeverityWarning, SeverityError} {
		mixed := append([]Finding{}, allPass...)
		mixed = append(mixed, finding("c", sev))
		r := NewQualityReport(BundleInfo{}, mixed, false)
		if r.Score == 1 {
			t.Errorf("Score = 1 with a %s finding; want < 1", sev)
		}
	}
}

func TestNewQualityReport_NoChecks(t *testing.T) {
	r := NewQualityReport(BundleInfo{}, nil, false)
	if r.Score != 1 {
		t.Errorf("Score = %v; want 1 when nothing applies", r.Score)
	}
	if !r.Passed {
		t.Error("Passed = false; want true")
	}
}

func TestNewQualityReport_Strict(t *testing.T) {
	findings := []Finding{finding("a", SeverityPass), finding("b", SeverityWarning)}

	if r := NewQualityReport(BundleInfo{}, findings, false); !r.Passed {
		t.Error("Passed = false; want true without strict mode")
	}
	if r := NewQualityReport(BundleInfo{}, findings, true); r.Passed {
		t.Error("Passed = true; want false in strict mode")
	}
}

func TestNewQualityReport_CopiesInput(t *testing.T) {
	findings := []Finding{finding("a", SeverityPass)}
	types := map[string]int{"Patient": 1}
	r := NewQualityReport(BundleInfo{ResourceTypes: types}, findings, false)

	findings[0].Severity = SeverityError
	types["Patient"] = 7

	if r.Findings[0].Severity != SeverityPass {
		t.Error("report findings changed after assembly")
	}
	if r.ResourceTypes["Patient"] != 1 {
		t.Error("report resource types changed after assembly")
	}
}

func TestQualityReport_ScorePercent(t *testing.T) {
	r := &QualityReport{Score: 2.0 / 3.0}
	if got := r.ScorePercent(); got != 66.67 {
		t.Errorf("ScorePercent() = %v; want 66.67", got)
	}
}

func TestQualityReport_ByCheck(t *testing.T) {
	r := NewQualityReport(BundleInfo{}, []Finding{
		finding("a", SeverityPass),
		finding("b", SeverityError),
		finding("a", SeverityWarning),
	}, false)
	if got := len(r.ByCheck("a")); got != 2 {
		t.Errorf("len(ByCheck(a)) = %d; want 2", got)
	}
}
