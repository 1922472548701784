package terminology

import (
	"sync"
	"testing"
)

func TestValidICD10GMCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"A01.1", true},
		{"E10.9", true},
		{"E10.90", true},
		{"E10", true},
		{"U07.1", true},
		{"C34.A1", true},
		{"Z999", false},
		{"1234", false},
		{"e10.9", false},
		{"E10.", false},
		{"E10.901", false},
		{"E1", false},
		{"", false},
		{" E10.9", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ValidICD10GMCode(tt.code); got != tt.want {
				t.Errorf("ValidICD10GMCode(%q) = %v; want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsICD10GM(t *testing.T) {
	tests := []struct {
		system string
		want   bool
	}{
		{ICD10GMSystem, true},
		{"http://fhir.de/CodeSystem/dimdi/icd-10-gm", true},
		{"http://fhir.de/CodeSystem/BfArM/ICD-10-GM", true},
		{"http://hl7.org/fhir/sid/icd-10", false},
		{"http://snomed.info/sct", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsICD10GM(tt.system); got != tt.want {
			t.Errorf("IsICD10GM(%q) = %v; want %v", tt.system, got, tt.want)
		}
	}
}

func TestCatalog_LoadFile(t *testing.T) {
	c := NewCatalog()
	stats, err := c.LoadFile("../testdata/icd10gm-sample.json")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if stats.CodeSystemsLoaded != 1 {
		t.Errorf("CodeSystemsLoaded = %d; want 1", stats.CodeSystemsLoaded)
	}
	if stats.CodesLoaded != 8 {
		t.Errorf("CodesLoaded = %d; want 8", stats.CodesLoaded)
	}

	tests := []struct {
		code  string
		known bool
	}{
		{"A01.1", true},
		{"E10.9", true},
		{"E10", true},
		{"E11.9", false},
		{"Z99.9", false},
	}
	for _, tt := range tests {
		known, loaded := c.Contains(ICD10GMSystem, tt.code)
		if !loaded {
			t.Fatalf("Contains(%q) loaded = false; want true", tt.code)
		}
		if known != tt.known {
			t.Errorf("Contains(%q) = %v; want %v", tt.code, known, tt.known)
		}
	}

	if v := c.Version(ICD10GMSystem); v != "2024" {
		t.Errorf("Version() = %q; want %q", v, "2024")
	}
	if d, ok := c.Display(ICD10GMSystem+"|2024", "A01.1"); !ok || d != "Paratyphus A" {
		t.Errorf("Display() = %q, %v; want %q, true", d, ok, "Paratyphus A")
	}
}

func TestCatalog_ContainsUnloaded(t *testing.T) {
	c := NewCatalog()
	known, loaded := c.Contains(ICD10GMSystem, "E10.9")
	if known || loaded {
		t.Errorf("Contains() on empty catalog = %v, %v; want false, false", known, loaded)
	}
	if c.Has(ICD10GMSystem) {
		t.Error("Has() = true on empty catalog")
	}
}

func TestCatalog_LoadJSONBundle(t *testing.T) {
	data := []byte(`{
		"resourceType": "Bundle",
		"entry": [
			{"resource": {"resourceType": "ValueSet", "url": "http://example.org/vs"}},
			{"resource": {"resourceType": "CodeSystem", "url": "http://example.org/cs-a",
				"concept": [{"code": "a1"}, {"code": "a2"}]}},
			{"resource": {"resourceType": "CodeSystem", "concept": [{"code": "orphan"}]}},
			{"resource": {"resourceType": "CodeSystem", "url": "http://example.org/cs-b",
				"concept": [{"code": "b1"}]}}
		]
	}`)

	c := NewCatalog()
	stats, err := c.LoadJSON(data)
	if err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if stats.CodeSystemsLoaded != 2 || stats.CodesLoaded != 3 || stats.Errors != 1 {
		t.Errorf("stats = %+v; want 2 systems, 3 codes, 1 error", stats)
	}

	systems := c.Systems()
	if len(systems) != 2 || systems[0] != "http://example.org/cs-a" {
		t.Errorf("Systems() = %v", systems)
	}
}

func TestCatalog_LoadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{`},
		{"unsupported", `{"resourceType": "Patient"}`},
		{"no url", `{"resourceType": "CodeSystem", "concept": []}`},
		{"empty bundle", `{"resourceType": "Bundle", "entry": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog().LoadJSON([]byte(tt.data)); err == nil {
				t.Error("LoadJSON() should return an error")
			}
		})
	}
}

func TestCatalog_AddCodes(t *testing.T) {
	c := NewCatalog()
	c.AddCodes("http://hl7.org/fhir/administrative-gender", map[string]string{
		"male":   "Male",
		"female": "Female",
	})

	if known, _ := c.Contains("http://hl7.org/fhir/administrative-gender", "female"); !known {
		t.Error("Contains(female) = false; want true")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCatalog_Concurrent(t *testing.T) {
	c := NewCatalog()
	if _, err := c.LoadFile("../testdata/icd10gm-sample.json"); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if known, _ := c.Contains(ICD10GMSystem, "E10.9"); !known {
				t.Error("Contains(E10.9) = false")
			}
		}()
	}
	wg.Wait()
}
