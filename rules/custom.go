package rules

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofhir/fhirpath"
	"gopkg.in/yaml.v3"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
	"github.com/gofhir/miiquality/cache"
)

// CatalogFile is the YAML document of a custom rule catalog.
//
//	rules:
//	  - id: person-telecom
//	    module: person
//	    resourceType: Patient
//	    severity: warning
//	    required: telecom
//	  - id: fall-identifier-system
//	    module: fall
//	    expression: identifier.all(system.exists())
//	    path: Encounter.identifier
type CatalogFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec declares one custom rule. Exactly one of Required and
// Expression must be set.
type RuleSpec struct {
	ID           string `yaml:"id"`
	Module       string `yaml:"module,omitempty"`
	ResourceType string `yaml:"resourceType,omitempty"`
	Severity     string `yaml:"severity,omitempty"`
	Description  string `yaml:"description,omitempty"`

	// Required is an element path that must be present
	Required string `yaml:"required,omitempty"`

	// Expression is a FHIRPath expression that must hold
	Expression string `yaml:"expression,omitempty"`

	// Path and Message describe a failing expression
	Path    string `yaml:"path,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// LoadCatalogFile reads custom rules from a YAML file.
func LoadCatalogFile(path string, compiler *Compiler) ([]*Rule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to read rule catalog: %w", err)
	}
	rules, err := ParseCatalog(data, compiler)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseCatalog parses custom rules from YAML. FHIRPath expressions are
// compiled here so that broken catalogs fail before any bundle is checked.
func ParseCatalog(data []byte, compiler *Compiler) ([]*Rule, error) {
	var file CatalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("invalid rule catalog: %w", err)
	}

	rules := make([]*Rule, 0, len(file.Rules))
	for i := range file.Rules {
		r, err := file.Rules[i].build(compiler)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (spec *RuleSpec) build(compiler *Compiler) (*Rule, error) {
	if spec.ID == "" {
		return nil, errors.New("id is required")
	}

	r := &Rule{
		ID:          spec.ID,
		Severity:    mq.SeverityError,
		Description: spec.Description,
	}

	if spec.Module != "" {
		m, ok := mq.ParseModule(spec.Module)
		if !ok {
			return nil, fmt.Errorf("rule %q: unknown module %q", spec.ID, spec.Module)
		}
		r.Modules = []mq.Module{m}
	}
	if spec.ResourceType != "" {
		r.ResourceTypes = []string{spec.ResourceType}
		if k := bundle.KindOf(spec.ResourceType); k != bundle.KindOther {
			r.Kinds = []bundle.Kind{k}
		}
	}

	if spec.Severity != "" {
		r.Severity = mq.Severity(strings.ToLower(spec.Severity))
	}
	switch r.Severity {
	case mq.SeverityInformation, mq.SeverityWarning, mq.SeverityError:
	default:
		return nil, fmt.Errorf("rule %q: invalid severity %q", spec.ID, spec.Severity)
	}

	switch {
	case spec.Required != "" && spec.Expression != "":
		return nil, fmt.Errorf("rule %q: required and expression are mutually exclusive", spec.ID)
	case spec.Required != "":
		r.Category = mq.CategoryRequired
		r.Check = RequireField(spec.Required)
		if r.Description == "" {
			r.Description = spec.Required + " is present"
		}
	case spec.Expression != "":
		if compiler == nil {
			return nil, fmt.Errorf("rule %q: no FHIRPath compiler configured", spec.ID)
		}
		if _, err := compiler.Compile(spec.Expression); err != nil {
			return nil, fmt.Errorf("rule %q: invalid expression: %w", spec.ID, err)
		}
		r.Category = mq.CategoryInvariant
		r.Check = Invariant(compiler, spec.ID, spec.Expression, spec.Path, spec.Message)
		if r.Description == "" {
			r.Description = spec.Expression
		}
	default:
		return nil, fmt.Errorf("rule %q: one of required or expression is needed", spec.ID)
	}

	return r, nil
}

// Compiler compiles FHIRPath expressions and keeps them in an LRU cache.
type Compiler struct {
	cache    *cache.Cache[string, *fhirpath.Expression]
	onLookup func(hit bool)
}

// NewCompiler creates a compiler caching up to size expressions.
// onLookup, if not nil, is called for every cache lookup.
func NewCompiler(size int, onLookup func(hit bool)) *Compiler {
	return &Compiler{
		cache:    cache.New[string, *fhirpath.Expression](size),
		onLookup: onLookup,
	}
}

// Compile returns the compiled form of expr.
func (c *Compiler) Compile(expr string) (*fhirpath.Expression, error) {
	compiled, hit, err := c.cache.GetOrLoad(expr, func() (*fhirpath.Expression, error) {
		return fhirpath.Compile(expr)
	})
	if c.onLookup != nil {
		c.onLookup(hit)
	}
	return compiled, err
}

// Stats returns the expression cache statistics.
func (c *Compiler) Stats() cache.Stats {
	return c.cache.Stats()
}

// Invariant returns a check that the FHIRPath expression holds on the
// resource. An empty result counts as satisfied, as does a non-boolean
// non-empty result.
func Invariant(compiler *Compiler, id, expr, path, message string) CheckFunc {
	return func(s *Subject) ([]Outcome, error) {
		compiled, err := compiler.Compile(expr)
		if err != nil {
			return nil, err
		}
		r := s.Resource()
		data, err := r.JSON()
		if err != nil {
			return nil, err
		}
		result, err := compiled.Evaluate(data)
		if err != nil {
			return nil, err
		}

		elementPath := path
		if elementPath == "" {
			elementPath = r.Type
		}
		if invariantHolds(result) {
			return []Outcome{Pass(elementPath, "invariant "+id+" holds")}, nil
		}
		msg := message
		if msg == "" {
			msg = fmt.Sprintf("invariant %s failed: %s", id, expr)
		}
		return []Outcome{Fail(elementPath, msg)}, nil
	}
}

func invariantHolds(result fhirpath.Collection) bool {
	if result.Empty() {
		return true
	}
	b, err := result.ToBoolean()
	if err != nil {
		return true
	}
	return b
}
