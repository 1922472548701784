// Package rules defines the quality check catalog.
//
// A Rule is plain data: an id, a category, the modules and resource kinds
// it applies to, the severity of a failure and a CheckFunc. Rules are kept
// in a Catalog whose order is the order findings are reported in.
package rules

import (
	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
	"github.com/gofhir/miiquality/profile"
)

// Scope tells whether a rule runs once per bundle or once per resource.
type Scope int

const (
	// ScopeResource rules run for every entry they apply to.
	ScopeResource Scope = iota
	// ScopeBundle rules run once per bundle.
	ScopeBundle
)

// String returns the scope name.
func (s Scope) String() string {
	if s == ScopeBundle {
		return "bundle"
	}
	return "resource"
}

// Outcome is the result of one inspected element.
type Outcome struct {
	Passed  bool
	Path    string
	Message string
}

// Pass returns a passing outcome.
func Pass(path, msg string) Outcome {
	return Outcome{Passed: true, Path: path, Message: msg}
}

// Fail returns a failing outcome.
func Fail(path, msg string) Outcome {
	return Outcome{Path: path, Message: msg}
}

// CheckFunc evaluates a rule on a subject. Returning no outcomes means the
// rule does not apply, e.g. because the optional element it checks is
// absent. A returned error is reported as a failed evaluation.
type CheckFunc func(s *Subject) ([]Outcome, error)

// Rule is one catalog entry.
type Rule struct {
	// ID is the stable check identifier, e.g. "person-birthdate"
	ID string `json:"id"`

	Category mq.Category `json:"category"`

	// Scope is ScopeResource unless the rule inspects the bundle as a whole
	Scope Scope `json:"-"`

	// Modules restricts the rule to resources assigned to these modules;
	// empty means every module, unclassified included
	Modules []mq.Module `json:"modules,omitempty"`

	// Kinds restricts the rule to these resource kinds; empty means any
	Kinds []bundle.Kind `json:"kinds,omitempty"`

	// ResourceTypes restricts the rule to these raw resourceTypes; empty
	// means any
	ResourceTypes []string `json:"resourceTypes,omitempty"`

	// Severity of a failing outcome
	Severity mq.Severity `json:"severity"`

	Description string `json:"description"`

	Check CheckFunc `json:"-"`
}

// Applies reports whether r runs on s. Bundle-scoped rules apply to the
// bundle subject only, resource-scoped rules to entry subjects matching
// their module and kind filters. The module filter accepts the assigned
// module as well as the module of the resourceType, so a resource declaring
// a foreign profile is still checked as what it is.
func (r *Rule) Applies(s *Subject) bool {
	if r.Scope == ScopeBundle {
		return s.Entry == nil
	}
	if s.Entry == nil {
		return false
	}

	res := s.Entry.Resource
	if len(r.Modules) > 0 &&
		!containsModule(r.Modules, s.Assignment.Module) &&
		!containsModule(r.Modules, profile.TypeModule(res.Kind)) {
		return false
	}

	if len(r.Kinds) > 0 && !containsKind(r.Kinds, res.Kind) {
		return false
	}
	if len(r.ResourceTypes) > 0 && !containsString(r.ResourceTypes, res.Type) {
		return false
	}
	return true
}

func containsModule(list []mq.Module, m mq.Module) bool {
	for _, item := range list {
		if item == m {
			return true
		}
	}
	return false
}

func containsKind(list []bundle.Kind, k bundle.Kind) bool {
	for _, item := range list {
		if item == k {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
