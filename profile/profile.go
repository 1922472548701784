// Package profile assigns bundle resources to MII Kerndatensatz modules.
//
// A resource is classified by its declared meta.profile URIs first: a URI
// belongs to a module when it contains the module's canonical segment
// (e.g. "modul-person"). Resources without a matching profile fall back to
// their resourceType. Everything else is unclassified.
package profile

import (
	"strings"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
)

// Source tells how a module assignment was made.
type Source string

const (
	// SourceProfile means a declared meta.profile URI matched.
	SourceProfile Source = "profile"
	// SourceType means the resourceType fallback was used.
	SourceType Source = "type"
	// SourceNone means the resource is unclassified.
	SourceNone Source = "none"
)

// Assignment is the module decision for one resource.
type Assignment struct {
	Module mq.Module
	Source Source

	// Declared lists the modules matched by meta.profile, in declaration
	// order without duplicates
	Declared []mq.Module

	// Ambiguous is set when Declared holds more than one module
	Ambiguous bool
}

// DeclaresMII reports whether the resource declares at least one MII profile.
func (a Assignment) DeclaresMII() bool {
	return len(a.Declared) > 0
}

// Declares reports whether the resource declares a profile of module m.
func (a Assignment) Declares(m mq.Module) bool {
	for _, d := range a.Declared {
		if d == m {
			return true
		}
	}
	return false
}

// Classify assigns a single resource to a module. The declared profile wins
// over the resourceType. When profiles of several modules are declared, the
// one agreeing with the resourceType wins, otherwise the first declared.
func Classify(r *bundle.Resource) Assignment {
	declared := DeclaredModules(r.Profiles)
	byType := TypeModule(r.Kind)

	switch {
	case len(declared) == 1:
		return Assignment{Module: declared[0], Source: SourceProfile, Declared: declared}
	case len(declared) > 1:
		chosen := declared[0]
		for _, m := range declared {
			if m == byType {
				chosen = m
				break
			}
		}
		return Assignment{Module: chosen, Source: SourceProfile, Declared: declared, Ambiguous: true}
	case byType != mq.ModuleUnclassified:
		return Assignment{Module: byType, Source: SourceType}
	default:
		return Assignment{Module: mq.ModuleUnclassified, Source: SourceNone}
	}
}

// DeclaredModules returns the MII modules the profile URIs refer to, in
// declaration order without duplicates.
func DeclaredModules(profiles []string) []mq.Module {
	var out []mq.Module
	seen := make(map[mq.Module]bool, len(mq.Modules))
	for _, uri := range profiles {
		for _, m := range mq.Modules {
			if seen[m] || !strings.Contains(uri, m.Canonical()) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// TypeModule returns the module implied by a resource kind alone.
func TypeModule(kind bundle.Kind) mq.Module {
	switch {
	case kind == bundle.KindPatient:
		return mq.ModulePerson
	case kind == bundle.KindEncounter:
		return mq.ModuleFall
	case kind == bundle.KindCondition:
		return mq.ModuleDiagnose
	case kind.IsMedication():
		return mq.ModuleMedikation
	default:
		return mq.ModuleUnclassified
	}
}

// Classification holds the assignment of every entry of one bundle,
// indexed by entry position.
type Classification struct {
	Assignments []Assignment
}

// Detect classifies every entry of b. It never fails.
func Detect(b *bundle.Bundle) Classification {
	c := Classification{Assignments: make([]Assignment, len(b.Entries))}
	for i := range b.Entries {
		c.Assignments[i] = Classify(b.Entries[i].Resource)
	}
	return c
}

// Module returns the module of the entry at index, Unclassified when the
// index is out of range.
func (c Classification) Module(index int) mq.Module {
	if index < 0 || index >= len(c.Assignments) {
		return mq.ModuleUnclassified
	}
	return c.Assignments[index].Module
}

// Modules lists the MII modules present in the bundle, in canonical order.
func (c Classification) Modules() []mq.Module {
	present := make(map[mq.Module]bool)
	for _, a := range c.Assignments {
		present[a.Module] = true
	}
	out := make([]mq.Module, 0, len(mq.Modules))
	for _, m := range mq.Modules {
		if present[m] {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of resources assigned to m.
func (c Classification) Count(m mq.Module) int {
	n := 0
	for _, a := range c.Assignments {
		if a.Module == m {
			n++
		}
	}
	return n
}

// Unclassified returns the number of resources matching no module.
func (c Classification) Unclassified() int {
	return c.Count(mq.ModuleUnclassified)
}

// DeclaresMII reports whether any resource declares an MII profile.
func (c Classification) DeclaresMII() bool {
	for _, a := range c.Assignments {
		if a.DeclaresMII() {
			return true
		}
	}
	return false
}
