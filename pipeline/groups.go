package pipeline

import (
	"slices"
	"sort"
)

// PhaseGroup holds the phases of one priority.
type PhaseGroup struct {
	Priority PhasePriority
	Phases   []*PhaseConfig

	// Parallel is set when pipeline and every phase of the group allow
	// concurrent execution
	Parallel bool
}

// Names returns the phase names in execution order.
func (g *PhaseGroup) Names() []string {
	names := make([]string, len(g.Phases))
	for i, cfg := range g.Phases {
		names[i] = cfg.Phase.Name()
	}
	return names
}

// StandardGroups defines where each check category runs.
var StandardGroups = []struct {
	Priority PhasePriority
	Parallel bool
	Phases   []PhaseID
}{
	// Group 1: Bundle structure
	{
		Priority: PriorityFirst,
		Parallel: true,
		Phases:   []PhaseID{PhaseIDStructure},
	},

	// Group 2: Profile declarations
	{
		Priority: PriorityEarly,
		Parallel: true,
		Phases:   []PhaseID{PhaseIDProfile},
	},

	// Group 3: Per-field checks
	{
		Priority: PriorityNormal,
		Parallel: true,
		Phases:   []PhaseID{PhaseIDRequired, PhaseIDFormat, PhaseIDTerminology},
	},

	// Group 4: Cross-resource references
	{
		Priority: PriorityLate,
		Parallel: true,
		Phases:   []PhaseID{PhaseIDReference},
	},

	// Group 5: Custom FHIRPath invariants
	{
		Priority: PriorityLast,
		Parallel: true,
		Phases:   []PhaseID{PhaseIDInvariant},
	},
}

// StandardPriority returns the priority of the standard group holding id,
// PriorityNormal if none does.
func StandardPriority(id PhaseID) PhasePriority {
	for _, g := range StandardGroups {
		for _, p := range g.Phases {
			if p == id {
				return g.Priority
			}
		}
	}
	return PriorityNormal
}

// groupByPriority splits phases into groups of equal priority. Within a
// group phases are ordered by id.
func groupByPriority(phases []*PhaseConfig, parallel bool) []*PhaseGroup {
	phases = slices.Clone(phases)
	sort.Slice(phases, func(i, j int) bool {
		if phases[i].Priority != phases[j].Priority {
			return phases[i].Priority < phases[j].Priority
		}
		return phases[i].ID < phases[j].ID
	})

	var groups []*PhaseGroup
	for _, cfg := range phases {
		if n := len(groups); n == 0 || groups[n-1].Priority != cfg.Priority {
			groups = append(groups, &PhaseGroup{
				Priority: cfg.Priority,
				Parallel: parallel,
			})
		}
		g := groups[len(groups)-1]
		g.Phases = append(g.Phases, cfg)
		if !cfg.Parallel {
			g.Parallel = false
		}
	}
	return groups
}
