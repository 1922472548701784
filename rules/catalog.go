package rules

import (
	"fmt"

	mq "github.com/gofhir/miiquality"
)

// Catalog is an ordered, id-unique list of rules. The position of a rule is
// its catalog order, used to sort findings of the same resource.
type Catalog struct {
	rules []*Rule
	index map[string]int
}

// NewCatalog creates a catalog from rules. Duplicate ids are an error.
func NewCatalog(rules ...*Rule) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(rules))}
	if err := c.Add(rules...); err != nil {
		return nil, err
	}
	return c, nil
}

// Add appends rules to the catalog.
func (c *Catalog) Add(rules ...*Rule) error {
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return err
		}
		if _, dup := c.index[r.ID]; dup {
			return fmt.Errorf("duplicate check id %q", r.ID)
		}
		c.index[r.ID] = len(c.rules)
		c.rules = append(c.rules, r)
	}
	return nil
}

func validateRule(r *Rule) error {
	switch {
	case r == nil:
		return fmt.Errorf("rule is nil")
	case r.ID == "":
		return fmt.Errorf("rule has no id")
	case r.Check == nil:
		return fmt.Errorf("rule %q has no check", r.ID)
	}
	switch r.Severity {
	case mq.SeverityInformation, mq.SeverityWarning, mq.SeverityError:
	default:
		return fmt.Errorf("rule %q: invalid severity %q", r.ID, r.Severity)
	}
	return nil
}

// Rules returns the rules in catalog order. The slice must not be modified.
func (c *Catalog) Rules() []*Rule {
	return c.rules
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Get returns the rule with the given id.
func (c *Catalog) Get(id string) (*Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.rules[i], true
}

// Order returns the catalog position of a check id; unknown ids sort last.
func (c *Catalog) Order(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return len(c.rules)
}

// ByCategory returns the rules of one category, in catalog order.
func (c *Catalog) ByCategory(category mq.Category) []*Rule {
	var out []*Rule
	for _, r := range c.rules {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Filter returns a new catalog with the rules keep accepts, order kept.
func (c *Catalog) Filter(keep func(*Rule) bool) *Catalog {
	out := &Catalog{index: make(map[string]int)}
	for _, r := range c.rules {
		if keep(r) {
			out.index[r.ID] = len(out.rules)
			out.rules = append(out.rules, r)
		}
	}
	return out
}
