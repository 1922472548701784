// Package pipeline runs the rule catalog over one bundle.
//
// Each check category is a phase. Phases are grouped by priority; phases of
// a group may run concurrently. Findings are sorted afterwards, so the
// report does not depend on the execution mode.
package pipeline

import (
	"sync"

	"github.com/gofhir/miiquality/rules"
)

// Context holds all state needed while checking a single bundle. It is
// passed to every phase and is read-only once built.
//
// Context instances are pooled. Use AcquireContext() and Release() to
// manage them.
type Context struct {
	// Bundle is the indexed bundle with its classification
	Bundle *rules.BundleContext

	// subjects holds the bundle subject followed by one subject per entry
	subjects []*rules.Subject
}

// contextPool holds reusable Context instances.
var contextPool = sync.Pool{
	New: func() any {
		return &Context{
			subjects: make([]*rules.Subject, 0, 32),
		}
	},
}

// AcquireContext gets a Context for bc from the pool.
// Call Release() when done to return it to the pool.
func AcquireContext(bc *rules.BundleContext) *Context {
	ctx := contextPool.Get().(*Context)
	ctx.Reset()
	ctx.init(bc)
	return ctx
}

// NewContext creates a new Context (non-pooled).
func NewContext(bc *rules.BundleContext) *Context {
	ctx := &Context{}
	ctx.init(bc)
	return ctx
}

func (c *Context) init(bc *rules.BundleContext) {
	c.Bundle = bc
	c.subjects = append(c.subjects, bc.BundleSubject())
	for i := range bc.Bundle.Entries {
		c.subjects = append(c.subjects, bc.EntrySubject(i))
	}
}

// Release returns the Context to the pool.
// After calling Release, the Context should not be used.
func (c *Context) Release() {
	if c == nil {
		return
	}
	// Don't keep contexts of very large bundles
	if cap(c.subjects) <= 4096 {
		c.Reset()
		contextPool.Put(c)
	}
}

// Reset clears the context for reuse.
func (c *Context) Reset() {
	c.Bundle = nil
	for i := range c.subjects {
		c.subjects[i] = nil
	}
	c.subjects = c.subjects[:0]
}

// Subjects returns the bundle subject followed by the entry subjects in
// entry order.
func (c *Context) Subjects() []*rules.Subject {
	return c.subjects
}

// EntryCount returns the number of entries of the bundle.
func (c *Context) EntryCount() int {
	if len(c.subjects) == 0 {
		return 0
	}
	return len(c.subjects) - 1
}
