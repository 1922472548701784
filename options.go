package miiquality

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Option configures the engine and batch runner.
type Option func(*Options)

// Options holds all configuration for an inspection run.
type Options struct {
	// Evaluation
	StrictMode         bool
	DisabledChecks     map[string]bool
	DisabledCategories map[Category]bool

	// Extra rule and terminology sources
	CatalogFile     string
	TerminologyFile string

	// Performance
	ParallelPhases      bool
	WorkerCount         int
	BundleTimeout       time.Duration
	ExpressionCacheSize int

	// Logging
	Logger zerolog.Logger
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		StrictMode:         false,
		DisabledChecks:     make(map[string]bool),
		DisabledCategories: make(map[Category]bool),

		ParallelPhases:      true,
		WorkerCount:         runtime.NumCPU(),
		BundleTimeout:       0, // no timeout
		ExpressionCacheSize: 256,

		Logger: zerolog.Nop(),
	}
}

// Apply returns the defaults with opts applied in order.
func Apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckEnabled reports whether a check with the given id and category runs.
func (o *Options) CheckEnabled(checkID string, category Category) bool {
	return !o.DisabledChecks[checkID] && !o.DisabledCategories[category]
}

// --- Evaluation Options ---

// WithStrictMode makes warnings fail a bundle.
func WithStrictMode(enable bool) Option {
	return func(o *Options) {
		o.StrictMode = enable
	}
}

// WithDisabledChecks turns off individual checks by id.
func WithDisabledChecks(ids ...string) Option {
	return func(o *Options) {
		for _, id := range ids {
			o.DisabledChecks[id] = true
		}
	}
}

// WithDisabledCategories turns off whole check categories.
func WithDisabledCategories(categories ...Category) Option {
	return func(o *Options) {
		for _, c := range categories {
			o.DisabledCategories[c] = true
		}
	}
}

// WithCatalogFile loads additional rules from a YAML catalog.
func WithCatalogFile(path string) Option {
	return func(o *Options) {
		o.CatalogFile = path
	}
}

// WithTerminologyFile loads an ICD-10-GM CodeSystem used to check that
// diagnosis codes exist.
func WithTerminologyFile(path string) Option {
	return func(o *Options) {
		o.TerminologyFile = path
	}
}

// --- Performance Options ---

// WithParallelPhases runs check categories concurrently within a bundle.
// Finding order does not depend on this setting.
func WithParallelPhases(enable bool) Option {
	return func(o *Options) {
		o.ParallelPhases = enable
	}
}

// WithWorkerCount sets the number of bundles processed concurrently.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithBundleTimeout bounds the time spent checking one bundle.
// Use 0 for no timeout.
func WithBundleTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.BundleTimeout = timeout
	}
}

// WithExpressionCache sets the compiled FHIRPath expression cache size.
func WithExpressionCache(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ExpressionCacheSize = size
		}
	}
}

// WithLogger sets the logger used by the engine and batch runner.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// --- Presets ---

// StrictOptions returns options for strict inspection: warnings fail a
// bundle and categories run one after another.
func StrictOptions() []Option {
	return []Option{
		WithStrictMode(true),
		WithParallelPhases(false),
	}
}
