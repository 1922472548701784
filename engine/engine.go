// Package engine provides the MII quality engine.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
	"github.com/gofhir/miiquality/cache"
	"github.com/gofhir/miiquality/pipeline"
	"github.com/gofhir/miiquality/profile"
	"github.com/gofhir/miiquality/rules"
	"github.com/gofhir/miiquality/terminology"
)

// Engine checks bundles against the rule catalog.
// It is safe for concurrent use; one Engine serves a whole batch.
type Engine struct {
	// Configuration
	options *mq.Options
	logger  zerolog.Logger

	// Rules
	catalog     *rules.Catalog
	terminology *terminology.Catalog
	compiler    *rules.Compiler

	// Pipeline
	pipe *pipeline.Pipeline

	// Metrics
	metrics *mq.Metrics
}

// New creates an Engine with the built-in catalog, extended by the custom
// catalog file and filtered by the disabled checks of opts.
func New(opts ...mq.Option) (*Engine, error) {
	options := mq.Apply(opts...)

	e := &Engine{
		options: options,
		logger:  options.Logger,
		metrics: mq.NewMetrics(),
	}

	e.compiler = rules.NewCompiler(options.ExpressionCacheSize, func(hit bool) {
		if hit {
			e.metrics.RecordCacheHit()
		} else {
			e.metrics.RecordCacheMiss()
		}
	})

	if err := e.loadCatalog(); err != nil {
		return nil, err
	}
	if err := e.loadTerminology(); err != nil {
		return nil, err
	}

	e.buildPipeline()

	e.logger.Debug().
		Int("checks", e.catalog.Len()).
		Int("phases", e.pipe.PhaseCount()).
		Bool("strict", options.StrictMode).
		Msg("engine ready")
	return e, nil
}

// loadCatalog builds the rule catalog from the defaults and the optional
// catalog file.
func (e *Engine) loadCatalog() error {
	all := rules.DefaultRules()

	if path := e.options.CatalogFile; path != "" {
		custom, err := rules.LoadCatalogFile(path, e.compiler)
		if err != nil {
			return fmt.Errorf("failed to load rule catalog: %w", err)
		}
		all = append(all, custom...)
		e.logger.Info().Str("file", path).Int("rules", len(custom)).Msg("custom rules loaded")
	}

	catalog, err := rules.NewCatalog(all...)
	if err != nil {
		return fmt.Errorf("invalid rule catalog: %w", err)
	}

	e.catalog = catalog.Filter(func(r *rules.Rule) bool {
		return e.options.CheckEnabled(r.ID, r.Category)
	})
	return nil
}

// loadTerminology loads the optional ICD-10-GM code system.
func (e *Engine) loadTerminology() error {
	path := e.options.TerminologyFile
	if path == "" {
		return nil
	}

	cat := terminology.NewCatalog()
	stats, err := cat.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load terminology: %w", err)
	}
	if stats.Errors > 0 {
		e.logger.Warn().Str("file", path).Int("skipped", stats.Errors).Msg("code systems skipped")
	}
	e.logger.Info().
		Str("file", path).
		Int("codeSystems", stats.CodeSystemsLoaded).
		Int("codes", stats.CodesLoaded).
		Msg("terminology loaded")
	if !cat.Has(terminology.ICD10GMSystem) {
		e.logger.Warn().Str("file", path).Msg("no ICD-10-GM code system loaded, diagnose codes are not looked up")
	}

	e.terminology = cat
	return nil
}

// buildPipeline constructs the pipeline based on options.
func (e *Engine) buildPipeline() {
	pipelineOpts := &pipeline.PipelineOptions{
		ParallelExecution: e.options.ParallelPhases,
		CollectMetrics:    true,
	}

	e.pipe = pipeline.NewStandardPipeline(e.catalog, pipelineOpts)
	e.pipe.SetMetrics(e.metrics)
}

// ProcessBundle reads, parses and checks the bundle file at path.
// Parse and structure errors are returned as *miiquality.ParseError and
// *miiquality.StructureError; no report is produced for them.
func (e *Engine) ProcessBundle(ctx context.Context, path string) (*mq.QualityReport, error) {
	start := time.Now()
	b, err := bundle.ParseFile(path)
	if err != nil {
		return nil, e.parseFailed(path, start, err)
	}
	return e.Check(ctx, b)
}

// ProcessBytes parses and checks a bundle held in memory.
func (e *Engine) ProcessBytes(ctx context.Context, data []byte, source string) (*mq.QualityReport, error) {
	start := time.Now()
	b, err := bundle.Parse(data, source)
	if err != nil {
		return nil, e.parseFailed(source, start, err)
	}
	return e.Check(ctx, b)
}

// ProcessReader parses and checks a bundle read from r.
func (e *Engine) ProcessReader(ctx context.Context, r io.Reader, source string) (*mq.QualityReport, error) {
	start := time.Now()
	b, err := bundle.Decode(r, source)
	if err != nil {
		return nil, e.parseFailed(source, start, err)
	}
	return e.Check(ctx, b)
}

func (e *Engine) parseFailed(source string, start time.Time, err error) error {
	e.metrics.RecordFailure(time.Since(start))
	e.logger.Warn().Str("source", source).Err(err).Msg("bundle rejected")
	return err
}

// Check runs the catalog on a parsed bundle. It fails only when ctx is
// cancelled or the bundle timeout expires.
func (e *Engine) Check(ctx context.Context, b *bundle.Bundle) (*mq.QualityReport, error) {
	start := time.Now()

	if e.options.BundleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.options.BundleTimeout)
		defer cancel()
	}

	classification := profile.Detect(b)
	bc := rules.NewBundleContext(b, classification, e.terminology)

	pctx := pipeline.AcquireContext(bc)
	findings, err := e.pipe.Execute(ctx, pctx)
	pctx.Release()

	duration := time.Since(start)
	if err != nil {
		e.metrics.RecordFailure(duration)
		e.logger.Warn().Str("source", b.Source).Err(err).Dur("duration", duration).Msg("bundle check interrupted")
		return nil, fmt.Errorf("%s: check interrupted: %w", b.Source, err)
	}

	report := mq.NewQualityReport(mq.BundleInfo{
		Source:        b.Source,
		Type:          b.Type,
		EntryCount:    b.Len(),
		ResourceTypes: b.ResourceTypes(),
		Modules:       classification.Modules(),
		Unclassified:  classification.Unclassified(),
	}, findings, e.options.StrictMode)

	e.metrics.RecordReport(duration, report)
	e.logger.Info().
		Str("source", report.Source).
		Float64("score", report.ScorePercent()).
		Int("findings", len(report.Findings)).
		Int("errors", report.Counts.Error).
		Dur("duration", duration).
		Msg("bundle checked")

	return report, nil
}

// Catalog returns the active rule catalog.
func (e *Engine) Catalog() *rules.Catalog {
	return e.catalog
}

// Terminology returns the loaded code systems, nil if none are configured.
func (e *Engine) Terminology() *terminology.Catalog {
	return e.terminology
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *mq.Metrics {
	return e.metrics
}

// Options returns the engine's options.
func (e *Engine) Options() *mq.Options {
	return e.options
}

// CompilerStats returns the FHIRPath expression cache statistics.
func (e *Engine) CompilerStats() cache.Stats {
	return e.compiler.Stats()
}
