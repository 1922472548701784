// Package miiquality inspects FHIR R4 Bundles against the quality
// expectations of the Medizininformatik-Initiative core data set
// (MII Kerndatensatz).
//
// The root package holds the shared vocabulary: findings, modules,
// options, quality reports and metrics. Parsing, profile detection and
// rule evaluation live in subpackages.
//
// # Quick Start
//
//	import (
//	    mq "github.com/gofhir/miiquality"
//	    "github.com/gofhir/miiquality/engine"
//	)
//
//	eng, err := engine.New(mq.WithStrictMode(false))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := eng.ProcessBundle(ctx, "patient-bundle.json")
//	if err != nil {
//	    log.Fatal(err) // *mq.ParseError or *mq.StructureError
//	}
//	for _, f := range report.Issues() {
//	    fmt.Println(f)
//	}
//
// # Modules
//
// Every entry resource is classified into one of the MII modules
// Person, Fall, Diagnose or Medikation. The meta.profile URIs decide
// first; the resourceType is the fallback.
//
// # Checks
//
// Checks run in phases, one per category:
//
//   - Structure: Bundle type, entry ids, presence of MII profiles
//   - Profile: declared profiles match the module and are unambiguous
//   - Required: mandatory elements per module
//   - Format: FHIR date and dateTime formats, German postal codes
//   - Terminology: ICD-10-GM code shape, version and catalog lookup
//   - Reference: patient references resolve inside the bundle
//   - Invariant: FHIRPath expressions from a custom catalog
//
// An applicable check yields one finding per inspected element, pass
// included, so the quality score is passed findings over all findings.
//
// # Batches
//
// The worker package runs many bundles on a bounded pool and returns the
// reports in input order; the report package renders them as text, JSON
// or HTML.
package miiquality
