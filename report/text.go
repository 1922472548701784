package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	mq "github.com/gofhir/miiquality"
)

// TextOptions controls console output.
type TextOptions struct {
	// Verbose lists every issue of each bundle
	Verbose bool

	// Width of the separator rules, DefaultWidth when zero
	Width int

	Theme *Theme
}

// Printer writes human-readable inspection output.
type Printer struct {
	w      io.Writer
	styles *Styles
	opts   TextOptions
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, opts TextOptions) *Printer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	return &Printer{
		w:      w,
		styles: NewStyles(w, opts.Theme),
		opts:   opts,
	}
}

// WriteText writes the per-bundle lines followed by the summary.
func WriteText(w io.Writer, s *Summary, opts TextOptions) {
	p := NewPrinter(w, opts)
	p.Header(s.TotalBundles)
	for _, b := range s.Bundles {
		p.Bundle(b)
	}
	p.Summary(s)
}

func (p *Printer) rule() string {
	return p.styles.Header.Render(strings.Repeat("=", p.opts.Width))
}

func (p *Printer) println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Header writes the banner for an inspection of total bundles.
func (p *Printer) Header(total int) {
	p.println(p.rule())
	p.println(p.styles.Header.Render("FHIR QUALITY INSPECTION"))
	p.println(p.rule())
	p.println(fmt.Sprintf("\nProcessing %d bundles...", total))
}

// Bundle writes the result lines for one bundle.
func (p *Printer) Bundle(b Bundle) {
	st := p.styles
	p.println()

	r := b.Report
	if r == nil {
		label := "✗"
		if b.Skipped {
			label = "-"
		}
		p.println(st.Error.Render(label + " " + b.Source))
		if b.Error != "" {
			p.println(st.Error.Render("   Error: " + b.Error))
		}
		return
	}

	if r.Passed {
		p.println(st.Success.Render("✓ " + b.Source))
	} else {
		p.println(st.Error.Render("✗ " + b.Source))
	}
	p.println(fmt.Sprintf("   Quality Score: %.1f%% (%d/%d checks passed)",
		r.ScorePercent(), r.ChecksPassed, r.ChecksApplicable))
	p.println(st.Muted.Render(fmt.Sprintf("   %d resources, type %s, modules: %s",
		r.EntryCount, r.BundleType, moduleList(r.Modules))))

	if r.Counts.Issues() == 0 {
		return
	}
	issueStyle := st.Warning
	if r.HasErrors() {
		issueStyle = st.Error
	}
	p.println(issueStyle.Render(fmt.Sprintf("   Issues: %d errors, %d warnings, %d info",
		r.Counts.Error, r.Counts.Warning, r.Counts.Information)))

	if p.opts.Verbose {
		for _, f := range r.Issues() {
			p.println("     " + p.severityStyle(f.Severity).Render(f.String()))
		}
	}
}

// Summary writes the batch statistics.
func (p *Printer) Summary(s *Summary) {
	st := p.styles
	p.println()
	p.println(p.rule())
	p.println(st.Header.Render("SUMMARY STATISTICS"))
	p.println(p.rule())
	p.println()
	p.println(fmt.Sprintf("Total bundles processed: %d", s.TotalBundles))

	validRate := 0.0
	if s.TotalBundles > 0 {
		validRate = percent(float64(s.ValidBundles) / float64(s.TotalBundles))
	}
	p.println(fmt.Sprintf("Valid bundles: %d/%d (%.1f%%)", s.ValidBundles, s.TotalBundles, validRate))
	if s.ValidBundles > 0 {
		p.println(fmt.Sprintf("Passed quality checks: %d/%d (%.1f%%)", s.Passed, s.ValidBundles, s.PassRate))
	} else {
		p.println("Passed quality checks: N/A")
	}
	p.println(fmt.Sprintf("Average quality score: %.1f%%", s.AverageScore))
	p.println()
	p.println(fmt.Sprintf("Total issues found: %d", s.TotalIssues))

	errStyle := st.Success
	if s.TotalErrors > 0 {
		errStyle = st.Error
	}
	p.println(errStyle.Render(fmt.Sprintf("  Errors: %d", s.TotalErrors)))

	warnStyle := st.Muted
	if s.TotalWarnings > 0 {
		warnStyle = st.Warning
	}
	p.println(warnStyle.Render(fmt.Sprintf("  Warnings: %d", s.TotalWarnings)))
	p.println()
	p.println(p.rule())
}

// Exported writes the paths of exported report files.
func (p *Printer) Exported(paths Paths) {
	p.println(p.styles.Success.Render("✓ HTML report: " + paths.HTML))
	p.println(p.styles.Success.Render("✓ JSON report: " + paths.JSON))
}

func (p *Printer) severityStyle(sev mq.Severity) lipgloss.Style {
	switch sev {
	case mq.SeverityError:
		return p.styles.Error
	case mq.SeverityWarning:
		return p.styles.Warning
	case mq.SeverityInformation:
		return p.styles.Information
	default:
		return p.styles.Normal
	}
}

func moduleList(mods []mq.Module) string {
	if len(mods) == 0 {
		return "none"
	}
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}
