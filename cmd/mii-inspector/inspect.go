package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gofhir/miiquality/config"
	"github.com/gofhir/miiquality/engine"
	"github.com/gofhir/miiquality/report"
	"github.com/gofhir/miiquality/worker"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [paths...]",
		Short: "Check bundle files and directories",
		Long: `Checks every *.json file found in the given files and directories
(recursively) and prints a quality summary. Use "-" to read a single bundle
from standard input.

The exit code is 1 if any bundle could not be read, has error findings, or
in strict mode has warning findings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspect,
	}

	f := cmd.Flags()
	addEngineFlags(f)
	f.StringP("output", "o", config.OutputText, "output format: text, json")
	f.String("report-dir", "", "write timestamped HTML and JSON reports to this directory")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var items []*worker.BatchItem
	if len(args) == 1 && args[0] == "-" {
		items = inspectStdin(ctx, cmd, eng)
	} else {
		items, err = inspectFiles(ctx, cmd, eng, cfg, log, args)
		if err != nil {
			return err
		}
	}

	snap := eng.Metrics().Snapshot()
	log.Debug().
		Uint64("bundles", snap.BundlesTotal).
		Uint64("failed", snap.BundlesFailed).
		Dur("avg", snap.AvgBundleTime).
		Dur("max", snap.MaxBundleTime).
		Float64("cache_hit_rate", snap.CacheHitRate).
		Msg("inspection finished")

	summary := report.NewSummary(items, time.Now())
	if err := writeSummary(cmd, cfg, summary); err != nil {
		return err
	}

	if !summary.AllPassed() {
		return errQualityFailed
	}
	return nil
}

func inspectStdin(ctx context.Context, cmd *cobra.Command, eng *engine.Engine) []*worker.BatchItem {
	start := time.Now()
	r, err := eng.ProcessReader(ctx, cmd.InOrStdin(), "stdin")
	return []*worker.BatchItem{{
		Source:   "stdin",
		Report:   r,
		Err:      err,
		Duration: time.Since(start),
	}}
}

func inspectFiles(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, cfg *config.Config, log zerolog.Logger, paths []string) ([]*worker.BatchItem, error) {
	sources, err := worker.Discover(paths)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no bundle files found in %s", strings.Join(paths, ", "))
	}

	runner := worker.NewRunner(eng, cfg.Workers).WithLogger(log)
	if errOut := cmd.ErrOrStderr(); cfg.Output == config.OutputText && isTerminal(errOut) {
		runner.WithProgress(func(done, total int) {
			fmt.Fprintf(errOut, "\rChecked %d/%d bundles", done, total)
			if done == total {
				fmt.Fprintln(errOut)
			}
		})
	}

	result := runner.Run(ctx, sources)
	if result.SkippedJobs > 0 {
		log.Warn().Int("skipped", result.SkippedJobs).Msg("inspection interrupted")
	}
	return result.Items, nil
}

func writeSummary(cmd *cobra.Command, cfg *config.Config, s *report.Summary) error {
	out := cmd.OutOrStdout()

	var printer *report.Printer
	switch cfg.Output {
	case config.OutputJSON:
		if err := report.WriteJSON(out, s); err != nil {
			return err
		}
		// keep stdout parseable
		printer = report.NewPrinter(cmd.ErrOrStderr(), report.TextOptions{})
	default:
		opts := report.TextOptions{Verbose: cfg.Verbose, Width: report.TerminalWidth(out)}
		report.WriteText(out, s, opts)
		printer = report.NewPrinter(out, opts)
	}

	if cfg.ReportDir == "" {
		return nil
	}
	paths, err := report.Export(cfg.ReportDir, s)
	if err != nil {
		return err
	}
	printer.Exported(paths)
	return nil
}
