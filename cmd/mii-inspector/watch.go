package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gofhir/miiquality/report"
	"github.com/gofhir/miiquality/watch"
	"github.com/gofhir/miiquality/worker"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Check bundles as they are written to a directory",
		Long: `Watches DIR and its subdirectories and checks every *.json file that is
created or rewritten. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	f := cmd.Flags()
	addEngineFlags(f)
	f.Bool("initial", false, "also check the bundles already in DIR")
	f.Duration("debounce", watch.DefaultDebounce, "quiet period after the last write before a file is checked")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	initial, _ := cmd.Flags().GetBool("initial")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(eng, cfg.Workers)
	printer := report.NewPrinter(cmd.OutOrStdout(), report.TextOptions{Verbose: cfg.Verbose})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range pool.Results() {
			printer.Bundle(report.NewBundle(res.Source, res.Report, res.Error))
		}
	}()

	w := watch.New(args[0], pool).
		WithLogger(log).
		WithDebounce(debounce).
		WithInitialScan(initial)
	err = w.Run(ctx)

	pool.Close()
	<-done

	st := pool.Stats()
	log.Debug().
		Uint64("checked", st.Completed).
		Uint64("failed", st.Failed).
		Uint64("coalesced", st.Coalesced).
		Dur("avg", st.AvgDuration).
		Msg("watch stopped")
	return err
}
