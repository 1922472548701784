package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/config"
	"github.com/gofhir/miiquality/engine"
	"github.com/gofhir/miiquality/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errQualityFailed makes the process exit with 1 after the results were
// printed.
var errQualityFailed = errors.New("one or more bundles failed the quality checks")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mii-inspector",
		Short: "Quality checks for MII Kerndatensatz FHIR bundles",
		Long: `mii-inspector checks FHIR R4 bundles against the data quality rules of the
MII Kerndatensatz modules Person, Fall, Diagnose and Medikation and reports
a quality score per bundle.

Settings are read from an optional config file, MIIQ_* environment
variables and command-line flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error, disabled")
	root.PersistentFlags().String("log-format", logger.FormatConsole, "log format: console, json")

	root.AddCommand(inspectCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(versionCmd())
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errQualityFailed) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// addEngineFlags registers the flags shared by commands that check bundles.
func addEngineFlags(f *pflag.FlagSet) {
	f.IntP("workers", "w", runtime.NumCPU(), "number of bundles checked concurrently")
	f.Bool("strict", false, "treat warnings as failures")
	f.String("catalog", "", "YAML file with additional rules")
	f.String("terminology", "", "ICD-10-GM CodeSystem JSON file")
	f.StringSlice("disable", nil, "check ids to skip")
	f.Duration("timeout", 0, "time limit per bundle, 0 for none")
	f.BoolP("verbose", "v", false, "list every issue")
}

// loadConfig merges the config file, the environment and the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logCfg.NoColor = !isTerminal(cmd.ErrOrStderr())
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

func newEngine(cfg *config.Config, log zerolog.Logger) (*engine.Engine, error) {
	opts := append(cfg.EngineOptions(), mq.WithLogger(log))
	return engine.New(opts...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
