// Package config loads inspector settings from defaults, an optional
// config file, MIIQ_ environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/pkg/logger"
)

// EnvPrefix prefixes environment variables, e.g. MIIQ_WORKERS.
const EnvPrefix = "MIIQ"

// Output formats of the inspect command.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds all inspector settings.
type Config struct {
	Workers             int           `mapstructure:"workers"`
	Strict              bool          `mapstructure:"strict"`
	ParallelPhases      bool          `mapstructure:"parallel_phases"`
	BundleTimeout       time.Duration `mapstructure:"bundle_timeout"`
	ExpressionCacheSize int           `mapstructure:"expression_cache_size"`

	Catalog     string `mapstructure:"catalog"`
	Terminology string `mapstructure:"terminology"`

	DisabledChecks     []string `mapstructure:"disabled_checks"`
	DisabledCategories []string `mapstructure:"disabled_categories"`

	Output    string `mapstructure:"output"`
	ReportDir string `mapstructure:"report_dir"`
	Verbose   bool   `mapstructure:"verbose"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps config keys to the command-line flags overriding them.
var flagKeys = map[string]string{
	"workers":         "workers",
	"strict":          "strict",
	"catalog":         "catalog",
	"terminology":     "terminology",
	"disabled_checks": "disable",
	"output":          "output",
	"report_dir":      "report-dir",
	"verbose":         "verbose",
	"bundle_timeout":  "timeout",
	"log.level":       "log-level",
	"log.format":      "log-format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("strict", false)
	v.SetDefault("parallel_phases", true)
	v.SetDefault("bundle_timeout", 0)
	v.SetDefault("expression_cache_size", 256)
	v.SetDefault("catalog", "")
	v.SetDefault("terminology", "")
	v.SetDefault("disabled_checks", []string{})
	v.SetDefault("disabled_categories", []string{})
	v.SetDefault("output", OutputText)
	v.SetDefault("report_dir", "")
	v.SetDefault("verbose", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", logger.FormatConsole)
}

// Load reads the configuration. path names an optional config file (yaml,
// toml or json by extension); flags, when not nil, override file and
// environment values for every flag the user set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.BundleTimeout < 0 {
		errs = append(errs, fmt.Errorf("bundle_timeout must not be negative, got %s", c.BundleTimeout))
	}
	if c.ExpressionCacheSize < 1 {
		errs = append(errs, fmt.Errorf("expression_cache_size must be at least 1, got %d", c.ExpressionCacheSize))
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		errs = append(errs, fmt.Errorf("output must be %q or %q, got %q", OutputText, OutputJSON, c.Output))
	}
	for _, name := range c.DisabledCategories {
		if _, ok := mq.ParseCategory(name); !ok {
			errs = append(errs, fmt.Errorf("unknown check category %q", name))
		}
	}
	if _, err := c.Logger(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EngineOptions maps the configuration to engine options.
func (c *Config) EngineOptions() []mq.Option {
	opts := []mq.Option{
		mq.WithStrictMode(c.Strict),
		mq.WithParallelPhases(c.ParallelPhases),
		mq.WithWorkerCount(c.Workers),
		mq.WithBundleTimeout(c.BundleTimeout),
		mq.WithExpressionCache(c.ExpressionCacheSize),
		mq.WithDisabledChecks(c.DisabledChecks...),
	}

	categories := make([]mq.Category, 0, len(c.DisabledCategories))
	for _, name := range c.DisabledCategories {
		if cat, ok := mq.ParseCategory(name); ok {
			categories = append(categories, cat)
		}
	}
	opts = append(opts, mq.WithDisabledCategories(categories...))

	if c.Catalog != "" {
		opts = append(opts, mq.WithCatalogFile(c.Catalog))
	}
	if c.Terminology != "" {
		opts = append(opts, mq.WithTerminologyFile(c.Terminology))
	}
	return opts
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// Logger builds a logger writing to stderr.
func (c *Config) Logger() (zerolog.Logger, error) {
	return logger.New(c.LoggerConfig())
}
