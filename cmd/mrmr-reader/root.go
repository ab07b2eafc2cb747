package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mrmr/internal/pipeline"
	"github.com/ajitpratap0/mrmr/pkg/config"
	"github.com/ajitpratap0/mrmr/pkg/errors"
	"github.com/ajitpratap0/mrmr/pkg/logger"
	"github.com/ajitpratap0/mrmr/pkg/metrics"
	"github.com/ajitpratap0/mrmr/pkg/observability"
	"github.com/ajitpratap0/mrmr/pkg/storage"
)

const envPrefix = "MRMR"

// errUsagePrinted is returned once usage text has been written to stdout
var errUsagePrinted = errors.Sentinel(errors.ErrorTypeUsage, "usage printed")

const usageText = `MRMR Reader for converting CSV file to binary format for use with fast-mRMR.

Usage: -f INPUT -o OUTPUT [--gpu]

Note: If --gpu flag is set, will discard last (n modulo 16) datapoints, where n is the total number of datapoints.
`

// flagKeys maps command line flags to configuration keys. The same keys name
// the YAML fields and, upper-cased with an MRMR_ prefix, the environment.
var flagKeys = map[string]string{
	"file":           "input.path",
	"delimiter":      "input.delimiter",
	"max-line-bytes": "input.max_line_bytes",
	"output":         "output.path",
	"compress":       "output.compression",
	"dictionary":     "output.dictionary",
	"byte-order":     "output.byte_order",
	"buffer-size":    "output.buffer_size",
	"gpu":            "encoding.gpu",
	"region":         "storage.region",
	"credentials":    "storage.credentials_file",
	"temp-dir":       "storage.temp_dir",
	"log-level":      "observability.log_level",
	"log-format":     "observability.log_format",
	"metrics-file":   "observability.metrics_file",
	"trace":          "observability.trace",
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	var showUsage bool

	root := &cobra.Command{
		Use:   "mrmr-reader -f INPUT -o OUTPUT [--gpu]",
		Short: "Convert a CSV file to the fast-mRMR binary format",
		Long: `mrmr-reader maps every distinct value of each CSV column to a one-byte
category code in first-seen order and writes the fast-mRMR layout: two uint32
(samples, features) followed by the row-major code grid.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showUsage {
				fmt.Fprint(stdout, usageText)
				return errUsagePrinted
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if cfg.Input.Path == "" || cfg.Output.Path == "" {
				fmt.Fprint(stdout, "Please provide input and output filenames. See below for usage instructions: \n\n")
				fmt.Fprint(stdout, usageText)
				return errUsagePrinted
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return convert(cmd.Context(), cfg, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.Flags()
	// Declared first so cobra does not claim -h for its own help flag
	flags.Bool("help", false, "Show full help for mrmr-reader")
	flags.BoolVarP(&showUsage, "usage", "h", false, "Print usage and exit")
	flags.StringP("file", "f", "", "Input CSV path or s3:// / gs:// URL (required)")
	flags.StringP("output", "o", "", "Output binary path or s3:// / gs:// URL (required)")
	flags.Bool("gpu", false, "Drop the last (n modulo 16) samples so the sample count is a multiple of 16")
	flags.String("delimiter", ",", "Field delimiter, a single byte")
	flags.Int("max-line-bytes", 1<<20, "Longest accepted input line in bytes")
	flags.String("compress", "none", "Compress the output: none, gzip, snappy, lz4, zstd, s2")
	flags.String("dictionary", "", "Write a JSON sidecar mapping codes back to categories")
	flags.String("byte-order", "native", "Header byte order: native, little, big")
	flags.Int("buffer-size", 64*1024, "Output buffer size in bytes")
	flags.String("region", "", "AWS region for s3:// locations")
	flags.String("credentials", "", "Google credentials file for gs:// locations")
	flags.String("temp-dir", "", "Directory for staging remote inputs and outputs")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	flags.Bool("trace", false, "Export OpenTelemetry spans to stderr")
	flags.String("config", "", "YAML configuration file")

	bindFlags(v, flags)

	root.AddCommand(newInspectCommand(stdout))
	root.AddCommand(newVersionCommand(stdout))
	return root
}

// usageRequested reports whether args ask for the legacy usage text. -h wins
// over every other argument, including malformed ones, so it is found before
// cobra parses anything. Subcommands keep cobra's own -h.
func usageRequested(root *cobra.Command, args []string) bool {
	if len(args) > 0 {
		for _, sub := range root.Commands() {
			if sub.Name() == args[0] || sub.HasAlias(args[0]) {
				return false
			}
		}
	}
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "-h" || arg == "--usage" {
			return true
		}
	}
	return false
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	_ = v.BindPFlag("config", flags.Lookup("config"))
}

// loadConfig merges defaults, the YAML file, MRMR_* variables and flags, in
// increasing order of precedence
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.NewDefault()

	if path := v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load configuration").
				WithDetail("path", path)
		}
	}

	stringKeys := map[string]*string{
		"input.path":                 &cfg.Input.Path,
		"input.delimiter":            &cfg.Input.Delimiter,
		"output.path":                &cfg.Output.Path,
		"output.compression":         &cfg.Output.Compression,
		"output.dictionary":          &cfg.Output.Dictionary,
		"output.byte_order":          &cfg.Output.ByteOrder,
		"storage.region":             &cfg.Storage.Region,
		"storage.credentials_file":   &cfg.Storage.CredentialsFile,
		"storage.temp_dir":           &cfg.Storage.TempDir,
		"observability.log_level":    &cfg.Observability.LogLevel,
		"observability.log_format":   &cfg.Observability.LogFormat,
		"observability.metrics_file": &cfg.Observability.MetricsFile,
	}
	for key, dst := range stringKeys {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	intKeys := map[string]*int{
		"input.max_line_bytes": &cfg.Input.MaxLineBytes,
		"output.buffer_size":   &cfg.Output.BufferSize,
	}
	for key, dst := range intKeys {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	boolKeys := map[string]*bool{
		"encoding.gpu":        &cfg.Encoding.GPU,
		"observability.trace": &cfg.Observability.Trace,
	}
	for key, dst := range boolKeys {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	return cfg, nil
}

func convert(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Encoding:    cfg.Observability.LogFormat,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.Observability.Trace,
		ServiceName:    "mrmr-reader",
		ServiceVersion: version,
		Writer:         stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := shutdown(shutdownCtx); shutdownErr != nil {
			log.Warn("tracer shutdown failed", zap.Error(shutdownErr))
		}
	}()

	collector := metrics.NewCollector()
	if path := cfg.Observability.MetricsFile; path != "" {
		defer func() {
			if writeErr := collector.WriteTextfile(path); writeErr != nil {
				log.Warn("failed to write metrics", zap.Error(writeErr))
			}
		}()
	}

	stager := storage.NewStager(cfg.Storage, log)
	defer func() {
		if closeErr := stager.Close(); closeErr != nil {
			log.Warn("failed to close storage", zap.Error(closeErr))
		}
	}()

	summary, err := pipeline.New(cfg, stager, collector, log).Run(ctx)
	if err != nil {
		return err
	}

	if summary.Dropped > 0 {
		fmt.Fprintf(stdout, "Last %d samples ignored.\n", summary.Dropped)
	}
	fmt.Fprintf(stdout, "Wrote %d samples x %d features to %s\n", summary.Samples, summary.Features, summary.Output)
	return nil
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "mrmr-reader v%s\n", version)
			fmt.Fprintf(stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
