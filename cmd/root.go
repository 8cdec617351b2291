// =============================================================================
// Tabular Loader - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'process', 'validate') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (loader)
//   ├── processCmd (loader process)
//   ├── validateCmd (loader validate)
//   └── versionCmd (loader version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration (defaults when --config is not given)
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// Without it the built-in defaults are used.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// mainConfig and logger are set up by the root command before any
// subcommand runs.
var (
	mainConfig *config.MainConfig
	logger     = zerolog.Nop()
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "Tabular Loader - Load CSV and XLSX exports into a warehouse table",
	Long: `Tabular Loader reads every CSV and XLSX file in a directory, maps its
columns onto a fixed record schema using a YAML or JSON mapping document, and
appends the records to a warehouse table (BigQuery, PostgreSQL or SQLite).

Key Features:
  - Per-file column mappings with free-form attributes
  - One append per file; a bad file never stops the run
  - JSON statistics file and printed summary
  - Optional run events to Redis and Kafka, metrics to a Pushgateway

Example Usage:
  loader process --directory ./in --mapping-file mapping.yaml \
      --project-id acme --dataset-id crm --table-id contacts
  loader validate --mapping-file mapping.yaml`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		mainConfig = cfg
		logger = newLogger(cmd.ErrOrStderr(), cfg, verbose)
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. Interrupts cancel the run context so the loader can
// record the in-flight file and stop.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the main configuration file (defaults apply when omitted)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func loadConfig(path string) (*config.MainConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger: a console writer for people, or
// plain JSON lines for log collectors. --verbose forces debug level.
func newLogger(w io.Writer, cfg *config.MainConfig, verbose bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	out := w
	if cfg.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
