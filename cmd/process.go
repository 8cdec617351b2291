// =============================================================================
// Tabular Loader - Process Command
// =============================================================================
//
// This file defines the 'process' command, which is the main command for
// loading a directory of tabular files into the warehouse.
//
// COMMAND USAGE:
//   loader process [flags]
//
// FLAGS:
//   --directory      : Directory containing the input files (required)
//   --mapping-file   : YAML or JSON mapping document (required)
//   --project-id     : Warehouse project (bigquery)
//   --dataset-id     : Warehouse dataset, or schema for postgres
//   --table-id       : Destination table
//   --output-file    : Statistics file (default processing_stats.json)
//   --sink           : bigquery, postgres, sqlite or xml
//   --dsn            : Postgres connection string, sqlite file or xml directory
//   --mapping-format : Force yaml or json instead of using the file suffix
//
// PROCESSING PIPELINE:
//   1. Merge flags into the configuration and check the destination
//   2. Load the mapping document
//   3. Open the sink
//   4. Load every directory entry, one at a time
//   5. Write the statistics file and print the summary
//   6. Publish the run (Redis, Kafka) and push metrics
//
// Files that fail are recorded in the statistics; they do not fail the
// command. Only setup failures and an unwritable statistics file do.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/converter"
	"github.com/ginjaninja78/tabular-loader/internal/mapping"
	"github.com/ginjaninja78/tabular-loader/internal/metrics"
	"github.com/ginjaninja78/tabular-loader/internal/publish"
	"github.com/ginjaninja78/tabular-loader/internal/report"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	_ "github.com/ginjaninja78/tabular-loader/internal/sink/all"
	"github.com/ginjaninja78/tabular-loader/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// publishTimeout bounds the post-run publishers, which still run after an
// interrupt.
const publishTimeout = 30 * time.Second

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// processFlags holds the command line of 'process'. Empty values leave the
// configuration file's setting in place.
type processFlags struct {
	directory     string
	mappingFile   string
	mappingFormat string
	projectID     string
	datasetID     string
	tableID       string
	outputFile    string
	sinkKind      string
	dsn           string
}

var procFlags processFlags

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Load CSV and XLSX files into the warehouse table",
	Long: `The process command reads every entry of the input directory, looks up
its mapping by file name, normalizes its rows into records and appends them to
the destination table in one call per file.

Entries that are not .csv or .xlsx files, or have no mapping, are skipped.
A file that cannot be parsed or loaded is marked failed and the run moves on.

After the pass:
  - The statistics are written as JSON to the output file
  - A summary is printed
  - Configured publishers and the metrics push are run`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), cmd.OutOrStdout(), mainConfig, procFlags, logger)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	f := processCmd.Flags()
	f.StringVar(&procFlags.directory, "directory", "", "Directory containing the CSV and XLSX files to load")
	f.StringVar(&procFlags.mappingFile, "mapping-file", "", "Mapping document (.yaml, .yml or .json)")
	f.StringVar(&procFlags.mappingFormat, "mapping-format", "", "Mapping format (yaml or json); defaults to the file suffix")
	f.StringVar(&procFlags.projectID, "project-id", "", "Warehouse project ID")
	f.StringVar(&procFlags.datasetID, "dataset-id", "", "Warehouse dataset ID")
	f.StringVar(&procFlags.tableID, "table-id", "", "Destination table ID")
	f.StringVar(&procFlags.outputFile, "output-file", "", "Statistics file (default processing_stats.json)")
	f.StringVar(&procFlags.sinkKind, "sink", "", "Sink kind: bigquery, postgres, sqlite or xml")
	f.StringVar(&procFlags.dsn, "dsn", "", "Connection string (postgres), database file (sqlite) or output directory (xml)")

	processCmd.MarkFlagRequired("directory")
	processCmd.MarkFlagRequired("mapping-file")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess loads the directory and reports the run.
func runProcess(ctx context.Context, out io.Writer, base *config.MainConfig, flags processFlags, log zerolog.Logger) error {
	if base == nil {
		base = config.Default()
	}
	cfg := *base

	// =========================================================================
	// STEP 1: MERGE FLAGS AND CHECK THE DESTINATION
	// =========================================================================

	applyProcessFlags(&cfg, flags)
	if err := config.Validate(&cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateTarget(cfg.Sink); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: LOAD THE MAPPING DOCUMENT
	// =========================================================================

	doc, err := loadMapping(flags.mappingFile, flags.mappingFormat)
	if err != nil {
		return err
	}
	log.Info().Str("mapping", flags.mappingFile).Int("entries", doc.Len()).Msg("Loaded mapping document")

	// =========================================================================
	// STEP 3: OPEN THE SINK
	// =========================================================================

	s, err := sink.Open(ctx, cfg.Sink, log)
	if err != nil {
		return fmt.Errorf("failed to open %s sink: %w", cfg.Sink.Kind, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close sink")
		}
	}()

	// =========================================================================
	// STEP 4: LOAD THE DIRECTORY
	// =========================================================================

	runID := uuid.NewString()
	started := time.Now()
	log = log.With().Str("run_id", runID).Logger()

	proc := converter.New(s, converter.Options{
		CSV:     cfg.CSV,
		XLSX:    cfg.XLSX,
		Archive: utils.NewFileManager(cfg.ArchiveDir),
		Logger:  log,
	})
	stats, err := proc.ProcessDirectory(ctx, flags.directory, doc)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 5: STATISTICS AND SUMMARY
	// =========================================================================

	runErr := report.WriteJSON(stats, cfg.StatisticsFile)
	if runErr != nil {
		log.Error().Err(runErr).Str("path", cfg.StatisticsFile).Msg("Failed to write statistics")
	} else {
		log.Info().Str("path", cfg.StatisticsFile).Msg("Wrote statistics")
	}

	if err := report.PrintSummary(out, stats); err != nil {
		log.Warn().Err(err).Msg("Failed to print summary")
	}

	// =========================================================================
	// STEP 6: PUBLISH
	// =========================================================================

	run := publish.Run{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Stats:      stats,
		Err:        runErr,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	announce(pubCtx, &cfg, run, log)

	return runErr
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// applyProcessFlags overrides configuration settings with non-empty flags.
func applyProcessFlags(cfg *config.MainConfig, flags processFlags) {
	if flags.sinkKind != "" {
		cfg.Sink.Kind = flags.sinkKind
	}
	if flags.projectID != "" {
		cfg.Sink.Project = flags.projectID
	}
	if flags.datasetID != "" {
		cfg.Sink.Dataset = flags.datasetID
	}
	if flags.tableID != "" {
		cfg.Sink.Table = flags.tableID
	}
	if flags.dsn != "" {
		cfg.Sink.DSN = flags.dsn
	}
	if flags.outputFile != "" {
		cfg.StatisticsFile = flags.outputFile
	}
}

func loadMapping(path, format string) (*mapping.Document, error) {
	if format == "" {
		return mapping.Load(path)
	}
	f, err := mapping.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return mapping.LoadFormat(path, f)
}

// announce runs every configured publisher and the metrics push. Failures
// are logged and never change the outcome of the run.
func announce(ctx context.Context, cfg *config.MainConfig, run publish.Run, log zerolog.Logger) {
	var publishers []publish.Publisher
	if cfg.ResultLog.Enabled() {
		publishers = append(publishers, publish.NewRedisPublisher(cfg.ResultLog))
	}
	if cfg.Events.Enabled() {
		p, err := publish.NewKafkaPublisher(cfg.Events)
		if err != nil {
			log.Warn().Err(err).Msg("Kafka publisher disabled")
		} else {
			publishers = append(publishers, p)
		}
	}

	for _, p := range publishers {
		if err := p.Publish(ctx, run); err != nil {
			log.Warn().Err(err).Msg("Failed to publish run")
		}
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close publisher")
		}
	}

	if cfg.Metrics.Enabled() {
		pusher, err := metrics.New(cfg.Metrics.Job, cfg.Metrics.PushgatewayURL, run.ID)
		if err != nil {
			log.Warn().Err(err).Msg("Metrics disabled")
			return
		}
		pusher.Observe(run.Stats, run.FinishedAt)
		if err := pusher.Push(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to push metrics")
		}
	}
}
