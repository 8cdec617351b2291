package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/mapping"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	"github.com/ginjaninja78/tabular-loader/pkg/utils"
	"github.com/rs/zerolog"
)

// Options configures a Processor.
type Options struct {
	CSV  config.CSVSettings
	XLSX config.XLSXSettings

	// Archive receives successfully loaded files. Nil disables archival.
	Archive *utils.FileManager

	// Now stamps start and end times. Defaults to time.Now.
	Now func() time.Time

	Logger zerolog.Logger
}

// Processor runs every entry of a directory through a Converter and
// collects the statistics.
type Processor struct {
	sink sink.Sink
	opts Options
}

// New creates a Processor that appends to s. The caller owns s and closes
// it after the run.
func New(s sink.Sink, opts Options) *Processor {
	return &Processor{sink: s, opts: opts}
}

// ProcessDirectory loads every entry of dir in listing order.
//
// PARAMETERS:
//   - ctx: Cancels the run. The in-flight file fails and the remaining
//     entries are left out of the statistics.
//   - dir: The input directory. Subdirectories are skipped, not descended.
//   - doc: The loaded mapping document.
//
// RETURNS:
//   - Statistics for every entry handled.
//   - An error only if the directory cannot be read.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string, doc *mapping.Document) (RunStatistics, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	p.opts.Logger.Info().Str("directory", dir).Int("entries", len(entries)).Msg("Starting directory pass")

	stats := make(RunStatistics, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			p.opts.Logger.Warn().Err(err).Int("remaining", len(entries)-len(stats)).Msg("Run cancelled")
			break
		}

		c := &Converter{
			path:   filepath.Join(dir, entry.Name()),
			name:   entry.Name(),
			isDir:  entry.IsDir(),
			doc:    doc,
			sink:   p.sink,
			opts:   p.opts,
			logger: p.opts.Logger.With().Str("file", entry.Name()).Logger(),
		}
		stats[entry.Name()] = c.Run(ctx)
	}

	t := stats.Totals()
	p.opts.Logger.Info().
		Int("files", t.Files).
		Int("succeeded", t.Succeeded).
		Int("failed", t.Failed).
		Int("skipped", t.Skipped).
		Int("rows", t.ProcessedRows).
		Msg("Directory pass complete")

	return stats, nil
}
