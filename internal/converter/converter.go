// =============================================================================
// Tabular Loader - Converter Module
// =============================================================================
//
// This module contains the core loading logic. It orchestrates the pipeline
// for a single directory entry, from classification to the warehouse append.
//
// LOADING PIPELINE:
//   1. Classify the entry (supported file type?)
//   2. Look up and validate the mapping entry
//   3. Parse the input file (CSV or XLSX)
//   4. Normalize rows into records
//   5. Append the records to the sink in one call
//   6. Archive the loaded file
//
// Every step that fails ends the file with a terminal status; nothing
// escapes Run. The file's end_time is stamped on every path.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/csvparser"
	"github.com/ginjaninja78/tabular-loader/internal/mapping"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/ginjaninja78/tabular-loader/internal/xlsxparser"
	"github.com/ginjaninja78/tabular-loader/pkg/utils"
	"github.com/rs/zerolog"
)

// =============================================================================
// FILE TYPES
// =============================================================================

// FileType is a supported input format.
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
)

// DetectFileType classifies a file name by its extension. Matching is
// case-sensitive: "A.CSV" is not a supported file.
func DetectFileType(name string) (FileType, bool) {
	switch filepath.Ext(name) {
	case ".csv":
		return FileTypeCSV, true
	case ".xlsx":
		return FileTypeXLSX, true
	}
	return "", false
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter loads a single directory entry.
type Converter struct {
	// path is the full path of the entry; name is its base name, which is
	// also the mapping lookup key.
	path  string
	name  string
	isDir bool

	doc    *mapping.Document
	sink   sink.Sink
	opts   Options
	logger zerolog.Logger
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the loading pipeline for the entry.
//
// RETURNS:
//   - The entry's statistics, always in a terminal state.
func (c *Converter) Run(ctx context.Context) *FileStats {
	stats := newFileStats(c.opts.now())

	// =========================================================================
	// STEP 1: CLASSIFY
	// =========================================================================

	fileType, ok := DetectFileType(c.name)
	if c.isDir || !ok {
		c.logger.Debug().Msg("Skipping unsupported entry")
		c.skip(stats, ErrUnsupportedFileType, MsgUnsupportedFileType)
		return stats
	}

	// =========================================================================
	// STEP 2: MAPPING LOOKUP AND VALIDATION
	// =========================================================================

	entry, found := c.doc.Lookup(c.name)
	if !found {
		c.logger.Warn().Msg("No mapping configuration found")
		c.skip(stats, ErrMissingMapping, MsgMissingMapping)
		return stats
	}
	if !mapping.Validate(entry) {
		c.logger.Error().Msg("Invalid mapping configuration")
		stats.finish(StatusFailed, ErrInvalidMapping, MsgInvalidMapping, c.opts.now())
		return stats
	}
	fm, err := mapping.Decode(entry)
	if err != nil {
		c.fail(stats, fmt.Errorf("%w: %v", ErrInvalidMapping, err))
		return stats
	}

	c.logger.Info().Str("type", string(fileType)).Msg("Processing file")

	// =========================================================================
	// STEP 3: PARSE INPUT FILE
	// =========================================================================

	ds, err := c.parse(fileType)
	if err != nil {
		c.fail(stats, err)
		return stats
	}
	stats.TotalRows = ds.Len()

	if fp, err := utils.Fingerprint(c.path); err == nil {
		stats.Fingerprint = fp
	} else {
		c.logger.Warn().Err(err).Msg("Failed to fingerprint file")
	}

	c.logger.Debug().Int("rows", ds.Len()).Int("columns", len(ds.Columns)).Msg("Parsed file")

	// =========================================================================
	// STEP 4: NORMALIZE
	// =========================================================================

	records, warnings, err := Normalize(ds, fm, c.name, stats.StartTime)
	if err != nil {
		c.fail(stats, err)
		return stats
	}
	for _, w := range warnings {
		c.logger.Warn().Msg(w)
	}
	stats.Warnings = warnings

	// =========================================================================
	// STEP 5: APPEND TO SINK
	// =========================================================================

	if err := c.sink.Append(ctx, records); err != nil {
		c.fail(stats, err)
		return stats
	}
	stats.ProcessedRows = len(records)

	// =========================================================================
	// STEP 6: ARCHIVE
	// =========================================================================

	if c.opts.Archive.Enabled() {
		if dst, err := c.opts.Archive.ArchiveInputFile(c.path); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to archive file")
		} else {
			c.logger.Debug().Str("archive", dst).Msg("Archived file")
		}
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	stats.finish(StatusSuccess, nil, "", c.opts.now())
	c.logger.Info().
		Int("rows", stats.ProcessedRows).
		Dur("elapsed", stats.Duration()).
		Msg("Loaded file")
	return stats
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (c *Converter) parse(fileType FileType) (*types.Dataset, error) {
	switch fileType {
	case FileTypeCSV:
		return csvparser.Parse(c.path, c.opts.CSV)
	case FileTypeXLSX:
		return xlsxparser.Parse(c.path, c.opts.XLSX)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, c.name)
}

func (c *Converter) skip(stats *FileStats, reason error, message string) {
	stats.finish(StatusSkipped, reason, message, c.opts.now())
}

func (c *Converter) fail(stats *FileStats, err error) {
	var perr *types.ParseError
	var serr *sink.Error
	event := c.logger.Error().Err(err)
	switch {
	case errors.As(err, &perr):
		event = event.Str("stage", "parse")
	case errors.As(err, &serr):
		event = event.Str("stage", "append").Str("sink", serr.Kind)
	}
	event.Msg("Failed to load file")
	stats.finish(StatusFailed, err, err.Error(), c.opts.now())
}

// now is the options clock; tests replace it.
func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
