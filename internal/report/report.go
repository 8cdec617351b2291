// Package report writes the statistics of a run: the JSON statistics file
// consumed by downstream tooling and the human-readable summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/tabular-loader/internal/converter"
	"github.com/ginjaninja78/tabular-loader/pkg/utils"
)

// Marshal renders the statistics as indented JSON keyed by file name.
func Marshal(stats converter.RunStatistics) ([]byte, error) {
	if stats == nil {
		stats = converter.RunStatistics{}
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode statistics: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteJSON writes the statistics file, replacing any earlier one.
func WriteJSON(stats converter.RunStatistics, path string) error {
	data, err := Marshal(stats)
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write statistics file: %w", err)
	}
	return nil
}

// PrintSummary writes the per-file summary:
//
//	Processing Summary:
//
//	File: a.csv
//	Status: success
//	Total rows: 3
//	Processed rows: 3
//	Failed rows: 0
func PrintSummary(w io.Writer, stats converter.RunStatistics) error {
	var b strings.Builder
	b.WriteString("\nProcessing Summary:\n")
	for _, name := range stats.Names() {
		s := stats[name]
		fmt.Fprintf(&b, "\nFile: %s\n", name)
		fmt.Fprintf(&b, "Status: %s\n", s.Status)
		fmt.Fprintf(&b, "Total rows: %d\n", s.TotalRows)
		fmt.Fprintf(&b, "Processed rows: %d\n", s.ProcessedRows)
		fmt.Fprintf(&b, "Failed rows: %d\n", s.FailedRows)
		if s.ErrorMessage != nil && *s.ErrorMessage != "" {
			fmt.Fprintf(&b, "Error: %s\n", *s.ErrorMessage)
		}
	}

	t := stats.Totals()
	fmt.Fprintf(&b, "\nTotal: %d files, %d succeeded, %d failed, %d skipped, %d of %d rows loaded\n",
		t.Files, t.Succeeded, t.Failed, t.Skipped, t.ProcessedRows, t.TotalRows)

	_, err := io.WriteString(w, b.String())
	return err
}
