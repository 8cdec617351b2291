package converter

import (
	"errors"
	"sort"
	"time"
)

// =============================================================================
// FILE STATUS
// =============================================================================

// Status is the processing state of one input file.
type Status string

const (
	StatusNotProcessed Status = "not_processed"
	StatusSkipped      Status = "skipped"
	StatusFailed       Status = "failed"
	StatusSuccess      Status = "success"
)

// Messages recorded in FileStats.ErrorMessage for files that never reach
// parsing.
const (
	MsgUnsupportedFileType = "Not a supported file type"
	MsgMissingMapping      = "No mapping configuration found"
	MsgInvalidMapping      = "Invalid mapping configuration"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrMissingMapping      = errors.New("no mapping configuration found")
	ErrInvalidMapping      = errors.New("invalid mapping configuration")
)

// =============================================================================
// STATISTICS
// =============================================================================

// FileStats is the outcome of processing one directory entry.
type FileStats struct {
	TotalRows     int    `json:"total_rows"`
	ProcessedRows int    `json:"processed_rows"`
	FailedRows    int    `json:"failed_rows"`
	Status        Status `json:"status"`

	// ErrorMessage is null unless the file was skipped or failed.
	ErrorMessage *string `json:"error_message"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	// Fingerprint is the xxh3 hash of the file content, set once the file
	// has been read.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Warnings lists mapped columns that were absent from the file.
	Warnings []string `json:"warnings,omitempty"`

	// Err classifies the failure for callers; compare with errors.Is.
	Err error `json:"-"`
}

func newFileStats(start time.Time) *FileStats {
	return &FileStats{
		Status:    StatusNotProcessed,
		StartTime: start,
	}
}

func (s *FileStats) finish(status Status, err error, message string, end time.Time) {
	s.Status = status
	s.Err = err
	if message != "" {
		m := message
		s.ErrorMessage = &m
	}
	s.EndTime = &end
}

// Duration is the time between start and end, or zero for an unfinished file.
func (s *FileStats) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// RunStatistics maps each directory entry name to its outcome.
type RunStatistics map[string]*FileStats

// Names returns the file names in sorted order.
func (r RunStatistics) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Totals summarizes a run.
type Totals struct {
	Files         int
	Succeeded     int
	Failed        int
	Skipped       int
	TotalRows     int
	ProcessedRows int
	FailedRows    int
}

// Totals adds up the statistics of every file.
func (r RunStatistics) Totals() Totals {
	var t Totals
	for _, s := range r {
		t.Files++
		switch s.Status {
		case StatusSuccess:
			t.Succeeded++
		case StatusFailed:
			t.Failed++
		case StatusSkipped:
			t.Skipped++
		}
		t.TotalRows += s.TotalRows
		t.ProcessedRows += s.ProcessedRows
		t.FailedRows += s.FailedRows
	}
	return t
}
