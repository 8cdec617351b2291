// Package publish announces finished runs to external systems so that
// orchestrators can react without reading the statistics file.
//
// Publishers are optional. A publishing failure is logged by the caller and
// never changes the outcome of the run.
package publish

import (
	"context"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/converter"
)

// Publisher announces a finished run.
type Publisher interface {
	Publish(ctx context.Context, run Run) error
	Close() error
}

// Run is what publishers receive once the directory pass is over.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      converter.RunStatistics

	// Err is set when the run failed before or after the directory pass,
	// e.g. the statistics file could not be written.
	Err error
}

// Run outcomes.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Status condenses the run into one word: failed when the run itself
// failed, partial when some files failed, success otherwise.
func (r Run) Status() string {
	if r.Err != nil {
		return StatusFailed
	}
	if r.Stats.Totals().Failed > 0 {
		return StatusPartial
	}
	return StatusSuccess
}
