// Package xmlfile implements a sink that exports records as XML files
// instead of loading them into a database. Every Append writes one document
// into the output directory; with create_table set, the record XSD is
// written next to them as <table>.xsd.
package xmlfile

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/ginjaninja78/tabular-loader/internal/xmlwriter"
	"github.com/ginjaninja78/tabular-loader/pkg/utils"
	"github.com/rs/zerolog"
)

func init() {
	sink.Register(config.SinkXML, open)
}

// Sink writes one XML document per Append.
type Sink struct {
	dir     string
	dataset string
	table   string
	logger  zerolog.Logger

	mu  sync.Mutex
	seq int
}

func open(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (sink.Sink, error) {
	return New(cfg.DSN, cfg.Dataset, cfg.Table, cfg.ShouldCreateTable(), logger)
}

// New prepares dir (default ".") for export files named
// <dataset>.<table>.<source>.<seq>.xml.
func New(dir, dataset, table string, writeSchema bool, logger zerolog.Logger) (*Sink, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("xml: table must not be empty")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("xml: create output directory: %w", err)
	}

	s := &Sink{
		dir:     dir,
		dataset: dataset,
		table:   table,
		logger:  logger.With().Str("sink", "xml").Str("dir", dir).Logger(),
	}
	if writeSchema {
		path := filepath.Join(dir, table+".xsd")
		if err := utils.WriteFileAtomic(path, xmlwriter.GenerateXSD("")); err != nil {
			return nil, fmt.Errorf("xml: write schema: %w", err)
		}
	}
	return s, nil
}

// Append writes records to a new file. Empty appends write nothing.
func (s *Sink) Append(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	source := records[0].SourceFile
	opts := xmlwriter.DefaultGenerateOptions()
	opts.RootAttributes = []xml.Attr{
		{Name: xml.Name{Local: "dataset"}, Value: s.dataset},
		{Name: xml.Name{Local: "table"}, Value: s.table},
		{Name: xml.Name{Local: "source"}, Value: source},
	}
	data, err := xmlwriter.GenerateWithOptions(records, opts)
	if err != nil {
		return fmt.Errorf("xml: %w", err)
	}

	path := filepath.Join(s.dir, s.fileName(source))
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("xml: %w", err)
	}
	s.logger.Debug().Str("path", path).Int("rows", len(records)).Msg("Wrote XML export")
	return nil
}

func (s *Sink) fileName(source string) string {
	s.mu.Lock()
	s.seq++
	n := s.seq
	s.mu.Unlock()

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if stem == "" || stem == "." {
		stem = "records"
	}
	parts := []string{s.table, stem, fmt.Sprintf("%04d", n)}
	if s.dataset != "" {
		parts = append([]string{s.dataset}, parts...)
	}
	return strings.Join(parts, ".") + ".xml"
}

// Close is a no-op; every Append closes its own file.
func (s *Sink) Close() error {
	return nil
}
