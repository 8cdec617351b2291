// =============================================================================
// Tabular Loader - CSV Parser Module
// =============================================================================
//
// This module reads delimited text files into a types.Dataset. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab, ...)
//   - Different encodings (any WHATWG label; byte order marks win)
//   - Configurable null markers
//   - Quoted fields, including embedded delimiters and newlines
//
// The first row is the header. Rows shorter than the header are padded with
// blank cells; rows longer than the header fail the whole file, since the
// extra values cannot be attributed to a column.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter, encoding and null markers.
//
// RETURNS:
//   - The dataset, one row per data record.
//   - A *types.ParseError if the file cannot be opened, decoded or parsed.
func Parse(filePath string, settings config.CSVSettings) (*types.Dataset, error) {
	parser, err := NewStreamingParser(filePath, settings)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	ds := types.NewDataset(parser.Headers())
	for parser.Next() {
		ds.Append(parser.Row())
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

// configureReader applies delimiter and quoting settings to a csv.Reader.
func configureReader(reader *csv.Reader, settings config.CSVSettings) error {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	case "", ",", "comma":
		reader.Comma = ','
	default:
		r, size := utf8.DecodeRuneInString(settings.Delimiter)
		if r == utf8.RuneError || size != len(settings.Delimiter) {
			return fmt.Errorf("invalid delimiter %q", settings.Delimiter)
		}
		reader.Comma = r
	}

	// Field counts are checked against the header by the parser itself,
	// so short rows can be padded instead of rejected.
	reader.FieldsPerRecord = -1

	// Exports from legacy tools often contain stray quotes inside fields.
	reader.LazyQuotes = true

	// Field text is kept as written; only headers are trimmed.
	reader.TrimLeadingSpace = false
	reader.ReuseRecord = false
	return nil
}

// decodingReader wraps r so that it yields UTF-8 text.
// A UTF-8 or UTF-16 byte order mark overrides the configured encoding and
// is stripped.
//
// UTF-8 input passes through undecoded: the x/text decoder would replace
// invalid bytes with U+FFFD, and the parser must reject them instead.
func decodingReader(r io.Reader, label string) (io.Reader, error) {
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}

	var dec transform.Transformer = enc.NewDecoder()
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		dec = transform.Nop
	}
	return transform.NewReader(r, unicode.BOMOverride(dec)), nil
}

// checkUTF8 returns a ParseError for the first field that is not valid UTF-8.
func (p *StreamingParser) checkUTF8(row []string) error {
	for i, v := range row {
		if utf8.ValidString(v) {
			continue
		}
		line, _ := p.reader.FieldPos(i)
		return &types.ParseError{
			File: p.name,
			Line: line,
			Err:  fmt.Errorf("field %d: %w", i+1, encoding.ErrInvalidUTF8),
		}
	}
	return nil
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads a CSV file one row at a time.
//
// USAGE:
//
//	parser, err := NewStreamingParser(path, settings)
//	if err != nil { ... }
//	defer parser.Close()
//	for parser.Next() {
//	    row := parser.Row()
//	}
//	if err := parser.Err(); err != nil { ... }
type StreamingParser struct {
	file    *os.File
	name    string
	reader  *csv.Reader
	nulls   types.NullSet
	headers []string
	current []types.Cell
	err     error
}

// NewStreamingParser opens filePath and reads its header row.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	name := filepath.Base(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, &types.ParseError{File: name, Err: err}
	}

	decoded, err := decodingReader(bufio.NewReader(file), settings.Encoding)
	if err != nil {
		file.Close()
		return nil, &types.ParseError{File: name, Err: err}
	}

	reader := csv.NewReader(decoded)
	if err := configureReader(reader, settings); err != nil {
		file.Close()
		return nil, &types.ParseError{File: name, Err: err}
	}

	nullValues := settings.NullValues
	if nullValues == nil {
		nullValues = types.DefaultNullValues
	}

	parser := &StreamingParser{
		file:   file,
		name:   name,
		reader: reader,
		nulls:  types.NewNullSet(nullValues),
	}

	if err := parser.readHeaders(); err != nil {
		file.Close()
		return nil, err
	}

	return parser, nil
}

func (p *StreamingParser) readHeaders() error {
	row, err := p.reader.Read()
	if err == io.EOF {
		return &types.ParseError{File: p.name, Err: types.ErrNoColumns}
	}
	if err != nil {
		return p.wrap(err)
	}
	if err := p.checkUTF8(row); err != nil {
		return err
	}

	// The header may carry leading spaces or a BOM left over from a
	// re-encoded export.
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	p.headers = headers
	return nil
}

// Headers returns the raw header row. Duplicate and blank names are cleaned
// up by types.NewDataset.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// Next advances to the next data row. It returns false at the end of the
// file or on error; check Err afterwards.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	row, err := p.reader.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		p.err = p.wrap(err)
		return false
	}

	if err := p.checkUTF8(row); err != nil {
		p.err = err
		return false
	}

	if len(row) > len(p.headers) {
		line, _ := p.reader.FieldPos(0)
		p.err = &types.ParseError{
			File: p.name,
			Line: line,
			Err:  fmt.Errorf("expected %d fields, saw %d", len(p.headers), len(row)),
		}
		return false
	}

	cells := make([]types.Cell, len(p.headers))
	for i, v := range row {
		cells[i] = p.nulls.NewCell(v)
	}
	p.current = cells
	return true
}

// Row returns the current row, padded to the header width.
func (p *StreamingParser) Row() []types.Cell {
	return p.current
}

// Err returns the first error encountered by Next.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close releases the underlying file.
func (p *StreamingParser) Close() error {
	return p.file.Close()
}

func (p *StreamingParser) wrap(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &types.ParseError{File: p.name, Line: csvErr.Line, Err: csvErr.Err}
	}
	return &types.ParseError{File: p.name, Err: err}
}
