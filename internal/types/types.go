// =============================================================================
// Tabular Loader - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (produce Datasets)
//   - converter (turns Datasets into Records)
//   - sink implementations (consume Records)
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SOURCE DATA
// =============================================================================

// Cell is a single value read from an input file.
// Valid is false when the source value is blank: empty, whitespace only,
// or one of the configured null markers.
type Cell struct {
	Value string
	Valid bool
}

// Ptr returns the cell text, or nil for a blank cell.
func (c Cell) Ptr() *string {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}

// NullSet is the set of cell texts treated as blank.
type NullSet map[string]struct{}

// DefaultNullValues are the markers treated as missing data when no
// explicit list is configured. They match what spreadsheet exports and
// pandas-based tooling conventionally write for empty cells.
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// NewNullSet builds a NullSet from a list of markers.
// The empty string is always a member.
func NewNullSet(values []string) NullSet {
	set := make(NullSet, len(values)+1)
	set[""] = struct{}{}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// NewCell classifies raw against the null set. Text is kept as written:
// only an exact null marker (or the empty string) is blank, so " " and
// "  John" stay valid values.
func (s NullSet) NewCell(raw string) Cell {
	if _, blank := s[raw]; blank {
		return Cell{}
	}
	return Cell{Value: raw, Valid: true}
}

// Dataset is an in-memory table read from one input file.
// Every row has exactly len(Columns) cells.
type Dataset struct {
	Columns []string
	Rows    [][]Cell

	index map[string]int
}

// NewDataset creates an empty dataset with the given header.
//
// Header cleanup:
//   - blank headers become "Unnamed: <position>"
//   - repeated headers get a ".1", ".2", ... suffix so every column name is
//     unique and a column lookup always yields one value per row
func NewDataset(header []string) *Dataset {
	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}

		base := name
		for {
			if _, taken := index[name]; !taken {
				break
			}
			seen[base]++
			name = base + "." + strconv.Itoa(seen[base])
		}

		columns[i] = name
		index[name] = i
	}

	return &Dataset{Columns: columns, index: index}
}

// Append adds a row, padding short rows with blank cells.
// Callers must reject rows longer than the header.
func (d *Dataset) Append(row []Cell) {
	if len(row) < len(d.Columns) {
		padded := make([]Cell, len(d.Columns))
		copy(padded, row)
		row = padded
	}
	d.Rows = append(d.Rows, row)
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of the named column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// =============================================================================
// PARSE ERRORS
// =============================================================================

// ErrNoColumns is returned for an input file without a header row.
var ErrNoColumns = errors.New("no columns to parse from file")

// ParseError reports an input file that could not be read as a table.
type ParseError struct {
	// File is the base name of the input file.
	File string

	// Line is the 1-based line or row number, or 0 when not applicable.
	Line int

	Err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error parsing %s at line %d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("error parsing %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// NORMALIZED RECORDS
// =============================================================================

// Attribute is one key/value pair of a record's free-form attributes.
type Attribute struct {
	Key   string  `json:"Key"`
	Value *string `json:"Value"`
}

// Record is one normalized row, ready for the warehouse.
// A nil text field is stored as NULL.
type Record struct {
	Id                 *string     `json:"Id"`
	FirstName          *string     `json:"FirstName"`
	LastName           *string     `json:"LastName"`
	Email              *string     `json:"Email"`
	Mobile             *string     `json:"Mobile"`
	PostCode           *string     `json:"PostCode"`
	DataSource         *string     `json:"DataSource"`
	SourceCreatedDate  *string     `json:"SourceCreatedDate"`
	SourceModifiedDate *string     `json:"SourceModifiedDate"`
	SourceFile         string      `json:"SourceFile"`
	Attributes         []Attribute `json:"Attributes"`
	BQInsertedDate     time.Time   `json:"BQInsertedDate"`
}

// Record field names, in warehouse column order.
const (
	FieldId                 = "Id"
	FieldFirstName          = "FirstName"
	FieldLastName           = "LastName"
	FieldEmail              = "Email"
	FieldMobile             = "Mobile"
	FieldPostCode           = "PostCode"
	FieldDataSource         = "DataSource"
	FieldSourceCreatedDate  = "SourceCreatedDate"
	FieldSourceModifiedDate = "SourceModifiedDate"
	FieldSourceFile         = "SourceFile"
	FieldAttributes         = "Attributes"
	FieldBQInsertedDate     = "BQInsertedDate"
)

// Columns lists every warehouse column in schema order.
var Columns = []string{
	FieldId, FieldFirstName, FieldLastName, FieldEmail, FieldMobile,
	FieldPostCode, FieldDataSource, FieldSourceCreatedDate,
	FieldSourceModifiedDate, FieldSourceFile, FieldAttributes,
	FieldBQInsertedDate,
}

// ErrUnknownField is returned by Set for names outside the writable fields.
type ErrUnknownField struct {
	Field string
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown target field %q", e.Field)
}

// IsMappable reports whether a column mapping may target field.
// Attributes and BQInsertedDate are produced by the loader itself.
func IsMappable(field string) bool {
	switch field {
	case FieldId, FieldFirstName, FieldLastName, FieldEmail, FieldMobile,
		FieldPostCode, FieldDataSource, FieldSourceCreatedDate,
		FieldSourceModifiedDate, FieldSourceFile:
		return true
	}
	return false
}

// Set assigns v to the named text field.
// SourceFile is required, so a nil value stores an empty string.
func (r *Record) Set(field string, v *string) error {
	switch field {
	case FieldId:
		r.Id = v
	case FieldFirstName:
		r.FirstName = v
	case FieldLastName:
		r.LastName = v
	case FieldEmail:
		r.Email = v
	case FieldMobile:
		r.Mobile = v
	case FieldPostCode:
		r.PostCode = v
	case FieldDataSource:
		r.DataSource = v
	case FieldSourceCreatedDate:
		r.SourceCreatedDate = v
	case FieldSourceModifiedDate:
		r.SourceModifiedDate = v
	case FieldSourceFile:
		if v == nil {
			r.SourceFile = ""
		} else {
			r.SourceFile = *v
		}
	default:
		return &ErrUnknownField{Field: field}
	}
	return nil
}
