package mapping

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultDataSource is used when an entry has no data_source key.
const DefaultDataSource = "unknown"

// ErrInvalidShape is returned by Decode for an entry that fails Validate.
var ErrInvalidShape = errors.New("invalid mapping configuration")

// Pair maps one source column to a target name.
type Pair struct {
	Source string
	Target string
}

// FileMapping is the typed view of a valid mapping entry.
type FileMapping struct {
	// DataSource is nil when the document sets data_source to null.
	DataSource *string

	// Columns map source columns to record fields, in document order.
	Columns []Pair

	// Attributes map source columns to attribute keys, in document order.
	// HasAttributes distinguishes an empty attributes mapping from none.
	Attributes    []Pair
	HasAttributes bool
}

// Decode converts a raw entry into a FileMapping.
//
// RETURNS:
//   - ErrInvalidShape when the entry fails Validate.
//   - An error when data_source is not a scalar, or a column or attribute
//     has a missing or non-scalar name.
func Decode(entry *yaml.Node) (*FileMapping, error) {
	if !Validate(entry) {
		return nil, ErrInvalidShape
	}

	fm := &FileMapping{}

	ds, ok := field(entry, "data_source")
	switch {
	case !ok:
		v := DefaultDataSource
		fm.DataSource = &v
	case isNull(ds):
		fm.DataSource = nil
	default:
		v, ok := scalarText(ds)
		if !ok {
			return nil, fmt.Errorf("data_source must be a scalar, got %s", kindName(ds))
		}
		fm.DataSource = &v
	}

	columns, _ := field(entry, "columns")
	pairs, err := decodePairs(columns, "column")
	if err != nil {
		return nil, err
	}
	fm.Columns = pairs

	if attrs, ok := field(entry, "attributes"); ok {
		pairs, err := decodePairs(attrs, "attribute")
		if err != nil {
			return nil, err
		}
		fm.Attributes = pairs
		fm.HasAttributes = true
	}

	return fm, nil
}

func decodePairs(n *yaml.Node, what string) ([]Pair, error) {
	var out []Pair
	for _, p := range mappingPairs(n) {
		src, ok := scalarText(p.key)
		if !ok {
			return nil, fmt.Errorf("%s source must be a column name, got %s", what, kindName(p.key))
		}
		dst, ok := scalarText(p.value)
		if !ok {
			return nil, fmt.Errorf("%s %q: target must be a name, got %s", what, src, kindName(p.value))
		}
		out = append(out, Pair{Source: src, Target: dst})
	}
	return out, nil
}
