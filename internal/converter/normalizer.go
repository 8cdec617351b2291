package converter

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/mapping"
	"github.com/ginjaninja78/tabular-loader/internal/types"
)

// SourceDateLayout formats SourceCreatedDate and SourceModifiedDate.
const SourceDateLayout = "2006-01-02 15:04:05"

// Normalize turns the rows of a dataset into warehouse records.
//
// PARAMETERS:
//   - ds: The parsed input file.
//   - fm: The decoded mapping entry for the file.
//   - filename: Stored in SourceFile.
//   - ts: The processing timestamp; every timestamp field derives from it.
//
// RETURNS:
//   - One record per row, in row order.
//   - Warnings for mapped source columns missing from the dataset.
//   - An error if a mapping targets a field that is not a record field.
//
// Normalize is pure: the same inputs always produce equal output.
func Normalize(ds *types.Dataset, fm *mapping.FileMapping, filename string, ts time.Time) ([]types.Record, []string, error) {
	for _, col := range fm.Columns {
		if !types.IsMappable(col.Target) {
			return nil, nil, fmt.Errorf("column %q: %w", col.Source, &types.ErrUnknownField{Field: col.Target})
		}
	}

	stamp := ts.Format(SourceDateLayout)
	records := make([]types.Record, ds.Len())
	for i := range records {
		records[i] = types.Record{
			DataSource:         copyPtr(fm.DataSource),
			SourceCreatedDate:  &stamp,
			SourceModifiedDate: &stamp,
			SourceFile:         filename,
			Attributes:         []types.Attribute{},
			BQInsertedDate:     ts,
		}
	}

	var warnings []string
	for _, col := range fm.Columns {
		idx, ok := ds.ColumnIndex(col.Source)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Column %s not found in %s", col.Source, filename))
			continue
		}
		for i, row := range ds.Rows {
			// Target names were checked above, so Set cannot fail here.
			_ = records[i].Set(col.Target, row[idx].Ptr())
		}
	}

	if fm.HasAttributes {
		type attrColumn struct {
			key string
			idx int
		}
		var present []attrColumn
		for _, attr := range fm.Attributes {
			if idx, ok := ds.ColumnIndex(attr.Source); ok {
				present = append(present, attrColumn{key: attr.Target, idx: idx})
			}
		}
		for i, row := range ds.Rows {
			for _, a := range present {
				if v := row[a.idx].Ptr(); v != nil {
					records[i].Attributes = append(records[i].Attributes, types.Attribute{Key: a.key, Value: v})
				}
			}
		}
	}

	return records, warnings, nil
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
