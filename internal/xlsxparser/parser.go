// =============================================================================
// Tabular Loader - XLSX Parser Module
// =============================================================================
//
// This module reads a worksheet of an .xlsx workbook into a types.Dataset.
//
// SHEET LAYOUT:
//   Row 1      : column headers
//   Row 2..N   : data rows
//
// Cell values are read as displayed text, so numbers and dates keep the
// format the workbook gives them. Rows wider than the header add columns
// named "Unnamed: <position>".
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads one worksheet of an .xlsx file.
//
// PARAMETERS:
//   - filePath: The path to the workbook.
//   - settings: Sheet selection (empty = first sheet) and null markers.
//
// RETURNS:
//   - The dataset, one row per worksheet row after the header.
//   - A *types.ParseError if the workbook cannot be opened or read.
func Parse(filePath string, settings config.XLSXSettings) (*types.Dataset, error) {
	name := filepath.Base(filePath)

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, &types.ParseError{File: name, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer f.Close()

	sheetName, err := selectSheet(f, settings.Sheet)
	if err != nil {
		return nil, &types.ParseError{File: name, Err: err}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &types.ParseError{File: name, Err: fmt.Errorf("failed to read rows: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &types.ParseError{File: name, Err: types.ErrNoColumns}
	}

	// GetRows trims trailing empty cells, so the widest row decides the
	// column count.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	header := make([]string, width)
	copy(header, rows[0])

	nullValues := settings.NullValues
	if nullValues == nil {
		nullValues = types.DefaultNullValues
	}
	nulls := types.NewNullSet(nullValues)

	ds := types.NewDataset(header)
	for _, row := range rows[1:] {
		cells := make([]types.Cell, width)
		for i, v := range row {
			cells[i] = nulls.NewCell(v)
		}
		ds.Append(cells)
	}
	return ds, nil
}

// selectSheet returns the requested sheet name, or the first sheet.
func selectSheet(f *excelize.File, want string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if want == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == want {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found", want)
}
