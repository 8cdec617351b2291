// =============================================================================
// Tabular Loader - Main Entry Point
// =============================================================================
//
// USAGE:
//   loader process       - Load every CSV and XLSX file of a directory
//   loader validate      - Lint a mapping document without loading data
//   loader version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Mapping, parsing, normalization, sinks, publishing
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/tabular-loader/cmd"
)

func main() {
	cmd.Execute()
}
