// =============================================================================
// Tabular Loader - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which loads a mapping document
// and reports problems without reading any input file or touching the sink.
//
// COMMAND USAGE:
//   loader validate --mapping-file mapping.yaml [--strict]
//
// EXIT STATUS:
//   0 when the document has no errors (or no warnings, with --strict),
//   1 otherwise.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/ginjaninja78/tabular-loader/internal/validation"
	"github.com/spf13/cobra"
)

var (
	validateMappingFile   string
	validateMappingFormat string
	validateStrict        bool
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a mapping document without loading data",
	Long: `The validate command loads the mapping document and checks every entry:
entries with an invalid shape or a target that is not a record field are
errors, since those files would fail; dead or suspicious entries are warnings.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), validateMappingFile, validateMappingFormat, validateStrict)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateMappingFile, "mapping-file", "", "Mapping document (.yaml, .yml or .json)")
	validateCmd.Flags().StringVar(&validateMappingFormat, "mapping-format", "", "Mapping format (yaml or json); defaults to the file suffix")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat warnings as errors")
	validateCmd.MarkFlagRequired("mapping-file")
}

func runValidate(out io.Writer, path, format string, strict bool) error {
	doc, err := loadMapping(path, format)
	if err != nil {
		return err
	}

	v := validation.NewValidatorWithOptions(validation.ValidationOptions{TreatWarningsAsErrors: strict})
	result := v.ValidateDocument(doc)

	fmt.Fprint(out, validation.FormatErrors(result.Errors))
	fmt.Fprintf(out, "%d entries checked: %d errors, %d warnings\n",
		result.EntriesValidated, result.ErrorCount, result.WarningCount)

	logger.Debug().
		Str("mapping", path).
		Bool("valid", result.IsValid).
		Msg("Validated mapping document")

	if !result.IsValid {
		return fmt.Errorf("mapping document %s is not valid", path)
	}
	return nil
}
