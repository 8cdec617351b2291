// =============================================================================
// Tabular Loader - Mapping Lint
// =============================================================================
//
// This module checks a mapping document without touching any data. It
// reports what the loader would do with each entry before a run:
//   - Entries whose shape is invalid (the file would fail)
//   - Column targets that are not record fields (the file would fail)
//   - File names the loader never reads (the entry is dead)
//   - Suspicious but legal entries: no columns, two sources writing one
//     field, repeated attribute keys, a null data_source
//
// ERROR HANDLING:
//   - Findings are collected, not returned one at a time
//   - "error" findings mean the file would fail at load time
//   - "warning" findings mean the file loads, possibly not as intended
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/tabular-loader/internal/converter"
	"github.com/ginjaninja78/tabular-loader/internal/mapping"
	"github.com/ginjaninja78/tabular-loader/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rules reported by the lint.
const (
	RuleShape           = "shape"
	RuleDecode          = "decode"
	RuleUnknownTarget   = "unknown_target"
	RuleUnsupportedFile = "unsupported_file"
	RuleNoColumns       = "no_columns"
	RuleDuplicateTarget = "duplicate_target"
	RuleDuplicateAttr   = "duplicate_attribute"
	RuleEmptyAttributes = "empty_attributes"
	RuleNullDataSource  = "null_data_source"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// File is the mapping entry the finding belongs to.
	File string

	// Field is the source column or target involved, if any.
	Field string

	// Rule is the check that produced the finding.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), e.File, e.Message)
	}
	return fmt.Sprintf("[%s] %s, field '%s': %s", strings.ToUpper(e.Severity), e.File, e.Field, e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the findings for a whole document.
type ValidationResult struct {
	// IsValid is true if there are no error findings.
	IsValid bool

	// Errors contains all findings, warnings included, in document order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// EntriesValidated is the number of mapping entries checked.
	EntriesValidated int
}

// ValidationOptions contains options for the lint.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the document.
	// Default: false
	TreatWarningsAsErrors bool
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator lints mapping documents.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate lints doc with default options.
func Validate(doc *mapping.Document) *ValidationResult {
	return NewValidator().ValidateDocument(doc)
}

// ValidateDocument checks every entry of doc.
func (v *Validator) ValidateDocument(doc *mapping.Document) *ValidationResult {
	result := &ValidationResult{}
	for _, name := range doc.Names() {
		result.Errors = append(result.Errors, v.ValidateEntry(doc, name)...)
		result.EntriesValidated++
	}

	for _, e := range result.Errors {
		if e.Severity == SeverityError {
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
	}
	result.IsValid = result.ErrorCount == 0
	if v.options.TreatWarningsAsErrors && result.WarningCount > 0 {
		result.IsValid = false
	}
	return result
}

// ValidateEntry checks the entry for one file name.
func (v *Validator) ValidateEntry(doc *mapping.Document, name string) []*ValidationError {
	var out []*ValidationError
	add := func(severity, field, rule, format string, args ...any) {
		out = append(out, &ValidationError{
			Severity: severity,
			File:     name,
			Field:    field,
			Rule:     rule,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if _, ok := converter.DetectFileType(name); !ok {
		add(SeverityWarning, "", RuleUnsupportedFile, "not a .csv or .xlsx file name; the entry is never used")
	}

	entry, _ := doc.Lookup(name)
	if !mapping.Validate(entry) {
		add(SeverityError, "", RuleShape, "entry must be a mapping with a 'columns' mapping and an optional 'attributes' mapping")
		return out
	}

	fm, err := mapping.Decode(entry)
	if err != nil {
		add(SeverityError, "", RuleDecode, "%v", err)
		return out
	}

	if fm.DataSource == nil {
		add(SeverityWarning, "data_source", RuleNullDataSource, "data_source is null; records get no data source")
	}

	if len(fm.Columns) == 0 {
		add(SeverityWarning, "", RuleNoColumns, "no columns mapped; records carry defaults only")
	}

	targets := make(map[string]string, len(fm.Columns))
	for _, col := range fm.Columns {
		if !types.IsMappable(col.Target) {
			msg := fmt.Sprintf("target %q is not a record field", col.Target)
			if s := suggest(col.Target); s != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", s)
			}
			add(SeverityError, col.Source, RuleUnknownTarget, "%s", msg)
			continue
		}
		if prev, dup := targets[col.Target]; dup {
			add(SeverityWarning, col.Source, RuleDuplicateTarget,
				"also writes %s, overwriting the value from '%s'", col.Target, prev)
		}
		targets[col.Target] = col.Source
	}

	if fm.HasAttributes {
		if len(fm.Attributes) == 0 {
			add(SeverityWarning, "attributes", RuleEmptyAttributes, "attributes is empty")
		}
		keys := make(map[string]string, len(fm.Attributes))
		for _, attr := range fm.Attributes {
			if prev, dup := keys[attr.Target]; dup {
				add(SeverityWarning, attr.Source, RuleDuplicateAttr,
					"attribute key %q is also produced by '%s'", attr.Target, prev)
			}
			keys[attr.Target] = attr.Source
		}
	}

	return out
}

// suggest returns the record field matching target case-insensitively.
func suggest(target string) string {
	for _, f := range types.Columns {
		if types.IsMappable(f) && strings.EqualFold(f, target) {
			return f
		}
	}
	return ""
}

// =============================================================================
// OUTPUT
// =============================================================================

// FormatErrors formats findings for display, one per line.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No problems found.\n"
	}

	var sb strings.Builder
	for _, e := range errors {
		sb.WriteString(e.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}
