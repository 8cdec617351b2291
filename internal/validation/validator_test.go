package validation

import (
	"strings"
	"testing"

	"github.com/ginjaninja78/tabular-loader/internal/mapping"
)

func parseDoc(tb testing.TB, src string) *mapping.Document {
	tb.Helper()
	doc, err := mapping.Parse([]byte(src), mapping.FormatYAML)
	if err != nil {
		tb.Fatalf("parse mapping: %v", err)
	}
	return doc
}

func rules(errs []*ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Severity + ":" + e.Rule
	}
	return out
}

func TestValidateEntry(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
good.csv:
  data_source: crm
  columns: {id: Id, mail: Email}
  attributes: {tier: Tier}
list.csv:
  columns: [id, name]
typo.csv:
  columns: {id: id, name: Nickname}
dup.xlsx:
  columns: {mail: Email, email2: Email}
  attributes: {a: Tag, b: Tag}
empty.csv:
  data_source: null
  columns: {}
  attributes: {}
notes.txt:
  columns: {id: Id}
nested.csv:
  columns: {id: [Id]}
`)

	tests := []struct {
		file string
		want []string
	}{
		{"good.csv", nil},
		{"list.csv", []string{"error:shape"}},
		{"typo.csv", []string{"error:unknown_target", "error:unknown_target"}},
		{"dup.xlsx", []string{"warning:duplicate_target", "warning:duplicate_attribute"}},
		{"empty.csv", []string{"warning:null_data_source", "warning:no_columns", "warning:empty_attributes"}},
		{"notes.txt", []string{"warning:unsupported_file"}},
		{"nested.csv", []string{"error:decode"}},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got := rules(v.ValidateEntry(doc, tt.file))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("findings = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateEntry_Suggestion(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, "a.csv: {columns: {mail: email}}")
	errs := NewValidator().ValidateEntry(doc, "a.csv")
	if len(errs) != 1 {
		t.Fatalf("got %d findings, want 1", len(errs))
	}
	if !strings.Contains(errs[0].Message, `did you mean "Email"?`) {
		t.Errorf("message = %s", errs[0].Message)
	}
	if errs[0].Field != "mail" {
		t.Errorf("field = %s, want mail", errs[0].Field)
	}
}

func TestValidateDocument(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
a.csv: {columns: {id: Id}}
b.csv: {columns: {}}
`)
	result := Validate(doc)
	if !result.IsValid || result.ErrorCount != 0 || result.WarningCount != 1 || result.EntriesValidated != 2 {
		t.Errorf("result = %+v", result)
	}

	strict := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true}).ValidateDocument(doc)
	if strict.IsValid {
		t.Error("warnings should invalidate the document in strict mode")
	}

	bad := Validate(parseDoc(t, "a.csv: 42\n"))
	if bad.IsValid || bad.ErrorCount != 1 {
		t.Errorf("result = %+v", bad)
	}
}

func TestFormatErrors(t *testing.T) {
	t.Parallel()

	if got := FormatErrors(nil); got != "No problems found.\n" {
		t.Errorf("FormatErrors(nil) = %q", got)
	}

	got := FormatErrors([]*ValidationError{
		{Severity: SeverityError, File: "a.csv", Field: "x", Message: "bad target"},
		{Severity: SeverityWarning, File: "b.csv", Message: "no columns"},
	})
	want := "[ERROR] a.csv, field 'x': bad target\n[WARNING] b.csv: no columns\n"
	if got != want {
		t.Errorf("FormatErrors = %q, want %q", got, want)
	}
}
