package mapping

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func node(tb testing.TB, src string) *yaml.Node {
	tb.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		tb.Fatalf("unmarshal %q: %v", src, err)
	}
	return &n
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"columns only", "columns: {a: Id}", true},
		{"empty columns", "columns: {}", true},
		{"with attributes", "columns: {a: Id}\nattributes: {b: Tier}", true},
		{"empty attributes", "columns: {a: Id}\nattributes: {}", true},
		{"extra keys ignored", "columns: {a: Id}\nnotes: hello", true},
		{"missing columns", "data_source: crm", false},
		{"columns list", "columns: [a, b]", false},
		{"columns scalar", "columns: Id", false},
		{"columns null", "columns:", false},
		{"attributes list", "columns: {a: Id}\nattributes: [b]", false},
		{"attributes null", "columns: {a: Id}\nattributes: ~", false},
		{"attributes scalar", "columns: {a: Id}\nattributes: x", false},
		{"entry is list", "- columns", false},
		{"entry is scalar", "hello", false},
		{"entry is null", "~", false},
		{"empty document", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Validate(node(t, tt.src)); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestValidate_NilAndCyclicNodes(t *testing.T) {
	t.Parallel()

	if Validate(nil) {
		t.Error("Validate(nil) = true, want false")
	}

	cyclic := &yaml.Node{Kind: yaml.AliasNode}
	cyclic.Alias = cyclic
	if Validate(cyclic) {
		t.Error("Validate(cyclic alias) = true, want false")
	}

	if Validate(&yaml.Node{}) {
		t.Error("Validate(zero node) = true, want false")
	}
}

func TestDocumentValidate_ThroughParse(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`
good.csv: {columns: {a: Id}}
bad.csv: {columns: [a]}
list.csv: [1, 2]
`), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for name, want := range map[string]bool{
		"good.csv":    true,
		"bad.csv":     false,
		"list.csv":    false,
		"missing.csv": false,
	} {
		if got := doc.Validate(name); got != want {
			t.Errorf("Validate(%s) = %v, want %v", name, got, want)
		}
	}
}
