package types

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewDataset_HeaderCleanup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{"unique", []string{"a", "b"}, []string{"a", "b"}},
		{"duplicates", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"blank", []string{"a", "", " "}, []string{"a", "Unnamed: 1", "Unnamed: 2"}},
		{"trimmed", []string{" Email "}, []string{"Email"}},
		{"suffix clash", []string{"a", "a.1", "a"}, []string{"a", "a.1", "a.2"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds := NewDataset(tt.header)
			if !reflect.DeepEqual(ds.Columns, tt.want) {
				t.Fatalf("got %v, want %v", ds.Columns, tt.want)
			}
			for i, c := range tt.want {
				if got, ok := ds.ColumnIndex(c); !ok || got != i {
					t.Errorf("ColumnIndex(%q) = %d,%v, want %d,true", c, got, ok, i)
				}
			}
		})
	}
}

func TestDataset_AppendPadsShortRows(t *testing.T) {
	t.Parallel()

	ds := NewDataset([]string{"a", "b", "c"})
	ds.Append([]Cell{{Value: "1", Valid: true}})

	if ds.Len() != 1 {
		t.Fatalf("got %d rows, want 1", ds.Len())
	}
	row := ds.Rows[0]
	if len(row) != 3 {
		t.Fatalf("got %d cells, want 3", len(row))
	}
	if row[1].Valid || row[2].Valid {
		t.Errorf("padding cells should be blank: %+v", row)
	}
}

func TestNullSet_NewCell(t *testing.T) {
	t.Parallel()

	nulls := NewNullSet(DefaultNullValues)
	tests := []struct {
		raw   string
		want  string
		valid bool
	}{
		{"alice", "alice", true},
		{"  bob  ", "  bob  ", true},
		{"", "", false},
		{"   ", "   ", true},
		{" NaN", " NaN", true},
		{"NaN", "", false},
		{"NULL", "", false},
		{"0", "0", true},
	}
	for _, tt := range tests {
		got := nulls.NewCell(tt.raw)
		if got.Valid != tt.valid || got.Value != tt.want {
			t.Errorf("NewCell(%q) = %+v, want {%q %v}", tt.raw, got, tt.want, tt.valid)
		}
	}

	custom := NewNullSet([]string{"-"})
	if c := custom.NewCell("NaN"); !c.Valid {
		t.Errorf("custom null set should keep NaN, got %+v", c)
	}
	if c := custom.NewCell("-"); c.Valid {
		t.Errorf("custom null set should blank '-', got %+v", c)
	}
}

func TestCell_Ptr(t *testing.T) {
	t.Parallel()

	if p := (Cell{}).Ptr(); p != nil {
		t.Fatalf("blank cell Ptr() = %q, want nil", *p)
	}
	p := Cell{Value: "x", Valid: true}.Ptr()
	if p == nil || *p != "x" {
		t.Fatalf("Ptr() = %v, want x", p)
	}
}

func TestRecord_Set(t *testing.T) {
	t.Parallel()

	var r Record
	v := "a@example.com"
	if err := r.Set(FieldEmail, &v); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if r.Email == nil || *r.Email != v {
		t.Fatalf("Email = %v, want %q", r.Email, v)
	}

	if err := r.Set(FieldSourceFile, nil); err != nil {
		t.Fatalf("Set SourceFile: %v", err)
	}
	if r.SourceFile != "" {
		t.Errorf("SourceFile = %q, want empty", r.SourceFile)
	}

	err := r.Set("Nickname", &v)
	var unknown *ErrUnknownField
	if !errors.As(err, &unknown) || unknown.Field != "Nickname" {
		t.Fatalf("got %v, want ErrUnknownField{Nickname}", err)
	}

	if IsMappable(FieldAttributes) || IsMappable(FieldBQInsertedDate) {
		t.Error("Attributes and BQInsertedDate must not be mappable")
	}
}

func TestParseError_Message(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	err := &ParseError{File: "a.csv", Line: 3, Err: base}
	if got, want := err.Error(), "error parsing a.csv at line 3: boom"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("ParseError should unwrap to the cause")
	}
}
