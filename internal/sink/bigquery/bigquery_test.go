package bigquery

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/ginjaninja78/tabular-loader/internal/types"
)

func TestSchema(t *testing.T) {
	t.Parallel()

	if len(Schema) != len(types.Columns) {
		t.Fatalf("schema has %d fields, want %d", len(Schema), len(types.Columns))
	}
	for i, f := range Schema {
		if f.Name != types.Columns[i] {
			t.Errorf("field %d = %s, want %s", i, f.Name, types.Columns[i])
		}
	}

	byName := map[string]*bigquery.FieldSchema{}
	for _, f := range Schema {
		byName[f.Name] = f
	}
	if !byName["SourceFile"].Required {
		t.Error("SourceFile must be REQUIRED")
	}
	if f := byName["BQInsertedDate"]; !f.Required || f.Type != bigquery.TimestampFieldType {
		t.Errorf("BQInsertedDate = %+v", f)
	}
	attrs := byName["Attributes"]
	if !attrs.Repeated || attrs.Type != bigquery.RecordFieldType || len(attrs.Schema) != 2 {
		t.Fatalf("Attributes = %+v", attrs)
	}
	if !attrs.Schema[0].Required || attrs.Schema[1].Required {
		t.Error("attribute Key must be REQUIRED and Value NULLABLE")
	}
	if byName["Email"].Required {
		t.Error("Email must be NULLABLE")
	}
}

func TestEncodeNDJSON(t *testing.T) {
	t.Parallel()

	email := "a@x.com"
	tier := "gold"
	loc := time.FixedZone("AEST", 10*3600)
	records := []types.Record{
		{
			Email:          &email,
			SourceFile:     "a.csv",
			Attributes:     []types.Attribute{{Key: "Tier", Value: &tier}},
			BQInsertedDate: time.Date(2024, 3, 1, 19, 30, 0, 0, loc),
		},
		{
			SourceFile:     "a.csv",
			Attributes:     []types.Attribute{},
			BQInsertedDate: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
	}

	payload, err := EncodeNDJSON(records)
	if err != nil {
		t.Fatalf("EncodeNDJSON: %v", err)
	}

	var lines []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(payload))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	first := lines[0]
	if first["Email"] != "a@x.com" || first["Id"] != nil {
		t.Errorf("first row = %v", first)
	}
	if got, want := first["BQInsertedDate"], "2024-03-01 09:30:00.000000+00:00"; got != want {
		t.Errorf("BQInsertedDate = %v, want %s", got, want)
	}
	attrs, ok := first["Attributes"].([]any)
	if !ok || len(attrs) != 1 {
		t.Fatalf("Attributes = %v", first["Attributes"])
	}

	second, ok := lines[1]["Attributes"].([]any)
	if !ok || len(second) != 0 {
		t.Errorf("empty attributes should encode as [], got %v", lines[1]["Attributes"])
	}
}
