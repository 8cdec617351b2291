package xmlfile

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/rs/zerolog"
)

func record(file, id string) types.Record {
	return types.Record{
		Id:             &id,
		SourceFile:     file,
		Attributes:     []types.Attribute{},
		BQInsertedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func listDir(tb testing.TB, dir string) []string {
	tb.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		tb.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestSink_Append(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "export")
	s, err := sink.Open(context.Background(), config.SinkConfig{
		Kind:    config.SinkXML,
		DSN:     dir,
		Dataset: "crm",
		Table:   "contacts",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Append(ctx, []types.Record{record("a.csv", "1"), record("a.csv", "2")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, []types.Record{record("People.xlsx", "9")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, nil); err != nil {
		t.Fatalf("empty Append: %v", err)
	}

	want := []string{"contacts.xsd", "crm.contacts.People.0002.xml", "crm.contacts.a.0001.xml"}
	if got := listDir(t, dir); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", got, want)
	}

	data, err := os.ReadFile(filepath.Join(dir, "crm.contacts.a.0001.xml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<records dataset="crm" table="contacts" source="a.csv">`) {
		t.Errorf("root element missing:\n%s", data)
	}
	if strings.Count(string(data), "<record ") != 2 {
		t.Errorf("want 2 records:\n%s", data)
	}
}

func TestNew_NoSchema(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := New(dir, "", "t", false, zerolog.Nop()); err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("files = %v, want none", got)
	}

	if _, err := New(dir, "", " ", false, zerolog.Nop()); err == nil {
		t.Error("blank table should fail")
	}
}

func TestSink_CancelledContext(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir(), "", "t", false, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Append(ctx, []types.Record{record("a.csv", "1")}); err == nil {
		t.Error("Append with a cancelled context should fail")
	}
}
