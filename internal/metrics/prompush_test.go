package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/converter"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func sampleStats() converter.RunStatistics {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	return converter.RunStatistics{
		"a.csv": {Status: converter.StatusSuccess, TotalRows: 3, ProcessedRows: 3, StartTime: start, EndTime: &end},
		"b.csv": {Status: converter.StatusFailed, TotalRows: 2, StartTime: start, EndTime: &end},
		"c.txt": {Status: converter.StatusSkipped, StartTime: start, EndTime: &end},
	}
}

func TestObserve(t *testing.T) {
	t.Parallel()

	p, err := New("", "http://gateway:9091", "run-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	finished := time.Unix(1700000000, 0)
	p.Observe(sampleStats(), finished)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"success files", testutil.ToFloat64(p.files.WithLabelValues("success")), 1},
		{"failed files", testutil.ToFloat64(p.files.WithLabelValues("failed")), 1},
		{"skipped files", testutil.ToFloat64(p.files.WithLabelValues("skipped")), 1},
		{"total rows", testutil.ToFloat64(p.rows.WithLabelValues("total")), 5},
		{"processed rows", testutil.ToFloat64(p.rows.WithLabelValues("processed")), 3},
		{"failed rows", testutil.ToFloat64(p.rows.WithLabelValues("failed")), 0},
		{"last run", testutil.ToFloat64(p.lastRun), 1700000000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNew_RequiresGateway(t *testing.T) {
	t.Parallel()

	if _, err := New("job", "", ""); err == nil {
		t.Fatal("New without gateway URL should fail")
	}
}

func TestPush(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := New("loader_test", srv.URL, "run-7")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Observe(sampleStats(), time.Now())

	if err := p.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(path, "/job/loader_test") || !strings.Contains(path, "/instance/run-7") {
		t.Errorf("push path = %s", path)
	}
	if body == "" {
		t.Error("push body is empty")
	}
}
