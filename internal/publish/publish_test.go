package publish

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/converter"
	"github.com/segmentio/kafka-go"
)

func sampleRun() Run {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Second)
	msg := "error parsing b.csv at line 3: expected 2 fields, saw 3"
	return Run{
		ID:         "run-42",
		StartedAt:  start,
		FinishedAt: end,
		Stats: converter.RunStatistics{
			"a.csv": {Status: converter.StatusSuccess, TotalRows: 5, ProcessedRows: 5, StartTime: start, EndTime: &end},
			"b.csv": {Status: converter.StatusFailed, TotalRows: 0, ErrorMessage: &msg, StartTime: start, EndTime: &end},
		},
	}
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	run := sampleRun()
	if got := run.Status(); got != StatusPartial {
		t.Errorf("Status = %s, want %s", got, StatusPartial)
	}

	run.Stats = converter.RunStatistics{"a.csv": {Status: converter.StatusSuccess}, "x.txt": {Status: converter.StatusSkipped}}
	if got := run.Status(); got != StatusSuccess {
		t.Errorf("Status = %s, want %s", got, StatusSuccess)
	}

	run.Err = errors.New("statistics file unwritable")
	if got := run.Status(); got != StatusFailed {
		t.Errorf("Status = %s, want %s", got, StatusFailed)
	}
}

func TestRedisPublisher(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	p := NewRedisPublisher(config.ResultLogConfig{
		Type:    "redis",
		Address: mr.Addr(),
		Name:    "nightly",
		TTL:     time.Hour,
	})
	defer p.Close()

	ctx := context.Background()
	sub := p.client.Subscribe(ctx, p.Channel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := p.Publish(ctx, sampleRun()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if p.StateKey() != "loader:run:nightly:state" || p.Channel() != "loader:run:nightly" {
		t.Errorf("keys = %s, %s", p.StateKey(), p.Channel())
	}

	raw, err := mr.Get(p.StateKey())
	if err != nil {
		t.Fatalf("state key missing: %v", err)
	}
	if ttl := mr.TTL(p.StateKey()); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	var got RunResult
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := RunResult{
		RunID:         "run-42",
		Name:          "nightly",
		Status:        StatusPartial,
		StartedAt:     "2024-06-01T12:00:00Z",
		FinishedAt:    "2024-06-01T12:00:03Z",
		DurationMs:    3000,
		Files:         2,
		Succeeded:     1,
		Failed:        1,
		RowsTotal:     5,
		RowsProcessed: 5,
	}
	if got != want {
		t.Errorf("state = %+v, want %+v", got, want)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != raw {
			t.Errorf("published payload differs from stored state:\n%s\n%s", msg.Payload, raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisPublisher_RunError(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	p := NewRedisPublisher(config.ResultLogConfig{Address: mr.Addr(), Name: "x", TTL: time.Minute})
	defer p.Close()

	run := sampleRun()
	run.Err = errors.New("disk full")
	if err := p.Publish(context.Background(), run); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	raw, _ := mr.Get(p.StateKey())
	if !strings.Contains(raw, `"error":"disk full"`) || !strings.Contains(raw, `"status":"failed"`) {
		t.Errorf("state = %s", raw)
	}
}

func TestRedisPublisher_Unreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	p := NewRedisPublisher(config.ResultLogConfig{Address: addr, Name: "x", TTL: time.Minute})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Publish(ctx, sampleRun()); err == nil {
		t.Fatal("Publish to a closed server should fail")
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestMessages(t *testing.T) {
	t.Parallel()

	msgs, err := Messages(sampleRun())
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if string(msgs[0].Key) != "a.csv" || string(msgs[1].Key) != "b.csv" {
		t.Errorf("keys = %s, %s", msgs[0].Key, msgs[1].Key)
	}

	var ev map[string]any
	if err := json.Unmarshal(msgs[1].Value, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev["run_id"] != "run-42" || ev["file"] != "b.csv" || ev["status"] != "failed" {
		t.Errorf("event = %v", ev)
	}
	if !strings.HasPrefix(ev["error_message"].(string), "error parsing b.csv") {
		t.Errorf("error_message = %v", ev["error_message"])
	}

	headers := map[string]string{}
	for _, h := range msgs[1].Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["status"] != "failed" || headers["run-id"] != "run-42" {
		t.Errorf("headers = %v", headers)
	}
}

func TestKafkaPublisher(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "loads"}
	if err := p.Publish(context.Background(), sampleRun()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Errorf("wrote %d messages, want 2", len(w.msgs))
	}

	if err := p.Publish(context.Background(), Run{ID: "empty"}); err != nil {
		t.Fatalf("Publish empty run: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Error("empty run should write nothing")
	}

	w.err = errors.New("leader not available")
	if err := p.Publish(context.Background(), sampleRun()); err == nil || !strings.Contains(err.Error(), "loads") {
		t.Errorf("Publish error = %v", err)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("Close did not reach the writer")
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaPublisher(config.EventsConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("missing topic should fail")
	}
	if _, err := NewKafkaPublisher(config.EventsConfig{Topic: "loads"}); err == nil {
		t.Error("missing brokers should fail")
	}
	p, err := NewKafkaPublisher(config.EventsConfig{Type: "kafka", Brokers: []string{"localhost:9092"}, Topic: "loads"})
	if err != nil {
		t.Fatalf("NewKafkaPublisher: %v", err)
	}
	p.Close()
}
