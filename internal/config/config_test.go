package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(tb testing.TB, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.StatisticsFile != "processing_stats.json" {
		t.Errorf("StatisticsFile = %q", cfg.StatisticsFile)
	}
	if cfg.Sink.Kind != SinkBigQuery {
		t.Errorf("Sink.Kind = %q, want bigquery", cfg.Sink.Kind)
	}
	if !cfg.Sink.ShouldCreateTable() {
		t.Error("create_table should default to true")
	}
	if cfg.CSV.Delimiter != "," || cfg.CSV.Encoding != "utf-8" {
		t.Errorf("CSV = %+v", cfg.CSV)
	}
	if len(cfg.CSV.NullValues) == 0 {
		t.Error("CSV null values should default to the standard markers")
	}
	if cfg.ResultLog.Enabled() || cfg.Events.Enabled() || cfg.Metrics.Enabled() {
		t.Error("publishers must be disabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMainConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log_level: debug
csv:
  delimiter: ";"
  encoding: windows-1252
  null_values: ["-"]
sink:
  kind: sqlite
  create_table: false
result_log:
  type: redis
  address: localhost:6379
  ttl: 1h
`)
	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}
	if cfg.CSV.Delimiter != ";" || cfg.CSV.Encoding != "windows-1252" {
		t.Errorf("CSV = %+v", cfg.CSV)
	}
	if len(cfg.CSV.NullValues) != 1 || cfg.CSV.NullValues[0] != "-" {
		t.Errorf("NullValues = %v", cfg.CSV.NullValues)
	}
	if cfg.Sink.ShouldCreateTable() {
		t.Error("create_table: false was ignored")
	}
	if cfg.ResultLog.TTL != time.Hour || cfg.ResultLog.Name != "loader" {
		t.Errorf("ResultLog = %+v", cfg.ResultLog)
	}
	if cfg.StatisticsFile != "processing_stats.json" {
		t.Errorf("StatisticsFile default not applied: %q", cfg.StatisticsFile)
	}
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad kind", "sink: {kind: oracle}", "sink.kind"},
		{"bad level", "log_level: loud", "log_level"},
		{"bad delimiter", "csv: {delimiter: ';;'}", "csv.delimiter"},
		{"redis without address", "result_log: {type: redis}", "result_log.address"},
		{"kafka without topic", "events: {type: kafka, brokers: [b:9092]}", "events.brokers"},
		{"unknown events", "events: {type: nats}", "events.type"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadMainConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestLoadMainConfig_Missing(t *testing.T) {
	t.Parallel()

	if _, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestValidateTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sink SinkConfig
		ok   bool
	}{
		{"bigquery full", SinkConfig{Kind: SinkBigQuery, Project: "p", Dataset: "d", Table: "t"}, true},
		{"bigquery no project", SinkConfig{Kind: SinkBigQuery, Dataset: "d", Table: "t"}, false},
		{"sqlite no project", SinkConfig{Kind: SinkSQLite, Dataset: "d", Table: "t"}, true},
		{"no table", SinkConfig{Kind: SinkSQLite, Dataset: "d"}, false},
		{"no dataset", SinkConfig{Kind: SinkSQLite, Table: "t"}, false},
		{"postgres no dsn", SinkConfig{Kind: SinkPostgres, Dataset: "d", Table: "t"}, false},
		{"xml no dsn", SinkConfig{Kind: SinkXML, Dataset: "d", Table: "t"}, true},
	}
	for _, tt := range tests {
		if err := ValidateTarget(tt.sink); (err == nil) != tt.ok {
			t.Errorf("%s: ValidateTarget = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}
