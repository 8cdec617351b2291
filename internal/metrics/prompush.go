// Package metrics pushes run metrics to a Prometheus Pushgateway.
//
// The loader is a batch job with no scrape endpoint, so metrics are
// collected into a private registry and pushed once the run is over:
//
//	tabular_loader_files_total{status}
//	tabular_loader_rows_total{kind}        kind = total | processed | failed
//	tabular_loader_file_duration_seconds{status}
//	tabular_loader_last_run_timestamp_seconds
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/converter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pusher collects run metrics and pushes them to a Pushgateway.
type Pusher struct {
	gatewayURL string
	job        string
	runID      string
	reg        *prometheus.Registry

	files    *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.SummaryVec
	lastRun  prometheus.Gauge
}

// New builds a Pusher. runID becomes the "instance" grouping label so runs
// do not overwrite each other on the gateway.
func New(job, gatewayURL, runID string) (*Pusher, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("metrics: gateway URL is required")
	}
	if job == "" {
		job = "tabular_loader"
	}

	reg := prometheus.NewRegistry()
	p := &Pusher{
		gatewayURL: gatewayURL,
		job:        job,
		runID:      runID,
		reg:        reg,
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabular_loader_files_total",
			Help: "Directory entries handled, by final status.",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabular_loader_rows_total",
			Help: "Rows read and loaded, by kind (total, processed, failed).",
		}, []string{"kind"}),
		duration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       "tabular_loader_file_duration_seconds",
			Help:       "Time spent per file, by final status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tabular_loader_last_run_timestamp_seconds",
			Help: "Unix time at which the last run finished.",
		}),
	}

	for _, c := range []prometheus.Collector{p.files, p.rows, p.duration, p.lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return p, nil
}

// Observe records the statistics of a finished run.
func (p *Pusher) Observe(stats converter.RunStatistics, finished time.Time) {
	for _, s := range stats {
		status := string(s.Status)
		p.files.WithLabelValues(status).Inc()
		p.rows.WithLabelValues("total").Add(float64(s.TotalRows))
		p.rows.WithLabelValues("processed").Add(float64(s.ProcessedRows))
		p.rows.WithLabelValues("failed").Add(float64(s.FailedRows))
		p.duration.WithLabelValues(status).Observe(s.Duration().Seconds())
	}
	p.lastRun.Set(float64(finished.Unix()))
}

// Push sends the registry to the Pushgateway, replacing the previous
// metrics of this job and instance.
func (p *Pusher) Push(ctx context.Context) error {
	pusher := push.New(p.gatewayURL, p.job).Gatherer(p.reg)
	if p.runID != "" {
		pusher = pusher.Grouping("instance", p.runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push: %w", err)
	}
	return nil
}
