package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/redis/go-redis/v9"
)

// RunResult is the run summary stored in and published to Redis.
//
// Redis keys:
//
//	SET  loader:run:<name>:state  <JSON>  EX <ttl>  (latest state, for polling)
//	PUB  loader:run:<name>                          (event, for subscribers)
type RunResult struct {
	RunID         string  `json:"run_id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	StartedAt     string  `json:"started_at"`
	FinishedAt    string  `json:"finished_at"`
	DurationMs    int64   `json:"duration_ms"`
	Files         int     `json:"files"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	Skipped       int     `json:"skipped"`
	RowsTotal     int     `json:"rows_total"`
	RowsProcessed int     `json:"rows_processed"`
	Error         *string `json:"error,omitempty"`
}

// RedisPublisher writes the run summary to Redis.
type RedisPublisher struct {
	client *redis.Client
	config config.ResultLogConfig
}

// NewRedisPublisher creates a publisher from the result_log settings.
func NewRedisPublisher(cfg config.ResultLogConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisPublisher{client: client, config: cfg}
}

// StateKey is the key holding the latest run summary.
func (p *RedisPublisher) StateKey() string {
	return fmt.Sprintf("loader:run:%s:state", p.config.Name)
}

// Channel is the pub/sub channel for run events.
func (p *RedisPublisher) Channel() string {
	return fmt.Sprintf("loader:run:%s", p.config.Name)
}

// Publish stores the summary with a TTL, then publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, run Run) error {
	totals := run.Stats.Totals()
	result := RunResult{
		RunID:         run.ID,
		Name:          p.config.Name,
		Status:        run.Status(),
		StartedAt:     run.StartedAt.Format(timeLayout),
		FinishedAt:    run.FinishedAt.Format(timeLayout),
		DurationMs:    run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		Files:         totals.Files,
		Succeeded:     totals.Succeeded,
		Failed:        totals.Failed,
		Skipped:       totals.Skipped,
		RowsTotal:     totals.TotalRows,
		RowsProcessed: totals.ProcessedRows,
	}
	if run.Err != nil {
		msg := run.Err.Error()
		result.Error = &msg
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := p.client.Set(ctx, p.StateKey(), payload, p.config.TTL).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
