package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/converter"
	"github.com/segmentio/kafka-go"
)

const timeLayout = time.RFC3339Nano

// FileEvent is the message sent for each directory entry of a run.
type FileEvent struct {
	RunID string `json:"run_id"`
	File  string `json:"file"`
	*converter.FileStats
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends one message per file, keyed by file name, so all
// events of a file land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a synchronous writer for the events settings.
func NewKafkaPublisher(cfg config.EventsConfig) (*KafkaPublisher, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return &KafkaPublisher{writer: w, topic: cfg.Topic}, nil
}

// Messages builds the messages for a run, ordered by file name.
func Messages(run Run) ([]kafka.Message, error) {
	names := run.Stats.Names()
	msgs := make([]kafka.Message, 0, len(names))
	for _, name := range names {
		value, err := json.Marshal(FileEvent{RunID: run.ID, File: name, FileStats: run.Stats[name]})
		if err != nil {
			return nil, fmt.Errorf("marshal event for %s: %w", name, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(name),
			Value: value,
			Time:  run.FinishedAt,
			Headers: []kafka.Header{
				{Key: "content-type", Value: []byte("application/json")},
				{Key: "run-id", Value: []byte(run.ID)},
				{Key: "status", Value: []byte(run.Stats[name].Status)},
			},
		})
	}
	return msgs, nil
}

// Publish writes every file event of the run in one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, run Run) error {
	msgs, err := Messages(run)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write messages to Kafka topic %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
