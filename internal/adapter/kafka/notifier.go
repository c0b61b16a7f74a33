package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/station-climate-etl/internal/config"
)

// Run kinds published to the summary topic.
const (
	RunIngest = "ingest"
	RunStats  = "stats"
)

// Notifier publishes batch-run summaries to a Kafka topic so downstream
// consumers can react to fresh data without polling the API.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured summary topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// PublishSummary serializes a run summary and publishes it keyed by run
// kind. The summary value is the ingest or aggregation Summary struct.
func (n *Notifier) PublishSummary(ctx context.Context, kind string, summary any) error {
	msg, err := serializeSummary(kind, summary, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s summary: %w", kind, err)
	}

	n.logger.Info("run summary published", "kind", kind, "topic", n.writer.Topic)
	return nil
}

// serializeSummary marshals a run summary into a Kafka message.
func serializeSummary(kind string, summary any, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s summary: %w", kind, err)
	}
	return kafkago.Message{
		Key:   []byte(kind),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_kind", Value: []byte(kind)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}
