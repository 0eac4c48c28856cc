// Package kafka publishes audit entries to the reporting collaborator's
// Kafka topic. It implements audit.Sink.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/groundwater-etl/internal/audit"
)

// Publisher produces audit entries to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the audit topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Write serializes and publishes one audit entry.
func (p *Publisher) Write(ctx context.Context, e audit.Entry) error {
	msg, err := serializeToMessage(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an audit entry into a Kafka message. The file
// ID keys the message so all verdicts for one file land in one partition.
func serializeToMessage(e audit.Entry) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize audit entry: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(e.FileID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(e.RunID)},
			{Key: "outcome", Value: []byte(e.Outcome)},
		},
	}, nil
}
