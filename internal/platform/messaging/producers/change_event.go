package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/distributor-bonus-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// ChangeEventProducer publishes row changes made through the gateway to the
// change feed topic, so that live views see writes from this process too.
type ChangeEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewChangeEventProducer ensures the change feed topic exists and opens an async writer.
func NewChangeEventProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ChangeEventProducer, error) {
	if cfg.ChangeFeedTopic == "" {
		return nil, fmt.Errorf("kafka change feed topic is not configured")
	}

	if err := EnsureTopic(cfg.Brokers, cfg.ChangeFeedTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure change feed topic %s exists: %w", cfg.ChangeFeedTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ChangeFeedTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write change events", "topic", cfg.ChangeFeedTopic, "error", err, "count", len(messages))
			}
		},
	}

	return &ChangeEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ChangeFeedTopic,
	}, nil
}

// Publish writes value as JSON. Messages with the same key land on the same
// partition, which keeps the changes of one record in order.
func (p *ChangeEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish change event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish change event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published change event", "topic", p.topic, "key", key)
	return nil
}

func (p *ChangeEventProducer) Close() error {
	p.logger.Info("Closing change event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close change event writer for topic %s: %w", p.topic, err)
	}
	return nil
}

var _ MessagePublisher = (*ChangeEventProducer)(nil)
