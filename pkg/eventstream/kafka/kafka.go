// Package kafka publishes events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/eventstream"
)

const DefaultTopic = "driftline.models"

type Config struct {
	// Brokers are the bootstrap addresses, e.g. ["localhost:9092"].
	Brokers []string

	// Topic receives the events. Defaults to DefaultTopic.
	Topic string

	Logger *zap.Logger
}

type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}

	return &Publisher{writer: writer, logger: cfg.Logger}, nil
}

// PublishModelTrained keys messages by session so consumers see each
// session's retrains in order.
func (p *Publisher) PublishModelTrained(ctx context.Context, event *eventstream.ModelTrainedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.SessionID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("writing to kafka: %w", err)
	}

	p.logger.Debug("published model trained event",
		zap.String("session_id", event.SessionID),
		zap.String("model_version", event.ModelVersion),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
