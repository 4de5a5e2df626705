package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/domain/fraud"
)

// Event types written to the alerts topic
const (
	EventSignalCreated  = "signal.created"
	EventSignalResolved = "signal.resolved"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// MessageWriter is the subset of *kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SignalEvent is the payload of every alerts topic message
type SignalEvent struct {
	EventID    uuid.UUID             `json:"event_id"`
	EventType  string                `json:"event_type"`
	OccurredAt time.Time             `json:"occurred_at"`
	Signal     *fraud.Signal         `json:"signal"`
	Decision   *fraud.ReviewDecision `json:"decision,omitempty"`
}

// AlertPublisher implements fraud.AlertPublisher on a Kafka topic.
// Messages are keyed by user so one user's events stay ordered.
type AlertPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewWriter builds a kafka-go writer from config
func NewWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewAlertPublisher creates a publisher over writer
func NewAlertPublisher(writer MessageWriter, logger *zap.Logger) *AlertPublisher {
	return &AlertPublisher{writer: writer, logger: logger}
}

// PublishCreated writes one signal.created event per signal
func (p *AlertPublisher) PublishCreated(ctx context.Context, signals []*fraud.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(signals))
	for _, s := range signals {
		msg, err := p.message(EventSignalCreated, s, nil)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish signals: %w", err)
	}
	p.logger.Debug("published signal events", zap.Int("count", len(msgs)))
	return nil
}

// PublishResolved writes a signal.resolved event
func (p *AlertPublisher) PublishResolved(ctx context.Context, signal *fraud.Signal, decision *fraud.ReviewDecision) error {
	msg, err := p.message(EventSignalResolved, signal, decision)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish resolution: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}

func (p *AlertPublisher) message(eventType string, s *fraud.Signal, d *fraud.ReviewDecision) (kafka.Message, error) {
	evt := SignalEvent{
		EventID:    uuid.New(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Signal:     s,
		Decision:   d,
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return kafka.Message{
		Key:   []byte(s.UserID.String()),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "severity", Value: []byte(s.Severity)},
		},
	}, nil
}

// NoopPublisher drops events; used when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishCreated(context.Context, []*fraud.Signal) error { return nil }
func (NoopPublisher) PublishResolved(context.Context, *fraud.Signal, *fraud.ReviewDecision) error {
	return nil
}
