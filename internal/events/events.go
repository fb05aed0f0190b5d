// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/codr1/marketplace/internal/config"
	"github.com/codr1/marketplace/internal/db/dbq"
)

const (
	EntityOrder = "order"

	ActionCreated   = "created"
	ActionConfirmed = "confirmed"
	ActionRejected  = "rejected"
	ActionCancelled = "cancelled"
	ActionCompleted = "completed"
	ActionExpired   = "expired"
)

// Event is the envelope written to the topic. Consumers key on Entity and
// Action; Topic carries "entity.action".
type Event struct {
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId"`
	Topic      string            `json:"topic"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// OrderEvent builds the event for an order reaching action.
func OrderEvent(action string, order dbq.OrderDetail) Event {
	return Event{
		Entity:     EntityOrder,
		Action:     action,
		ResourceID: order.Reference,
		Topic:      EntityOrder + "." + action,
		Metadata: map[string]string{
			"order_id":    strconv.FormatInt(order.ID, 10),
			"shop_id":     strconv.FormatInt(order.ShopID, 10),
			"customer_id": strconv.FormatInt(order.CustomerID, 10),
			"status":      order.Status,
		},
		Data:       order.Order,
		OccurredAt: time.Now().UTC(),
	}
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", event.Topic, err)
	}
	return kafka.Message{
		Key:   []byte(event.ResourceID),
		Value: value,
		Time:  event.OccurredAt,
	}, nil
}

// KafkaPublisher writes events with the resource id as the message key so
// that one order's events stay on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. It is used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// NewFromConfig returns a Kafka publisher when events are enabled and a no-op
// publisher otherwise.
func NewFromConfig(cfg *config.Config) Publisher {
	if cfg == nil || !cfg.Features.EnableEvents || len(cfg.Kafka.Brokers) == 0 {
		return NoopPublisher{}
	}
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka order events enabled")
	return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

// PublishAsync publishes in the background. Failures are logged, never
// returned, so a broker outage cannot fail an order.
func PublishAsync(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	logger := log.Ctx(ctx)
	ctx = context.WithoutCancel(ctx)
	go func() {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.Publish(pubCtx, event); err != nil {
			logger.Warn().Err(err).Str("topic", event.Topic).Str("resource_id", event.ResourceID).Msg("Failed to publish event")
		}
	}()
}
