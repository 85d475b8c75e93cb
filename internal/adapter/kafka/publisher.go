package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/marine-weather-service/internal/config"
	"github.com/couchcryptid/marine-weather-service/internal/domain"
)

// Event types carried in the event_type message header.
const (
	EventTypeObservation      = "observation"
	EventTypeHealthTransition = "health_transition"
)

// transitionKey partitions all health transitions together so consumers see
// them in order.
const transitionKey = "api_health"

// Publisher produces observation and health-transition events to the events
// topic. It implements poller.Publisher.
type Publisher struct {
	writer     *kafkago.Writer
	instanceID string
	logger     *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured events topic.
func NewPublisher(cfg *config.Config, instanceID string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, instanceID: instanceID, logger: logger}
}

// PublishObservation emits one observation event, keyed by location so each
// location's readings stay ordered.
func (p *Publisher) PublishObservation(ctx context.Context, loc domain.Location, obs domain.Observation) error {
	msg, err := observationMessage(loc, obs, p.instanceID)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// PublishTransition emits one health-transition event.
func (p *Publisher) PublishTransition(ctx context.Context, tr domain.HealthTransition) error {
	msg, err := transitionMessage(tr, p.instanceID)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// observationMessage marshals an observation envelope into a Kafka message.
func observationMessage(loc domain.Location, obs domain.Observation, instanceID string) (kafkago.Message, error) {
	data, err := json.Marshal(domain.ObservationEvent{Location: loc, Observation: obs})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(loc.ID()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeObservation)},
			{Key: "instance_id", Value: []byte(instanceID)},
			{Key: "retrieved_at", Value: []byte(obs.RetrievedAt.Format(time.RFC3339))},
		},
	}, nil
}

// transitionMessage marshals a health transition into a Kafka message.
func transitionMessage(tr domain.HealthTransition, instanceID string) (kafkago.Message, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize health transition: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(transitionKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeHealthTransition)},
			{Key: "instance_id", Value: []byte(instanceID)},
			{Key: "occurred_at", Value: []byte(tr.At.Format(time.RFC3339))},
		},
	}, nil
}
