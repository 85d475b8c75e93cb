package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
	"github.com/couchcryptid/marine-weather-service/internal/observability"
	"github.com/couchcryptid/marine-weather-service/internal/sensor"
)

// sinkTimeout bounds the downstream writes done for one transition. The
// monitor invokes listeners synchronously, so a stuck broker must not stall
// the probe loop for long.
const sinkTimeout = 10 * time.Second

// TransitionPublisher emits health-transition events.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, tr domain.HealthTransition) error
}

// TransitionRecorder persists health transitions.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, tr domain.HealthTransition) error
}

// TransitionSink fans one health transition out to the sensor registry and
// the optional event and history sinks. Its Handle method is registered with
// the monitor's OnTransition.
type TransitionSink struct {
	registry  *sensor.Registry
	publisher TransitionPublisher // nil when event publishing is disabled
	history   TransitionRecorder  // nil when the history store is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
}

func NewTransitionSink(registry *sensor.Registry, publisher TransitionPublisher, history TransitionRecorder, logger *slog.Logger, metrics *observability.Metrics) *TransitionSink {
	return &TransitionSink{
		registry:  registry,
		publisher: publisher,
		history:   history,
		logger:    logger,
		metrics:   metrics,
	}
}

// Handle updates the health entity and forwards the transition to the
// enabled sinks. Sink failures are counted and logged, never propagated.
func (s *TransitionSink) Handle(tr domain.HealthTransition) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	s.registry.Upsert(sensor.NewHealthEntity(domain.HealthSnapshot{Status: tr.To, Metrics: tr.Metrics}))

	if s.publisher != nil {
		if err := s.publisher.PublishTransition(ctx, tr); err != nil {
			s.logger.Error("publish health transition failed", "error", err)
			s.metrics.EventPublishErrors.Inc()
		} else {
			s.metrics.EventsPublished.WithLabelValues("health_transition").Inc()
		}
	}
	if s.history != nil {
		if err := s.history.RecordTransition(ctx, tr); err != nil {
			s.logger.Error("history transition write failed", "error", err)
			s.metrics.HistoryWriteErrors.Inc()
		} else {
			s.metrics.HistoryWrites.WithLabelValues("transition").Inc()
		}
	}
}
