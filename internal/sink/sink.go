// Package sink delivers classified traffic to durable destinations.
package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/metrics"
	"github.com/axonhq/axon/internal/model"
)

// Sink stores or forwards one classified request.
type Sink interface {
	Name() string
	Write(ctx context.Context, ev model.TrafficEvent) error
}

// Multi writes to every sink in order. A failing sink is logged and counted
// and never stops the others.
type Multi struct {
	sinks   []Sink
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewMulti(logger zerolog.Logger, m *metrics.Metrics, sinks ...Sink) *Multi {
	return &Multi{
		sinks:   sinks,
		logger:  logger.With().Str("component", "sink").Logger(),
		metrics: m,
	}
}

func (m *Multi) Name() string { return "multi" }

// Write always returns nil; failures stay inside the fan-out.
func (m *Multi) Write(ctx context.Context, ev model.TrafficEvent) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, ev); err != nil {
			m.metrics.SinkError(s.Name())
			m.logger.Error().
				Err(err).
				Str("sink", s.Name()).
				Str("path", ev.Path).
				Str("ip", ev.IP).
				Msg("verdict write failed")
		}
	}
	return nil
}

// Names lists the configured sinks.
func (m *Multi) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}
