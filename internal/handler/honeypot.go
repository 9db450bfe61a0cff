package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/classifier"
	"github.com/axonhq/axon/internal/features"
	"github.com/axonhq/axon/internal/metrics"
	"github.com/axonhq/axon/internal/model"
	"github.com/axonhq/axon/internal/monitor"
	"github.com/axonhq/axon/internal/notify"
	"github.com/axonhq/axon/internal/response"
	"github.com/axonhq/axon/internal/sink"
)

const sinkTimeout = 5 * time.Second

// Broadcaster fans a message out to the live observers.
type Broadcaster interface {
	BroadcastJSON(v any) (int, error)
}

// HoneypotHandler classifies every request that is not a known route and
// answers with the same plain OK whatever the verdict.
type HoneypotHandler struct {
	Reader      *RequestReader
	Sink        sink.Sink
	Notifier    notify.Notifier
	Broadcaster Broadcaster
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

func (h *HoneypotHandler) Handle(c echo.Context) error {
	req := h.Reader.Record(c)
	v := classifier.Classify(features.Extract(req), h.Reader.Reputation(c.Request()))
	ev := model.NewTrafficEvent(req, v)

	h.Metrics.ObserveVerdict(string(v.Label), v.Score)
	h.Logger.Debug().
		Str("path", ev.Path).
		Str("ip", ev.IP).
		Str("label", string(v.Label)).
		Int("score", v.Score).
		Strs("reasons", v.Reasons).
		Msg("request classified")

	// the write must outlive a client that hangs up early
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), sinkTimeout)
	defer cancel()
	if h.Sink != nil {
		if err := h.Sink.Write(ctx, ev); err != nil {
			h.Logger.Error().Err(err).Msg("persist verdict")
		}
	}

	if h.Notifier != nil {
		h.Notifier.Notify(ev, v)
	}

	if h.Broadcaster != nil {
		if _, err := h.Broadcaster.BroadcastJSON(monitor.NewClassificationMessage(ev)); err != nil {
			h.Logger.Error().Err(err).Msg("broadcast verdict")
		}
	}

	return response.Text(c, http.StatusOK, "OK")
}
