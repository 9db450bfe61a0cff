package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/model"
	"github.com/axonhq/axon/internal/response"
)

const statsErrorCode = "STATS_ERROR"

// StatsSource aggregates the stored traffic.
type StatsSource interface {
	Stats(ctx context.Context, now time.Time) (model.Stats, error)
}

type StatsHandler struct {
	Source StatsSource
	Logger zerolog.Logger
	Now    func() time.Time
}

func (h *StatsHandler) Get(c echo.Context) error {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	st, err := h.Source.Stats(c.Request().Context(), now)
	if err != nil {
		h.Logger.Error().Err(err).Msg("get stats")
		return response.Coded(c, http.StatusInternalServerError, statsErrorCode, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}
