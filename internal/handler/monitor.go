package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/monitor"
	"github.com/axonhq/axon/internal/response"
)

// MonitorHandler upgrades dashboard connections and hands them to the
// coordinator.
type MonitorHandler struct {
	Coordinator *monitor.Coordinator
	Logger      zerolog.Logger
}

// Connect blocks for the lifetime of the observer connection.
func (h *MonitorHandler) Connect(c echo.Context) error {
	err := h.Coordinator.Serve(c.Response(), c.Request())
	switch {
	case errors.Is(err, monitor.ErrUpgradeRequired):
		return response.BadRequest(c, "websocket upgrade required", err.Error())
	case err != nil:
		// the upgrader has already answered the client
		h.Logger.Debug().Err(err).Msg("observer connect failed")
	}
	return nil
}
