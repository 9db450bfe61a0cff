package handler

import (
	_ "embed"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

//go:embed dashboard.html
var embeddedDashboard []byte

// DashboardHandler serves the dashboard page: the configured file when it is
// readable, the built-in page otherwise.
type DashboardHandler struct {
	File   string
	Logger zerolog.Logger
}

func (h *DashboardHandler) Serve(c echo.Context) error {
	if h.File != "" {
		page, err := os.ReadFile(h.File)
		if err == nil {
			return c.HTMLBlob(http.StatusOK, page)
		}
		h.Logger.Warn().Err(err).Str("file", h.File).Msg("dashboard file unreadable, serving built-in page")
	}
	return c.HTMLBlob(http.StatusOK, embeddedDashboard)
}
