package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// Health returns the liveness handler.
func Health(version string, now func() time.Time) echo.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			Status:    "ok",
			Timestamp: now().UnixMilli(),
			Version:   version,
		})
	}
}
