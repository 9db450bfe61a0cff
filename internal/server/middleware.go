package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

const routeKey = "axon.route"

// accessLog logs one line per request through zerolog.
func accessLog(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Error().Err(v.Error)
			}
			route, _ := c.Get(routeKey).(string)
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP).
				Str("route", route).
				Msg("request")
			return nil
		},
	})
}

// newRelicTransactions wraps each request in an APM transaction named after
// the dispatched route.
func newRelicTransactions(app *newrelic.Application) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			txn := app.StartTransaction(req.Method + " " + req.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(req)
			c.SetRequest(req.WithContext(newrelic.NewContext(req.Context(), txn)))

			err := next(c)
			if route, ok := c.Get(routeKey).(string); ok {
				txn.SetName(req.Method + " " + route)
			}
			if err != nil {
				txn.NoticeError(err)
			}
			// a nil writer only records the status
			txn.SetWebResponse(nil).WriteHeader(c.Response().Status)
			return err
		}
	}
}
