package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/config"
	"github.com/axonhq/axon/internal/geo"
	"github.com/axonhq/axon/internal/handler"
	"github.com/axonhq/axon/internal/metrics"
	"github.com/axonhq/axon/internal/monitor"
	"github.com/axonhq/axon/internal/notify"
	"github.com/axonhq/axon/internal/repository"
	"github.com/axonhq/axon/internal/sink"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators built by main. Nil values disable the feature.
type Deps struct {
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Sinks    []sink.Sink
	Stats    handler.StatsSource
	Geo      geo.Resolver
	Notifier notify.Notifier
	NewRelic *newrelic.Application
	Now      func() time.Time
}

// Server holds the Echo app and the observer coordinator.
type Server struct {
	Echo        *echo.Echo
	Config      *config.Config
	Coordinator *monitor.Coordinator
	Dispatcher  *Dispatcher
	logger      zerolog.Logger
}

// New builds the Echo server and registers routes.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger.With().Str("component", "server").Logger()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.Geo == nil {
		deps.Geo = geo.None{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Stats == nil {
		mem := repository.NewMemoryStore()
		deps.Stats = mem
		deps.Sinks = append(deps.Sinks, mem)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	e.Use(middleware.Recover(), accessLog(deps.Logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.Server.CORSAllowedOrigins}))
	if deps.NewRelic != nil {
		e.Use(newRelicTransactions(deps.NewRelic))
	}

	coord := monitor.NewCoordinator(monitor.Options{
		WriteTimeout:    cfg.Monitor.WriteTimeout,
		MaxMessageBytes: cfg.Monitor.MaxMessageBytes,
		PingInterval:    cfg.Monitor.PingInterval,
		AllowedOrigins:  cfg.Server.CORSAllowedOrigins,
		Metrics:         deps.Metrics,
		Now:             now,
	}, deps.Logger)

	honeypot := &handler.HoneypotHandler{
		Reader: &handler.RequestReader{
			Config: cfg.Honeypot,
			Geo:    deps.Geo,
			Now:    now,
		},
		Sink:        sink.NewMulti(deps.Logger, deps.Metrics, deps.Sinks...),
		Notifier:    deps.Notifier,
		Broadcaster: coord,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger.With().Str("component", "honeypot").Logger(),
	}
	stats := &handler.StatsHandler{Source: deps.Stats, Logger: logger, Now: now}
	dashboard := &handler.DashboardHandler{File: cfg.Honeypot.DashboardFile, Logger: logger}
	observers := &handler.MonitorHandler{Coordinator: coord, Logger: logger}

	d := NewDispatcher(RouteHoneypot, honeypot.Handle)
	d.MountMarker(cfg.Honeypot.StatsMarker, RouteStats, stats.Get)
	d.Mount("health", RouteHealth, handler.Health(cfg.Server.Version, now))
	d.Mount("ws", RouteMonitor, observers.Connect)
	d.Mount("", RouteDashboard, dashboard.Serve)
	d.Mount("dashboard", RouteDashboard, dashboard.Serve)

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}
	e.Any("/", d.Handle)
	e.Any("/*", d.Handle)

	return &Server{Echo: e, Config: cfg, Coordinator: coord, Dispatcher: d, logger: logger}
}

// Start serves until the context is cancelled or the listener fails. On
// cancel it shuts down gracefully before returning.
func (s *Server) Start(ctx context.Context) error {
	addr := ":" + s.Config.Server.Port
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- s.Echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown closes every observer, then stops accepting requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Coordinator.Close()
	return s.Echo.Shutdown(ctx)
}
