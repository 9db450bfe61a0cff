package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/config"
	"github.com/axonhq/axon/internal/database"
	"github.com/axonhq/axon/internal/geo"
	"github.com/axonhq/axon/internal/logger"
	"github.com/axonhq/axon/internal/metrics"
	"github.com/axonhq/axon/internal/notify"
	"github.com/axonhq/axon/internal/repository"
	"github.com/axonhq/axon/internal/server"
	"github.com/axonhq/axon/internal/sink"
)

func main() {
	// a missing .env is fine outside development
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("could not load config")
	}

	log, logCloser := logger.New(cfg.Observability)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(true)
	deps := server.Deps{
		Logger:  log,
		Metrics: m,
	}

	if nr := cfg.Observability.NewRelic; nr.Enabled {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.Observability.ServiceName),
			newrelic.ConfigLicense(nr.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(nr.DistributedTracing),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("new relic")
		}
		defer app.Shutdown(defaultShutdown)
		deps.NewRelic = app
	}

	if cfg.Database.Enabled {
		pool, err := database.NewPool(ctx, cfg.Database, log, deps.NewRelic != nil)
		if err != nil {
			log.Fatal().Err(err).Msg("database pool")
		}
		defer pool.Close()
		if err := database.RunMigrations(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("migrations")
		}
		repo := repository.NewTrafficRepository(pool)
		deps.Sinks = append(deps.Sinks, repo)
		deps.Stats = repo
	}

	if cfg.Kafka.Enabled {
		k, err := sink.NewKafka(cfg.Kafka, log, m)
		if err != nil {
			log.Fatal().Err(err).Msg("kafka producer")
		}
		defer k.Close()
		deps.Sinks = append(deps.Sinks, k)
	}

	if cfg.GeoIP.CityPath != "" {
		g, err := geo.Open(cfg.GeoIP.CityPath)
		if err != nil {
			// country falls back to the edge header only
			log.Warn().Err(err).Msg("geoip disabled")
		} else {
			defer g.Close()
			deps.Geo = g
		}
	}

	if cfg.Pushover.Enabled {
		p := notify.NewPushover(cfg.Pushover, log)
		defer p.Wait()
		deps.Notifier = p
	}

	srv := server.New(cfg, deps)
	log.Info().
		Str("env", cfg.Primary.Env).
		Str("version", cfg.Server.Version).
		Bool("database", cfg.Database.Enabled).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("pushover", cfg.Pushover.Enabled).
		Msg("axon starting")

	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	log.Info().Msg("axon stopped")
}

const defaultShutdown = 10 * time.Second
