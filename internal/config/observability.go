package config

import "fmt"

type ObservabilityConfig struct {
	ServiceName string         `koanf:"service_name" validate:"required"`
	Environment string         `koanf:"environment"`
	Logging     LoggingConfig  `koanf:"logging"`
	NewRelic    NewRelicConfig `koanf:"new_relic"`
}

type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type NewRelicConfig struct {
	LicenseKey         string `koanf:"license_key"`
	Enabled            bool   `koanf:"enabled"`
	DistributedTracing bool   `koanf:"distributed_tracing"`
}

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		ServiceName: "axon",
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func (o *ObservabilityConfig) Validate() error {
	if o.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	switch o.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", o.Logging.Level)
	}
	switch o.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", o.Logging.Format)
	}
	if o.Logging.File != "" && o.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max_size_mb must be positive when logging.file is set")
	}
	if o.NewRelic.Enabled && o.NewRelic.LicenseKey == "" {
		return fmt.Errorf("new_relic.license_key is required when new_relic is enabled")
	}
	return nil
}

// IsProduction reports whether the service runs in the production environment.
func (o *ObservabilityConfig) IsProduction() bool {
	return o.Environment == "production"
}
