package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "AXON_"
	// FileEnv names an optional YAML file loaded before the environment.
	FileEnv = "AXON_CONFIG_FILE"
)

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database"`
	Honeypot      HoneypotConfig       `koanf:"honeypot"`
	Monitor       MonitorConfig        `koanf:"monitor"`
	Kafka         KafkaConfig          `koanf:"kafka"`
	GeoIP         GeoIPConfig          `koanf:"geoip"`
	Pushover      PushoverConfig       `koanf:"pushover"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
	Version            string   `koanf:"version" validate:"required"`
}

type DatabaseConfig struct {
	Enabled         bool   `koanf:"enabled"`
	URL             string `koanf:"url"`
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	User            string `koanf:"user"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name"`
	SSLMode         string `koanf:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"gte=0"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"gte=0"`
	LogLevel        string `koanf:"log_level" validate:"omitempty,oneof=trace debug info warn error none"`
}

// HoneypotConfig names the edge headers the honeypot trusts.
type HoneypotConfig struct {
	IPHeader          string `koanf:"ip_header"`
	CountryHeader     string `koanf:"country_header"`
	BotScoreHeader    string `koanf:"bot_score_header"`
	DefaultReputation int    `koanf:"default_reputation" validate:"gte=0,lte=100"`
	StatsMarker       string `koanf:"stats_marker" validate:"required"`
	DashboardFile     string `koanf:"dashboard_file"`
}

type MonitorConfig struct {
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	MaxMessageBytes int64         `koanf:"max_message_bytes" validate:"gt=0"`
	PingInterval    time.Duration `koanf:"ping_interval" validate:"gte=0"`
}

type KafkaConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Brokers  []string `koanf:"brokers"`
	Topic    string   `koanf:"topic"`
	ClientID string   `koanf:"client_id"`
}

type GeoIPConfig struct {
	CityPath string `koanf:"city_path"`
}

type PushoverConfig struct {
	Enabled       bool          `koanf:"enabled"`
	AppToken      string        `koanf:"app_token"`
	Recipient     string        `koanf:"recipient"`
	Cooldown      time.Duration `koanf:"cooldown" validate:"gte=0"`
	MinConfidence float64       `koanf:"min_confidence" validate:"gte=0,lte=1"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                        "development",
		"server.port":                        "8080",
		"server.read_timeout":                30,
		"server.write_timeout":               30,
		"server.idle_timeout":                60,
		"server.cors_allowed_origins":        []string{"*"},
		"server.version":                     "1.0.0",
		"database.host":                      "localhost",
		"database.port":                      5432,
		"database.name":                      "axon",
		"database.ssl_mode":                  "disable",
		"database.max_open_conns":            10,
		"database.max_idle_conns":            2,
		"database.conn_max_lifetime":         300,
		"database.conn_max_idle_time":        60,
		"database.log_level":                 "warn",
		"honeypot.ip_header":                 "CF-Connecting-IP",
		"honeypot.country_header":            "CF-IPCountry",
		"honeypot.bot_score_header":          "CF-Bot-Score",
		"honeypot.default_reputation":        50,
		"honeypot.stats_marker":              "api/stats",
		"monitor.write_timeout":              "5s",
		"monitor.max_message_bytes":          4096,
		"monitor.ping_interval":              "0s",
		"kafka.topic":                        "axon.verdicts",
		"kafka.client_id":                    "axon",
		"pushover.cooldown":                  "10m",
		"pushover.min_confidence":            0.8,
		"observability.service_name":         "axon",
		"observability.logging.level":        "info",
		"observability.logging.format":       "console",
		"observability.logging.max_size_mb":  100,
		"observability.logging.max_backups":  3,
		"observability.logging.max_age_days": 28,
	}
}

// LoadConfig loads defaults, then the optional YAML file named by
// AXON_CONFIG_FILE, then AXON_ prefixed environment variables
// (AXON_SERVER.PORT sets server.port).
func LoadConfig() (*Config, error) {
	return load(os.Getenv(FileEnv))
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Observability is a pointer so an explicitly emptied section still gets defaults
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

// Validate runs the struct tags and the cross-field checks.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := c.Database.validate(); err != nil {
		return err
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka: brokers and topic are required when enabled")
	}
	if c.Pushover.Enabled && (c.Pushover.AppToken == "" || c.Pushover.Recipient == "") {
		return fmt.Errorf("pushover: app_token and recipient are required when enabled")
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	return nil
}

func (d DatabaseConfig) validate() error {
	if !d.Enabled || d.URL != "" {
		return nil
	}
	if d.Host == "" || d.Port == 0 || d.User == "" || d.Name == "" {
		return fmt.Errorf("database: host, port, user and name are required when enabled without url")
	}
	return nil
}

// DSN returns the connection string, preferring an explicit URL.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(d.SSLMode)
	}
	return u.String()
}
