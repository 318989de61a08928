// Package config defines all configuration structures for SessionSync.  Only
// plain data types and validation live in this file; loading is in loader.go
// and defaults in defaults.go.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty disables CORS headers; "*" allows any origin.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// GRPCConfig holds the gRPC health endpoint settings.
type GRPCConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Port       int  `mapstructure:"port"`
	Reflection bool `mapstructure:"reflection"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection parameters.  Redis is optional; when
// disabled the backfill scheduler runs without a lease and keeps no report
// cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.  Kafka is
// optional; when disabled no events are published and the worker only runs
// the cron schedule.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id"`
	ClientID     string        `mapstructure:"client_id"`
	RequiredAcks int           `mapstructure:"required_acks"`
	BatchSize    int           `mapstructure:"batch_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`

	// DeadLetterTopic receives commands whose handler kept failing.  Empty
	// drops them after logging.
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`

	SASLMechanism string `mapstructure:"sasl_mechanism"` // "" | "PLAIN" | "SCRAM-SHA-256" | "SCRAM-SHA-512"
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level        string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format       string `mapstructure:"format"` // "json" | "console"
	Output       string `mapstructure:"output"`
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// CalendarConfig tunes the calendar deep-link builder.
type CalendarConfig struct {
	BaseURL                string `mapstructure:"base_url"`
	HomeURL                string `mapstructure:"home_url"`
	SessionLabel           string `mapstructure:"session_label"`
	Signature              string `mapstructure:"signature"`
	DefaultDurationMinutes int    `mapstructure:"default_duration_minutes"`
}

// BackfillConfig holds the calendar-link reconciliation job settings.
type BackfillConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Schedule  string        `mapstructure:"schedule"`
	Timeout   time.Duration `mapstructure:"timeout"`
	LeaseName string        `mapstructure:"lease_name"`
	LeaseTTL  time.Duration `mapstructure:"lease_ttl"`
	ReportTTL time.Duration `mapstructure:"report_ttl"`
}

// MeetLinkConfig configures the optional video meeting link provider.
type MeetLinkConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
	Port      int    `mapstructure:"port"` // worker only; the API server serves on its own port
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Backfill BackfillConfig `mapstructure:"backfill"`
	MeetLink MeetLinkConfig `mapstructure:"meetlink"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ToLogConfig converts the log section into the logging package's
// construction parameters.
func (c LogConfig) ToLogConfig() logging.LogConfig {
	out := logging.LogConfig{
		Level:        c.Level,
		Format:       c.Format,
		EnableCaller: c.EnableCaller,
	}
	if c.Output != "" {
		out.OutputPaths = strings.Split(c.Output, ",")
	}
	return out
}

// ToLinkConfig converts the calendar section into link builder settings.
func (c CalendarConfig) ToLinkConfig() calendar.LinkConfig {
	return calendar.LinkConfig{
		BaseURL:                c.BaseURL,
		HomeURL:                c.HomeURL,
		SessionLabel:           c.SessionLabel,
		Signature:              c.Signature,
		DefaultDurationMinutes: c.DefaultDurationMinutes,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered; callers treat any error as fatal.
func (c *Config) Validate() error {
	// Server
	if err := validatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// gRPC
	if c.GRPC.Enabled {
		if err := validatePort("grpc.port", c.GRPC.Port); err != nil {
			return err
		}
		if c.GRPC.Port == c.Server.Port {
			return fmt.Errorf("config: grpc.port must differ from server.port (%d)", c.Server.Port)
		}
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if err := validatePort("database.port", c.Database.Port); err != nil {
		return err
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("config: database.max_open_conns must be >= 1, got %d", c.Database.MaxOpenConns)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		switch c.Kafka.SASLMechanism {
		case "":
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
			if c.Kafka.SASLUsername == "" || c.Kafka.SASLPassword == "" {
				return fmt.Errorf("config: kafka.sasl_username and kafka.sasl_password are required with SASL")
			}
		default:
			return fmt.Errorf("config: kafka.sasl_mechanism %q is invalid; expected PLAIN|SCRAM-SHA-256|SCRAM-SHA-512", c.Kafka.SASLMechanism)
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Calendar
	if err := validateURL("calendar.base_url", c.Calendar.BaseURL); err != nil {
		return err
	}
	if err := validateURL("calendar.home_url", c.Calendar.HomeURL); err != nil {
		return err
	}
	if c.Calendar.DefaultDurationMinutes < 1 {
		return fmt.Errorf("config: calendar.default_duration_minutes must be >= 1, got %d", c.Calendar.DefaultDurationMinutes)
	}

	// Backfill
	if c.Backfill.Enabled {
		if _, err := cron.ParseStandard(c.Backfill.Schedule); err != nil {
			return fmt.Errorf("config: backfill.schedule %q is invalid: %w", c.Backfill.Schedule, err)
		}
	}
	if c.Backfill.Timeout <= 0 {
		return fmt.Errorf("config: backfill.timeout must be positive")
	}

	// Meet link
	if c.MeetLink.Enabled {
		if err := validateURL("meetlink.endpoint", c.MeetLink.Endpoint); err != nil {
			return err
		}
	}

	// Metrics
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("config: metrics.path %q must start with /", c.Metrics.Path)
	}

	return nil
}

func validatePort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("config: %s %d is out of range [1, 65535]", key, port)
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: %s %q must be an absolute URL", key, raw)
	}
	return nil
}

//Personal.AI order the ending
