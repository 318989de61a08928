package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultGRPCPort = 9090

	DefaultDBHost         = "localhost"
	DefaultDBPort         = 5432
	DefaultDBName         = "sessionsync"
	DefaultDBMaxOpenConns = 25
	DefaultDBMaxIdleConns = 5
	DefaultMigrationPath  = "file://migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "sessionsync:"

	DefaultKafkaBroker   = "localhost:9092"
	DefaultKafkaGroupID  = "sessionsync-worker"
	DefaultKafkaClientID = "sessionsync"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCalendarBaseURL  = "https://calendar.google.com/calendar/render"
	DefaultCalendarHomeURL  = "https://calendar.google.com/calendar"
	DefaultSessionLabel     = "Session"
	DefaultSignature        = "Generated by SessionSync"
	DefaultDurationMinutes  = 30
	DefaultBackfillSchedule = "@every 15m"
	DefaultBackfillLease    = "backfill"

	DefaultMetricsNamespace = "sessionsync"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsPort      = 9102
)

// ApplyDefaults fills every zero-value field in cfg with the default.  Fields
// already set by the caller are left unchanged so explicit configuration
// always wins.  Call it after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// ── gRPC ──────────────────────────────────────────────────────────────────
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = DefaultGRPCPort
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5 * time.Minute
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	// DB is an int; 0 is a valid explicit value and also the default.

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = DefaultKafkaClientID
	}
	if cfg.Kafka.RequiredAcks == 0 {
		cfg.Kafka.RequiredAcks = -1
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Calendar ──────────────────────────────────────────────────────────────
	if cfg.Calendar.BaseURL == "" {
		cfg.Calendar.BaseURL = DefaultCalendarBaseURL
	}
	if cfg.Calendar.HomeURL == "" {
		cfg.Calendar.HomeURL = DefaultCalendarHomeURL
	}
	if cfg.Calendar.SessionLabel == "" {
		cfg.Calendar.SessionLabel = DefaultSessionLabel
	}
	if cfg.Calendar.Signature == "" {
		cfg.Calendar.Signature = DefaultSignature
	}
	if cfg.Calendar.DefaultDurationMinutes == 0 {
		cfg.Calendar.DefaultDurationMinutes = DefaultDurationMinutes
	}

	// ── Backfill ──────────────────────────────────────────────────────────────
	if cfg.Backfill.Schedule == "" {
		cfg.Backfill.Schedule = DefaultBackfillSchedule
	}
	if cfg.Backfill.Timeout == 0 {
		cfg.Backfill.Timeout = 5 * time.Minute
	}
	if cfg.Backfill.LeaseName == "" {
		cfg.Backfill.LeaseName = DefaultBackfillLease
	}
	if cfg.Backfill.LeaseTTL == 0 {
		cfg.Backfill.LeaseTTL = 10 * time.Minute
	}
	if cfg.Backfill.ReportTTL == 0 {
		cfg.Backfill.ReportTTL = 24 * time.Hour
	}

	// ── Meet link ─────────────────────────────────────────────────────────────
	if cfg.MeetLink.Timeout == 0 {
		cfg.MeetLink.Timeout = 5 * time.Second
	}
	if cfg.MeetLink.MaxRetries == 0 {
		cfg.MeetLink.MaxRetries = 2
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

//Personal.AI order the ending
