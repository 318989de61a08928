package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, DefaultCalendarBaseURL, cfg.Calendar.BaseURL)
	assert.Equal(t, DefaultCalendarHomeURL, cfg.Calendar.HomeURL)
	assert.Equal(t, "Session", cfg.Calendar.SessionLabel)
	assert.Equal(t, 30, cfg.Calendar.DefaultDurationMinutes)
	assert.Equal(t, "@every 15m", cfg.Backfill.Schedule)
	assert.Equal(t, 5*time.Minute, cfg.Backfill.Timeout)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, "sessionsync:", cfg.Redis.KeyPrefix)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Calendar.SessionLabel = "Coaching"
	cfg.Backfill.Schedule = "0 * * * *"
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "Coaching", cfg.Calendar.SessionLabel)
	assert.Equal(t, "0 * * * *", cfg.Backfill.Schedule)
}

func TestApplyDefaults_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
