package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8080
  mode: "debug"
grpc:
  enabled: true
  port: 9090
database:
  host: "localhost"
  port: 5432
  user: "sessionsync"
  password: "password"
  db_name: "sessionsync"
redis:
  enabled: true
  addr: "localhost:6379"
kafka:
  enabled: true
  brokers: ["localhost:9092"]
  group_id: "sessionsync-worker"
calendar:
  session_label: "Coaching"
backfill:
  enabled: true
  schedule: "@every 5m"
  timeout: 2m
log:
  level: "debug"
  format: "console"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.GRPC.Enabled)
	assert.Equal(t, "Coaching", cfg.Calendar.SessionLabel)
	assert.Equal(t, "@every 5m", cfg.Backfill.Schedule)
	assert.Equal(t, 2*time.Minute, cfg.Backfill.Timeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)

	// defaults fill the rest
	assert.Equal(t, DefaultCalendarBaseURL, cfg.Calendar.BaseURL)
	assert.Equal(t, 30, cfg.Calendar.DefaultDurationMinutes)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(WithConfigPath("non_existent_config.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, `
server:
  port: 70000
database:
  user: "u"
`)
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("SESSIONSYNC_SERVER_PORT", "9999")
	t.Setenv("SESSIONSYNC_DATABASE_HOST", "db-host")

	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "db-host", cfg.Database.Host)
}

func TestLoad_WithSearchPaths(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	cfg, err := Load(WithSearchPaths(t.TempDir(), filepath.Dir(path)))
	require.NoError(t, err)
	assert.Equal(t, "sessionsync", cfg.Database.User)
}

func TestLoad_WithSearchPaths_NoFileFallsBackToEnv(t *testing.T) {
	t.Setenv("SESSIONSYNC_DATABASE_USER", "env-user")

	cfg, err := Load(WithSearchPaths(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.Database.User)
}

func TestLoad_WithOverrides(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path), WithOverrides(map[string]interface{}{
		"server.port": 7777,
	}))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestLoad_WithEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SESSIONSYNC_DATABASE_USER=dotenv-user\nSESSIONSYNC_CALENDAR_SIGNATURE=Sent from tests\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SESSIONSYNC_DATABASE_USER")
		os.Unsetenv("SESSIONSYNC_CALENDAR_SIGNATURE")
	})

	cfg, err := Load(WithEnvFile(envPath, filepath.Join(dir, "missing.env")))
	require.NoError(t, err)
	assert.Equal(t, "dotenv-user", cfg.Database.User)
	assert.Equal(t, "Sent from tests", cfg.Calendar.Signature)
}

func TestLoadFromFile_Convenience(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("SESSIONSYNC_DATABASE_USER", "user")
	t.Setenv("SESSIONSYNC_KAFKA_ENABLED", "true")
	t.Setenv("SESSIONSYNC_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SESSIONSYNC_BACKFILL_TIMEOUT", "90s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "user", cfg.Database.User)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Backfill.Timeout)
}

func TestMustLoad_Success(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		MustLoad(WithConfigPath(path))
	})
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(WithConfigPath("non_existent.yaml"))
	})
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := strings.Replace(validConfigYAML, `level: "debug"`, `level: "error"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case c := <-changed:
		assert.Equal(t, "error", c.Log.Level)
	case <-time.After(5 * time.Second):
		t.Skip("file watcher did not fire in time on this platform")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.ErrorIs(t, err, ErrConfigParseError)
}

//Personal.AI order the ending
