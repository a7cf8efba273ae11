package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8081
  mode: "test"
database:
  host: "db.internal"
  port: 5432
  user: "pateng"
  password: "secret"
  db_name: "extraction"
redis:
  addr: "redis.internal:6379"
kafka:
  brokers: ["kafka.internal:9092"]
synthesis:
  base_url: "http://llm.internal:8000/v1"
  model: "gpt-4o-mini"
engine:
  ready_threshold: 7
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeTempConfig(t, validConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"kafka.internal:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 7, cfg.Engine.ReadyThreshold)

	// Fields absent from the file pick up defaults.
	assert.Equal(t, DefaultHighPassRate, cfg.Engine.HighPassRate)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultRedisKeyPrefix, cfg.Redis.KeyPrefix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTempConfig(t, `
database:
  user: "pateng"
server:
  mode: "nonsense"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PATENG_DATABASE_HOST", "env-db")
	t.Setenv("PATENG_DATABASE_USER", "env-user")
	t.Setenv("PATENG_SERVER_PORT", "9999")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, "env-user", cfg.Database.User)
	assert.Equal(t, 9999, cfg.Server.Port)
	// Unset settings still come from defaults.
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
