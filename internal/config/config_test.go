package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMissingFile(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
}

func TestLoad_Defaults(t *testing.T) {
	useMissingFile(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "classifieds-ingestor", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 20*time.Second, cfg.RetryAfter)
	assert.Equal(t, []string{"127.0.0.1:9092"}, cfg.Kafka.SeedBrokers())
	assert.Equal(t, "data", cfg.Kafka.Topic)
	assert.Equal(t, int32(0), cfg.Kafka.Partition)
	assert.Equal(t, 5*time.Second, cfg.Kafka.IdleTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "Classifieds", cfg.Store.Table)
	assert.Equal(t, 100, cfg.Store.CommitEvery)
	assert.False(t, cfg.Chaos.Enabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, ":50051", cfg.GRPCAddr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	useMissingFile(t)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("KAFKA_PARTITION", "3")
	t.Setenv("RETRY_AFTER", "1m")
	t.Setenv("COMMIT_EVERY", "7")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://ingest@localhost/xe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.SeedBrokers())
	assert.Equal(t, int32(3), cfg.Kafka.Partition)
	assert.Equal(t, time.Minute, cfg.RetryAfter)
	assert.Equal(t, 7, cfg.Store.CommitEvery)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://ingest@localhost/xe", cfg.Store.DSN)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
service_name: ingest-test
retry_after: 45s
kafka:
  brokers: ["broker:29092"]
  topic: classifieds
  idle_timeout: 2s
store:
  driver: sqlite
  dsn: /tmp/ingest-test.db
  table: Ads
  commit_every: 25
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("COMMIT_EVERY", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ingest-test", cfg.ServiceName)
	assert.Equal(t, 45*time.Second, cfg.RetryAfter)
	assert.Equal(t, []string{"broker:29092"}, cfg.Kafka.SeedBrokers())
	assert.Equal(t, "classifieds", cfg.Kafka.Topic)
	assert.Equal(t, 2*time.Second, cfg.Kafka.IdleTimeout)
	assert.Equal(t, "Ads", cfg.Store.Table)
	assert.Equal(t, 50, cfg.Store.CommitEvery, "env overrides the file")
}

func TestLoad_InvalidValues(t *testing.T) {
	useMissingFile(t)
	t.Setenv("RETRY_AFTER", "0s")
	t.Setenv("COMMIT_EVERY", "0")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry_after")
	assert.Contains(t, err.Error(), "commit_every")
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestUsage(t *testing.T) {
	usage := Usage()
	assert.Contains(t, usage, "KAFKA_BROKERS")
	assert.Contains(t, usage, "DB_DSN")
	assert.Contains(t, usage, "RETRY_AFTER")
}
