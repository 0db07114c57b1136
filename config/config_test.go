package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  tracking_synced_topic_name: "tracking.synced"
  bulk_requested_topic_name: "tracking.bulk.requested"
  bulk_worker_consumer_group: "track-worker"
redis:
  host: "localhost"
  port: 6379
provider:
  mode: "indiapost"
  base_url: "http://provider:8000"
  timeout_seconds: 10
  rate_limit_per_minute: 60
tracksync:
  grpc_addr: ":50051"
  http_addr: ":8080"
  freshness_window_seconds: 900
  bulk_max_numbers: 50
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.Database.ConnString())
	require.Equal(t, "tracking.synced", cfg.Kafka.TrackingSyncedTopic)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, "indiapost", cfg.Provider.Mode)
	require.Equal(t, 60, cfg.Provider.RateLimitPerMinute)
	require.Equal(t, ":8080", cfg.TrackSync.HTTPAddr)
	require.Equal(t, 15*time.Minute, cfg.TrackSync.FreshnessWindow())
	require.Equal(t, 50, cfg.TrackSync.BulkMaxNumbers)
	require.Zero(t, cfg.TrackSync.CacheTTL())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("database: [1"), 0o600))
	_, err = LoadConfig(p)
	require.ErrorContains(t, err, "failed to unmarshal YAML")
}
