package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Provider  ProviderConfig  `yaml:"provider"`
	TrackSync TrackSyncConfig `yaml:"tracksync"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnString; пустой Host — работаем без Postgres, на хранилище в памяти.
func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	TrackingSyncedTopic     string `yaml:"tracking_synced_topic_name"`
	BulkRequestedTopic      string `yaml:"bulk_requested_topic_name"`
	BulkWorkerConsumerGroup string `yaml:"bulk_worker_consumer_group"`
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type ProviderConfig struct {
	// Mode: "indiapost" | "fake".
	Mode               string `yaml:"mode"`
	BaseURL            string `yaml:"base_url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type TrackSyncConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`

	FreshnessWindowSeconds int `yaml:"freshness_window_seconds"`
	CacheTTLSeconds        int `yaml:"cache_ttl_seconds"`
	BulkMaxNumbers         int `yaml:"bulk_max_numbers"`
	BulkConcurrency        int `yaml:"bulk_concurrency"`
	// Лимит пакетных запросов с одного IP в минуту; 0 — без лимита.
	BulkRequestsPerMinute int `yaml:"bulk_requests_per_minute"`

	WorkerHTTPAddr          string `yaml:"worker_http_addr"`
	WorkerRetryDelaySeconds int    `yaml:"worker_retry_delay_seconds"`
}

func (c TrackSyncConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowSeconds) * time.Second
}

func (c TrackSyncConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
