// Package bootstrap собирает сервис трекинга из конфига; общий для track-api и track-worker.
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/TrackSync/config"
	"github.com/BearBump/TrackSync/internal/broker/kafka"
	"github.com/BearBump/TrackSync/internal/cache"
	"github.com/BearBump/TrackSync/internal/cache/rediscache"
	"github.com/BearBump/TrackSync/internal/integrations/provider"
	"github.com/BearBump/TrackSync/internal/integrations/provider/fake"
	"github.com/BearBump/TrackSync/internal/integrations/provider/indiapost"
	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/BearBump/TrackSync/internal/storage/memtracking"
	"github.com/BearBump/TrackSync/internal/storage/pgtracking"
	"github.com/pkg/errors"
)

const (
	ProviderModeIndiaPost = "indiapost"
	ProviderModeFake      = "fake"

	defaultProviderRateLimitPerMinute = 120
)

// EventProducer — то, что нужно от Kafka и сервису, и HTTP API.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

type Factories struct {
	NewStore    func(cfg *config.Config) (st trackings.Store, closeFn func(), err error)
	NewRedis    func(cfg *config.Config) (c cache.BytesCache, rl provider.RateLimiter, closeFn func())
	NewProvider func(cfg *config.Config) provider.Client
	NewProducer func(cfg *config.Config) (p EventProducer, closeFn func())
}

func DefaultFactories() Factories {
	return Factories{
		NewStore: func(cfg *config.Config) (trackings.Store, func(), error) {
			if cfg.Database.Host == "" {
				slog.Warn("database host is empty, using in-memory storage")
				return memtracking.New(), nil, nil
			}
			st, err := OpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		NewRedis: func(cfg *config.Config) (cache.BytesCache, provider.RateLimiter, func()) {
			if cfg.Redis.Host == "" {
				return nil, nil, nil
			}
			rc := rediscache.New(cfg.Redis.Addr())
			rl := rediscache.NewRateLimiter(cfg.Redis.Addr())
			return rc, rl, func() {
				_ = rc.Close()
				_ = rl.Close()
			}
		},
		NewProvider: func(cfg *config.Config) provider.Client {
			switch cfg.Provider.Mode {
			case ProviderModeFake:
				return fake.New()
			default:
				timeout := time.Duration(cfg.Provider.TimeoutSeconds) * time.Second
				return indiapost.New(cfg.Provider.BaseURL, timeout)
			}
		},
		NewProducer: func(cfg *config.Config) (EventProducer, func()) {
			if cfg.Kafka.Host == "" {
				return nil, nil
			}
			p := kafka.NewProducer(cfg.Kafka.Brokers())
			return p, func() { _ = p.Close() }
		},
	}
}

// OpenPostgresWithRetry ждёт, пока Postgres поднимется (актуально для docker compose).
func OpenPostgresWithRetry(connString string, wait time.Duration) (*pgtracking.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtracking.New(connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return nil, errors.Wrapf(lastErr, "postgres is not ready after %s", wait)
}

func ServiceOptions(cfg *config.Config) trackings.Options {
	return trackings.Options{
		FreshnessWindow: cfg.TrackSync.FreshnessWindow(),
		BulkMaxNumbers:  cfg.TrackSync.BulkMaxNumbers,
		BulkConcurrency: cfg.TrackSync.BulkConcurrency,
		CacheTTL:        cfg.TrackSync.CacheTTL(),
		SyncedTopic:     cfg.Kafka.TrackingSyncedTopic,
	}
}

type Components struct {
	Service *trackings.Service
	// Producer == nil, если Kafka не настроена.
	Producer EventProducer

	closers []func()
}

// Close закрывает ресурсы в обратном порядке.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Components) onClose(fn func()) {
	if fn != nil {
		c.closers = append(c.closers, fn)
	}
}

func Build(cfg *config.Config, f Factories) (*Components, error) {
	c := &Components{}

	st, closeStore, err := f.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	c.onClose(closeStore)

	bc, rl, closeRedis := f.NewRedis(cfg)
	c.onClose(closeRedis)

	mode := cfg.Provider.Mode
	if mode == "" {
		mode = ProviderModeIndiaPost
	}
	perMinute := cfg.Provider.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = defaultProviderRateLimitPerMinute
	}
	client := provider.NewRateLimited(f.NewProvider(cfg), rl, mode, int64(perMinute))

	var pub trackings.Publisher
	if p, closeProducer := f.NewProducer(cfg); p != nil {
		c.Producer = p
		pub = p
		c.onClose(closeProducer)
	}

	c.Service = trackings.New(st, client, bc, pub, ServiceOptions(cfg))
	return c, nil
}
