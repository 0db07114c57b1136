package main

import (
	"context"
	"net/http"
	"time"

	"github.com/BearBump/TrackSync/config"
	"github.com/BearBump/TrackSync/internal/bootstrap"
	"github.com/BearBump/TrackSync/internal/broker/kafka"
	"github.com/BearBump/TrackSync/internal/services/bulkworker"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBulkTopic     = "tracking.bulk.requested"
	defaultConsumerGroup = "track-worker"
)

type workerFactories struct {
	services  bootstrap.Factories
	newSource func(cfg *config.Config) (src bulkworker.MessageSource, closeFn func(), err error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		services: bootstrap.DefaultFactories(),
		newSource: func(cfg *config.Config) (bulkworker.MessageSource, func(), error) {
			if cfg.Kafka.Host == "" {
				return nil, nil, errors.New("kafka host is required for track-worker")
			}
			c := kafka.NewConsumer(cfg.Kafka.Brokers(), bulkTopic(cfg), consumerGroup(cfg))
			return c, func() { _ = c.Close() }, nil
		},
	}
}

func bulkTopic(cfg *config.Config) string {
	if cfg.Kafka.BulkRequestedTopic != "" {
		return cfg.Kafka.BulkRequestedTopic
	}
	return defaultBulkTopic
}

func consumerGroup(cfg *config.Config) string {
	if cfg.Kafka.BulkWorkerConsumerGroup != "" {
		return cfg.Kafka.BulkWorkerConsumerGroup
	}
	return defaultConsumerGroup
}

// RunTrackWorker читает пакетные запросы из Kafka и параллельно держит служебный HTTP.
// Останавливается при отмене ctx или падении любой из частей.
func RunTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories, swaggerPath string) error {
	comps, err := bootstrap.Build(cfg, f.services)
	if err != nil {
		return err
	}
	defer comps.Close()

	src, closeSrc, err := f.newSource(cfg)
	if err != nil {
		return err
	}
	if closeSrc != nil {
		defer closeSrc()
	}

	w := bulkworker.New(comps.Service, src).
		WithRetryDelay(time.Duration(cfg.TrackSync.WorkerRetryDelaySeconds) * time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		err := runWorkerHTTPServer(gctx, workerHTTPOpts{
			httpAddr:    cfg.TrackSync.WorkerHTTPAddr,
			swaggerPath: swaggerPath,
			worker:      w,
			cfg:         cfg,
		})
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	return g.Wait()
}
