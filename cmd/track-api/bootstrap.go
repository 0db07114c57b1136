package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/TrackSync/config"
	trackingsapi "github.com/BearBump/TrackSync/internal/api/trackings_api"
	"github.com/BearBump/TrackSync/internal/bootstrap"
)

type trackAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   trackAPIOpts
	comps  *bootstrap.Components
}

func mustBootstrapTrackAPI(f bootstrap.Factories) *trackAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	comps, err := bootstrap.Build(cfg, f)
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &trackAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts:   trackAPIOptsFromConfig(cfg, swaggerPath),
		comps:  comps,
	}
}

func trackAPIOptsFromConfig(cfg *config.Config, swaggerPath string) trackAPIOpts {
	grpcAddr := cfg.TrackSync.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.TrackSync.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	bulkTopic := cfg.Kafka.BulkRequestedTopic
	if bulkTopic == "" {
		bulkTopic = "tracking.bulk.requested"
	}
	return trackAPIOpts{
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		grpcDialAddr:  grpcAddr,
		swaggerPath:   swaggerPath,
		bulkTopic:     bulkTopic,
		bulkPerMinute: cfg.TrackSync.BulkRequestsPerMinute,
	}
}

func (a *trackAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.comps != nil {
		a.comps.Close()
	}
}

func (a *trackAPIApp) Run() error {
	var pub trackingsapi.Publisher
	if a.comps.Producer != nil {
		pub = a.comps.Producer
	}
	return runTrackAPI(a.ctx, a.opts, a.comps.Service, pub)
}
