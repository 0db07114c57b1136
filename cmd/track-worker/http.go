package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/TrackSync/config"
	"github.com/BearBump/TrackSync/internal/metrics"
	"github.com/BearBump/TrackSync/internal/services/bulkworker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type statsSource interface {
	Stats() bulkworker.Stats
}

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	worker statsSource
	cfg    *config.Config
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath == "" {
		return fmt.Errorf("worker swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("worker swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()
	r.Use(metrics.HTTP)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.worker == nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "worker not wired"})
			return
		}
		render.JSON(w, r, map[string]string{"status": "ready"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.worker == nil {
			render.JSON(w, r, map[string]string{"error": "worker not wired"})
			return
		}
		render.JSON(w, r, opts.worker.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil {
			render.JSON(w, r, map[string]string{"error": "config not wired"})
			return
		}
		// Только рабочие настройки, без паролей и адресов.
		render.JSON(w, r, map[string]any{
			"bulkRequestedTopic":         bulkTopic(opts.cfg),
			"consumerGroup":              consumerGroup(opts.cfg),
			"bulkMaxNumbers":             opts.cfg.TrackSync.BulkMaxNumbers,
			"bulkConcurrency":            opts.cfg.TrackSync.BulkConcurrency,
			"freshnessWindowSeconds":     opts.cfg.TrackSync.FreshnessWindowSeconds,
			"retryDelaySeconds":          opts.cfg.TrackSync.WorkerRetryDelaySeconds,
			"providerMode":               opts.cfg.Provider.Mode,
			"providerRateLimitPerMinute": opts.cfg.Provider.RateLimitPerMinute,
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})

	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
