package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	trackingsapi "github.com/BearBump/TrackSync/internal/api/trackings_api"
	"github.com/BearBump/TrackSync/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type trackAPIOpts struct {
	grpcAddr     string
	httpAddr     string
	grpcDialAddr string
	swaggerPath  string

	bulkTopic     string
	bulkPerMinute int

	onListen func(grpcAddr, httpAddr string)
}

// runTrackAPI поднимает gRPC (health) и HTTP (API, /healthz через gateway, метрики, swagger).
// pub может быть nil.
func runTrackAPI(ctx context.Context, opts trackAPIOpts, svc trackingsapi.Tracker, pub trackingsapi.Publisher) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	api := trackingsapi.New(svc, pub, opts.bulkTopic)

	grpcLis, err := net.Listen("tcp", opts.grpcAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	if opts.onListen != nil {
		opts.onListen(grpcLis.Addr().String(), httpLis.Addr().String())
	}

	dialAddr := opts.grpcDialAddr
	if dialAddr == "" || strings.HasSuffix(dialAddr, ":0") {
		dialAddr = grpcLis.Addr().String()
	}

	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- runGRPCServer(ctx, grpcLis)
	}()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runGatewayServer(ctx, httpLis, dialAddr, opts.swaggerPath, func(r chi.Router) {
			api.Mount(r, opts.bulkPerMinute)
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-grpcErr:
		return err
	case err := <-httpErr:
		return err
	}
}

func runGRPCServer(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			s.Stop()
		}
		_ = lis.Close()
	}()

	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.Serve(lis)
}

func runGatewayServer(ctx context.Context, lis net.Listener, grpcAddr string, swaggerPath string, mount func(r chi.Router)) error {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	r := chi.NewRouter()
	r.Use(metrics.HTTP)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, swaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))

	if mount != nil {
		mount(r)
	}

	// /healthz проксирует grpc.health.v1 через gateway.
	mux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))
	r.Mount("/", mux)

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP gateway listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}
