package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgevane/httpmetrics/internal/config"
	"github.com/edgevane/httpmetrics/internal/listener"
	"github.com/edgevane/httpmetrics/internal/middleware"
	"github.com/edgevane/httpmetrics/pkg/collector"
	"github.com/edgevane/httpmetrics/pkg/observability"
	"github.com/edgevane/httpmetrics/pkg/observability/implementation"
)

const listenerRef = "http"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs, err := implementation.NewObservability(implementation.Config{
		ServiceName:    "httpmetrics",
		ServiceVersion: "0.1.0",
		MetricsAddr:    envOr("METRICS_ADDR", ":9090"),
		OTLPEndpoint:   os.Getenv("OTLP_ENDPOINT"),
	})
	if err != nil {
		panic(err)
	}
	log := obs.Logger()

	if err := obs.Start(ctx); err != nil {
		log.Error("failed to start observability", observability.Err(err))
	}

	var opts []collector.Option
	if path := os.Getenv("HTTPMETRICS_CONFIG"); path != "" {
		overrides, err := config.Load(path)
		if err != nil {
			log.Fatal("failed to load config overrides", observability.Err(err))
		}
		opts = overrides.Options()
		log.Info("loaded config overrides", observability.String("path", path))
	}
	cfg := collector.NewConfig(opts...)

	registry := listener.NewRegistry()
	col := collector.New(obs.Meter(), registry, cfg, log, nil)

	node, err := middleware.NewRequestIDNode()
	if err != nil {
		log.Fatal("failed to initialize request id node", observability.Err(err))
	}

	mw := middleware.NewMetrics(col, obs.Meter(), log, obs.Tracer(), node, listenerRef)

	lis, err := net.Listen("tcp", envOr("LISTEN_ADDR", ":8080"))
	if err != nil {
		log.Fatal("failed to listen", observability.Err(err))
	}
	if err := registry.Register(listenerRef, lis); err != nil {
		log.Fatal("failed to register listener", observability.Err(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/work", func(w http.ResponseWriter, r *http.Request) {
		middleware.TrackSpawn(r.Context(), "background-flush")
		go func() { time.Sleep(10 * time.Millisecond) }()
		w.WriteHeader(http.StatusAccepted)
	})

	server := &http.Server{
		Handler:  mw.Handler(mux),
		ErrorLog: middleware.ServerErrorLog(mw),
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		log.Info("Shutting down server...")
		cancel()
	}()

	go func() {
		log.Info("HTTP server running", observability.String("addr", lis.Addr().String()))
		if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to serve", observability.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("Graceful stopping HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down server", observability.Err(err))
	}
	registry.Deregister(listenerRef)
	if err := obs.Close(shutdownCtx); err != nil {
		log.Error("failed to close observability", observability.Err(err))
	}
	log.Info("HTTP server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
