// Command worker retries failed blob deletions from the cleanup queue and
// periodically sweeps blobs that no thumbnail references.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/config"
	"github.com/ad-tracker/thumbnail-service-go/internal/db"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/repository"
	"github.com/ad-tracker/thumbnail-service-go/internal/metrics"
	"github.com/ad-tracker/thumbnail-service-go/internal/queue"
	"github.com/ad-tracker/thumbnail-service-go/internal/service"
	"github.com/ad-tracker/thumbnail-service-go/internal/storage"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("worker")

	if err := cfg.ValidateWorker(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if !cfg.Queue.Enabled && !cfg.Cleanup.Enabled {
		log.Info("Queue and cleanup are both disabled, nothing to do")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.ThumbnailDir, cfg.Storage.URLPrefix)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNew(registry)

	var wg sync.WaitGroup

	if cfg.Worker.MetricsAddr != "" {
		metricsServer := newMetricsServer(cfg.Worker.MetricsAddr, registry)
		go func() {
			log.Info("Worker metrics listening", zap.String("addr", cfg.Worker.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Queue.Enabled {
		srv, err := queue.NewServer(cfg.Queue.RedisURL, cfg.Queue.Concurrency, queue.NewCleanupHandler(store))
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start queue server: %w", err)
		}
		log.Info("Cleanup queue consumer started", zap.Int("concurrency", cfg.Queue.Concurrency))
		defer srv.Stop()
	}

	if cfg.Cleanup.Enabled {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close(pool)

		sweeper := service.NewSweeper(
			store,
			repository.NewThumbnailRepository(pool),
			cfg.Cleanup.GracePeriod,
			m,
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(ctx, cfg.Cleanup.Interval)
		}()
	}

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping worker")
	wg.Wait()

	return nil
}

// newMetricsServer serves the worker's registry on GET /metrics.
func newMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
