package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/auth"
	"github.com/ad-tracker/thumbnail-service-go/internal/config"
	"github.com/ad-tracker/thumbnail-service-go/internal/db"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/repository"
	"github.com/ad-tracker/thumbnail-service-go/internal/events"
	"github.com/ad-tracker/thumbnail-service-go/internal/handler"
	"github.com/ad-tracker/thumbnail-service-go/internal/metrics"
	"github.com/ad-tracker/thumbnail-service-go/internal/middleware"
	"github.com/ad-tracker/thumbnail-service-go/internal/queue"
	"github.com/ad-tracker/thumbnail-service-go/internal/service"
	"github.com/ad-tracker/thumbnail-service-go/internal/storage"
	"github.com/ad-tracker/thumbnail-service-go/internal/upload"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
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
	log := logger.Named("server")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Database.AutoMigrate {
		version, err := db.MigrateUp(cfg.Database.DSN(), cfg.Database.MigrationsPath)
		if err != nil {
			return err
		}
		log.Info("Database migrated", zap.Uint("version", version))
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close(pool)
	log.Info("Database connection established", zap.Int32("max_conns", pool.Config().MaxConns))

	store, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.ThumbnailDir, cfg.Storage.URLPrefix)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNew(registry)

	optional := map[string]handler.Pinger{}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Warn("Failed to connect to RabbitMQ, lifecycle events will be dropped", zap.Error(err))
		} else {
			defer func() { _ = amqpPublisher.Close() }()
			publisher = amqpPublisher
			optional["rabbitmq"] = handler.PingFunc(func(context.Context) error {
				if !amqpPublisher.IsHealthy() {
					return errors.New("channel closed")
				}
				return nil
			})
		}
	}

	thumbnailOpts := []service.ThumbnailOption{
		service.WithPublisher(publisher),
		service.WithMetrics(m),
	}
	if cfg.Queue.Enabled {
		queueClient, err := queue.NewClient(cfg.Queue.RedisURL, cfg.Queue.MaxRetry)
		if err != nil {
			log.Warn("Failed to initialize queue client, failed blob deletions will not be retried", zap.Error(err))
		} else {
			defer func() { _ = queueClient.Close() }()
			thumbnailOpts = append(thumbnailOpts, service.WithCleanupQueue(queueClient))
		}

		redisClient, err := queue.NewRedisClient(cfg.Queue.RedisURL)
		if err != nil {
			log.Warn("Failed to create redis client for readiness checks", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			optional["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			})
		}
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	accounts := service.NewAccountService(
		repository.NewAccountRepository(pool),
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		publisher,
		service.AccountSettings{
			ResetTTL:     cfg.Auth.ResetTokenTTL,
			ResetBaseURL: cfg.Server.BaseURL(),
		},
	)
	thumbnails := service.NewThumbnailService(
		repository.NewThumbnailRepository(pool),
		store,
		upload.NewIngestor(store, cfg.Upload.WriteTimeout),
		thumbnailOpts...,
	)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		Auth:             handler.NewAuthHandler(accounts, cfg.Auth.ExposeResetLink),
		Thumbnails:       handler.NewThumbnailHandler(thumbnails, cfg.Upload.MaxBytes, cfg.Upload.WriteTimeout),
		Health:           handler.NewHealthHandler(pool, optional),
		Bearer:           middleware.NewBearerAuth(tokens, logger.Named("auth")),
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		UploadsURLPrefix: cfg.Storage.URLPrefix,
		UploadsRoot:      cfg.Storage.Root,
		CORSOrigins:      cfg.Server.CORSOrigins,
		Logger:           logger.Named("http"),
	})

	// No WriteTimeout: uploads stream for up to upload.writetimeout and the
	// handler extends its own read deadline.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("base_url", cfg.Server.BaseURL()),
			zap.String("storage", store.Dir()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				log.Error("Failed to close server", zap.Error(err))
			}
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
