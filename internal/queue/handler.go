package queue

import (
	"context"
	"fmt"

	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// BlobDeleter is the content store operation the cleanup handler needs.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// CleanupHandler processes blob cleanup tasks.
type CleanupHandler struct {
	store BlobDeleter
	log   *zap.Logger
}

// NewCleanupHandler creates a new cleanup task handler.
func NewCleanupHandler(store BlobDeleter) *CleanupHandler {
	return &CleanupHandler{store: store, log: logger.Named("queue")}
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (h *CleanupHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalBlobCleanupPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	if err := h.store.Delete(ctx, payload.Key); err != nil {
		h.log.Warn("Blob cleanup attempt failed", zap.String("key", payload.Key), zap.Error(err))
		return fmt.Errorf("delete blob %s: %w", payload.Key, err)
	}

	h.log.Info("Blob cleanup completed",
		zap.String("key", payload.Key),
		zap.String("thumbnail_id", payload.ThumbnailID),
		zap.String("reason", payload.Reason),
	)
	return nil
}

// Server wraps the asynq server processing cleanup tasks.
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a task server for redisURL.
func NewServer(redisURL string, concurrency int, handler *CleanupHandler) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	log := logger.Named("queue")
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCleanup: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Error("Task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeBlobCleanup, handler)

	return &Server{asynqServer: srv, mux: mux}, nil
}

// Start starts processing in the background.
func (s *Server) Start() error {
	return s.asynqServer.Start(s.mux)
}

// Stop waits for in-flight tasks and shuts the server down.
func (s *Server) Stop() {
	s.asynqServer.Shutdown()
}
