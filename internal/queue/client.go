package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Client enqueues cleanup tasks.
type Client struct {
	asynqClient *asynq.Client
	maxRetry    int
}

// NewClient creates a queue client for redisURL. maxRetry bounds how often a
// failed cleanup is retried with asynq's exponential backoff.
func NewClient(redisURL string, maxRetry int) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
		maxRetry:    maxRetry,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueBlobCleanup schedules deletion of payload.Key. A cleanup already
// pending for the same key is not duplicated.
func (c *Client) EnqueueBlobCleanup(ctx context.Context, payload BlobCleanupPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	body, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	info, err := c.asynqClient.EnqueueContext(ctx,
		asynq.NewTask(TypeBlobCleanup, body),
		asynq.TaskID("blob:"+payload.Key),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Queue(QueueCleanup),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.L().Info("Enqueued blob cleanup", zap.String("key", payload.Key), zap.String("task_id", info.ID))
	return nil
}
