package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/metrics"
	"github.com/ad-tracker/thumbnail-service-go/internal/storage"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"go.uber.org/zap"
)

// SweepStore is the content store surface the sweeper walks.
type SweepStore interface {
	Walk(ctx context.Context, fn func(storage.Blob) error) error
	Delete(ctx context.Context, key string) error
	Reference(key string) string
}

// ReferenceChecker tells whether a record still points at a blob.
type ReferenceChecker interface {
	ImageReferenced(ctx context.Context, image string) (bool, error)
}

// Sweeper removes blobs no thumbnail references, left behind by crashes
// between the blob write and the metadata write or by failed deletions.
type Sweeper struct {
	store   SweepStore
	refs    ReferenceChecker
	grace   time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
	log     *zap.Logger
}

// NewSweeper creates a Sweeper. Blobs younger than grace are never touched,
// which keeps uploads whose record is still being written safe.
func NewSweeper(store SweepStore, refs ReferenceChecker, grace time.Duration, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		store:   store,
		refs:    refs,
		grace:   grace,
		metrics: m,
		now:     time.Now,
		log:     logger.Named("sweeper"),
	}
}

// Sweep runs one pass and returns how many orphans were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	removed := 0

	err := s.store.Walk(ctx, func(blob storage.Blob) error {
		if blob.ModTime.After(cutoff) {
			return nil
		}

		referenced, err := s.refs.ImageReferenced(ctx, s.store.Reference(blob.Key))
		if err != nil {
			return fmt.Errorf("check %s: %w", blob.Key, err)
		}
		if referenced {
			return nil
		}

		if err := s.store.Delete(ctx, blob.Key); err != nil {
			s.log.Warn("Failed to remove orphaned blob", zap.String("key", blob.Key), zap.Error(err))
			return nil
		}

		s.log.Info("Removed orphaned blob",
			zap.String("key", blob.Key),
			zap.Int64("size", blob.Size),
			zap.Time("modified", blob.ModTime),
		)
		removed++
		return nil
	})

	s.metrics.ObserveOrphansSwept(removed)
	return removed, err
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.log.Info("Orphan sweeper started", zap.Duration("interval", interval), zap.Duration("grace", s.grace))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		removed, err := s.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.Error("Sweep failed", zap.Error(err))
		}
		s.log.Debug("Sweep finished", zap.Int("removed", removed), zap.Duration("took", time.Since(start)))

		select {
		case <-ctx.Done():
			s.log.Info("Orphan sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
