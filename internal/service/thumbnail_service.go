package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/db"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/models"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/repository"
	"github.com/ad-tracker/thumbnail-service-go/internal/events"
	"github.com/ad-tracker/thumbnail-service-go/internal/metrics"
	"github.com/ad-tracker/thumbnail-service-go/internal/queue"
	"github.com/ad-tracker/thumbnail-service-go/internal/upload"
	"github.com/ad-tracker/thumbnail-service-go/internal/validation"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// blobDeleteParallelism bounds concurrent blob removals in DeleteAll.
	blobDeleteParallelism = 4
	// blobDeleteTimeout bounds one blob removal.
	blobDeleteTimeout = 10 * time.Second
)

// BlobStore is the content store surface the thumbnail service uses.
type BlobStore interface {
	Delete(ctx context.Context, key string) error
	KeyFromReference(ref string) string
}

// Ingestor turns a multipart upload into a stored blob.
type Ingestor interface {
	Ingest(ctx context.Context, mr *multipart.Reader) (*upload.Ingested, error)
}

// CleanupQueue schedules retries for blob removals that failed.
type CleanupQueue interface {
	EnqueueBlobCleanup(ctx context.Context, payload queue.BlobCleanupPayload) error
}

// ThumbnailService manages thumbnails scoped to their owning account. Blob
// removal after a metadata delete is best effort: failures are logged,
// counted and optionally queued, never returned.
type ThumbnailService struct {
	repo     repository.ThumbnailRepository
	store    BlobStore
	ingestor Ingestor
	events   events.Publisher
	cleanup  CleanupQueue
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// ThumbnailOption configures optional collaborators.
type ThumbnailOption func(*ThumbnailService)

// WithPublisher publishes lifecycle events.
func WithPublisher(p events.Publisher) ThumbnailOption {
	return func(s *ThumbnailService) { s.events = p }
}

// WithCleanupQueue retries failed blob removals through q.
func WithCleanupQueue(q CleanupQueue) ThumbnailOption {
	return func(s *ThumbnailService) { s.cleanup = q }
}

// WithMetrics records upload and deletion metrics.
func WithMetrics(m *metrics.Metrics) ThumbnailOption {
	return func(s *ThumbnailService) { s.metrics = m }
}

// NewThumbnailService creates a ThumbnailService.
func NewThumbnailService(repo repository.ThumbnailRepository, store BlobStore, ingestor Ingestor, opts ...ThumbnailOption) *ThumbnailService {
	s := &ThumbnailService{
		repo:     repo,
		store:    store,
		ingestor: ingestor,
		events:   events.NopPublisher{},
		log:      logger.Named("thumbnails"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	return s
}

// Upload ingests a multipart upload and records it for owner.
func (s *ThumbnailService) Upload(ctx context.Context, owner uuid.UUID, mr *multipart.Reader) (*models.Thumbnail, error) {
	ingested, err := s.ingestor.Ingest(ctx, mr)
	if err != nil {
		var vErr *validation.Error
		if errors.Is(err, upload.ErrMissingFile) || errors.As(err, &vErr) {
			s.metrics.ObserveUpload(metrics.UploadRejected, 0)
		} else {
			s.metrics.ObserveUpload(metrics.UploadFailed, 0)
		}
		return nil, err
	}

	thumbnail, err := s.Create(ctx, owner, ingested)
	if err != nil {
		s.metrics.ObserveUpload(metrics.UploadFailed, 0)
		return nil, err
	}

	s.metrics.ObserveUpload(metrics.UploadStored, ingested.Size)
	return thumbnail, nil
}

// Create records an ingested upload for owner. If the insert fails the blob
// is removed so it does not linger unreferenced.
func (s *ThumbnailService) Create(ctx context.Context, owner uuid.UUID, ingested *upload.Ingested) (*models.Thumbnail, error) {
	thumbnail := models.NewThumbnail(owner, ingested.VideoName, ingested.Version, ingested.Image, ingested.Paid)

	if err := s.repo.Create(ctx, thumbnail); err != nil {
		s.removeBlob(ctx, owner, thumbnail.ID, thumbnail.Image, "create_failed")
		return nil, fmt.Errorf("create thumbnail: %w", err)
	}

	s.log.Info("Thumbnail created",
		zap.String("thumbnail_id", thumbnail.ID.String()),
		zap.String("account_id", owner.String()),
		zap.String("image", thumbnail.Image),
	)
	publish(ctx, s.log, s.events, events.New(events.TypeThumbnailCreated, owner).
		WithThumbnail(thumbnail.ID).
		With("image", thumbnail.Image))

	return thumbnail, nil
}

// List yields owner's thumbnails. Each range over the result queries anew.
func (s *ThumbnailService) List(ctx context.Context, owner uuid.UUID) iter.Seq2[*models.Thumbnail, error] {
	return s.repo.ListByAccount(ctx, owner)
}

// Get returns the thumbnail id if owner owns it, otherwise ErrNotFound.
func (s *ThumbnailService) Get(ctx context.Context, owner, id uuid.UUID) (*models.Thumbnail, error) {
	thumbnail, err := s.repo.GetByID(ctx, owner, id)
	if err != nil {
		return nil, notFoundOr(err, "get thumbnail")
	}
	return thumbnail, nil
}

// Update applies patch to owner's thumbnail id. An empty patch returns the
// record unchanged.
func (s *ThumbnailService) Update(ctx context.Context, owner, id uuid.UUID, patch models.ThumbnailPatch) (*models.Thumbnail, error) {
	var check validation.Checker
	if patch.VideoName != nil {
		check.Text(upload.FieldVideoName, *patch.VideoName)
	}
	if patch.Version != nil {
		check.Text(upload.FieldVersion, *patch.Version)
	}
	if err := check.Err(); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return s.Get(ctx, owner, id)
	}

	thumbnail, err := s.repo.Update(ctx, owner, id, patch)
	if err != nil {
		return nil, notFoundOr(err, "update thumbnail")
	}
	return thumbnail, nil
}

// Delete removes owner's thumbnail id and then its blob.
func (s *ThumbnailService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, owner, id)
	if err != nil {
		return notFoundOr(err, "delete thumbnail")
	}

	s.removeBlob(ctx, owner, deleted.ID, deleted.Image, "delete")

	publish(ctx, s.log, s.events, events.New(events.TypeThumbnailDeleted, owner).
		WithThumbnail(deleted.ID).
		With("image", deleted.Image))

	return nil
}

// DeleteAll removes every thumbnail of owner in one statement, then removes
// each blob independently. It returns how many records were deleted.
func (s *ThumbnailService) DeleteAll(ctx context.Context, owner uuid.UUID) (int, error) {
	refs, err := s.repo.DeleteAllByAccount(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("delete all thumbnails: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(blobDeleteParallelism)
	for _, ref := range refs {
		g.Go(func() error {
			s.removeBlob(ctx, owner, ref.ThumbnailID, ref.Image, "delete_all")
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("Thumbnails purged",
		zap.String("account_id", owner.String()),
		zap.Int("count", len(refs)),
	)
	publish(ctx, s.log, s.events, events.New(events.TypeThumbnailsPurged, owner).
		With("count", strconv.Itoa(len(refs))))

	return len(refs), nil
}

// removeBlob deletes the blob behind image. It outlives request
// cancellation and never fails the caller.
func (s *ThumbnailService) removeBlob(ctx context.Context, owner, thumbnailID uuid.UUID, image, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobDeleteTimeout)
	defer cancel()

	key := s.store.KeyFromReference(image)
	err := s.store.Delete(ctx, key)
	if err == nil {
		s.metrics.ObserveBlobDeletion(metrics.BlobDeleted)
		return
	}

	s.metrics.ObserveBlobDeletion(metrics.BlobFailed)
	s.log.Warn("Failed to delete blob, leaving orphan",
		zap.String("key", key),
		zap.String("thumbnail_id", thumbnailID.String()),
		zap.String("reason", reason),
		zap.Error(err),
	)

	if s.cleanup == nil {
		return
	}

	qerr := s.cleanup.EnqueueBlobCleanup(ctx, queue.BlobCleanupPayload{
		Key:         key,
		ThumbnailID: thumbnailID.String(),
		AccountID:   owner.String(),
		Reason:      reason,
	})
	if qerr != nil {
		s.log.Error("Failed to enqueue blob cleanup", zap.String("key", key), zap.Error(qerr))
		return
	}
	s.metrics.ObserveBlobDeletion(metrics.BlobQueued)
}

func notFoundOr(err error, operation string) error {
	if db.IsNotFound(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", operation, err)
}
