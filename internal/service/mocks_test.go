package service

import (
	"context"
	"mime/multipart"

	"github.com/ad-tracker/thumbnail-service-go/internal/auth"
	"github.com/ad-tracker/thumbnail-service-go/internal/events"
	"github.com/ad-tracker/thumbnail-service-go/internal/queue"
	"github.com/ad-tracker/thumbnail-service-go/internal/storage"
	"github.com/ad-tracker/thumbnail-service-go/internal/upload"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockBlobStore) KeyFromReference(ref string) string {
	return ref[len("/uploads/thumbnails/"):]
}

type mockIngestor struct {
	mock.Mock
}

func (m *mockIngestor) Ingest(ctx context.Context, mr *multipart.Reader) (*upload.Ingested, error) {
	args := m.Called(ctx, mr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upload.Ingested), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event *events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockCleanupQueue struct {
	mock.Mock
}

func (m *mockCleanupQueue) EnqueueBlobCleanup(ctx context.Context, payload queue.BlobCleanupPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type mockSweepStore struct {
	mock.Mock
	blobs []storage.Blob
}

func (m *mockSweepStore) Walk(ctx context.Context, fn func(storage.Blob) error) error {
	for _, b := range m.blobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSweepStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockSweepStore) Reference(key string) string {
	return "/uploads/thumbnails/" + key
}

// plainHasher avoids bcrypt cost in unit tests.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(hash, password string) error {
	if hash != "hashed:"+password {
		return auth.ErrPasswordMismatch
	}
	return nil
}

type staticTokens struct{}

func (staticTokens) Issue(accountID uuid.UUID) (string, error) { return "token-" + accountID.String(), nil }
