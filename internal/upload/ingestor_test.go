package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"testing"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/storage"
	"github.com/ad-tracker/thumbnail-service-go/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formPart struct {
	name     string
	filename string
	value    string
}

func buildForm(t *testing.T, parts ...formPart) *multipart.Reader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := w.CreateFormFile(p.name, p.filename)
			require.NoError(t, err)
			_, err = io.WriteString(fw, p.value)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, w.WriteField(p.name, p.value))
	}
	require.NoError(t, w.Close())

	return multipart.NewReader(&buf, w.Boundary())
}

func newTestIngestor(t *testing.T) (*Ingestor, *storage.LocalStore) {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir(), "thumbnails", "/uploads")
	require.NoError(t, err)

	ing := NewIngestor(store, time.Minute)
	ing.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return ing, store
}

func blobs(t *testing.T, store *storage.LocalStore) []string {
	t.Helper()
	var keys []string
	require.NoError(t, store.Walk(context.Background(), func(b storage.Blob) error {
		keys = append(keys, b.Key)
		return nil
	}))
	return keys
}

func TestIngest(t *testing.T) {
	t.Run("stores file and collects fields", func(t *testing.T) {
		ing, store := newTestIngestor(t)

		got, err := ing.Ingest(context.Background(), buildForm(t,
			formPart{name: FieldVideoName, value: "Launch"},
			formPart{name: "file", filename: "cover.png", value: "PNGDATA"},
			formPart{name: FieldVersion, value: "v2"},
			formPart{name: FieldPaid, value: "true"},
		))
		require.NoError(t, err)

		assert.Equal(t, "1700000000000-cover.png", got.Key)
		assert.Equal(t, "/uploads/thumbnails/1700000000000-cover.png", got.Image)
		assert.Equal(t, "Launch", got.VideoName)
		assert.Equal(t, "v2", got.Version)
		assert.True(t, got.Paid)
		assert.Equal(t, int64(7), got.Size)

		data, err := os.ReadFile(store.Dir() + "/" + got.Key)
		require.NoError(t, err)
		assert.Equal(t, "PNGDATA", string(data))
		assert.Equal(t, []string{got.Key}, blobs(t, store))
	})

	t.Run("duplicate fields keep the last value", func(t *testing.T) {
		ing, _ := newTestIngestor(t)

		got, err := ing.Ingest(context.Background(), buildForm(t,
			formPart{name: FieldVideoName, value: "first"},
			formPart{name: FieldVersion, value: "v1"},
			formPart{name: "file", filename: "a.png", value: "x"},
			formPart{name: FieldVideoName, value: "second"},
		))
		require.NoError(t, err)
		assert.Equal(t, "second", got.VideoName)
	})

	t.Run("paid is only true for the exact string", func(t *testing.T) {
		for value, want := range map[string]bool{"true": true, "TRUE": false, "1": false, "yes": false, "": false} {
			ing, _ := newTestIngestor(t)
			got, err := ing.Ingest(context.Background(), buildForm(t,
				formPart{name: FieldVideoName, value: "v"},
				formPart{name: FieldVersion, value: "1"},
				formPart{name: FieldPaid, value: value},
				formPart{name: "file", filename: "a.png", value: "x"},
			))
			require.NoError(t, err)
			assert.Equal(t, want, got.Paid, value)
		}
	})

	t.Run("last file part wins", func(t *testing.T) {
		ing, store := newTestIngestor(t)

		got, err := ing.Ingest(context.Background(), buildForm(t,
			formPart{name: "file", filename: "old.png", value: "old"},
			formPart{name: FieldVideoName, value: "v"},
			formPart{name: FieldVersion, value: "1"},
			formPart{name: "file", filename: "new.png", value: "newer"},
		))
		require.NoError(t, err)
		assert.Equal(t, "1700000000000-new.png", got.Key)
		assert.Equal(t, []string{got.Key}, blobs(t, store))
	})

	t.Run("missing file", func(t *testing.T) {
		ing, store := newTestIngestor(t)

		_, err := ing.Ingest(context.Background(), buildForm(t,
			formPart{name: FieldVideoName, value: "v"},
			formPart{name: FieldVersion, value: "1"},
		))
		assert.ErrorIs(t, err, ErrMissingFile)
		assert.Empty(t, blobs(t, store))
	})

	t.Run("missing fields discard the blob", func(t *testing.T) {
		ing, store := newTestIngestor(t)

		_, err := ing.Ingest(context.Background(), buildForm(t,
			formPart{name: "file", filename: "a.png", value: "x"},
		))
		var vErr *validation.Error
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.Details(), FieldVideoName)
		assert.Contains(t, vErr.Details(), FieldVersion)
		assert.Empty(t, blobs(t, store))
	})

	t.Run("taken key moves to the next millisecond", func(t *testing.T) {
		ing, store := newTestIngestor(t)
		_, err := store.Save(context.Background(), "1700000000000-a.png", bytes.NewReader([]byte("existing")))
		require.NoError(t, err)

		got, err := ing.Ingest(context.Background(), buildForm(t,
			formPart{name: FieldVideoName, value: "v"},
			formPart{name: FieldVersion, value: "1"},
			formPart{name: "file", filename: "a.png", value: "x"},
		))
		require.NoError(t, err)
		assert.Equal(t, "1700000000001-a.png", got.Key)
	})

	t.Run("hostile filenames stay inside the store", func(t *testing.T) {
		ing, store := newTestIngestor(t)

		got, err := ing.Ingest(context.Background(), buildForm(t,
			formPart{name: FieldVideoName, value: "v"},
			formPart{name: FieldVersion, value: "1"},
			formPart{name: "file", filename: `..\..\etc\passwd`, value: "x"},
		))
		require.NoError(t, err)
		assert.Equal(t, "1700000000000-passwd", got.Key)
		assert.True(t, store.Exists(got.Key))
	})
}

// brokenStore fails every save after consuming some input.
type brokenStore struct {
	deleted []string
}

func (b *brokenStore) Save(_ context.Context, _ string, r io.Reader) (int64, error) {
	_, _ = io.CopyN(io.Discard, r, 1)
	return 0, errors.Join(storage.ErrWriteFailed, errors.New("disk full"))
}

func (b *brokenStore) Delete(_ context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *brokenStore) Reference(key string) string { return "/uploads/thumbnails/" + key }

func TestIngest_StorageFailure(t *testing.T) {
	ing := NewIngestor(&brokenStore{}, time.Minute)

	_, err := ing.Ingest(context.Background(), buildForm(t,
		formPart{name: FieldVideoName, value: "v"},
		formPart{name: FieldVersion, value: "1"},
		formPart{name: "file", filename: "a.png", value: "payload"},
	))
	assert.ErrorIs(t, err, storage.ErrWriteFailed)
}

func TestIngest_CancelledContext(t *testing.T) {
	ing, store := newTestIngestor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ing.Ingest(ctx, buildForm(t,
		formPart{name: FieldVideoName, value: "v"},
		formPart{name: FieldVersion, value: "1"},
		formPart{name: "file", filename: "a.png", value: "payload"},
	))
	assert.ErrorIs(t, err, storage.ErrWriteFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, blobs(t, store))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"cover.png":          "cover.png",
		"dir/sub/cover.png":  "cover.png",
		`C:\Users\me\a.png`:  "a.png",
		"..":                 fallbackFilename,
		"":                   fallbackFilename,
		"bad\x00name\n.png":  "badname.png",
		"  spaced name.jpg ": "spaced name.jpg",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
