// Package upload turns a streamed multipart thumbnail upload into a stored
// blob plus the metadata fields needed to record it.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/ad-tracker/thumbnail-service-go/internal/storage"
	"github.com/ad-tracker/thumbnail-service-go/internal/validation"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"go.uber.org/zap"
)

// Form field names.
const (
	FieldVideoName = "videoName"
	FieldVersion   = "version"
	FieldPaid      = "paid"
)

const (
	// maxFieldBytes bounds a single scalar form value.
	maxFieldBytes = 64 << 10
	// maxKeyAttempts is how many timestamps are tried when a key is taken.
	maxKeyAttempts = 5
	// fallbackFilename names uploads whose filename sanitizes to nothing.
	fallbackFilename = "upload"
)

// ErrMissingFile is returned when the request carried no file part.
var ErrMissingFile = errors.New("no file part in upload")

// BlobStore is the part of the content store the ingestor writes through.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Delete(ctx context.Context, key string) error
	Reference(key string) string
}

// Ingested is a stored upload waiting to be persisted as a thumbnail record.
type Ingested struct {
	Key       string
	Image     string
	VideoName string
	Version   string
	Paid      bool
	Size      int64
}

// Ingestor streams multipart uploads into a BlobStore.
type Ingestor struct {
	store        BlobStore
	writeTimeout time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewIngestor creates an Ingestor. writeTimeout bounds a whole ingestion;
// zero disables the bound.
func NewIngestor(store BlobStore, writeTimeout time.Duration) *Ingestor {
	return &Ingestor{
		store:        store,
		writeTimeout: writeTimeout,
		now:          time.Now,
		log:          logger.Named("upload"),
	}
}

// Ingest drains mr part by part. The file part is streamed straight into the
// store while scalar fields are collected (last value wins). If several file
// parts arrive only the last one is kept. On any error no blob remains.
func (i *Ingestor) Ingest(ctx context.Context, mr *multipart.Reader) (*Ingested, error) {
	if i.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.writeTimeout)
		defer cancel()
	}

	var (
		fields = make(map[string]string)
		key    string
		size   int64
	)

	fail := func(err error) (*Ingested, error) {
		if key != "" {
			i.discard(key)
		}
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("read multipart: %w", err))
		}

		if part.FileName() == "" {
			value, err := readField(part)
			_ = part.Close()
			if err != nil {
				return fail(err)
			}
			fields[part.FormName()] = value
			continue
		}

		if key != "" {
			i.log.Debug("replacing earlier file part", zap.String("key", key))
			i.discard(key)
			key = ""
		}

		key, size, err = i.saveFile(ctx, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			return fail(err)
		}
	}

	if key == "" {
		return nil, ErrMissingFile
	}

	var check validation.Checker
	check.Text(FieldVideoName, fields[FieldVideoName])
	check.Text(FieldVersion, fields[FieldVersion])
	if err := check.Err(); err != nil {
		return fail(err)
	}

	return &Ingested{
		Key:       key,
		Image:     i.store.Reference(key),
		VideoName: strings.TrimSpace(fields[FieldVideoName]),
		Version:   strings.TrimSpace(fields[FieldVersion]),
		Paid:      fields[FieldPaid] == "true",
		Size:      size,
	}, nil
}

// saveFile stores r under "<unix-millis>-<filename>", moving to the next
// millisecond when a key is already taken.
func (i *Ingestor) saveFile(ctx context.Context, filename string, r io.Reader) (string, int64, error) {
	name := SanitizeFilename(filename)
	stamp := i.now().UnixMilli()

	for attempt := range maxKeyAttempts {
		key := fmt.Sprintf("%d-%s", stamp+int64(attempt), name)

		n, err := i.store.Save(ctx, key, r)
		if errors.Is(err, storage.ErrKeyExists) {
			continue
		}
		if err != nil {
			return "", 0, err
		}
		return key, n, nil
	}

	return "", 0, fmt.Errorf("%w: no free key for %q", storage.ErrWriteFailed, name)
}

// discard removes a blob that will not be recorded. It runs on a fresh
// context since the request context may already be cancelled.
func (i *Ingestor) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := i.store.Delete(ctx, key); err != nil {
		i.log.Warn("failed to discard uploaded blob", zap.String("key", key), zap.Error(err))
	}
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", fmt.Errorf("read field %s: %w", part.FormName(), err)
	}
	if len(data) > maxFieldBytes {
		return "", validation.Single(part.FormName(), "is too large")
	}
	return string(data), nil
}

// SanitizeFilename reduces a client supplied filename to a safe base name.
func SanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." || name == "/" {
		return fallbackFilename
	}
	return name
}
