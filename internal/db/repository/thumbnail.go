package repository

import (
	"context"
	"iter"

	"github.com/ad-tracker/thumbnail-service-go/internal/db"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ThumbnailRepository defines owner-scoped operations on thumbnail metadata.
// Every lookup filters on both id and account, so a row owned by another
// account is reported as db.ErrNotFound exactly like a missing one.
type ThumbnailRepository interface {
	// Create inserts a new thumbnail row.
	Create(ctx context.Context, thumbnail *models.Thumbnail) error

	// ListByAccount yields the account's thumbnails in creation order. The
	// query runs each time the sequence is ranged over.
	ListByAccount(ctx context.Context, accountID uuid.UUID) iter.Seq2[*models.Thumbnail, error]

	// GetByID retrieves one thumbnail owned by accountID.
	GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.Thumbnail, error)

	// Update applies patch to the thumbnail owned by accountID.
	Update(ctx context.Context, accountID, id uuid.UUID, patch models.ThumbnailPatch) (*models.Thumbnail, error)

	// Delete removes the thumbnail owned by accountID and returns the removed row.
	Delete(ctx context.Context, accountID, id uuid.UUID) (*models.Thumbnail, error)

	// DeleteAllByAccount removes every thumbnail of accountID in one statement
	// and returns the blob references of exactly the removed rows.
	DeleteAllByAccount(ctx context.Context, accountID uuid.UUID) ([]models.BlobRef, error)

	// ImageReferenced reports whether any row points at image.
	ImageReferenced(ctx context.Context, image string) (bool, error)
}

type thumbnailRepository struct {
	pool *pgxpool.Pool
}

// NewThumbnailRepository creates a new ThumbnailRepository.
func NewThumbnailRepository(pool *pgxpool.Pool) ThumbnailRepository {
	return &thumbnailRepository{pool: pool}
}

const thumbnailColumns = `id, account_id, video_name, version, image, paid, created_at, updated_at`

func (r *thumbnailRepository) Create(ctx context.Context, thumbnail *models.Thumbnail) error {
	query := `
		INSERT INTO thumbnails (id, account_id, video_name, version, image, paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		thumbnail.ID,
		thumbnail.AccountID,
		thumbnail.VideoName,
		thumbnail.Version,
		thumbnail.Image,
		thumbnail.Paid,
		thumbnail.CreatedAt,
		thumbnail.UpdatedAt,
	).Scan(&thumbnail.CreatedAt, &thumbnail.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create thumbnail")
	}

	return nil
}

func (r *thumbnailRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) iter.Seq2[*models.Thumbnail, error] {
	query := `
		SELECT ` + thumbnailColumns + `
		FROM thumbnails
		WHERE account_id = $1
		ORDER BY created_at, id
	`

	return func(yield func(*models.Thumbnail, error) bool) {
		rows, err := r.pool.Query(ctx, query, accountID)
		if err != nil {
			yield(nil, db.WrapError(err, "list thumbnails"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			thumbnail, err := pgx.RowToAddrOfStructByName[models.Thumbnail](rows)
			if err != nil {
				yield(nil, db.WrapError(err, "scan thumbnail"))
				return
			}
			if !yield(thumbnail, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, db.WrapError(err, "iterate thumbnails"))
		}
	}
}

func (r *thumbnailRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.Thumbnail, error) {
	query := `SELECT ` + thumbnailColumns + ` FROM thumbnails WHERE id = $1 AND account_id = $2`

	return r.queryOne(ctx, "get thumbnail", query, id, accountID)
}

func (r *thumbnailRepository) Update(ctx context.Context, accountID, id uuid.UUID, patch models.ThumbnailPatch) (*models.Thumbnail, error) {
	query := `
		UPDATE thumbnails
		SET video_name = COALESCE($3, video_name),
		    version = COALESCE($4, version),
		    paid = COALESCE($5, paid),
		    updated_at = NOW()
		WHERE id = $1 AND account_id = $2
		RETURNING ` + thumbnailColumns

	return r.queryOne(ctx, "update thumbnail", query, id, accountID, patch.VideoName, patch.Version, patch.Paid)
}

func (r *thumbnailRepository) Delete(ctx context.Context, accountID, id uuid.UUID) (*models.Thumbnail, error) {
	query := `DELETE FROM thumbnails WHERE id = $1 AND account_id = $2 RETURNING ` + thumbnailColumns

	return r.queryOne(ctx, "delete thumbnail", query, id, accountID)
}

func (r *thumbnailRepository) DeleteAllByAccount(ctx context.Context, accountID uuid.UUID) ([]models.BlobRef, error) {
	query := `DELETE FROM thumbnails WHERE account_id = $1 RETURNING id, image`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, db.WrapError(err, "delete thumbnails")
	}

	refs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.BlobRef])
	if err != nil {
		return nil, db.WrapError(err, "delete thumbnails")
	}

	return refs, nil
}

func (r *thumbnailRepository) ImageReferenced(ctx context.Context, image string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM thumbnails WHERE image = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, image).Scan(&exists); err != nil {
		return false, db.WrapError(err, "check image reference")
	}

	return exists, nil
}

func (r *thumbnailRepository) queryOne(ctx context.Context, operation, query string, args ...any) (*models.Thumbnail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.WrapError(err, operation)
	}

	thumbnail, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Thumbnail])
	if err != nil {
		return nil, db.WrapError(err, operation)
	}

	return thumbnail, nil
}
