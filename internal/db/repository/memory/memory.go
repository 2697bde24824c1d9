// Package memory provides in-memory repositories with the same observable
// semantics as the Postgres ones, for handler and service tests.
package memory

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/db"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/models"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/repository"

	"github.com/google/uuid"
)

var (
	_ repository.AccountRepository   = (*AccountRepository)(nil)
	_ repository.ThumbnailRepository = (*ThumbnailRepository)(nil)
)

// AccountRepository is an in-memory repository.AccountRepository.
type AccountRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Account
}

// NewAccountRepository returns an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{byID: make(map[uuid.UUID]*models.Account)}
}

func (r *AccountRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == account.Email {
			return &db.ConstraintError{Kind: db.ErrDuplicateKey, Constraint: "accounts_email_key"}
		}
	}
	stored := *account
	r.byID[account.ID] = &stored
	return nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, a := range r.byID {
		if a.Email == email {
			found := *a
			return &found, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	found := *a
	return &found, nil
}

func (r *AccountRepository) SetResetToken(_ context.Context, id uuid.UUID, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return db.ErrNotFound
	}
	a.ResetToken = &token
	a.ResetTokenExpiry = &expiry
	return nil
}

func (r *AccountRepository) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.ResetToken != nil && *a.ResetToken == token && a.ResetTokenExpiry.After(now) {
			a.PasswordHash = passwordHash
			a.ResetToken = nil
			a.ResetTokenExpiry = nil
			return a.ID, nil
		}
	}
	return uuid.Nil, db.ErrNotFound
}

func (r *AccountRepository) ResetTokenActive(_ context.Context, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.ResetToken != nil && *a.ResetToken == token && a.ResetTokenExpiry.After(now) {
			return true, nil
		}
	}
	return false, nil
}

// ThumbnailRepository is an in-memory repository.ThumbnailRepository.
type ThumbnailRepository struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*models.Thumbnail
	// CreateErr, when set, fails every Create.
	CreateErr error
}

// NewThumbnailRepository returns an empty repository.
func NewThumbnailRepository() *ThumbnailRepository {
	return &ThumbnailRepository{rows: make(map[uuid.UUID]*models.Thumbnail)}
}

func (r *ThumbnailRepository) Create(_ context.Context, thumbnail *models.Thumbnail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	stored := *thumbnail
	r.rows[thumbnail.ID] = &stored
	return nil
}

func (r *ThumbnailRepository) ListByAccount(_ context.Context, accountID uuid.UUID) iter.Seq2[*models.Thumbnail, error] {
	return func(yield func(*models.Thumbnail, error) bool) {
		r.mu.Lock()
		var owned []*models.Thumbnail
		for _, t := range r.rows {
			if t.AccountID == accountID {
				c := *t
				owned = append(owned, &c)
			}
		}
		r.mu.Unlock()

		sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })
		for _, t := range owned {
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (r *ThumbnailRepository) GetByID(_ context.Context, accountID, id uuid.UUID) (*models.Thumbnail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.AccountID != accountID {
		return nil, db.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *ThumbnailRepository) Update(_ context.Context, accountID, id uuid.UUID, patch models.ThumbnailPatch) (*models.Thumbnail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.AccountID != accountID {
		return nil, db.ErrNotFound
	}
	patch.Apply(t)
	t.UpdatedAt = time.Now().UTC()
	c := *t
	return &c, nil
}

func (r *ThumbnailRepository) Delete(_ context.Context, accountID, id uuid.UUID) (*models.Thumbnail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.AccountID != accountID {
		return nil, db.ErrNotFound
	}
	delete(r.rows, id)
	return t, nil
}

func (r *ThumbnailRepository) DeleteAllByAccount(_ context.Context, accountID uuid.UUID) ([]models.BlobRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []models.BlobRef
	for id, t := range r.rows {
		if t.AccountID == accountID {
			refs = append(refs, models.BlobRef{ThumbnailID: id, Image: t.Image})
			delete(r.rows, id)
		}
	}
	return refs, nil
}

func (r *ThumbnailRepository) ImageReferenced(_ context.Context, image string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.Image == image {
			return true, nil
		}
	}
	return false, nil
}
