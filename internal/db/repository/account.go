package repository

import (
	"context"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/db"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository defines operations for managing accounts.
type AccountRepository interface {
	// Create inserts a new account. A taken email yields db.ErrDuplicateKey.
	Create(ctx context.Context, account *models.Account) error

	// GetByEmail looks up an account by its normalized email.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetByID retrieves a single account by id.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// SetResetToken stores a password reset token and its expiry.
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error

	// ConsumeResetToken replaces the password hash of the account holding an
	// unexpired token and clears the token in the same statement. Unknown or
	// expired tokens yield db.ErrNotFound and change nothing.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (uuid.UUID, error)

	// ResetTokenActive reports whether token belongs to an account and has not
	// expired at now. It never modifies the account.
	ResetTokenActive(ctx context.Context, token string, now time.Time) (bool, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, country, reset_token, reset_token_expiry, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, password_hash, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Country,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create account")
	}

	return nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	rows, err := r.pool.Query(ctx, query, models.NormalizeEmail(email))
	if err != nil {
		return nil, db.WrapError(err, "get account by email")
	}

	account, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Account])
	if err != nil {
		return nil, db.WrapError(err, "get account by email")
	}

	return account, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, db.WrapError(err, "get account by id")
	}

	account, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Account])
	if err != nil {
		return nil, db.WrapError(err, "get account by id")
	}

	return account, nil
}

func (r *accountRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	query := `
		UPDATE accounts
		SET reset_token = $2, reset_token_expiry = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, token, expiry)
	if err != nil {
		return db.WrapError(err, "set reset token")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "set reset token")
	}

	return nil
}

func (r *accountRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (uuid.UUID, error) {
	query := `
		UPDATE accounts
		SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL, updated_at = NOW()
		WHERE reset_token = $1 AND reset_token_expiry > $3
		RETURNING id
	`

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, token, passwordHash, now).Scan(&id); err != nil {
		return uuid.Nil, db.WrapError(err, "consume reset token")
	}

	return id, nil
}

func (r *accountRepository) ResetTokenActive(ctx context.Context, token string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE reset_token = $1 AND reset_token_expiry > $2
		)
	`

	var active bool
	if err := r.pool.QueryRow(ctx, query, token, now).Scan(&active); err != nil {
		return false, db.WrapError(err, "check reset token")
	}

	return active, nil
}
