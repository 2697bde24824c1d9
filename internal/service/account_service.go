package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/auth"
	"github.com/ad-tracker/thumbnail-service-go/internal/db"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/models"
	"github.com/ad-tracker/thumbnail-service-go/internal/db/repository"
	"github.com/ad-tracker/thumbnail-service-go/internal/events"
	"github.com/ad-tracker/thumbnail-service-go/internal/validation"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// TokenIssuer issues bearer tokens for an account.
type TokenIssuer interface {
	Issue(accountID uuid.UUID) (string, error)
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Country  string
}

// ResetRequest is the outcome of a forgot-password request.
type ResetRequest struct {
	URL       string
	ExpiresAt time.Time
}

// AccountSettings tunes the account service.
type AccountSettings struct {
	// ResetTTL is how long a reset token stays valid.
	ResetTTL time.Duration
	// ResetBaseURL prefixes reset links, e.g. http://localhost:3000.
	ResetBaseURL string
}

// AccountService handles registration, login and password resets.
type AccountService struct {
	accounts      repository.AccountRepository
	hasher        PasswordHasher
	tokens        TokenIssuer
	events        events.Publisher
	settings      AccountSettings
	now           func() time.Time
	newResetToken func() (string, error)
	log           *zap.Logger
}

// NewAccountService creates an AccountService. A nil publisher drops events.
func NewAccountService(
	accounts repository.AccountRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	publisher events.Publisher,
	settings AccountSettings,
) *AccountService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if settings.ResetTTL <= 0 {
		settings.ResetTTL = 10 * time.Minute
	}

	return &AccountService{
		accounts:      accounts,
		hasher:        hasher,
		tokens:        tokens,
		events:        publisher,
		settings:      settings,
		now:           time.Now,
		newResetToken: auth.NewResetToken,
		log:           logger.Named("accounts"),
	}
}

// Register creates an account. A taken email yields ErrConflict.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	var check validation.Checker
	check.Text("name", in.Name)
	check.Email("email", in.Email)
	check.Password("password", in.Password)
	check.Text("country", in.Country)
	if err := check.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(in.Name, in.Email, hash, in.Country)
	if err := s.accounts.Create(ctx, account); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("register account: %w", err)
	}

	s.log.Info("Account registered", zap.String("account_id", account.ID.String()))
	publish(ctx, s.log, s.events, events.New(events.TypeAccountRegistered, account.ID))

	return account, nil
}

// Login returns a bearer token. Unknown email and wrong password both yield
// ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if db.IsNotFound(err) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("login: %w", err)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	return token, nil
}

// ForgotPassword stores a fresh reset token for email and returns the reset
// link. The link is also published for out-of-band delivery.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("forgot password: %w", err)
	}

	token, err := s.newResetToken()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.settings.ResetTTL)

	if err := s.accounts.SetResetToken(ctx, account.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("forgot password: %w", err)
	}

	req := &ResetRequest{
		URL:       fmt.Sprintf("%s/api/auth/reset-password/%s", s.settings.ResetBaseURL, token),
		ExpiresAt: expiresAt,
	}

	s.log.Info("Password reset requested", zap.String("account_id", account.ID.String()))
	publish(ctx, s.log, s.events, events.New(events.TypePasswordResetRequested, account.ID).
		With("email", account.Email).
		With("reset_url", req.URL).
		With("expires_at", expiresAt.UTC().Format(time.RFC3339)))

	return req, nil
}

// ResetPassword replaces the password of the account holding token. The
// token is cleared in the same write, so it works once.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	// A dead token wins over a weak password; a live token survives a weak one.
	var check validation.Checker
	check.Password("newPassword", newPassword)
	if err := check.Err(); err != nil {
		active, lookupErr := s.accounts.ResetTokenActive(ctx, token, s.now())
		if lookupErr != nil {
			return fmt.Errorf("reset password: %w", lookupErr)
		}
		if !active {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	accountID, err := s.accounts.ConsumeResetToken(ctx, token, hash, s.now())
	if db.IsNotFound(err) {
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info("Password reset completed", zap.String("account_id", accountID.String()))
	return nil
}

// Logout is a no-op: bearer tokens are self-contained and expire on their own.
func (s *AccountService) Logout(context.Context) error {
	return nil
}

// publish sends event without letting a broker problem fail the request.
func publish(ctx context.Context, log *zap.Logger, publisher events.Publisher, event *events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish event",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}
}
