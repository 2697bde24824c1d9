// Package models contains the persisted row types.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is a registered user. PasswordHash is never serialized.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Account struct {
	ID               uuid.UUID  `db:"id"`
	Name             string     `db:"name"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	Country          string     `db:"country"`
	ResetToken       *string    `db:"reset_token"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// NewAccount creates an Account with a fresh id and normalized email.
func NewAccount(name, email, passwordHash, country string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Country:      strings.TrimSpace(country),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasActiveResetToken reports whether a reset token is set and unexpired at now.
func (a *Account) HasActiveResetToken(now time.Time) bool {
	return a.ResetToken != nil && a.ResetTokenExpiry != nil && a.ResetTokenExpiry.After(now)
}
