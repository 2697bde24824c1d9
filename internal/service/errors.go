// Package service implements account and thumbnail business logic.
package service

import "errors"

var (
	// ErrNotFound covers records that do not exist and records owned by
	// another account; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidOrExpiredToken is returned for unknown, used or expired reset tokens.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
)
