package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// resetTokenBytes is the entropy of a reset token; the hex form is twice as long.
const resetTokenBytes = 32

// NewResetToken returns a random hex encoded password reset token.
func NewResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
