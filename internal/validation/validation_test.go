package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{" user.name+tag@sub.example.co ", true},
		{"user@", false},
		{"@example.com", false},
		{"user@example", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidEmail(tt.email))
		})
	}
}

func TestChecker(t *testing.T) {
	t.Run("no failures", func(t *testing.T) {
		var c Checker
		c.Text("name", "Ada")
		c.Email("email", "ada@example.com")
		c.Password("password", "long enough")
		assert.NoError(t, c.Err())
	})

	t.Run("collects every failure", func(t *testing.T) {
		var c Checker
		c.Text("name", "  ")
		c.Email("email", "nope")
		c.Password("password", "short")
		c.Text("country", strings.Repeat("x", MaxTextLength+1))

		err := c.Err()
		require.Error(t, err)

		var vErr *Error
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, map[string]string{
			"name":     "is required",
			"email":    "must be a valid email address",
			"password": "must be at least 8 characters",
			"country":  "must be at most 255 characters",
		}, vErr.Details())
		assert.Contains(t, err.Error(), "email must be a valid email address")
	})

	t.Run("password too long for bcrypt", func(t *testing.T) {
		var c Checker
		c.Password("password", strings.Repeat("p", MaxPasswordLength+1))
		assert.Error(t, c.Err())
	})
}

func TestSingle(t *testing.T) {
	err := Single("file", "is required")

	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "validation failed: file is required", err.Error())
}
