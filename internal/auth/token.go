package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers malformed, badly signed and expired bearer tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the bearer token payload. AccountID duplicates the subject so older
// clients reading "id" keep working.
type Claims struct {
	AccountID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens bound to an account id.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A zero ttl issues tokens without expiry.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for accountID.
func (i *TokenIssuer) Issue(accountID uuid.UUID) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	now := i.now()
	claims := Claims{
		AccountID:        accountID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  accountID.String(),
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the account id it is bound to.
func (i *TokenIssuer) Verify(token string) (uuid.UUID, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	subject := claims.Subject
	if subject == "" {
		subject = claims.AccountID
	}
	accountID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject: %w", ErrInvalidToken, err)
	}

	return accountID, nil
}
