// Package middleware contains gin middleware for bearer authentication,
// request logging and request metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/ad-tracker/thumbnail-service-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "

	// accountIDKey is the gin context key holding the authenticated account.
	accountIDKey = "account_id"
)

// TokenVerifier resolves a bearer token to an account id.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// BearerAuth rejects requests without a valid bearer token and stores the
// resolved account id on the context.
type BearerAuth struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewBearerAuth creates the middleware. A nil logger disables logging.
func NewBearerAuth(verifier TokenVerifier, logger *zap.Logger) *BearerAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BearerAuth{verifier: verifier, logger: logger}
}

// Handler returns the gin handler.
func (a *BearerAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader(headerAuth))
		if token == "" {
			a.reject(c, "missing bearer token")
			return
		}

		accountID, err := a.verifier.Verify(token)
		if err != nil {
			a.logger.Debug("Rejected bearer token", zap.Error(err))
			a.reject(c, "invalid bearer token")
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

func (a *BearerAuth) reject(c *gin.Context, reason string) {
	a.logger.Warn("Unauthorized request",
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("client_ip", c.ClientIP()),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "Unauthorized",
	})
}

// extractBearer returns the token of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func extractBearer(header string) string {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// AccountID returns the account resolved by BearerAuth.
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(accountIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SetAccountID stores id as the authenticated account. Used by tests and by
// handlers mounted behind other authentication.
func SetAccountID(c *gin.Context, id uuid.UUID) {
	c.Set(accountIDKey, id)
}
