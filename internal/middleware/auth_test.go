package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ad-tracker/thumbnail-service-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]uuid.UUID

func (f fakeVerifier) Verify(token string) (uuid.UUID, error) {
	id, ok := f[token]
	if !ok {
		return uuid.Nil, errors.New("bad token")
	}
	return id, nil
}

func newAuthRouter(verifier TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", NewBearerAuth(verifier, nil).Handler(), func(c *gin.Context) {
		id, ok := AccountID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	return r
}

func TestBearerAuth_Success(t *testing.T) {
	t.Parallel()

	account := uuid.New()
	router := newAuthRouter(fakeVerifier{"good": account})

	tests := []struct {
		name   string
		header string
	}{
		{name: "canonical scheme", header: "Bearer good"},
		{name: "lowercase scheme", header: "bearer good"},
		{name: "trailing space", header: "Bearer good "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, account.String(), w.Body.String())
		})
	}
}

func TestBearerAuth_Rejects(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(fakeVerifier{"good": uuid.New()})

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Basic Z29vZA=="},
		{name: "empty token", header: "Bearer "},
		{name: "unknown token", header: "Bearer forged"},
		{name: "token without scheme", header: "good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body.Error)
		})
	}
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", extractBearer("Bearer abc"))
	assert.Equal(t, "abc", extractBearer("BEARER abc"))
	assert.Empty(t, extractBearer("Bearer"))
	assert.Empty(t, extractBearer("Token abc"))
}
