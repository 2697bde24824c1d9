package handler

import (
	"context"
	"net/http"

	"github.com/ad-tracker/thumbnail-service-go/internal/db/models"
	dto "github.com/ad-tracker/thumbnail-service-go/internal/models"
	"github.com/ad-tracker/thumbnail-service-go/internal/service"
	"github.com/ad-tracker/thumbnail-service-go/internal/validation"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccountService is the account surface the auth handler needs.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.Account, error)
	Login(ctx context.Context, email, password string) (string, error)
	ForgotPassword(ctx context.Context, email string) (*service.ResetRequest, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	Logout(ctx context.Context) error
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	accounts AccountService
	// exposeResetLink echoes the reset link to the caller instead of only
	// publishing it.
	exposeResetLink bool
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(accounts AccountService, exposeResetLink bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, exposeResetLink: exposeResetLink}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Country:  req.Country,
	})
	if err != nil {
		handleError(c, err, msgUserNotFound)
		return
	}

	c.JSON(http.StatusCreated, dto.MessageResponse{Message: "user registered successfully"})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err, msgUserNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{Token: token})
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	reset, err := h.accounts.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		handleError(c, err, msgUserNotFound)
		return
	}

	if h.exposeResetLink {
		c.JSON(http.StatusOK, dto.ForgotPasswordResponse{ResetURL: reset.URL})
		return
	}
	c.JSON(http.StatusOK, dto.ForgotPasswordResponse{Message: "Password reset link sent"})
}

// ResetPassword handles POST /api/auth/reset-password/:token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.NewPassword); err != nil {
		handleError(c, err, msgInvalidToken)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password reset successfully"})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this only
// acknowledges; clients drop the token.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context()); err != nil {
		handleError(c, err, msgUserNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

// bindJSON decodes the body into dst and answers 400 on malformed JSON.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.L().Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		handleError(c, validation.Single("body", "must be a valid JSON object"), "")
		return false
	}
	return true
}
