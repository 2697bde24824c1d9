package handler

import (
	"errors"
	"net/http"

	"github.com/ad-tracker/thumbnail-service-go/internal/models"
	"github.com/ad-tracker/thumbnail-service-go/internal/service"
	"github.com/ad-tracker/thumbnail-service-go/internal/storage"
	"github.com/ad-tracker/thumbnail-service-go/internal/upload"
	"github.com/ad-tracker/thumbnail-service-go/internal/validation"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error codes returned in ErrorResponse.Error.
const (
	CodeValidationFailed   = "validation_failed"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeMissingFile        = "missing_file"
	CodePayloadTooLarge    = "payload_too_large"
	CodeStorageFailure     = "storage_failure"
	CodeUnauthorized       = "unauthorized"
	CodeInternalError      = "internal_error"
)

// Messages that clients match on.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidToken       = "Invalid or expired reset token"
	msgUserNotFound       = "User not found"
	msgThumbnailNotFound  = "Thumbnail not found"
)

func abortWithError(c *gin.Context, status int, code, message string, details map[string]string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// handleError maps a service error onto a response. notFoundMessage names
// the missing resource for ErrNotFound.
func handleError(c *gin.Context, err error, notFoundMessage string) {
	var (
		vErr     *validation.Error
		tooLarge *http.MaxBytesError
	)

	switch {
	case errors.As(err, &vErr):
		abortWithError(c, http.StatusBadRequest, CodeValidationFailed, "Validation failed", vErr.Details())
	case errors.Is(err, service.ErrInvalidCredentials):
		abortWithError(c, http.StatusBadRequest, CodeInvalidCredentials, msgInvalidCredentials, nil)
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		abortWithError(c, http.StatusBadRequest, CodeInvalidToken, msgInvalidToken, nil)
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, CodeNotFound, notFoundMessage, nil)
	case errors.Is(err, service.ErrConflict):
		abortWithError(c, http.StatusConflict, CodeConflict, "Email is already registered", nil)
	case errors.Is(err, upload.ErrMissingFile):
		abortWithError(c, http.StatusBadRequest, CodeMissingFile, "An image file is required", nil)
	case errors.As(err, &tooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Upload exceeds the size limit", nil)
	case errors.Is(err, storage.ErrWriteFailed):
		logger.L().Error("Storage failure",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		abortWithError(c, http.StatusInternalServerError, CodeStorageFailure, "Failed to store the upload", nil)
	default:
		logger.L().Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		abortWithError(c, http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred", nil)
	}
}
