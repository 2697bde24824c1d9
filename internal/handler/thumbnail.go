package handler

import (
	"context"
	"errors"
	"iter"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/db/models"
	"github.com/ad-tracker/thumbnail-service-go/internal/middleware"
	dto "github.com/ad-tracker/thumbnail-service-go/internal/models"
	"github.com/ad-tracker/thumbnail-service-go/internal/service"
	"github.com/ad-tracker/thumbnail-service-go/internal/validation"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ThumbnailService is the thumbnail surface the handler needs.
type ThumbnailService interface {
	Upload(ctx context.Context, owner uuid.UUID, mr *multipart.Reader) (*models.Thumbnail, error)
	List(ctx context.Context, owner uuid.UUID) iter.Seq2[*models.Thumbnail, error]
	Get(ctx context.Context, owner, id uuid.UUID) (*models.Thumbnail, error)
	Update(ctx context.Context, owner, id uuid.UUID, patch models.ThumbnailPatch) (*models.Thumbnail, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	DeleteAll(ctx context.Context, owner uuid.UUID) (int, error)
}

// ThumbnailHandler serves /api/thumbnails. Every route runs behind bearer
// authentication and acts only on the caller's own records.
type ThumbnailHandler struct {
	thumbnails   ThumbnailService
	maxBytes     int64
	writeTimeout time.Duration
}

// NewThumbnailHandler creates a new ThumbnailHandler instance. maxBytes caps
// the upload body and writeTimeout extends the read deadline of uploads.
func NewThumbnailHandler(thumbnails ThumbnailService, maxBytes int64, writeTimeout time.Duration) *ThumbnailHandler {
	return &ThumbnailHandler{
		thumbnails:   thumbnails,
		maxBytes:     maxBytes,
		writeTimeout: writeTimeout,
	}
}

// Create handles POST /api/thumbnails/ with a multipart/form-data body.
func (h *ThumbnailHandler) Create(c *gin.Context) {
	owner, ok := middleware.AccountID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}

	if h.writeTimeout > 0 {
		// The server read timeout is tuned for small JSON bodies.
		rc := http.NewResponseController(c.Writer)
		if err := rc.SetReadDeadline(time.Now().Add(h.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			logger.L().Debug("Failed to extend read deadline", zap.Error(err))
		}
	}
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	mr, err := c.Request.MultipartReader()
	if err != nil {
		handleError(c, validation.Single("body", "must be multipart/form-data"), "")
		return
	}

	thumbnail, err := h.thumbnails.Upload(c.Request.Context(), owner, mr)
	if err != nil {
		handleError(c, err, msgThumbnailNotFound)
		return
	}

	logger.L().Info("Thumbnail uploaded",
		zap.String("thumbnail_id", thumbnail.ID.String()),
		zap.String("account_id", owner.String()),
	)
	c.JSON(http.StatusCreated, dto.FromThumbnail(thumbnail))
}

// List handles GET /api/thumbnails/.
func (h *ThumbnailHandler) List(c *gin.Context) {
	owner, ok := middleware.AccountID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}

	out := make([]dto.ThumbnailResponse, 0)
	for thumbnail, err := range h.thumbnails.List(c.Request.Context(), owner) {
		if err != nil {
			handleError(c, err, msgThumbnailNotFound)
			return
		}
		out = append(out, dto.FromThumbnail(thumbnail))
	}

	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/thumbnails/:id.
func (h *ThumbnailHandler) Get(c *gin.Context) {
	owner, id, ok := h.target(c)
	if !ok {
		return
	}

	thumbnail, err := h.thumbnails.Get(c.Request.Context(), owner, id)
	if err != nil {
		handleError(c, err, msgThumbnailNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.FromThumbnail(thumbnail))
}

// Update handles PUT and PATCH /api/thumbnails/:id. Only videoName, version
// and paid can change.
func (h *ThumbnailHandler) Update(c *gin.Context) {
	owner, id, ok := h.target(c)
	if !ok {
		return
	}

	var req dto.ThumbnailPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	if fields := req.ImmutableFields(); len(fields) > 0 {
		var check validation.Checker
		for _, f := range fields {
			check.Fail(f, "cannot be changed")
		}
		handleError(c, check.Err(), "")
		return
	}

	thumbnail, err := h.thumbnails.Update(c.Request.Context(), owner, id, req.Patch())
	if err != nil {
		handleError(c, err, msgThumbnailNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.FromThumbnail(thumbnail))
}

// Delete handles DELETE /api/thumbnails/:id.
func (h *ThumbnailHandler) Delete(c *gin.Context) {
	owner, id, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.thumbnails.Delete(c.Request.Context(), owner, id); err != nil {
		handleError(c, err, msgThumbnailNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Thumbnail deleted successfully"})
}

// DeleteAll handles DELETE /api/thumbnails/.
func (h *ThumbnailHandler) DeleteAll(c *gin.Context) {
	owner, ok := middleware.AccountID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}

	if _, err := h.thumbnails.DeleteAll(c.Request.Context(), owner); err != nil {
		handleError(c, err, msgThumbnailNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "All thumbnails deleted successfully"})
}

// target resolves the caller and the :id parameter. An id that is not a
// UUID cannot name any record, so it is reported as not found.
func (h *ThumbnailHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	owner, ok := middleware.AccountID(c)
	if !ok {
		abortUnauthorized(c)
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		handleError(c, service.ErrNotFound, msgThumbnailNotFound)
		return uuid.Nil, uuid.Nil, false
	}

	return owner, id, true
}

func abortUnauthorized(c *gin.Context) {
	abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil)
}
