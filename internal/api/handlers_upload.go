// handlers_upload.go - File upload operation handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ycsa-dashboard/backend/internal/models"
	"go.uber.org/zap"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	service DashboardService
	logger  *zap.Logger
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(service DashboardService, logger *zap.Logger) UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandlerImpl{
		service: service,
		logger:  logger,
	}
}

// uploadResponse is returned after a successful upload
type uploadResponse struct {
	Session models.Session       `json:"session" msgpack:"session"`
	Preview *models.TablePreview `json:"preview" msgpack:"preview"`
}

// HandleUploadFile accepts a multipart file, previews it and opens a session
func (h *UploadHandlerImpl) HandleUploadFile(c echo.Context) error {
	// Get file from form
	file, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return NewValidationError("file")
	}
	if err != nil {
		return NewBadRequestError("invalid multipart body", err)
	}

	// Open uploaded file
	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	sess, preview, err := h.service.Upload(file.Filename, src)
	if err != nil {
		return FromError(err, "")
	}

	h.logger.Info("file uploaded",
		zap.String("session", sess.ID),
		zap.String("name", sess.FileName),
		zap.Int64("size", sess.FileSize),
		zap.Int("rows", preview.Rows))

	return respond(c, http.StatusCreated, uploadResponse{Session: sess, Preview: preview})
}
