package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinelog/core/internal/application/services"
	"github.com/cinelog/core/internal/infrastructure/logger"
)

// UploadHandler handles multipart image uploads
type UploadHandler struct {
	uploadService *services.UploadService
	logger        *logger.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *services.UploadService, logger *logger.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		logger:        logger,
	}
}

// UploadImage accepts one multipart file under the "image" field and
// returns the public URL for the stored file.
func (h *UploadHandler) UploadImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field image is required")
	}

	result, err := h.uploadService.Store(file)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}
