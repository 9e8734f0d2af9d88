package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

// UploadService stores multipart image uploads under generated names and
// hands back the public URL. The rest of the system only ever sees that
// URL (as imageUrl on a card); file bytes stay opaque.
type UploadService struct {
	cfg    config.UploadsConfig
	logger *logger.Logger
}

// NewUploadService creates a new upload service
func NewUploadService(cfg config.UploadsConfig, logger *logger.Logger) *UploadService {
	return &UploadService{
		cfg:    cfg,
		logger: logger,
	}
}

// Store validates and persists one uploaded image. The content type is
// sniffed from the first bytes, not trusted from the request headers.
func (s *UploadService) Store(file *multipart.FileHeader) (*ports.UploadResult, error) {
	if file.Size > s.cfg.MaxBytes {
		return nil, &entities.ValidationError{Fields: []entities.FieldError{{
			Field:   "image",
			Message: fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxBytes),
			Code:    "maxSize",
		}}}
	}

	src, err := file.Open()
	if err != nil {
		return nil, &entities.StorageError{Op: "upload-open", Err: err}
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return nil, &entities.StorageError{Op: "upload-read", Err: err}
	}
	contentType := http.DetectContentType(head[:n])
	contentType = strings.SplitN(contentType, ";", 2)[0]

	if !s.allowed(contentType) {
		return nil, &entities.ValidationError{Fields: []entities.FieldError{{
			Field:   "image",
			Message: fmt.Sprintf("content type %s is not allowed", contentType),
			Code:    "contentType",
		}}}
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, &entities.StorageError{Op: "upload-seek", Err: err}
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, &entities.StorageError{Op: "upload-dir", Err: err}
	}

	name := uuid.New().String() + extensionFor(contentType, file.Filename)
	dstPath := filepath.Join(s.cfg.Dir, name)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, &entities.StorageError{Op: "upload-create", Err: err}
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(src, s.cfg.MaxBytes))
	if err != nil {
		os.Remove(dstPath)
		return nil, &entities.StorageError{Op: "upload-write", Err: err}
	}

	s.logger.Info("Upload stored", "name", name, "bytes", written, "content_type", contentType)

	return &ports.UploadResult{
		URL:         strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + name,
		Size:        written,
		ContentType: contentType,
		Filename:    file.Filename,
	}, nil
}

func (s *UploadService) allowed(contentType string) bool {
	for _, t := range s.cfg.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// extensionFor prefers the sniffed type's canonical extension and falls
// back to the original filename's.
func extensionFor(contentType, filename string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	return ""
}
