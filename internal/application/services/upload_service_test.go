package services

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
)

// pngBytes is a minimal valid PNG header so content sniffing resolves to
// image/png.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func newUploadService(t *testing.T) (*UploadService, string) {
	t.Helper()
	dir := t.TempDir()
	svc := NewUploadService(config.UploadsConfig{
		Dir:          dir,
		BaseURL:      "/uploads",
		MaxBytes:     1 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}, logger.NewNop())
	return svc, dir
}

func multipartFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	file := req.MultipartForm.File["image"][0]
	return file
}

func TestUploadStore(t *testing.T) {
	svc, dir := newUploadService(t)

	res, err := svc.Store(multipartFile(t, "poster.png", pngBytes))
	require.NoError(t, err)

	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, int64(len(pngBytes)), res.Size)
	assert.Equal(t, "poster.png", res.Filename)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(res.URL, ".png"))

	// the stored name is generated, never the client's filename
	assert.NotContains(t, res.URL, "poster")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestUploadStore_AbsoluteBaseURL(t *testing.T) {
	svc := NewUploadService(config.UploadsConfig{
		Dir:          t.TempDir(),
		BaseURL:      "https://cdn.example/uploads/",
		MaxBytes:     1 << 20,
		AllowedTypes: []string{"image/png"},
	}, logger.NewNop())

	res, err := svc.Store(multipartFile(t, "poster.png", pngBytes))
	require.NoError(t, err)

	// the scheme's double slash must survive, and the trailing slash on
	// the base must not double up
	assert.True(t, strings.HasPrefix(res.URL, "https://cdn.example/uploads/"), res.URL)
	assert.NotContains(t, strings.TrimPrefix(res.URL, "https://"), "//")
}

func TestUploadStore_RejectsDisallowedType(t *testing.T) {
	svc, dir := newUploadService(t)

	_, err := svc.Store(multipartFile(t, "notes.txt", []byte("plain text pretending to be an image")))
	require.Error(t, err)

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "image", verr.Fields[0].Field)
	assert.Equal(t, "contentType", verr.Fields[0].Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadStore_SniffsNotTrusts(t *testing.T) {
	svc, _ := newUploadService(t)

	// a .png filename does not make text an image
	_, err := svc.Store(multipartFile(t, "fake.png", []byte("<html>still not an image</html>")))
	require.Error(t, err)

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "contentType", verr.Fields[0].Code)
}

func TestUploadStore_RejectsOversize(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(config.UploadsConfig{
		Dir:          dir,
		BaseURL:      "/uploads",
		MaxBytes:     8,
		AllowedTypes: []string{"image/png"},
	}, logger.NewNop())

	_, err := svc.Store(multipartFile(t, "big.png", pngBytes))
	require.Error(t, err)

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "maxSize", verr.Fields[0].Code)
}
