package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/infrastructure/store"
)

const (
	testToken    = "tokentokentoken1"
	anotherToken = "tokentokentoken2"
	adminSecret  = "admin-secret-admin-secret"
)

func newTestServer(t *testing.T, omdbURL string) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		App: config.AppConfig{Name: "CineLog", Version: "test"},
		Store: config.StoreConfig{
			Path: filepath.Join(dir, "collection.json"),
		},
		Uploads: config.UploadsConfig{
			Dir:          filepath.Join(dir, "uploads"),
			BaseURL:      "/uploads",
			MaxBytes:     1 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		},
		OMDb: config.OMDbConfig{
			APIKey:  "test-key",
			BaseURL: omdbURL,
			Timeout: 2 * time.Second,
		},
		Auth: config.AuthConfig{
			AdminToken:     adminSecret,
			TokenHeader:    "X-Auth-Token",
			AdminHeader:    "X-Admin-Token",
			MinTokenLength: 16,
		},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "*",
			RateLimitRequests:  1000,
			RateLimitWindow:    time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}

	st, err := store.Open(cfg.Store.Path, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := New(cfg, st, logger.NewNop())
	require.NoError(t, err)
	return srv
}

func (s *Server) do(t *testing.T, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, "http://unused.invalid")

	rec := srv.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/health/detailed", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])

	rec = srv.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommentLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, "http://unused.invalid")

	payload := map[string]any{
		"imdbID":  "tt0111161",
		"name":    "Al",
		"message": "Great film",
		"rating":  4,
	}

	// no token: 401 before any validation
	rec := srv.do(t, http.MethodPost, "/api/v1/comments", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	owner := map[string]string{"X-Auth-Token": testToken}
	rec = srv.do(t, http.MethodPost, "/api/v1/comments", payload, owner)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeBody(t, rec)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, true, created["own"])

	// the token never round-trips
	inner := created["payload"].(map[string]any)
	assert.NotContains(t, inner, "authorToken")

	// a stranger cannot delete it
	stranger := map[string]string{"X-Auth-Token": anotherToken}
	rec = srv.do(t, http.MethodDelete, "/api/v1/comments/"+id, nil, stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// nor can the admin secret on the comment surface
	rec = srv.do(t, http.MethodDelete, "/api/v1/comments/"+id, nil, map[string]string{
		"X-Auth-Token":  anotherToken,
		"X-Admin-Token": adminSecret,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/v1/comments/"+id, map[string]any{"rating": 5}, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decodeBody(t, rec)
	assert.EqualValues(t, 5, patched["payload"].(map[string]any)["rating"])

	rec = srv.do(t, http.MethodDelete, "/api/v1/comments/"+id, nil, owner)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/comments/"+id, nil, owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationErrorShape(t *testing.T) {
	srv := newTestServer(t, "http://unused.invalid")

	rec := srv.do(t, http.MethodPost, "/api/v1/comments", map[string]any{
		"imdbID": "tt0111161",
		"rating": 9,
	}, map[string]string{"X-Auth-Token": testToken})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "validation failed", body["error"])

	details := body["details"].([]any)
	fields := make(map[string]string)
	for _, d := range details {
		f := d.(map[string]any)
		fields[f["field"].(string)] = f["code"].(string)
	}
	assert.Equal(t, "required", fields["name"])
	assert.Equal(t, "required", fields["message"])
	assert.Equal(t, "max", fields["rating"])
}

func TestMalformedIDReadsAsNotFound(t *testing.T) {
	srv := newTestServer(t, "http://unused.invalid")

	rec := srv.do(t, http.MethodGet, "/api/v1/items/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardAdminOverrideOverHTTP(t *testing.T) {
	srv := newTestServer(t, "http://unused.invalid")

	rec := srv.do(t, http.MethodPost, "/api/v1/cards", map[string]any{
		"name":        "Al",
		"movieTitle":  "The Godfather",
		"title":       "A classic",
		"description": "Masterpiece",
		"isPublic":    false,
	}, map[string]string{"X-Auth-Token": testToken})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	// hidden from strangers
	rec = srv.do(t, http.MethodGet, "/api/v1/cards/"+id, nil, map[string]string{"X-Auth-Token": anotherToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// admin deletes without any caller token
	rec = srv.do(t, http.MethodDelete, "/api/v1/cards/"+id, nil, map[string]string{"X-Admin-Token": adminSecret})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMovieProxyOverHTTP(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") == "godfather" {
			w.Write([]byte(`{"Search":[{"Title":"The Godfather"}],"Response":"True"}`))
			return
		}
		w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL)

	rec := srv.do(t, http.MethodGet, "/api/v1/movies/search?q=godfather", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Search":[{"Title":"The Godfather"}],"Response":"True"}`, rec.Body.String())

	// missing query parameter fails before touching upstream
	rec = srv.do(t, http.MethodGet, "/api/v1/movies/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// upstream soft not-found becomes a real 404
	rec = srv.do(t, http.MethodGet, "/api/v1/movies/tt9999999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Movie not found!", body["error"])
}

func TestUploadOverHTTP(t *testing.T) {
	srv := newTestServer(t, "http://unused.invalid")

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", "poster.png")
	require.NoError(t, err)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	url := body["url"].(string)
	assert.Equal(t, "image/png", body["contentType"])

	// the stored file is served back over the static route
	rec = srv.do(t, http.MethodGet, url, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestPaginationOverHTTP(t *testing.T) {
	srv := newTestServer(t, "http://unused.invalid")
	owner := map[string]string{"X-Auth-Token": testToken}

	for i := 0; i < 3; i++ {
		rec := srv.do(t, http.MethodPost, "/api/v1/comments", map[string]any{
			"imdbID":  "tt0111161",
			"name":    "Al",
			"message": "watchable",
		}, owner)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := srv.do(t, http.MethodGet, "/api/v1/comments?limit=2&page=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["limit"])
	assert.Len(t, body["data"].([]any), 2)

	// garbage paging parameters fall back to defaults
	rec = srv.do(t, http.MethodGet, "/api/v1/comments?limit=abc&page=xyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 50, body["limit"])
}
