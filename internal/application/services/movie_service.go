package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

// MovieService proxies the external movie-metadata API. Responses pass
// through verbatim; only the not-found and failure semantics are mapped
// onto the local error taxonomy. Each lookup is recorded in the
// collection's bounded query log.
type MovieService struct {
	cfg    config.OMDbConfig
	repo   ports.ItemRepository
	client *http.Client
	logger *logger.Logger
}

// NewMovieService creates a new movie service
func NewMovieService(cfg config.OMDbConfig, repo ports.ItemRepository, logger *logger.Logger) *MovieService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MovieService{
		cfg:    cfg,
		repo:   repo,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// omdbStatus is the slice of the upstream body needed to detect its soft
// not-found convention; the full body still passes through untouched.
type omdbStatus struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// Search proxies a free-text title search.
func (s *MovieService) Search(ctx context.Context, query string, page int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("s", query)
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	raw, err := s.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	s.recordQuery(ctx, "search:"+query)
	return raw, nil
}

// GetByID proxies a lookup by external identifier.
func (s *MovieService) GetByID(ctx context.Context, imdbID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")
	raw, err := s.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	s.recordQuery(ctx, "id:"+imdbID)
	return raw, nil
}

func (s *MovieService) fetch(ctx context.Context, params url.Values) (json.RawMessage, error) {
	params.Set("apikey", s.cfg.APIKey)
	endpoint := s.cfg.BaseURL + "?" + params.Encode()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &entities.UpstreamError{Status: http.StatusBadGateway, Message: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.LogUpstreamCall(s.cfg.BaseURL, 0, sinceMs(start), err)
		return nil, &entities.UpstreamError{Status: http.StatusBadGateway, Message: "metadata service unreachable"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.LogUpstreamCall(s.cfg.BaseURL, resp.StatusCode, sinceMs(start), err)
		return nil, &entities.UpstreamError{Status: http.StatusBadGateway, Message: "metadata service read failed"}
	}

	s.logger.LogUpstreamCall(s.cfg.BaseURL, resp.StatusCode, sinceMs(start), nil)

	if resp.StatusCode != http.StatusOK {
		return nil, &entities.UpstreamError{
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("metadata service returned %d", resp.StatusCode),
		}
	}

	// OMDb reports not-found inside a 200 body.
	var status omdbStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &entities.UpstreamError{Status: http.StatusBadGateway, Message: "metadata service returned malformed JSON"}
	}
	if status.Response == "False" {
		msg := status.Error
		if msg == "" {
			msg = "not found"
		}
		return nil, &entities.UpstreamError{Status: http.StatusNotFound, Message: msg}
	}

	return json.RawMessage(body), nil
}

// recordQuery appends to the meta log best-effort: a bookkeeping failure
// never fails the lookup itself.
func (s *MovieService) recordQuery(ctx context.Context, query string) {
	if err := s.repo.LogQuery(ctx, query); err != nil {
		s.logger.Warn("Failed to record metadata query", "error", err)
	}
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}
