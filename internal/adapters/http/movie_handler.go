package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinelog/core/internal/application/services"
	"github.com/cinelog/core/internal/infrastructure/logger"
)

// MovieHandler proxies movie-metadata lookups to the external service
type MovieHandler struct {
	movieService *services.MovieService
	logger       *logger.Logger
}

// NewMovieHandler creates a new movie handler
func NewMovieHandler(movieService *services.MovieService, logger *logger.Logger) *MovieHandler {
	return &MovieHandler{
		movieService: movieService,
		logger:       logger,
	}
}

// SearchMovies handles free-text title search
func (h *MovieHandler) SearchMovies(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	raw, err := h.movieService.Search(c.Request().Context(), query, intQuery(c, "page"))
	if err != nil {
		return err
	}

	return c.JSONBlob(http.StatusOK, raw)
}

// GetMovie handles lookup by external identifier
func (h *MovieHandler) GetMovie(c echo.Context) error {
	imdbID := c.Param("imdbID")
	if imdbID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "imdbID is required")
	}

	raw, err := h.movieService.GetByID(c.Request().Context(), imdbID)
	if err != nil {
		return err
	}

	return c.JSONBlob(http.StatusOK, raw)
}
