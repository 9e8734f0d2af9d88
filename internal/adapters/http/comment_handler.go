package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinelog/core/internal/application/services"
	"github.com/cinelog/core/internal/infrastructure/logger"
)

// CommentHandler handles comment-related requests
type CommentHandler struct {
	commentService *services.CommentService
	auth           *AuthExtractor
	logger         *logger.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *services.CommentService, auth *AuthExtractor, logger *logger.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		auth:           auth,
		logger:         logger,
	}
}

// CreateComment handles comment creation
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	comment, err := h.commentService.Create(c.Request().Context(), h.auth.FromRequest(c), payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, comment)
}

// GetComment handles fetching one comment
func (h *CommentHandler) GetComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	comment, err := h.commentService.Get(c.Request().Context(), h.auth.FromRequest(c), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, comment)
}

// ListComments handles comment listing, optionally scoped to one movie
func (h *CommentHandler) ListComments(c echo.Context) error {
	page, err := h.commentService.List(c.Request().Context(), h.auth.FromRequest(c), services.CommentListOptions{
		ImdbID: c.QueryParam("imdbID"),
		Search: c.QueryParam("q"),
		SortBy: sortQuery(c),
		Page:   intQuery(c, "page"),
		Limit:  intQuery(c, "limit"),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

// ReplaceComment handles full comment replacement by its owner
func (h *CommentHandler) ReplaceComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	comment, err := h.commentService.Replace(c.Request().Context(), h.auth.FromRequest(c), id, payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, comment)
}

// PatchComment handles shallow-merge updates by the owner
func (h *CommentHandler) PatchComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	comment, err := h.commentService.Patch(c.Request().Context(), h.auth.FromRequest(c), id, patch)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, comment)
}

// DeleteComment handles comment deletion by the owner
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.commentService.Delete(c.Request().Context(), h.auth.FromRequest(c), id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted"})
}
