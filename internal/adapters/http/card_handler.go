package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinelog/core/internal/application/services"
	"github.com/cinelog/core/internal/infrastructure/logger"
)

// CardHandler handles userCard-related requests
type CardHandler struct {
	cardService *services.CardService
	auth        *AuthExtractor
	logger      *logger.Logger
}

// NewCardHandler creates a new card handler
func NewCardHandler(cardService *services.CardService, auth *AuthExtractor, logger *logger.Logger) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		auth:        auth,
		logger:      logger,
	}
}

// CreateCard handles card creation
func (h *CardHandler) CreateCard(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	card, err := h.cardService.Create(c.Request().Context(), h.auth.FromRequest(c), payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, card)
}

// GetCard handles fetching one card under the visibility policy
func (h *CardHandler) GetCard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	card, err := h.cardService.Get(c.Request().Context(), h.auth.FromRequest(c), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, card)
}

// ListCards handles card listing. Default view shows the caller's own
// cards; onlyPublic=true switches to the public view; admin sees all.
func (h *CardHandler) ListCards(c echo.Context) error {
	page, err := h.cardService.List(c.Request().Context(), h.auth.FromRequest(c), services.CardListOptions{
		OnlyPublic: boolQuery(c, "onlyPublic"),
		Search:     c.QueryParam("q"),
		SortBy:     sortQuery(c),
		Page:       intQuery(c, "page"),
		Limit:      intQuery(c, "limit"),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

// ReplaceCard handles full card replacement by owner or admin
func (h *CardHandler) ReplaceCard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	card, err := h.cardService.Replace(c.Request().Context(), h.auth.FromRequest(c), id, payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, card)
}

// PatchCard handles shallow-merge updates by owner or admin
func (h *CardHandler) PatchCard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	card, err := h.cardService.Patch(c.Request().Context(), h.auth.FromRequest(c), id, patch)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, card)
}

// DeleteCard handles card deletion by owner or admin
func (h *CardHandler) DeleteCard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.cardService.Delete(c.Request().Context(), h.auth.FromRequest(c), id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Card deleted"})
}
