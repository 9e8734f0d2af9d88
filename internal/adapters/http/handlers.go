package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cinelog/core/internal/application/services"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

// AuthExtractor builds the explicit per-request auth context from the
// transport's header map. Handlers pass the result into services; nothing
// below this layer reads headers.
type AuthExtractor struct {
	cfg config.AuthConfig
}

// NewAuthExtractor creates an auth extractor for the configured headers
func NewAuthExtractor(cfg config.AuthConfig) *AuthExtractor {
	return &AuthExtractor{cfg: cfg}
}

// FromRequest reads the caller and admin tokens out of the request.
func (a *AuthExtractor) FromRequest(c echo.Context) ports.AuthContext {
	return ports.AuthContext{
		Token:      c.Request().Header.Get(a.cfg.TokenHeader),
		AdminToken: c.Request().Header.Get(a.cfg.AdminHeader),
	}
}

// Utility functions and helper types

// pathID parses the :id path parameter. A malformed id reads as not found
// rather than bad request: the resource space is opaque uuids.
func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "item not found")
	}
	return id, nil
}

// intQuery parses a numeric query parameter, falling back to 0 (let the
// repository apply its default) when absent or non-numeric.
func intQuery(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}

// sortQuery maps the sort query parameter onto a sort key. Anything not
// recognized falls back to createdAt.
func sortQuery(c echo.Context) ports.SortKey {
	if c.QueryParam("sort") == string(ports.SortByUpdatedAt) {
		return ports.SortByUpdatedAt
	}
	return ports.SortByCreatedAt
}

// boolQuery treats only the literal "true" as true.
func boolQuery(c echo.Context, name string) bool {
	return c.QueryParam(name) == "true"
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ItemHandler handles the generic item CRUD surface
type ItemHandler struct {
	itemService *services.ItemService
	logger      *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(itemService *services.ItemService, logger *logger.Logger) *ItemHandler {
	return &ItemHandler{
		itemService: itemService,
		logger:      logger,
	}
}

// CreateItem handles generic item creation
func (h *ItemHandler) CreateItem(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	item, err := h.itemService.Create(c.Request().Context(), payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, item)
}

// GetItem handles fetching one item by id
func (h *ItemHandler) GetItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	item, err := h.itemService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// ListItems handles listing across every kind
func (h *ItemHandler) ListItems(c echo.Context) error {
	page, err := h.itemService.List(c.Request().Context(), services.ItemListOptions{
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

// ReplaceItem handles full payload replacement
func (h *ItemHandler) ReplaceItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	item, err := h.itemService.Replace(c.Request().Context(), id, payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// PatchItem handles shallow-merge updates
func (h *ItemHandler) PatchItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	item, err := h.itemService.Patch(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// DeleteItem handles item deletion
func (h *ItemHandler) DeleteItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.itemService.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Item deleted"})
}
