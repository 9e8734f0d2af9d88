package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinelog/core/internal/application/services"
	"github.com/cinelog/core/internal/infrastructure/logger"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.Create(c.Request().Context(), payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask handles fetching one task
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

// ListTasks handles task listing with status and tag filters
func (h *TaskHandler) ListTasks(c echo.Context) error {
	page, err := h.taskService.List(c.Request().Context(), services.TaskListOptions{
		Status: c.QueryParam("status"),
		Tag:    c.QueryParam("tag"),
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

// ReplaceTask handles full task replacement
func (h *TaskHandler) ReplaceTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.Replace(c.Request().Context(), id, payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

// PatchTask handles shallow-merge task updates
func (h *TaskHandler) PatchTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.Patch(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles task deletion
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}
