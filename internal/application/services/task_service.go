package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

// TaskService handles task-kind items. Tasks carry no ownership token;
// the surface is open like the generic one but schema-typed.
type TaskService struct {
	repo   ports.ItemRepository
	logger *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(repo ports.ItemRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		logger: logger,
	}
}

// TaskListOptions narrows a task listing.
type TaskListOptions struct {
	Status string
	Tag    string
	Search string
	SortBy ports.SortKey
	Page   int
	Limit  int
}

// Create validates and stores a new task.
func (s *TaskService) Create(ctx context.Context, payload map[string]any) (*ports.ItemView, error) {
	p := clonePayload(payload)
	p["kind"] = string(entities.KindTask)
	entities.ApplyDefaults(entities.KindTask, p)

	if err := entities.ValidatePayload(entities.KindTask, p); err != nil {
		return nil, err
	}

	item, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task created", "item_id", item.ID, "status", p["status"])

	view := viewOf(item, ports.AuthContext{}, false)
	return &view, nil
}

// Get returns one task by id.
func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*ports.ItemView, error) {
	item, err := s.repo.GetByKind(ctx, id, entities.KindTask)
	if err != nil {
		return nil, err
	}
	view := viewOf(item, ports.AuthContext{}, false)
	return &view, nil
}

// List returns a page of tasks filtered by status, tag membership or
// free-text search.
func (s *TaskService) List(ctx context.Context, opts TaskListOptions) (*ports.PageView, error) {
	page, err := s.repo.List(ctx, ports.ItemFilter{
		Kind:   entities.KindTask,
		Status: opts.Status,
		Tag:    opts.Tag,
		Search: opts.Search,
		SortBy: opts.SortBy,
		Page:   opts.Page,
		Limit:  opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	return pageOf(page, ports.AuthContext{}, false), nil
}

// Replace swaps the full task payload.
func (s *TaskService) Replace(ctx context.Context, id uuid.UUID, payload map[string]any) (*ports.ItemView, error) {
	item, err := s.repo.Mutate(ctx, id, entities.KindTask, func(item *entities.Item) error {
		p := clonePayload(payload)
		p["kind"] = string(entities.KindTask)
		entities.ApplyDefaults(entities.KindTask, p)

		if err := entities.ValidatePayload(entities.KindTask, p); err != nil {
			return err
		}
		item.Payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := viewOf(item, ports.AuthContext{}, false)
	return &view, nil
}

// Patch shallow-merges fields into a task; kind stays pinned.
func (s *TaskService) Patch(ctx context.Context, id uuid.UUID, patch map[string]any) (*ports.ItemView, error) {
	item, err := s.repo.Mutate(ctx, id, entities.KindTask, func(item *entities.Item) error {
		p := mergePayload(item.Payload, patch)
		p["kind"] = string(entities.KindTask)

		if err := entities.ValidatePayload(entities.KindTask, p); err != nil {
			return err
		}
		item.Payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := viewOf(item, ports.AuthContext{}, false)
	return &view, nil
}

// Delete removes a task by id.
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, entities.KindTask, nil); err != nil {
		return err
	}
	s.logger.Info("Task deleted", "item_id", id)
	return nil
}
