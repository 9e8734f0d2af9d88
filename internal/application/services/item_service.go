package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

// ItemService is the plain CRUD surface: payloads are open mappings with
// no ownership. Owned kinds (comments, cards) are invisible here — they
// read as absent and cannot be created or mutated, so this surface can
// never bypass their ownership or visibility policy. Tasks and other
// recognized kinds must still satisfy their schema.
type ItemService struct {
	repo   ports.ItemRepository
	logger *logger.Logger
}

// NewItemService creates a new item service
func NewItemService(repo ports.ItemRepository, logger *logger.Logger) *ItemService {
	return &ItemService{
		repo:   repo,
		logger: logger,
	}
}

// ItemListOptions narrows a generic item listing.
type ItemListOptions struct {
	Search string
	SortBy ports.SortKey
	Page   int
	Limit  int
}

// Create stores a new generic item. Owned kinds are refused: they only
// exist through their dedicated surfaces, where the caller's token is
// stamped in.
func (s *ItemService) Create(ctx context.Context, payload map[string]any) (*ports.ItemView, error) {
	p := clonePayload(payload)
	if err := refuseOwnedKind(p); err != nil {
		return nil, err
	}
	if err := s.validateIfTyped(p); err != nil {
		return nil, err
	}

	item, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Item created", "item_id", item.ID, "kind", item.Kind())

	view := viewOf(item, ports.AuthContext{}, false)
	return &view, nil
}

// Get returns one item by id. Owned items read as absent.
func (s *ItemService) Get(ctx context.Context, id uuid.UUID) (*ports.ItemView, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind().Owned() {
		return nil, entities.ErrNotFound
	}
	view := viewOf(item, ports.AuthContext{}, false)
	return &view, nil
}

// List returns a page across the unowned kinds.
func (s *ItemService) List(ctx context.Context, opts ItemListOptions) (*ports.PageView, error) {
	page, err := s.repo.List(ctx, ports.ItemFilter{
		Search: opts.Search,
		Visible: func(item *entities.Item) bool {
			return !item.Kind().Owned()
		},
		SortBy: opts.SortBy,
		Page:   opts.Page,
		Limit:  opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	return pageOf(page, ports.AuthContext{}, false), nil
}

// Replace swaps the full payload of an unowned item.
func (s *ItemService) Replace(ctx context.Context, id uuid.UUID, payload map[string]any) (*ports.ItemView, error) {
	item, err := s.repo.Mutate(ctx, id, entities.KindNone, func(item *entities.Item) error {
		if item.Kind().Owned() {
			return entities.ErrNotFound
		}
		p := clonePayload(payload)
		if err := refuseOwnedKind(p); err != nil {
			return err
		}
		if err := s.validateIfTyped(p); err != nil {
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

// Patch shallow-merges fields into the payload. The item's kind before the
// patch is reinstated afterwards, so a patch can never move an item
// between kinds.
func (s *ItemService) Patch(ctx context.Context, id uuid.UUID, patch map[string]any) (*ports.ItemView, error) {
	item, err := s.repo.Mutate(ctx, id, entities.KindNone, func(item *entities.Item) error {
		if item.Kind().Owned() {
			return entities.ErrNotFound
		}

		priorKind, hadKind := item.Payload["kind"]

		p := mergePayload(item.Payload, patch)
		if hadKind {
			p["kind"] = priorKind
		} else {
			delete(p, "kind")
		}

		if err := s.validateIfTyped(p); err != nil {
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

// Delete removes an unowned item by id.
func (s *ItemService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id, entities.KindNone, func(item *entities.Item) error {
		if item.Kind().Owned() {
			return entities.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Item deleted", "item_id", id)
	return nil
}

// refuseOwnedKind rejects payloads that claim a kind governed by the
// ownership policy.
func refuseOwnedKind(payload map[string]any) error {
	k := payloadKind(payload)
	if !k.Owned() {
		return nil
	}
	return &entities.ValidationError{Fields: []entities.FieldError{{
		Field:   "kind",
		Message: fmt.Sprintf("kind %s is managed by its dedicated endpoint", k),
		Code:    "enum",
	}}}
}

func payloadKind(payload map[string]any) entities.Kind {
	if k, ok := payload["kind"].(string); ok {
		return entities.Kind(k)
	}
	return entities.KindNone
}

// validateIfTyped runs the kind schema when the open payload happens to
// carry a recognized discriminator. Unrecognized kind strings stay
// unconstrained.
func (s *ItemService) validateIfTyped(payload map[string]any) error {
	kind := payloadKind(payload)
	if !entities.KnownKind(kind) {
		return nil
	}
	entities.ApplyDefaults(kind, payload)
	return entities.ValidatePayload(kind, payload)
}
