package repository

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/store"
	"github.com/cinelog/core/internal/ports"
)

// ItemRepositoryImpl implements the ItemRepository interface over the
// collection file store.
type ItemRepositoryImpl struct {
	store *store.Store
}

// NewItemRepository creates a new item repository
func NewItemRepository(st *store.Store) ports.ItemRepository {
	return &ItemRepositoryImpl{store: st}
}

func (r *ItemRepositoryImpl) List(ctx context.Context, filter ports.ItemFilter) (*ports.Page, error) {
	col, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*entities.Item, 0, len(col.Items))
	for _, it := range col.Items {
		if matches(it, filter) {
			matched = append(matched, it)
		}
	}

	sortItems(matched, filter.SortBy, filter.Ascending)

	page := clampPage(filter.Page)
	limit := clampLimit(filter.Limit)

	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return &ports.Page{
		Data:  matched[start:end],
		Page:  page,
		Limit: limit,
		Total: len(matched),
	}, nil
}

func (r *ItemRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Item, error) {
	col, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return col.FindByID(id)
}

// GetByKind returns the item only when its kind matches: an id belonging
// to a different resource reads as not found, not as a leak.
func (r *ItemRepositoryImpl) GetByKind(ctx context.Context, id uuid.UUID, kind entities.Kind) (*entities.Item, error) {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind() != kind {
		return nil, entities.ErrNotFound
	}
	return item, nil
}

func (r *ItemRepositoryImpl) Insert(ctx context.Context, payload map[string]any) (*entities.Item, error) {
	now := time.Now().UTC()
	item := &entities.Item{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Payload:   payload,
	}

	err := r.store.Update(ctx, func(col *entities.Collection) error {
		col.Items = append(col.Items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Mutate edits one item under the store lock. fn sees the live item; any
// error it returns aborts the write. UpdatedAt is bumped on every
// successful mutation, including ones that change nothing else.
func (r *ItemRepositoryImpl) Mutate(ctx context.Context, id uuid.UUID, kind entities.Kind, fn ports.MutateFunc) (*entities.Item, error) {
	var mutated *entities.Item

	err := r.store.Update(ctx, func(col *entities.Collection) error {
		item, err := col.FindByID(id)
		if err != nil {
			return err
		}
		if kind != entities.KindNone && item.Kind() != kind {
			return entities.ErrNotFound
		}
		if err := fn(item); err != nil {
			return err
		}
		item.UpdatedAt = time.Now().UTC()
		mutated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

func (r *ItemRepositoryImpl) Delete(ctx context.Context, id uuid.UUID, kind entities.Kind, guard ports.GuardFunc) error {
	return r.store.Update(ctx, func(col *entities.Collection) error {
		item, err := col.FindByID(id)
		if err != nil {
			return err
		}
		if kind != entities.KindNone && item.Kind() != kind {
			return entities.ErrNotFound
		}
		if guard != nil {
			if err := guard(item); err != nil {
				return err
			}
		}
		return col.Remove(id)
	})
}

func (r *ItemRepositoryImpl) LogQuery(ctx context.Context, query string) error {
	return r.store.Update(ctx, func(col *entities.Collection) error {
		col.LogQuery(query)
		return nil
	})
}

func matches(item *entities.Item, filter ports.ItemFilter) bool {
	if filter.Kind != entities.KindNone && item.Kind() != filter.Kind {
		return false
	}
	if filter.ImdbID != "" {
		if v, _ := item.Payload["imdbID"].(string); v != filter.ImdbID {
			return false
		}
	}
	if filter.Status != "" {
		if v, _ := item.Payload["status"].(string); v != filter.Status {
			return false
		}
	}
	if filter.Tag != "" && !hasTag(item.Payload["tags"], filter.Tag) {
		return false
	}
	if filter.Search != "" {
		serialized, err := json.Marshal(item.Payload)
		if err != nil {
			return false
		}
		if !strings.Contains(strings.ToLower(string(serialized)), strings.ToLower(filter.Search)) {
			return false
		}
	}
	if filter.Visible != nil && !filter.Visible(item) {
		return false
	}
	return true
}

func hasTag(tags any, want string) bool {
	switch ts := tags.(type) {
	case []string:
		for _, t := range ts {
			if t == want {
				return true
			}
		}
	case []any:
		for _, t := range ts {
			if s, ok := t.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// sortItems orders by timestamp, most-recent-first unless ascending is
// requested. The sort is stable so equal timestamps keep insertion order.
func sortItems(items []*entities.Item, key ports.SortKey, ascending bool) {
	ts := func(it *entities.Item) time.Time {
		if key == ports.SortByUpdatedAt {
			return it.UpdatedAt
		}
		return it.CreatedAt
	}
	sort.SliceStable(items, func(i, j int) bool {
		if ascending {
			return ts(items[i]).Before(ts(items[j]))
		}
		return ts(items[i]).After(ts(items[j]))
	})
}

func clampPage(page int) int {
	if page < 1 {
		return ports.DefaultPage
	}
	return page
}

func clampLimit(limit int) int {
	if limit == 0 {
		return ports.DefaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > ports.MaxLimit {
		return ports.MaxLimit
	}
	return limit
}
