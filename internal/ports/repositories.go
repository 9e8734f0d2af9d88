package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
)

// MutateFunc edits an item in place inside the store lock. Returning an
// error aborts the write.
type MutateFunc func(item *entities.Item) error

// GuardFunc vets an item before deletion inside the store lock.
type GuardFunc func(item *entities.Item) error

// ItemRepository defines query and mutation access to the collection.
// Mutations run their callback under the store's serialization lock, so an
// ownership check and the write it guards can never interleave with
// another request.
type ItemRepository interface {
	List(ctx context.Context, filter ItemFilter) (*Page, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Item, error)
	GetByKind(ctx context.Context, id uuid.UUID, kind entities.Kind) (*entities.Item, error)
	Insert(ctx context.Context, payload map[string]any) (*entities.Item, error)
	Mutate(ctx context.Context, id uuid.UUID, kind entities.Kind, fn MutateFunc) (*entities.Item, error)
	Delete(ctx context.Context, id uuid.UUID, kind entities.Kind, guard GuardFunc) error
	LogQuery(ctx context.Context, query string) error
}

// SortKey selects the timestamp items are ordered by.
type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByUpdatedAt SortKey = "updatedAt"
)

// Pagination bounds. Out-of-range requests are clamped, never rejected.
const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 200
)

// ItemFilter narrows, orders and pages a listing. Zero values mean "no
// constraint"; Page and Limit are clamped by the repository.
type ItemFilter struct {
	Kind    entities.Kind
	ImdbID  string
	Status  string
	Tag     string
	Search  string // case-insensitive substring over the serialized payload
	Visible func(*entities.Item) bool

	SortBy    SortKey
	Ascending bool
	Page      int
	Limit     int
}

// Page is one page of a filtered listing. Total counts the full filtered
// set, not the slice.
type Page struct {
	Data  []*entities.Item
	Page  int
	Limit int
	Total int
}
