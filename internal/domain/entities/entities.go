package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound        = errors.New("item not found")
	ErrUnauthenticated = errors.New("missing or invalid auth token")
	ErrForbidden       = errors.New("token does not own this item")
)

// Kind discriminates payload variants.
type Kind string

const (
	KindComment  Kind = "comment"
	KindUserCard Kind = "userCard"
	KindTask     Kind = "task"
	// KindNone marks the generic item surface: the payload is an open
	// mapping with no schema beyond being an object.
	KindNone Kind = ""
)

// Owned reports whether the kind stamps an authorToken and falls under the
// ownership policy.
func (k Kind) Owned() bool {
	return k == KindComment || k == KindUserCard
}

// TaskStatus enumerates the states a task payload may carry.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// Item is the uniform persisted envelope. Payload stays a raw mapping so
// one collection can hold every kind; typed access goes through the schema
// registry in schema.go.
type Item struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Payload   map[string]any `json:"payload"`
}

// Kind returns the payload's discriminator, or KindNone when absent.
func (i *Item) Kind() Kind {
	if i.Payload == nil {
		return KindNone
	}
	if k, ok := i.Payload["kind"].(string); ok {
		return Kind(k)
	}
	return KindNone
}

// AuthorToken returns the stored ownership token, empty when the payload
// carries none.
func (i *Item) AuthorToken() string {
	if i.Payload == nil {
		return ""
	}
	t, _ := i.Payload["authorToken"].(string)
	return t
}

// PublicPayload returns a copy of the payload with the write-only
// authorToken removed. The stored payload is not mutated.
func (i *Item) PublicPayload() map[string]any {
	out := make(map[string]any, len(i.Payload))
	for k, v := range i.Payload {
		if k == "authorToken" {
			continue
		}
		out[k] = v
	}
	return out
}

// QueryLogEntry records one proxied metadata lookup in collection meta.
type QueryLogEntry struct {
	Query string    `json:"query"`
	At    time.Time `json:"at"`
}

// MaxRecentQueries bounds the meta query log.
const MaxRecentQueries = 100

// Meta holds collection-level bookkeeping unrelated to item semantics.
type Meta struct {
	CreatedAt     time.Time       `json:"createdAt"`
	RecentQueries []QueryLogEntry `json:"recentQueries,omitempty"`
}

// Collection is the full persisted document: every item plus meta.
type Collection struct {
	Items []*Item `json:"items"`
	Meta  Meta    `json:"meta"`
}

// NewCollection returns an empty collection stamped with the current time.
func NewCollection() *Collection {
	return &Collection{
		Items: []*Item{},
		Meta:  Meta{CreatedAt: time.Now().UTC()},
	}
}

// FindByID returns the item with the given id, or ErrNotFound.
func (c *Collection) FindByID(id uuid.UUID) (*Item, error) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, ErrNotFound
}

// Remove deletes the item with the given id, returning ErrNotFound when
// no such item exists.
func (c *Collection) Remove(id uuid.UUID) error {
	for i, it := range c.Items {
		if it.ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// LogQuery appends a metadata lookup to the bounded meta log, dropping the
// oldest entries past MaxRecentQueries.
func (c *Collection) LogQuery(query string) {
	c.Meta.RecentQueries = append(c.Meta.RecentQueries, QueryLogEntry{
		Query: query,
		At:    time.Now().UTC(),
	})
	if n := len(c.Meta.RecentQueries); n > MaxRecentQueries {
		c.Meta.RecentQueries = c.Meta.RecentQueries[n-MaxRecentQueries:]
	}
}

// FieldError describes a single violated constraint on one payload or
// envelope field, suitable for per-field UI feedback.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationError accumulates every violated constraint for one request
// rather than failing fast.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StorageError wraps disk I/O and parse failures from the store. It is
// fatal for the request, never for the process.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a failure from the external metadata service.
// Status carries the HTTP status the proxy should answer with.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream: %s", e.Message)
}
