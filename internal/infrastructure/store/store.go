package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/logger"
)

// Store owns the single collection file. Every mutation runs the full
// load-mutate-save cycle under one process-wide mutex, so two concurrent
// requests can never overwrite each other's snapshot. There is no
// cross-process locking; the deployment contract is one writer process.
type Store struct {
	path   string
	logger *logger.Logger

	mu sync.Mutex
}

// Open prepares a store at path. The file itself is materialized lazily on
// first Load, so Open only ensures the parent directory exists.
func Open(path string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &entities.StorageError{Op: "open", Err: err}
	}
	return &Store{
		path:   path,
		logger: log.WithComponent("store"),
	}, nil
}

// Path returns the canonical collection file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the full collection, writing a fresh empty one to disk when
// no file exists yet. An existing but unparseable file is a StorageError,
// never silently replaced.
func (s *Store) Load(ctx context.Context) (*entities.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, &entities.StorageError{Op: "load", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Save durably persists the full collection.
func (s *Store) Save(ctx context.Context, col *entities.Collection) error {
	if err := ctx.Err(); err != nil {
		return &entities.StorageError{Op: "save", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(col)
}

// Update runs fn on the current collection and persists the result, all
// under the store lock. If fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(*entities.Collection) error) error {
	if err := ctx.Err(); err != nil {
		return &entities.StorageError{Op: "update", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(col); err != nil {
		return err
	}
	return s.saveLocked(col)
}

func (s *Store) loadLocked() (*entities.Collection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		col := entities.NewCollection()
		if err := s.saveLocked(col); err != nil {
			return nil, err
		}
		return col, nil
	}
	if err != nil {
		return nil, &entities.StorageError{Op: "read", Err: err}
	}

	// Items are decoded as raw maps so the envelope check sees every key:
	// a typed unmarshal silently drops extras, and a hand-edited file with
	// a malformed envelope must fail loudly instead.
	var doc struct {
		Items []map[string]any `json:"items"`
		Meta  entities.Meta    `json:"meta"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &entities.StorageError{Op: "parse", Err: err}
	}

	col := &entities.Collection{
		Items: make([]*entities.Item, 0, len(doc.Items)),
		Meta:  doc.Meta,
	}
	for _, raw := range doc.Items {
		if err := entities.ValidateEnvelope(raw); err != nil {
			return nil, &entities.StorageError{Op: "validate", Err: err}
		}
		item, err := itemFromRaw(raw)
		if err != nil {
			return nil, &entities.StorageError{Op: "parse", Err: err}
		}
		col.Items = append(col.Items, item)
	}
	return col, nil
}

// itemFromRaw builds a typed item from an envelope ValidateEnvelope has
// already accepted, so only the timestamp values can still fail.
func itemFromRaw(raw map[string]any) (*entities.Item, error) {
	id, err := uuid.Parse(raw["id"].(string))
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, raw["createdAt"].(string))
	if err != nil {
		return nil, fmt.Errorf("createdAt: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, raw["updatedAt"].(string))
	if err != nil {
		return nil, fmt.Errorf("updatedAt: %w", err)
	}
	return &entities.Item{
		ID:        id,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Payload:   raw["payload"].(map[string]any),
	}, nil
}

// saveLocked writes the collection through a temp file in the same
// directory and renames it over the canonical path. Rename is atomic at
// the filesystem level, so a crash mid-write never corrupts the store.
func (s *Store) saveLocked(col *entities.Collection) error {
	start := time.Now()

	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return &entities.StorageError{Op: "encode", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".collection-*.json")
	if err != nil {
		return &entities.StorageError{Op: "write", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &entities.StorageError{Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &entities.StorageError{Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &entities.StorageError{Op: "write", Err: err}
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return &entities.StorageError{Op: "write", Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &entities.StorageError{Op: "rename", Err: err}
	}

	s.logger.LogStoreWrite(s.path, len(col.Items), float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

// HealthCheck verifies the collection file (or its directory, before first
// write) is reachable.
func (s *Store) HealthCheck() error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, derr := os.Stat(filepath.Dir(s.path)); derr != nil {
				return fmt.Errorf("store directory unavailable: %w", derr)
			}
			return nil
		}
		return fmt.Errorf("store file unavailable: %w", err)
	}
	return nil
}

// Close releases the store. Writes are synchronous, so there is nothing to
// flush; Close exists for lifecycle symmetry with Open.
func (s *Store) Close() error {
	return nil
}
