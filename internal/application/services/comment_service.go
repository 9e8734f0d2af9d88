package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

// CommentService handles comment-kind items. Every mutation requires the
// caller's token to match the stored author token literally; comments have
// no admin override.
type CommentService struct {
	repo    ports.ItemRepository
	authCfg config.AuthConfig
	logger  *logger.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(repo ports.ItemRepository, authCfg config.AuthConfig, logger *logger.Logger) *CommentService {
	return &CommentService{
		repo:    repo,
		authCfg: authCfg,
		logger:  logger,
	}
}

// CommentListOptions narrows a comment listing.
type CommentListOptions struct {
	ImdbID string
	Search string
	SortBy ports.SortKey
	Page   int
	Limit  int
}

// Create validates and stores a new comment, stamping the caller's token
// as the item's author token.
func (s *CommentService) Create(ctx context.Context, auth ports.AuthContext, payload map[string]any) (*ports.ItemView, error) {
	if !auth.HasToken(s.authCfg.MinTokenLength) {
		return nil, entities.ErrUnauthenticated
	}

	p := clonePayload(payload)
	p["kind"] = string(entities.KindComment)
	p["authorToken"] = auth.Token
	entities.ApplyDefaults(entities.KindComment, p)

	if err := entities.ValidatePayload(entities.KindComment, p); err != nil {
		return nil, err
	}

	item, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Comment created", "item_id", item.ID, "imdb_id", p["imdbID"])

	view := viewOf(item, auth, true)
	return &view, nil
}

// Get returns one comment by id.
func (s *CommentService) Get(ctx context.Context, auth ports.AuthContext, id uuid.UUID) (*ports.ItemView, error) {
	item, err := s.repo.GetByKind(ctx, id, entities.KindComment)
	if err != nil {
		return nil, err
	}
	view := viewOf(item, auth, true)
	return &view, nil
}

// List returns a page of comments, most recent first. Comments are public
// reads: no visibility filtering, only the derived own flag.
func (s *CommentService) List(ctx context.Context, auth ports.AuthContext, opts CommentListOptions) (*ports.PageView, error) {
	page, err := s.repo.List(ctx, ports.ItemFilter{
		Kind:   entities.KindComment,
		ImdbID: opts.ImdbID,
		Search: opts.Search,
		SortBy: opts.SortBy,
		Page:   opts.Page,
		Limit:  opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	return pageOf(page, auth, true), nil
}

// Replace swaps the full payload of a comment the caller owns. Identity,
// timestamps and the stored author token survive the replace.
func (s *CommentService) Replace(ctx context.Context, auth ports.AuthContext, id uuid.UUID, payload map[string]any) (*ports.ItemView, error) {
	if !auth.HasToken(s.authCfg.MinTokenLength) {
		return nil, entities.ErrUnauthenticated
	}

	item, err := s.repo.Mutate(ctx, id, entities.KindComment, func(item *entities.Item) error {
		if !auth.Owns(item.AuthorToken()) {
			return entities.ErrForbidden
		}

		p := clonePayload(payload)
		p["kind"] = string(entities.KindComment)
		p["authorToken"] = item.AuthorToken()
		entities.ApplyDefaults(entities.KindComment, p)

		if err := entities.ValidatePayload(entities.KindComment, p); err != nil {
			return err
		}
		item.Payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := viewOf(item, auth, true)
	return &view, nil
}

// Patch shallow-merges fields into a comment the caller owns. The kind
// discriminator and author token are pinned; an empty patch still bumps
// updatedAt.
func (s *CommentService) Patch(ctx context.Context, auth ports.AuthContext, id uuid.UUID, patch map[string]any) (*ports.ItemView, error) {
	if !auth.HasToken(s.authCfg.MinTokenLength) {
		return nil, entities.ErrUnauthenticated
	}

	item, err := s.repo.Mutate(ctx, id, entities.KindComment, func(item *entities.Item) error {
		if !auth.Owns(item.AuthorToken()) {
			return entities.ErrForbidden
		}

		p := mergePayload(item.Payload, patch)
		p["kind"] = string(entities.KindComment)
		p["authorToken"] = item.AuthorToken()

		if err := entities.ValidatePayload(entities.KindComment, p); err != nil {
			return err
		}
		item.Payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := viewOf(item, auth, true)
	return &view, nil
}

// Delete removes a comment the caller owns.
func (s *CommentService) Delete(ctx context.Context, auth ports.AuthContext, id uuid.UUID) error {
	if !auth.HasToken(s.authCfg.MinTokenLength) {
		return entities.ErrUnauthenticated
	}

	err := s.repo.Delete(ctx, id, entities.KindComment, func(item *entities.Item) error {
		if !auth.Owns(item.AuthorToken()) {
			return entities.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Comment deleted", "item_id", id)
	return nil
}
