package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

// CardService handles userCard-kind items. Unlike comments, cards honor
// the admin capability: the server-held secret bypasses ownership on
// mutation, deletion and listing visibility.
type CardService struct {
	repo    ports.ItemRepository
	authCfg config.AuthConfig
	logger  *logger.Logger
}

// NewCardService creates a new card service
func NewCardService(repo ports.ItemRepository, authCfg config.AuthConfig, logger *logger.Logger) *CardService {
	return &CardService{
		repo:    repo,
		authCfg: authCfg,
		logger:  logger,
	}
}

// CardListOptions narrows a card listing.
type CardListOptions struct {
	OnlyPublic bool
	Search     string
	SortBy     ports.SortKey
	Page       int
	Limit      int
}

// Create validates and stores a new card owned by the caller's token.
func (s *CardService) Create(ctx context.Context, auth ports.AuthContext, payload map[string]any) (*ports.ItemView, error) {
	if !auth.HasToken(s.authCfg.MinTokenLength) {
		return nil, entities.ErrUnauthenticated
	}

	p := clonePayload(payload)
	p["kind"] = string(entities.KindUserCard)
	p["authorToken"] = auth.Token
	entities.ApplyDefaults(entities.KindUserCard, p)

	if err := entities.ValidatePayload(entities.KindUserCard, p); err != nil {
		return nil, err
	}

	item, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Card created", "item_id", item.ID, "public", p["isPublic"])

	view := viewOf(item, auth, true)
	return &view, nil
}

// Get returns one card. Non-admin callers only see cards they own or
// cards marked public.
func (s *CardService) Get(ctx context.Context, auth ports.AuthContext, id uuid.UUID) (*ports.ItemView, error) {
	item, err := s.repo.GetByKind(ctx, id, entities.KindUserCard)
	if err != nil {
		return nil, err
	}
	if !auth.IsAdmin(s.authCfg.AdminToken) && !auth.Owns(item.AuthorToken()) && !isPublicCard(item) {
		// Hidden cards read as absent rather than forbidden.
		return nil, entities.ErrNotFound
	}
	view := viewOf(item, auth, true)
	return &view, nil
}

// List returns a page of cards under the visibility policy: admins see
// everything, the public view shows only isPublic cards, and the default
// view shows only the caller's own cards.
func (s *CardService) List(ctx context.Context, auth ports.AuthContext, opts CardListOptions) (*ports.PageView, error) {
	var visible func(*entities.Item) bool
	if !auth.IsAdmin(s.authCfg.AdminToken) {
		if opts.OnlyPublic {
			visible = isPublicCard
		} else {
			visible = func(item *entities.Item) bool {
				return auth.Owns(item.AuthorToken())
			}
		}
	}

	page, err := s.repo.List(ctx, ports.ItemFilter{
		Kind:    entities.KindUserCard,
		Search:  opts.Search,
		Visible: visible,
		SortBy:  opts.SortBy,
		Page:    opts.Page,
		Limit:   opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	return pageOf(page, auth, true), nil
}

// Replace swaps the full payload of a card. The stored author token
// survives even an admin replace, so an override never steals ownership.
func (s *CardService) Replace(ctx context.Context, auth ports.AuthContext, id uuid.UUID, payload map[string]any) (*ports.ItemView, error) {
	if err := s.requireMutate(auth); err != nil {
		return nil, err
	}

	item, err := s.repo.Mutate(ctx, id, entities.KindUserCard, func(item *entities.Item) error {
		if err := s.authorize(auth, item); err != nil {
			return err
		}

		p := clonePayload(payload)
		p["kind"] = string(entities.KindUserCard)
		p["authorToken"] = item.AuthorToken()
		entities.ApplyDefaults(entities.KindUserCard, p)

		if err := entities.ValidatePayload(entities.KindUserCard, p); err != nil {
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

// Patch shallow-merges fields into a card; kind and author token are
// pinned.
func (s *CardService) Patch(ctx context.Context, auth ports.AuthContext, id uuid.UUID, patch map[string]any) (*ports.ItemView, error) {
	if err := s.requireMutate(auth); err != nil {
		return nil, err
	}

	item, err := s.repo.Mutate(ctx, id, entities.KindUserCard, func(item *entities.Item) error {
		if err := s.authorize(auth, item); err != nil {
			return err
		}

		p := mergePayload(item.Payload, patch)
		p["kind"] = string(entities.KindUserCard)
		p["authorToken"] = item.AuthorToken()

		if err := entities.ValidatePayload(entities.KindUserCard, p); err != nil {
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

// Delete removes a card the caller owns, or any card for admin.
func (s *CardService) Delete(ctx context.Context, auth ports.AuthContext, id uuid.UUID) error {
	if err := s.requireMutate(auth); err != nil {
		return err
	}

	err := s.repo.Delete(ctx, id, entities.KindUserCard, func(item *entities.Item) error {
		return s.authorize(auth, item)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Card deleted", "item_id", id)
	return nil
}

// requireMutate gates mutation entry: either a well-formed caller token or
// the admin capability.
func (s *CardService) requireMutate(auth ports.AuthContext) error {
	if auth.IsAdmin(s.authCfg.AdminToken) {
		return nil
	}
	if !auth.HasToken(s.authCfg.MinTokenLength) {
		return entities.ErrUnauthenticated
	}
	return nil
}

// authorize enforces ownership with the admin override.
func (s *CardService) authorize(auth ports.AuthContext, item *entities.Item) error {
	if auth.IsAdmin(s.authCfg.AdminToken) {
		return nil
	}
	if !auth.Owns(item.AuthorToken()) {
		return entities.ErrForbidden
	}
	return nil
}

func isPublicCard(item *entities.Item) bool {
	public, _ := item.Payload["isPublic"].(bool)
	return public
}
