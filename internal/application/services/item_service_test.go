package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/ports"
)

func newItemService(t *testing.T) *ItemService {
	t.Helper()
	return NewItemService(newTestRepo(t), logger.NewNop())
}

func TestItemCreate_OpenPayload(t *testing.T) {
	svc := newItemService(t)

	view, err := svc.Create(context.Background(), map[string]any{
		"anything": "goes",
		"nested":   map[string]any{"deep": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "goes", view.Payload["anything"])
	assert.Nil(t, view.Own)
}

func TestItemCreate_UnrecognizedKindStaysOpen(t *testing.T) {
	svc := newItemService(t)

	view, err := svc.Create(context.Background(), map[string]any{
		"kind":  "bookmark",
		"extra": "field",
	})
	require.NoError(t, err)
	assert.Equal(t, "bookmark", view.Payload["kind"])
}

func TestItemCreate_RecognizedKindIsValidated(t *testing.T) {
	svc := newItemService(t)

	// a task through the generic surface still needs the task schema
	_, err := svc.Create(context.Background(), map[string]any{
		"kind":   "task",
		"status": "paused",
	})
	require.Error(t, err)

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make(map[string]string)
	for _, f := range verr.Fields {
		fields[f.Field] = f.Code
	}
	assert.Equal(t, "required", fields["title"])
	assert.Equal(t, "enum", fields["status"])
}

func TestItemCreate_RefusesOwnedKinds(t *testing.T) {
	svc := newItemService(t)

	for _, kind := range []string{"comment", "userCard"} {
		t.Run(kind, func(t *testing.T) {
			_, err := svc.Create(context.Background(), map[string]any{"kind": kind})
			require.Error(t, err)

			var verr *entities.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, "kind", verr.Fields[0].Field)
			assert.Equal(t, "enum", verr.Fields[0].Code)
		})
	}
}

func TestItemSurfaceCannotReachOwnedItems(t *testing.T) {
	repo := newTestRepo(t)
	items := NewItemService(repo, logger.NewNop())
	cards := NewCardService(repo, testAuthConfig(), logger.NewNop())
	comments := NewCommentService(repo, testAuthConfig(), logger.NewNop())
	ctx := context.Background()
	owner := ports.AuthContext{Token: tokenOne}

	card, err := cards.Create(ctx, owner, cardBody(false))
	require.NoError(t, err)
	comment, err := comments.Create(ctx, owner, commentBody())
	require.NoError(t, err)

	// reads treat owned items as absent
	_, err = items.Get(ctx, card.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	page, err := items.List(ctx, ItemListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	// mutations cannot touch them either
	_, err = items.Patch(ctx, comment.ID, map[string]any{"message": "hijack"})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	_, err = items.Replace(ctx, card.ID, map[string]any{"note": "overwritten"})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	assert.ErrorIs(t, items.Delete(ctx, card.ID), entities.ErrNotFound)

	// both items survive untouched for their owner
	got, err := cards.Get(ctx, owner, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)

	gotComment, err := comments.Get(ctx, owner, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Great film", gotComment.Payload["message"])
}

func TestItemPatch_CannotChangeKind(t *testing.T) {
	svc := newItemService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, map[string]any{"kind": "bookmark", "url": "https://example.com"})
	require.NoError(t, err)

	patched, err := svc.Patch(ctx, view.ID, map[string]any{"kind": "comment", "url": "https://example.org"})
	require.NoError(t, err)
	assert.Equal(t, "bookmark", patched.Payload["kind"])
	assert.Equal(t, "https://example.org", patched.Payload["url"])
}

func TestItemPatch_KindlessStaysKindless(t *testing.T) {
	svc := newItemService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, map[string]any{"note": "plain"})
	require.NoError(t, err)

	patched, err := svc.Patch(ctx, view.ID, map[string]any{"kind": "task", "note": "still plain"})
	require.NoError(t, err)
	assert.NotContains(t, patched.Payload, "kind")
}

func TestItemListSpansKinds(t *testing.T) {
	svc := newItemService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, map[string]any{"kind": "bookmark"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, map[string]any{"note": "untyped"})
	require.NoError(t, err)

	page, err := svc.List(ctx, ItemListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestItemDelete(t *testing.T) {
	svc := newItemService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, map[string]any{"note": "gone soon"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, view.ID))
	assert.ErrorIs(t, svc.Delete(ctx, view.ID), entities.ErrNotFound)
}
