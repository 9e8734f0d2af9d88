package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/core/internal/adapters/repository"
	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/infrastructure/store"
	"github.com/cinelog/core/internal/ports"
)

const (
	tokenOne   = "tokentokentoken1"
	tokenTwo   = "tokentokentoken2"
	adminToken = "admin-secret-admin-secret"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AdminToken:     adminToken,
		TokenHeader:    "X-Auth-Token",
		AdminHeader:    "X-Admin-Token",
		MinTokenLength: 16,
	}
}

func newTestRepo(t *testing.T) ports.ItemRepository {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "collection.json"), logger.NewNop())
	require.NoError(t, err)
	return repository.NewItemRepository(st)
}

func newCommentService(t *testing.T) *CommentService {
	t.Helper()
	return NewCommentService(newTestRepo(t), testAuthConfig(), logger.NewNop())
}

func commentBody() map[string]any {
	return map[string]any{
		"imdbID":  "tt0111161",
		"name":    "Al",
		"message": "Great film",
		"rating":  5,
	}
}

func TestCommentCreate(t *testing.T) {
	svc := newCommentService(t)
	auth := ports.AuthContext{Token: tokenOne}

	view, err := svc.Create(context.Background(), auth, commentBody())
	require.NoError(t, err)

	// the response never exposes the author token
	assert.NotContains(t, view.Payload, "authorToken")
	assert.Equal(t, "comment", view.Payload["kind"])
	assert.Equal(t, "Great film", view.Payload["message"])
	require.NotNil(t, view.Own)
	assert.True(t, *view.Own)
}

func TestCommentCreate_RequiresToken(t *testing.T) {
	svc := newCommentService(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"too short", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), ports.AuthContext{Token: tt.token}, commentBody())
			assert.ErrorIs(t, err, entities.ErrUnauthenticated)
		})
	}
}

func TestCommentCreate_AccumulatesValidationErrors(t *testing.T) {
	svc := newCommentService(t)

	_, err := svc.Create(context.Background(), ports.AuthContext{Token: tokenOne}, map[string]any{
		"imdbID": "tt0111161",
	})
	require.Error(t, err)

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make(map[string]bool)
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["message"])
}

func TestCommentCreate_DefaultsRating(t *testing.T) {
	svc := newCommentService(t)

	body := commentBody()
	delete(body, "rating")

	view, err := svc.Create(context.Background(), ports.AuthContext{Token: tokenOne}, body)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Payload["rating"])
}

func TestCommentOwnership(t *testing.T) {
	svc := newCommentService(t)
	ctx := context.Background()
	owner := ports.AuthContext{Token: tokenOne}
	stranger := ports.AuthContext{Token: tokenTwo}

	view, err := svc.Create(ctx, owner, commentBody())
	require.NoError(t, err)

	// a different token may not patch or delete
	_, err = svc.Patch(ctx, stranger, view.ID, map[string]any{"message": "hijack"})
	assert.ErrorIs(t, err, entities.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, stranger, view.ID), entities.ErrForbidden)

	// comments have no admin override
	admin := ports.AuthContext{Token: tokenTwo, AdminToken: adminToken}
	assert.ErrorIs(t, svc.Delete(ctx, admin, view.ID), entities.ErrForbidden)

	// the owner succeeds
	patched, err := svc.Patch(ctx, owner, view.ID, map[string]any{"message": "still great"})
	require.NoError(t, err)
	assert.Equal(t, "still great", patched.Payload["message"])

	require.NoError(t, svc.Delete(ctx, owner, view.ID))
	_, err = svc.Get(ctx, owner, view.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestCommentListDerivesOwn(t *testing.T) {
	svc := newCommentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ports.AuthContext{Token: tokenOne}, commentBody())
	require.NoError(t, err)

	page, err := svc.List(ctx, ports.AuthContext{Token: tokenOne}, CommentListOptions{ImdbID: "tt0111161"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.Data[0].Own)
	assert.True(t, *page.Data[0].Own)
	assert.NotContains(t, page.Data[0].Payload, "authorToken")

	page, err = svc.List(ctx, ports.AuthContext{Token: tokenTwo}, CommentListOptions{ImdbID: "tt0111161"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.False(t, *page.Data[0].Own)
}

func TestCommentPatch_EmptyBodyStillBumpsUpdatedAt(t *testing.T) {
	svc := newCommentService(t)
	ctx := context.Background()
	owner := ports.AuthContext{Token: tokenOne}

	view, err := svc.Create(ctx, owner, commentBody())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	patched, err := svc.Patch(ctx, owner, view.ID, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, view.Payload["message"], patched.Payload["message"])
	assert.EqualValues(t, 5, patched.Payload["rating"])
	assert.True(t, patched.UpdatedAt.After(view.UpdatedAt))
	assert.True(t, patched.CreatedAt.Equal(view.CreatedAt))
}

func TestCommentPatch_CannotChangeKind(t *testing.T) {
	svc := newCommentService(t)
	ctx := context.Background()
	owner := ports.AuthContext{Token: tokenOne}

	view, err := svc.Create(ctx, owner, commentBody())
	require.NoError(t, err)

	patched, err := svc.Patch(ctx, owner, view.ID, map[string]any{"kind": "userCard"})
	require.NoError(t, err)
	assert.Equal(t, "comment", patched.Payload["kind"])
}

func TestCommentReplace_DiscardsPriorFields(t *testing.T) {
	svc := newCommentService(t)
	ctx := context.Background()
	owner := ports.AuthContext{Token: tokenOne}

	view, err := svc.Create(ctx, owner, commentBody())
	require.NoError(t, err)

	replaced, err := svc.Replace(ctx, owner, view.ID, map[string]any{
		"imdbID":  "tt0068646",
		"name":    "Al",
		"message": "Also great",
	})
	require.NoError(t, err)
	assert.Equal(t, "tt0068646", replaced.Payload["imdbID"])
	assert.Equal(t, "Also great", replaced.Payload["message"])
	// rating came back as the default, not the prior explicit value
	assert.Equal(t, 5, replaced.Payload["rating"])
	assert.Equal(t, view.ID, replaced.ID)
	assert.True(t, view.CreatedAt.Equal(replaced.CreatedAt))
}
