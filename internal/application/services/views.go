package services

import (
	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/ports"
)

// viewOf builds the outbound envelope for one item: authorToken stripped,
// and for owned kinds a derived own flag telling the caller whether their
// token authored the item.
func viewOf(item *entities.Item, auth ports.AuthContext, withOwn bool) ports.ItemView {
	view := ports.ItemView{
		ID:        item.ID,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
		Payload:   item.PublicPayload(),
	}
	if withOwn {
		own := auth.Owns(item.AuthorToken())
		view.Own = &own
	}
	return view
}

// pageOf maps a repository page into outbound views.
func pageOf(page *ports.Page, auth ports.AuthContext, withOwn bool) *ports.PageView {
	out := &ports.PageView{
		Data:  make([]ports.ItemView, 0, len(page.Data)),
		Page:  page.Page,
		Limit: page.Limit,
		Total: page.Total,
	}
	for _, item := range page.Data {
		out.Data = append(out.Data, viewOf(item, auth, withOwn))
	}
	return out
}

// clonePayload shallow-copies a payload map so request bodies and stored
// items never alias.
func clonePayload(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// mergePayload applies a shallow patch: top-level keys replace wholesale,
// nested objects are not deep-merged.
func mergePayload(base, patch map[string]any) map[string]any {
	out := clonePayload(base)
	for k, v := range patch {
		out[k] = v
	}
	return out
}
