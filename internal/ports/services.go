package ports

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
)

// AuthContext is the explicit per-request authentication context. It is
// built once from the transport's header map and passed into every service
// call; nothing below the handlers touches headers.
//
// Ownership is possession of the bearer string, not a verified identity.
// That trust boundary is the product's contract, not an oversight.
type AuthContext struct {
	Token      string
	AdminToken string
}

// MinTokenLength is the baseline bearer-token length. The configured value
// may raise it, never lower it below 1.
const MinTokenLength = 16

// HasToken reports whether the caller supplied a token long enough to act
// as an ownership capability.
func (a AuthContext) HasToken(minLength int) bool {
	if minLength < 1 {
		minLength = MinTokenLength
	}
	return len(a.Token) >= minLength
}

// Owns reports whether the caller's token matches a stored author token.
func (a AuthContext) Owns(authorToken string) bool {
	return authorToken != "" && a.Token == authorToken
}

// IsAdmin compares the caller's admin header against the server secret in
// constant time. An unset server secret disables the admin capability.
func (a AuthContext) IsAdmin(adminSecret string) bool {
	if adminSecret == "" || a.AdminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.AdminToken), []byte(adminSecret)) == 1
}

// ItemView is the outbound item envelope: the stored item with the
// write-only authorToken stripped. Own is set on comment and card
// responses to tell the caller whether their token owns the item.
type ItemView struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Payload   map[string]any `json:"payload"`
	Own       *bool          `json:"own,omitempty"`
}

// PageView is one page of outbound items.
type PageView struct {
	Data  []ItemView `json:"data"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int        `json:"total"`
}

// UploadResult describes one stored upload.
type UploadResult struct {
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
}
