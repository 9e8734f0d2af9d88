package entities

// Typed payload variants. Each struct is the closed schema for one kind:
// the registry in schema.go rejects fields outside the struct's json tags
// and runs the validate tags against decoded values.

// CommentPayload is a movie comment tied to an IMDb id.
type CommentPayload struct {
	Kind        Kind   `json:"kind" validate:"required,eq=comment"`
	ImdbID      string `json:"imdbID" validate:"required,min=1"`
	Name        string `json:"name" validate:"required,min=1"`
	Message     string `json:"message" validate:"required,min=1"`
	Rating      int    `json:"rating" validate:"min=1,max=5"`
	AuthorToken string `json:"authorToken" validate:"required,min=16"`
}

// CardPayload is a user-authored movie card. ImageURL is optional and may
// be explicitly null.
type CardPayload struct {
	Kind        Kind    `json:"kind" validate:"required,eq=userCard"`
	Name        string  `json:"name" validate:"required,min=1"`
	MovieTitle  string  `json:"movieTitle" validate:"required,min=1"`
	Title       string  `json:"title" validate:"required,min=1"`
	Description string  `json:"description" validate:"required,min=1"`
	ImageURL    *string `json:"imageUrl"`
	IsPublic    bool    `json:"isPublic"`
	AuthorToken string  `json:"authorToken" validate:"required,min=16"`
}

// TaskPayload is a plain task entry. Tasks carry no ownership token.
type TaskPayload struct {
	Kind     Kind       `json:"kind" validate:"required,eq=task"`
	Title    string     `json:"title" validate:"required,min=1"`
	Status   TaskStatus `json:"status" validate:"required,oneof=todo in_progress done blocked"`
	Priority int        `json:"priority" validate:"min=1,max=5"`
	DueDate  string     `json:"dueDate"`
	Tags     []string   `json:"tags"`
	Notes    string     `json:"notes"`
}

// ApplyDefaults fills declared defaults into a raw payload before
// validation. Defaulting is part of payload construction, so absent fields
// get their default while present-but-invalid values still fail validation.
func ApplyDefaults(kind Kind, payload map[string]any) {
	switch kind {
	case KindComment:
		if _, ok := payload["rating"]; !ok {
			payload["rating"] = 5
		}
	case KindUserCard:
		if _, ok := payload["isPublic"]; !ok {
			payload["isPublic"] = false
		}
	case KindTask:
		if _, ok := payload["tags"]; !ok {
			payload["tags"] = []string{}
		}
	}
}
