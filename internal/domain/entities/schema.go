package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate is shared across all schema checks. Field names in errors come
// from json tags so clients see the wire name, not the Go name.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// payloadSchema binds a kind to its closed field set and typed decoder.
type payloadSchema struct {
	fields map[string]bool
	decode func([]byte) (any, error)
}

var kindSchemas = map[Kind]payloadSchema{
	KindComment: {
		fields: jsonFields(reflect.TypeOf(CommentPayload{})),
		decode: func(b []byte) (any, error) {
			var p CommentPayload
			err := json.Unmarshal(b, &p)
			return &p, err
		},
	},
	KindUserCard: {
		fields: jsonFields(reflect.TypeOf(CardPayload{})),
		decode: func(b []byte) (any, error) {
			var p CardPayload
			err := json.Unmarshal(b, &p)
			return &p, err
		},
	},
	KindTask: {
		fields: jsonFields(reflect.TypeOf(TaskPayload{})),
		decode: func(b []byte) (any, error) {
			var p TaskPayload
			err := json.Unmarshal(b, &p)
			return &p, err
		},
	},
}

// KnownKind reports whether a schema is registered for the kind.
func KnownKind(kind Kind) bool {
	_, ok := kindSchemas[kind]
	return ok
}

func jsonFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			fields[name] = true
		}
	}
	return fields
}

// ValidatePayload checks a raw payload against the schema registered for
// kind. Typed kinds are closed: unknown fields are rejected. KindNone (the
// generic item surface) accepts any mapping. Every violation is collected
// into one ValidationError so clients can render all field errors at once.
func ValidatePayload(kind Kind, payload map[string]any) error {
	if kind == KindNone {
		return nil
	}
	sch, ok := kindSchemas[kind]
	if !ok {
		return &ValidationError{Fields: []FieldError{
			{Field: "kind", Message: fmt.Sprintf("unknown kind %q", kind), Code: "enum"},
		}}
	}

	var fields []FieldError
	known := make(map[string]any, len(payload))
	for k, v := range payload {
		if !sch.fields[k] {
			fields = append(fields, FieldError{Field: k, Message: "field is not allowed", Code: "unknown"})
			continue
		}
		known[k] = v
	}

	raw, err := json.Marshal(known)
	if err != nil {
		fields = append(fields, FieldError{Field: "payload", Message: "payload is not serializable", Code: "type"})
		return &ValidationError{Fields: fields}
	}
	typed, err := sch.decode(raw)
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			fields = append(fields, FieldError{
				Field:   lastPathSegment(typeErr.Field),
				Message: fmt.Sprintf("expected %s", typeErr.Type),
				Code:    "type",
			})
		} else {
			fields = append(fields, FieldError{Field: "payload", Message: "malformed payload", Code: "type"})
		}
		return &ValidationError{Fields: fields}
	}

	if err := validate.Struct(typed); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, FieldError{
					Field:   fe.Field(),
					Message: messageFor(fe),
					Code:    codeFor(fe),
				})
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// envelopeFields is the closed set of envelope keys.
var envelopeFields = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
	"payload":   true,
}

// ValidateEnvelope checks a raw item document against the envelope shape:
// uuid id, string timestamps, object payload, no extra keys.
func ValidateEnvelope(raw map[string]any) error {
	var fields []FieldError

	for k := range raw {
		if !envelopeFields[k] {
			fields = append(fields, FieldError{Field: k, Message: "field is not allowed", Code: "unknown"})
		}
	}

	if id, ok := raw["id"]; !ok {
		fields = append(fields, FieldError{Field: "id", Message: "is required", Code: "required"})
	} else if s, ok := id.(string); !ok {
		fields = append(fields, FieldError{Field: "id", Message: "expected string", Code: "type"})
	} else if _, err := uuid.Parse(s); err != nil {
		fields = append(fields, FieldError{Field: "id", Message: "not a valid uuid", Code: "format"})
	}

	for _, key := range []string{"createdAt", "updatedAt"} {
		if v, ok := raw[key]; !ok {
			fields = append(fields, FieldError{Field: key, Message: "is required", Code: "required"})
		} else if _, ok := v.(string); !ok {
			fields = append(fields, FieldError{Field: key, Message: "expected string", Code: "type"})
		}
	}

	if p, ok := raw["payload"]; !ok {
		fields = append(fields, FieldError{Field: "payload", Message: "is required", Code: "required"})
	} else if _, ok := p.(map[string]any); !ok {
		fields = append(fields, FieldError{Field: "payload", Message: "expected object", Code: "type"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func lastPathSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

func codeFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		if fe.Kind() == reflect.String {
			return "minLength"
		}
		return "min"
	case "max":
		if fe.Kind() == reflect.String {
			return "maxLength"
		}
		return "max"
	case "oneof", "eq":
		return "enum"
	default:
		return fe.Tag()
	}
}

func messageFor(fe validator.FieldError) string {
	switch codeFor(fe) {
	case "required":
		return "is required"
	case "minLength":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "maxLength":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "enum":
		return "is not an allowed value"
	default:
		return fmt.Sprintf("failed %s constraint", fe.Tag())
	}
}
