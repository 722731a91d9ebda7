package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"authflow/internal/types"
)

// decodeObject parses body as a single JSON object.
func decodeObject(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyResponse
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("body is not json: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("body has trailing data after json value")
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("body is a json %s, want object", jsonKind(raw))
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// StringField returns obj[key] when it is a string.
// The error wraps ErrFieldMissing or ErrFieldType.
func StringField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %s, want string", ErrFieldType, key, jsonKind(v))
	}
	return s, nil
}

func extractToken(obj map[string]any) (string, error) {
	token, err := StringField(obj, "access_token")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: %q is empty", ErrFieldMissing, "access_token")
	}
	return token, nil
}

// serverError pulls an "error" or "message" text out of a non-2xx body, best effort.
func serverError(body []byte) string {
	obj, err := decodeObject(body)
	if err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"error", "message"} {
		if s, err := StringField(obj, key); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// DecodeProfile extracts the display fields from a GetProfile result.
// Failures are MalformedResponse errors wrapping ErrFieldMissing or ErrFieldType.
func DecodeProfile(fields map[string]any) (types.Profile, error) {
	var p types.Profile
	var err error

	if p.FirstName, err = StringField(fields, "firstName"); err != nil {
		return types.Profile{}, newError("decode profile", KindMalformedResponse, 0, err)
	}
	if p.LastName, err = StringField(fields, "lastName"); err != nil {
		return types.Profile{}, newError("decode profile", KindMalformedResponse, 0, err)
	}
	if p.Status, err = StringField(fields, "status"); err != nil {
		return types.Profile{}, newError("decode profile", KindMalformedResponse, 0, err)
	}
	return p, nil
}
