package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthorized matches any 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// APIError represents a non-2xx response from the chat service.
type APIError struct {
	Status int
	// Detail is the service's "detail" message, if any.
	Detail string
	// Fields holds per-field validation messages.
	Fields map[string][]string
	// Body is the raw response when it was not a JSON object.
	Body string
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("request failed (%d %s)", e.Status, http.StatusText(e.Status))
}

// Message renders the service's explanation as one human-readable line:
// the detail if present, otherwise each field's messages in field order.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
		}
		return strings.Join(parts, " — ")
	}
	return e.Body
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	trimmed := strings.TrimSpace(string(body))

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		var text string
		if json.Unmarshal(body, &text) == nil {
			apiErr.Body = text
		} else {
			apiErr.Body = trimmed
		}
		return apiErr
	}

	for key, raw := range payload {
		if key == "detail" {
			var detail string
			if json.Unmarshal(raw, &detail) == nil {
				apiErr.Detail = detail
				continue
			}
		}
		msgs := decodeMessages(raw)
		if len(msgs) == 0 {
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = map[string][]string{}
		}
		apiErr.Fields[key] = msgs
	}
	if apiErr.Detail == "" && len(apiErr.Fields) == 0 {
		apiErr.Body = trimmed
	}
	return apiErr
}

func decodeMessages(raw json.RawMessage) []string {
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return []string{single}
	}
	var anyList []any
	if json.Unmarshal(raw, &anyList) == nil {
		out := make([]string, 0, len(anyList))
		for _, v := range anyList {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return []string{strings.TrimSpace(string(raw))}
}
