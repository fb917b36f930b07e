package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

var (
	// ErrSessionExpired is returned when the access token was rejected and
	// could not be refreshed. The session has been cleared.
	ErrSessionExpired = errors.New("session expired, please sign in again")
	// ErrNotSignedIn is returned by calls that need a session when none exists.
	ErrNotSignedIn = errors.New("not signed in")
)

// APIError is a non-2xx answer from the TeamLink API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	return e.Message
}

// NotFound reports whether the API answered 404.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// fieldOrder lists the field errors the board cares about first.
var fieldOrder = []string{"project", "column", "title", "email", "name", "non_field_errors"}

// newAPIError extracts a human readable message from an error payload.
// Payloads carry one of message, detail or error, or DRF style field lists
// such as {"column": ["Invalid pk"]}.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var payload map[string]json.RawMessage
	if err := sonic.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "detail", "error"} {
			if raw, ok := payload[key]; ok {
				if msg := rawString(raw); msg != "" {
					apiErr.Message = msg
					break
				}
			}
		}
		apiErr.Fields = fieldErrors(payload)
		if apiErr.Message == "" && len(apiErr.Fields) > 0 {
			apiErr.Message = firstFieldMessage(apiErr.Fields)
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		apiErr.Message = text
	}

	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return apiErr
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := sonic.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := sonic.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

func fieldErrors(payload map[string]json.RawMessage) map[string][]string {
	var out map[string][]string
	for key, raw := range payload {
		switch key {
		case "message", "detail", "error", "success", "code", "status":
			continue
		}
		var list []string
		if err := sonic.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[key] = list
	}
	return out
}

func firstFieldMessage(fields map[string][]string) string {
	for _, key := range fieldOrder {
		if list, ok := fields[key]; ok {
			return fieldLabel(key) + strings.Join(list, ", ")
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fieldLabel(keys[0]) + strings.Join(fields[keys[0]], ", ")
}

func fieldLabel(key string) string {
	if key == "non_field_errors" {
		return ""
	}
	return key + ": "
}
