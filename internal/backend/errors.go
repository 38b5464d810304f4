package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/schooldesk/schooldesk/internal/shared"
)

// FieldError is one validation failure reported by the backend.
type FieldError struct {
	Key  string `json:"key"`
	Code string `json:"code"`
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Code    string
	Message string
	// Fields maps form field keys to error codes for inline rendering.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("backend: status %d: validation failed on %d field(s)", e.Status, len(e.Fields))
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Code)
}

// Unwrap maps transport statuses onto shared sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return nil
	}
}

// HTTPStatus is the status relayed to the browser. Upstream server
// failures surface as a bad gateway.
func (e *APIError) HTTPStatus() int {
	if e.Status >= 500 || e.Status < 400 {
		return http.StatusBadGateway
	}
	return e.Status
}

// FieldErrors returns the inline validation errors.
func (e *APIError) FieldErrors() map[string]string {
	return e.Fields
}

// UserMessage is the human readable text shown in notifications.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return Humanize(e.Code)
}

// Humanize turns an error code such as "invalid_credentials" into
// "Invalid Credentials".
func Humanize(code string) string {
	code = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(code))
	if code == "" {
		return "Request Failed"
	}
	return cases.Title(language.English).String(code)
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Code: fmt.Sprintf("http_%d", status)}
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	if payload.Code != "" {
		apiErr.Code = payload.Code
	}
	apiErr.Message = payload.Message
	if apiErr.Message == "" {
		apiErr.Message = payload.Detail
	}
	var fields []FieldError
	if len(payload.Errors) > 0 && json.Unmarshal(payload.Errors, &fields) == nil && len(fields) > 0 {
		apiErr.Fields = FieldErrorMap(fields)
		if payload.Code == "" {
			apiErr.Code = "validation_error"
		}
	}
	return apiErr
}

// FieldErrorMap converts the backend list form into key → code. The first
// code reported for a key wins.
func FieldErrorMap(fields []FieldError) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		if _, exists := out[f.Key]; !exists {
			out[f.Key] = f.Code
		}
	}
	return out
}
