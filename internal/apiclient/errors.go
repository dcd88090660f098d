package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status    int
	Message   string
	Fields    map[string]string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// IsValidation reports whether the backend rejected individual fields.
func (e *APIError) IsValidation() bool {
	return len(e.Fields) > 0
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Message     string          `json:"message"`
	Error       string          `json:"error"`
	Detail      string          `json:"detail"`
	Errors      json.RawMessage `json:"errors"`
	FieldErrors []fieldError    `json:"fieldErrors"`
}

const maxRawMessage = 200

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		apiErr.Message = truncate(apiErr.Message, maxRawMessage)
		return apiErr
	}

	for _, candidate := range []string{parsed.Message, parsed.Detail, parsed.Error} {
		if candidate != "" {
			apiErr.Message = candidate
			break
		}
	}

	fields := make(map[string]string)
	for _, fe := range parsed.FieldErrors {
		fields[fe.Field] = fe.Message
	}
	if len(parsed.Errors) > 0 {
		var asMap map[string]string
		var asList []fieldError
		if err := json.Unmarshal(parsed.Errors, &asMap); err == nil {
			for k, v := range asMap {
				fields[k] = v
			}
		} else if err := json.Unmarshal(parsed.Errors, &asList); err == nil {
			for _, fe := range asList {
				fields[fe.Field] = fe.Message
			}
		}
	}
	if len(fields) > 0 {
		apiErr.Fields = fields
	}

	return apiErr
}

// Message extracts a display message from err, or returns fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// FieldErrors returns the field/message pairs carried by err, if any.
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}
	return nil
}
