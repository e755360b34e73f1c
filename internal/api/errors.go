// ABOUTME: Error types for the SocialConnect API client.
// ABOUTME: Separates HTTP status errors from transport failures and extracts server messages.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNoRefreshToken is returned when a 401 cannot be recovered because no refresh token is stored.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API returned %d for %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message())
}

// Message extracts a human-readable message from the response body. It looks at
// detail, content, non_field_errors, message and error, then a bare JSON string,
// then joins per-field errors as "field: error".
func (e *APIError) Message() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return http.StatusText(e.StatusCode)
	}

	var str string
	if err := json.Unmarshal(e.Body, &str); err == nil {
		return str
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &obj); err != nil {
		return body
	}

	for _, key := range []string{"detail", "content", "non_field_errors", "message", "error"} {
		if raw, ok := obj[key]; ok {
			if msg := firstString(raw); msg != "" {
				return msg
			}
		}
	}

	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var parts []string
	for _, k := range fields {
		if msg := firstString(obj[k]); msg != "" {
			parts = append(parts, k+": "+msg)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return http.StatusText(e.StatusCode)
}

// firstString decodes raw as a string or the first element of a string array.
func firstString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// NetworkError wraps a transport failure: the server was never reached or the
// response could not be read.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("remote API request %s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsServerError reports whether err is a 5xx response.
func IsServerError(err error) bool {
	return StatusCode(err) >= 500
}

// IsUnavailable reports whether err means the backend could not serve the
// request at all (transport failure or 5xx).
func IsUnavailable(err error) bool {
	return IsNetworkError(err) || IsServerError(err)
}

// ErrorMessage returns the server message for API errors and err.Error() otherwise.
func ErrorMessage(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return err.Error()
}
