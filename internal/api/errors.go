package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an API failure. Commands branch on the kind, never on
// raw status codes.
type Kind string

const (
	KindValidation     Kind = "validation"     // 400/422, bad input
	KindAuthentication Kind = "authentication" // 401, bad or expired credentials
	KindAuthorization  Kind = "authorization"  // 403, insufficient role/permission
	KindNotFound       Kind = "not_found"      // 404
	KindNetwork        Kind = "network"        // timeout or unreachable
	KindServer         Kind = "server"         // 5xx
)

// Error is a typed API failure. Message carries the server-provided text
// verbatim so forms can surface it unchanged; Fields holds field-level
// validation messages when the backend returns them.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is an API error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsAuthentication reports whether err is a 401-class failure.
func IsAuthentication(err error) bool { return IsKind(err, KindAuthentication) }

// IsAuthorization reports whether err is a 403-class failure. Authorization
// failures are a permissions problem, not an identity problem, and must
// never clear the session.
func IsAuthorization(err error) bool { return IsKind(err, KindAuthorization) }

// errorBody is the shape the backend uses for failures. Validation errors
// may carry per-field messages.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// classifyStatus converts a non-2xx response into a typed error. The body
// has already been read by the caller.
func classifyStatus(status int, body []byte) *Error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Error
	if message == "" {
		message = parsed.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}

	apiErr := &Error{Status: status, Message: message, Fields: parsed.Fields}
	switch {
	case status == http.StatusUnauthorized:
		apiErr.Kind = KindAuthentication
	case status == http.StatusForbidden:
		apiErr.Kind = KindAuthorization
	case status == http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case status >= 500:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindValidation
	}
	return apiErr
}

// networkError wraps a transport-level failure. Timeouts are surfaced with
// a distinct message so they are not mistaken for auth failures.
func networkError(err error) *Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("request timed out: %v", err)}
	}
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf("server unreachable: %v", err)}
}
