package insights

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the bearer credential expired or is invalid (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the backend refused the request on policy grounds (403).
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned for 429 responses.
	ErrRateLimited = errors.New("rate limited")
	// ErrServer is returned for 5xx responses.
	ErrServer = errors.New("server error")
	// ErrTransport covers connection failures, timeouts, dropped streams and
	// undecodable responses.
	ErrTransport = errors.New("transport failure")
	// ErrApplication is an error the backend reported inside a successful
	// response, such as an error frame or success=false.
	ErrApplication = errors.New("application error")
	// ErrOwnershipMismatch means a response carried another user's id.
	ErrOwnershipMismatch = errors.New("response belongs to another user")
	// ErrNoSession means the backend did not issue a session id.
	ErrNoSession = errors.New("no session issued")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d)", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError classifies a non-2xx status into one of the sentinel errors.
func newAPIError(statusCode int, body []byte) *APIError {
	var kind error
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case statusCode == http.StatusForbidden:
		kind = ErrForbidden
	case statusCode == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case statusCode >= 500:
		kind = ErrServer
	default:
		kind = ErrTransport
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    extractMessage(body),
		Err:        kind,
	}
}

// extractMessage pulls a human-readable message out of an error body.
// Non-JSON bodies are returned trimmed and truncated.
func extractMessage(body []byte) string {
	var env envelope[any]
	if err := unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// ApplicationError wraps a backend-reported message so callers can surface
// it verbatim.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return "application error: " + e.Message
}

func (e *ApplicationError) Unwrap() error {
	return ErrApplication
}

// Kind is the recovery class of an error.
type Kind int

const (
	KindNone Kind = iota
	KindTransport
	KindApplication
	KindUnauthorized
	KindForbidden
	KindOwnership
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindOwnership:
		return "ownership"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Classify sorts err into a Kind. Rate limits, server errors and anything
// unrecognized count as transport failures.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrApplication):
		return KindApplication
	case errors.Is(err, ErrOwnershipMismatch):
		return KindOwnership
	default:
		return KindTransport
	}
}

// IsTransport reports whether err should be recovered by falling back to
// the non-streaming path. Authorization and policy failures are not.
func IsTransport(err error) bool {
	return Classify(err) == KindTransport
}
