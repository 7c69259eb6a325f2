package errors

import (
	"errors"
	"fmt"
	"net"
)

// The pipeline distinguishes failures that are absorbed (classification,
// plugin, retrieval, generation) from the one failure class that must reach
// the caller: the durable store being unreachable. Absorbed failures degrade
// the request; a store failure fails it loudly.

// StoreUnavailableError reports that the durable conversation store could not
// be reached. Returning an empty history here would look like a new user with
// no prior conversation, so this error always propagates.
type StoreUnavailableError struct {
	Op  string // operation that failed, e.g. "connect", "append", "context"
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("conversation store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// NewStoreUnavailable wraps err as a store connectivity failure.
func NewStoreUnavailable(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}

// IsStoreUnavailable reports whether err is a store connectivity failure.
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}

// ClassificationError marks a failed intent classification. Callers absorb it
// and fall back to the default intent.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// PluginError marks a failed plugin invocation. Callers absorb it into an
// empty plugin result plus a fixed apology on the shortcut path.
type PluginError struct {
	Plugin string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s failed: %v", e.Plugin, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// RetrievalError marks a failed knowledge lookup. Callers absorb it into an
// empty retrieved-context segment.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError marks a failed language-model call. Callers absorb it into a
// fixed apology reply and still persist the exchange.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsTransient reports whether an error looks retry-able: network-level
// failures and 5xx/429 responses from collaborators.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if statusCode := extractHTTPStatusCode(err); statusCode > 0 {
		return isTransientHTTPStatus(statusCode)
	}

	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// HTTPError carries a collaborator HTTP status alongside the response body.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func extractHTTPStatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
