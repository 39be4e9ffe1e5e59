package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind classifies per-item failures so callers can decide between retry,
// fallback and surfacing.
type Kind string

const (
	KindNetworkError      Kind = "network_error"
	KindAuthError         Kind = "auth_error"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindConversionFailure Kind = "conversion_failure"
	KindSizeExceeded      Kind = "size_exceeded"
	KindSessionAbort      Kind = "session_abort"
)

func (k Kind) String() string {
	return string(k)
}

var (
	// call-level misconfiguration, aborts the whole run
	ErrInvalidStorageKind  = errors.New("invalid storage kind")
	ErrDestinationUnusable = errors.New("destination is unusable")
	ErrNoMessageIDs        = errors.New("no message ids provided")
)

// ItemError carries the failure classification for a single message or
// attachment. It never propagates past the orchestrator boundary.
type ItemError struct {
	kind  Kind
	cause error
}

func NewItemError(kind Kind, message string) *ItemError {
	return &ItemError{kind: kind, cause: errors.New(message)}
}

func WrapItemError(kind Kind, err error, message string) *ItemError {
	return &ItemError{kind: kind, cause: errors.Wrap(err, message)}
}

func (e *ItemError) Error() string {
	return string(e.kind) + ": " + e.cause.Error()
}

func (e *ItemError) Unwrap() error {
	return e.cause
}

func (e *ItemError) Kind() Kind {
	return e.kind
}

// KindOf extracts the classification from an error chain, defaulting to
// network_error for unclassified failures so they stay retryable upstream.
func KindOf(err error) Kind {
	var itemErr *ItemError
	if stderrors.As(err, &itemErr) {
		return itemErr.kind
	}
	return KindNetworkError
}

// IsRetryable reports whether a bounded retry with backoff is worth it.
// Auth failures are surfaced so the caller can re-authenticate externally.
func IsRetryable(err error) bool {
	return KindOf(err) == KindNetworkError
}

// Reason returns the short, stable string recorded on failed items.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
