package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the categories the pipeline's callers react to.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindConflict
	KindNotFound
	KindStorageUnavailable
	KindNetworkUnavailable
	KindReverted
	KindTimeout
	KindPartialFailure
)

// String returns a stable name for the kind, used in logs and API responses.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStorageUnavailable:
		return "storage_unavailable"
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindReverted:
		return "reverted"
	case KindTimeout:
		return "timeout"
	case KindPartialFailure:
		return "partial_failure"
	default:
		return "unknown"
	}
}

// Error is a classified error. Err may carry the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain,
// so a cause (say, Reverted) stays matchable through an outer
// classification (say, PartialFailure).
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
