package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies the recoverable, user-facing failures of the refund
// workflow. These are business conditions, never system faults.
type Kind string

const (
	KindNotEligibleOrder Kind = "NOT_ELIGIBLE_ORDER"
	KindDuplicateRequest Kind = "DUPLICATE_REQUEST"
	KindInvalidReason    Kind = "INVALID_REASON"
	KindInvalidState     Kind = "INVALID_STATE"
	KindInvalidAmount    Kind = "INVALID_AMOUNT"
	KindOfferExpired     Kind = "OFFER_EXPIRED"
	KindNotFound         Kind = "NOT_FOUND"

	// KindTransient marks persistence-layer failures (lock contention,
	// connectivity). Callers may retry these; business errors above must
	// never be retried.
	KindTransient Kind = "TRANSIENT"
)

// Error carries a kind plus a human-readable explanation the UI can
// surface directly.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a business error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a business error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause, keeping the kind and message user-facing.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Transient wraps a persistence failure so callers can distinguish it
// from the business taxonomy and retry.
func Transient(cause error) *Error {
	return &Error{Kind: KindTransient, Message: "temporary storage failure, please retry", cause: cause}
}

// KindOf extracts the kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the user-facing message, or the raw error text for
// errors outside the taxonomy.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
