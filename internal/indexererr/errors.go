// Package indexererr defines the typed error taxonomy surfaced across the
// ingestion and derivation pipeline (component C10). Callers that need to
// branch on failure kind should use errors.As against *Error and switch on
// Code, rather than matching error strings.
package indexererr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure understood by the API boundary.
type Code string

const (
	// ChainUnavailable means an RPC endpoint was unreachable after retries.
	// A Periodic Resync pass that returns it is logged and the next
	// scheduled pass tries again; a Historical Sync backfill that returns
	// it ends the chain's runner, and Backfill is not retried.
	ChainUnavailable Code = "CHAIN_UNAVAILABLE"

	// EventProcessingFailed means an unrecoverable error occurred while
	// handling a single log. The event row remains in the log; the
	// processor stops its drain at that event without advancing its
	// cursor, so the next drain tries the same event again.
	EventProcessingFailed Code = "EVENT_PROCESSING_FAILED"

	// InvalidEventData means a handler's shape guard rejected eventData.
	// The event is logged, skipped, and the cursor still advances.
	InvalidEventData Code = "INVALID_EVENT_DATA"

	// DatabaseOperationFailed wraps a storage engine error. The affected
	// per-event transaction is rolled back.
	DatabaseOperationFailed Code = "DATABASE_OPERATION_FAILED"

	// IntegrityViolation means a DeleteBid/ContractAdded/ContractUpdated
	// event arrived without its prerequisite row. Logged and reported; the
	// processor stops its drain at that event without advancing its
	// cursor, as for EventProcessingFailed.
	IntegrityViolation Code = "INTEGRITY_VIOLATION"
)

// Error is the concrete type carried across the core/API boundary. Fields
// is a flat set of structured context (chain, tx hash, event name, ...)
// suitable for passing straight to a structured logger.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an *Error with no wrapped cause.
func New(code Code, message string, fields map[string]any) *Error {
	return &Error{Code: code, Message: message, Fields: fields}
}

// Wrap constructs an *Error around an existing cause.
func Wrap(code Code, message string, cause error, fields map[string]any) *Error {
	return &Error{Code: code, Message: message, Fields: fields, cause: cause}
}

// Is reports whether the first *Error in err's chain carries the given
// Code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the Code from err, returning "" if err is not (or does
// not wrap) an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
