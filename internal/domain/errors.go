package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedMetadata means a file name did not yield a usable
	// (broker, period) identity. Recoverable by renaming the file.
	ErrUnresolvedMetadata = errors.New("unresolved metadata")

	// ErrDuplicateKey is the storage-level rejection of a uniqueness
	// violation. The duplicate detector should have prevented it; seeing it
	// is an anomaly worth logging, not a normal outcome.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnknownBroker means no parser is registered for a broker.
	ErrUnknownBroker = errors.New("unknown broker")

	// ErrInvalidTransition is returned for status updates that would skip
	// or regress lifecycle states.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned by read paths when no report matches.
	ErrNotFound = errors.New("report not found")
)

// ParseError carries the diagnostic from a failed payload extraction.
type ParseError struct {
	Broker string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s statement: %s", e.Broker, e.Reason)
}

// NewParseError builds a ParseError with a formatted diagnostic.
func NewParseError(broker, format string, args ...any) *ParseError {
	return &ParseError{Broker: broker, Reason: fmt.Sprintf(format, args...)}
}
