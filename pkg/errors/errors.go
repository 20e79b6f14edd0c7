package errors

import (
	"errors"
	"fmt"
)

// ErrNoCDCSegments indicates an eviction was requested while the CDC directory
// holds no linked segment files. Reaching this in non-blocking overflow relief
// means the subsystem believes it is over budget with no CDC data on disk,
// which is an invariant violation rather than a transient condition.
var ErrNoCDCSegments = errors.New("there should be at least 1 cdc commit log segment")

// CDCWriteError is the rejection returned for a CDC-tracked mutation while the
// active segment forbids CDC writes. It is the only failure mode the admission
// policy adds; everything else propagates unchanged from the allocation path.
type CDCWriteError struct {
	Keyspace     string // Keyspace of the rejected mutation.
	CDCDirectory string // Directory operators must drain to restore headroom.
}

// NewCDCWriteError creates a CDCWriteError for the given keyspace.
func NewCDCWriteError(keyspace, cdcDirectory string) *CDCWriteError {
	return &CDCWriteError{Keyspace: keyspace, CDCDirectory: cdcDirectory}
}

// Error implements the error interface. The message carries the remediation
// hint surfaced to clients.
func (e *CDCWriteError) Error() string {
	return fmt.Sprintf(
		"rejecting mutation to keyspace %s. Free up space in %s by processing CDC logs",
		e.Keyspace, e.CDCDirectory,
	)
}

// IsCDCWriteError checks if a given error is of type CDCWriteError.
func IsCDCWriteError(err error) bool {
	var ce *CDCWriteError
	return errors.As(err, &ce)
}

// AsCDCWriteError attempts to extract a CDCWriteError from a given error.
func AsCDCWriteError(err error) *CDCWriteError {
	var ce *CDCWriteError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}
