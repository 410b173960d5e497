package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a missing session, membership, or pointer. It is an
// expected condition and maps to unauthenticated responses, never to 500s.
var ErrNotFound = errors.New("not found")

// ValidationError marks a bad or forged OAuth callback or webhook request.
// It is surfaced as an authentication failure and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// StorageError wraps a backing-store read or write failure. Callers must
// treat it as fatal for the in-flight request.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// UpstreamError wraps a failed outbound call to the platform. Fatal for
// token exchange, log-and-continue for webhook registration.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("upstream %s failed: status %d", e.Op, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
