// Package exploration holds the error taxonomy shared by the exploration pipeline.
package exploration

import "errors"

var (
	// ErrProvider is a completion provider failure: network, timeout or non-2xx.
	ErrProvider = errors.New("completion provider failed")
	// ErrMalformedOutput means the provider answered with text that does not match the stage schema.
	ErrMalformedOutput = errors.New("malformed AI output")
	// ErrConstraintViolation means a parsed stage result broke a pipeline contract.
	ErrConstraintViolation = errors.New("stage output violates pipeline constraints")
	// ErrPrecondition is an illegal operation for the current session state or cache content.
	ErrPrecondition = errors.New("precondition violation")
	// ErrNotFound is an unknown session, option, version or template.
	ErrNotFound = errors.New("not found")
	// ErrFixLimitExceeded is returned once a preview used up its repair attempts.
	ErrFixLimitExceeded = errors.New("fix attempt limit exceeded")
	// ErrCacheMiss is returned when a preview entry is missing or expired.
	ErrCacheMiss = errors.New("preview cache miss")
)

// IsRetryable reports whether the caller may try the same request again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProvider) || errors.Is(err, ErrMalformedOutput)
}
