package llm

import "errors"

var (
	// ErrMisconfigured indicates required provider configuration is absent
	// or invalid. Surfaces before any network call is attempted, so callers
	// can map it to a service-unavailable condition.
	ErrMisconfigured = errors.New("llm provider misconfigured")

	// ErrUnavailable indicates the provider endpoint is unreachable.
	ErrUnavailable = errors.New("llm provider unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput indicates the response could not be parsed into the
	// expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)

// CallError is the final failure of a generation call, carrying how many
// attempts were made so callers can report the count without parsing the
// message. It wraps one of the sentinel errors above.
type CallError struct {
	Err      error
	Attempts int
}

func (e *CallError) Error() string { return e.Err.Error() }
func (e *CallError) Unwrap() error { return e.Err }

// AttemptCount reports the attempts recorded on a failed call, or 0 when
// the error carries none.
func AttemptCount(err error) int {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Attempts
	}
	return 0
}

// transientError marks an error as retryable (rate limits, 5xx, network).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps an error as retryable.
func Transient(err error) error { return &transientError{err: err} }

// fatalError marks an error as permanent (auth failures, bad requests).
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal wraps an error as non-retryable.
func Fatal(err error) error { return &fatalError{err: err} }

// IsTransient reports whether the error should be retried.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// IsFatal reports whether the error is permanent.
func IsFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}
