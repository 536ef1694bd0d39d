package engine

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable outcome code. Gate denials, validation
// failures, and provider failures each carry a distinct code because each
// has a different retry and user-messaging policy: gate denials are final
// until the data changes, validation failures may be regenerated, provider
// failures may be retried by the caller.
type Code string

const (
	CodeNotEnoughEvents        Code = "not_enough_events"
	CodeNotEnoughDistinctTypes Code = "not_enough_distinct_types"
	CodeInvalidAge             Code = "invalid_age"
	CodeBasePlanNotFound       Code = "base_plan_not_found"
	CodeNoNewEvents            Code = "no_new_events_since_base_plan"
	CodeTranscriptNotFound     Code = "transcript_not_found"
	CodeTranscriptNotAfterBase Code = "transcript_not_after_base_plan"
	CodeInconsistentIDs        Code = "inconsistent_ids"
	CodeServiceUnavailable     Code = "service_unavailable"
	CodeModelError             Code = "model_error"
	CodeValidationFailed       Code = "validation_failed"
)

// Error is a typed engine outcome. Expected failures (gate denials,
// validation failures, provider errors) are returned as *Error values with
// enough diagnostic context for precise user messaging; they are never
// panics and the engine never retries them on its own.
type Error struct {
	Code     Code
	Message  string
	Context  *PlanContext // populated for gate denials
	Attempts int          // populated for provider failures
	err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.err }

// newError builds a typed failure.
func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// wrapError builds a typed failure wrapping an underlying cause.
func wrapError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, err: err}
}

// AsEngineError extracts an *Error from err, or nil.
func AsEngineError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
