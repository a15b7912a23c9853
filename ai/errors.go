package ai

import "errors"

var (
	// ErrSchemaViolation is returned when a response does not satisfy the request schema.
	ErrSchemaViolation = errors.New("response violates schema")

	// ErrTransient marks failures worth retrying: rate limits, timeouts, unavailable backends.
	ErrTransient = errors.New("transient inference failure")

	// ErrEmptyResponse is returned when the model produced no usable content.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid ai config")

	// ErrInvalidRequest is returned for requests missing a schema or tool name.
	ErrInvalidRequest = errors.New("invalid inference request")

	// ErrInvalidMaxAttempts is returned when retry attempts is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")
)

// Transient reports whether err should be retried.
func Transient(err error) bool {
	return errors.Is(err, ErrTransient)
}
