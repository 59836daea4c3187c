package session

import "errors"

// configurationError signals that no model id could be resolved. Fatal to
// the calling operation, never retried.
type configurationError struct{ msg string }

func (e configurationError) Error() string { return "configuration error: " + e.msg }

// ErrConfiguration constructs a configurationError.
func ErrConfiguration(msg string) error { return configurationError{msg: msg} }

// IsConfiguration reports whether err is a configuration error (map to 400).
func IsConfiguration(err error) bool {
	var e configurationError
	return errors.As(err, &e)
}

// modelUnknownError signals a requested model id absent from the catalog
// so the HTTP layer can return 404.
type modelUnknownError struct{ id string }

func (e modelUnknownError) Error() string { return "model not found: " + e.id }

// ErrModelUnknown constructs a modelUnknownError.
func ErrModelUnknown(id string) error { return modelUnknownError{id: id} }

// IsModelUnknown reports whether err indicates a missing model id.
func IsModelUnknown(err error) bool {
	var e modelUnknownError
	return errors.As(err, &e)
}

// initializationError signals that the backend failed to load weights while
// creating the engine handle.
type initializationError struct {
	model string
	err   error
}

func (e initializationError) Error() string {
	return "initialization failed for " + e.model + ": " + e.err.Error()
}
func (e initializationError) Unwrap() error { return e.err }

// IsInitialization reports whether err came from a failed engine creation.
func IsInitialization(err error) bool {
	var e initializationError
	return errors.As(err, &e)
}

// reloadError signals that the backend failed to switch weights on an
// existing handle.
type reloadError struct {
	model string
	err   error
}

func (e reloadError) Error() string {
	return "reload failed for " + e.model + ": " + e.err.Error()
}
func (e reloadError) Unwrap() error { return e.err }

// IsReload reports whether err came from a failed model switch.
func IsReload(err error) bool {
	var e reloadError
	return errors.As(err, &e)
}

// generationError signals that the backend failed during a completion call
// after all allowed attempts.
type generationError struct {
	model string
	err   error
}

func (e generationError) Error() string {
	return "generation failed for " + e.model + ": " + e.err.Error()
}
func (e generationError) Unwrap() error { return e.err }

// IsGeneration reports whether err came from an exhausted completion call.
func IsGeneration(err error) bool {
	var e generationError
	return errors.As(err, &e)
}
