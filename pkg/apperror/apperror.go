package apperror

import "errors"

var (
	// ErrMalformedEvent marks an event record that matches neither
	// lifecycle shape. Upstream misuse, not a runtime condition.
	ErrMalformedEvent = errors.New("malformed lifecycle event")

	// ErrContractViolation marks a recognized input missing a field its
	// shape requires.
	ErrContractViolation = errors.New("event contract violation")

	// ErrUnknownListener is returned when an event references a listener
	// that was never registered.
	ErrUnknownListener = errors.New("unknown listener ref")
)
