package hub

import (
	"errors"
	"fmt"
)

// Domain errors for the hub package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, hub.ErrChannelClosed) {
//	    // shut down the producer loop
//	}
var (
	// ErrChannelClosed is returned by Send and Receive once the reading
	// channel has been closed (and, for Receive, fully drained).
	ErrChannelClosed = errors.New("hub: reading channel closed")

	// ErrInvalidReading is returned when a reading is malformed or out of
	// range. Such readings are discarded and logged, never applied.
	ErrInvalidReading = errors.New("hub: invalid reading")

	// ErrUnknownActuator is returned when an operation names an actuator
	// kind that does not exist.
	ErrUnknownActuator = errors.New("hub: unknown actuator kind")

	// ErrUnknownMode is returned when an operation names an operating mode
	// that does not exist.
	ErrUnknownMode = errors.New("hub: unknown mode")

	// ErrNotRunning is returned by mutator accessors when the controller
	// is not in the running phase.
	ErrNotRunning = errors.New("hub: controller not running")

	// ErrStateCorrupted indicates a synchronisation invariant violation
	// (e.g. a missing actuator entry). This is fatal: the controller halts
	// rather than continue with corrupted state.
	ErrStateCorrupted = errors.New("hub: state invariant violated")
)

// errInvalidf wraps ErrInvalidReading with detail.
func errInvalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidReading, fmt.Sprintf(format, args...))
}
