package sensor

import "errors"

// Domain errors for the sensor package.
var (
	// ErrSensorFault is an injected simulation fault. The supervisor
	// treats it like any other source crash: restart with backoff.
	ErrSensorFault = errors.New("sensor: simulated fault")

	// ErrNoSources is returned when a supervisor is started with no
	// registered sources.
	ErrNoSources = errors.New("sensor: no sources registered")
)
