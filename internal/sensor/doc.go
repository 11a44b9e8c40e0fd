// Package sensor simulates physical sensors as independent goroutines.
//
// Each Source wraps a Generator (the sensor-specific value policy) in a
// loop that sleeps a randomised interval, synthesises a reading, and
// pushes it onto the hub's reading channel. Sources observe cooperative
// cancellation and never emit a reading after the stop signal.
//
// The Supervisor owns the source goroutines: it launches them, recovers
// panics, restarts crashed sources with exponential backoff, and marks a
// source permanently failed once its restart budget is exhausted.
//
// # Generation Policies
//
//   - temperature: bounded random walk around a configured baseline
//   - light: bounded random walk over a percentage range, scaled down
//     during the simulated night phase of a configurable day cycle
//   - motion: low-probability boolean spike with probabilistic decay
//
// Generators accept an optional fault probability so supervised restart
// and permanent-failure paths can be exercised in simulation.
package sensor
