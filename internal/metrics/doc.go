// Package metrics exposes the hub's Prometheus instrumentation.
//
// Metrics satisfies the controller's instrumentation hook and owns a
// dedicated Prometheus registry, so the monitoring API can serve the
// standard /metrics endpoint without touching the global default
// registry. Go runtime and process collectors are registered alongside
// the hub-specific series.
package metrics
