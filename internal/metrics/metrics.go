package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hearthlab/hearth-core/internal/hub"
)

const namespace = "hearth"

// Metrics holds every Prometheus series the hub reports into. It
// implements the controller's instrumentation interface.
type Metrics struct {
	registry *prometheus.Registry

	readingsProcessed *prometheus.CounterVec
	readingsRejected  *prometheus.CounterVec
	readingsDropped   *prometheus.CounterVec

	transitionsApplied    *prometheus.CounterVec
	transitionsSuppressed *prometheus.CounterVec

	sensorRestarts *prometheus.CounterVec
	sensorFailures *prometheus.CounterVec

	channelDepth prometheus.Gauge
}

// New creates the metric set on a fresh registry with Go runtime and
// process collectors attached.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		readingsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readings",
				Name:      "processed_total",
				Help:      "Readings accepted and applied to hub state",
			},
			[]string{"sensor"},
		),

		readingsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readings",
				Name:      "rejected_total",
				Help:      "Readings discarded by validation",
			},
			[]string{"sensor"},
		),

		readingsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readings",
				Name:      "dropped_total",
				Help:      "Readings evicted under channel backpressure",
			},
			[]string{"sensor"},
		),

		transitionsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transitions",
				Name:      "applied_total",
				Help:      "Actuator transitions applied by the rule engine",
			},
			[]string{"actuator", "rule"},
		),

		transitionsSuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transitions",
				Name:      "suppressed_total",
				Help:      "Rule transitions suppressed by manual overrides",
			},
			[]string{"actuator", "rule"},
		),

		sensorRestarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sensors",
				Name:      "restarts_total",
				Help:      "Supervised restarts of crashed sensor sources",
			},
			[]string{"sensor"},
		),

		sensorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sensors",
				Name:      "failures_total",
				Help:      "Sensor sources marked permanently failed",
			},
			[]string{"sensor"},
		),

		channelDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "depth",
				Help:      "Readings currently buffered between sensors and the controller",
			},
		),
	}

	m.registry.MustRegister(
		m.readingsProcessed,
		m.readingsRejected,
		m.readingsDropped,
		m.transitionsApplied,
		m.transitionsSuppressed,
		m.sensorRestarts,
		m.sensorFailures,
		m.channelDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry for the /metrics
// handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ReadingProcessed implements hub.Metrics.
func (m *Metrics) ReadingProcessed(kind hub.SensorKind) {
	m.readingsProcessed.WithLabelValues(string(kind)).Inc()
}

// ReadingRejected implements hub.Metrics.
func (m *Metrics) ReadingRejected(kind hub.SensorKind) {
	m.readingsRejected.WithLabelValues(string(kind)).Inc()
}

// ReadingDropped implements hub.Metrics.
func (m *Metrics) ReadingDropped(kind hub.SensorKind) {
	m.readingsDropped.WithLabelValues(string(kind)).Inc()
}

// TransitionApplied implements hub.Metrics.
func (m *Metrics) TransitionApplied(t hub.Transition) {
	m.transitionsApplied.WithLabelValues(string(t.Actuator), t.Rule).Inc()
}

// TransitionSuppressed implements hub.Metrics.
func (m *Metrics) TransitionSuppressed(t hub.Transition) {
	m.transitionsSuppressed.WithLabelValues(string(t.Actuator), t.Rule).Inc()
}

// SensorRestarted implements hub.Metrics.
func (m *Metrics) SensorRestarted(kind hub.SensorKind) {
	m.sensorRestarts.WithLabelValues(string(kind)).Inc()
}

// SensorFailed implements hub.Metrics.
func (m *Metrics) SensorFailed(kind hub.SensorKind) {
	m.sensorFailures.WithLabelValues(string(kind)).Inc()
}

// ChannelDepth implements hub.Metrics.
func (m *Metrics) ChannelDepth(depth int) {
	m.channelDepth.Set(float64(depth))
}
