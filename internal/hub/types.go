package hub

import (
	"time"
)

// SensorKind identifies a class of simulated sensor.
type SensorKind string

// Supported sensor kinds.
const (
	SensorTemperature SensorKind = "temperature"
	SensorLight       SensorKind = "light"
	SensorMotion      SensorKind = "motion"
)

// SensorKinds returns all sensor kinds in stable order.
func SensorKinds() []SensorKind {
	return []SensorKind{SensorTemperature, SensorLight, SensorMotion}
}

// Valid reports whether the sensor kind is one of the supported kinds.
func (k SensorKind) Valid() bool {
	switch k {
	case SensorTemperature, SensorLight, SensorMotion:
		return true
	default:
		return false
	}
}

// ActuatorKind identifies a controllable device.
type ActuatorKind string

// Supported actuator kinds.
const (
	ActuatorHeating ActuatorKind = "heating"
	ActuatorLights  ActuatorKind = "lights"
	ActuatorAlarm   ActuatorKind = "alarm"
)

// ActuatorKinds returns all actuator kinds in stable order. Transition
// application and event emission follow this order within a single
// evaluation pass.
func ActuatorKinds() []ActuatorKind {
	return []ActuatorKind{ActuatorHeating, ActuatorLights, ActuatorAlarm}
}

// Valid reports whether the actuator kind is one of the supported kinds.
func (k ActuatorKind) Valid() bool {
	switch k {
	case ActuatorHeating, ActuatorLights, ActuatorAlarm:
		return true
	default:
		return false
	}
}

// Mode is the hub operating mode.
type Mode string

// Operating modes.
const (
	ModeHome Mode = "home"
	ModeAway Mode = "away"
)

// Valid reports whether the mode is one of the supported modes.
func (m Mode) Valid() bool {
	return m == ModeHome || m == ModeAway
}

// Reading is one timestamped sensor observation. It is immutable once
// created: produced by exactly one sensor source and consumed exactly
// once by the controller.
//
// Value semantics by kind:
//   - temperature: degrees Celsius
//   - light: ambient level as a percentage (0-100)
//   - motion: 1 for motion detected, 0 for idle
type Reading struct {
	Kind      SensorKind `json:"kind"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}

// MotionDetected reports whether a motion reading registered movement.
// Always false for non-motion kinds.
func (r Reading) MotionDetected() bool {
	return r.Kind == SensorMotion && r.Value >= 1
}

// Validation bounds for incoming readings. Values outside these ranges
// are treated as transient data errors: discarded and logged, never fatal.
const (
	minTemperature = -40.0
	maxTemperature = 60.0
	minLightLevel  = 0.0
	maxLightLevel  = 100.0
)

// Validate checks a reading for structural and range errors.
//
// Returns:
//   - error: ErrInvalidReading (wrapped with detail) if the reading is
//     malformed or out of range, nil otherwise
func (r Reading) Validate() error {
	if !r.Kind.Valid() {
		return errInvalidf("unknown sensor kind %q", string(r.Kind))
	}
	if r.Timestamp.IsZero() {
		return errInvalidf("%s reading has zero timestamp", r.Kind)
	}
	switch r.Kind {
	case SensorTemperature:
		if r.Value < minTemperature || r.Value > maxTemperature {
			return errInvalidf("temperature %.1f outside [%.0f, %.0f]", r.Value, minTemperature, maxTemperature)
		}
	case SensorLight:
		if r.Value < minLightLevel || r.Value > maxLightLevel {
			return errInvalidf("light level %.1f outside [%.0f, %.0f]", r.Value, minLightLevel, maxLightLevel)
		}
	case SensorMotion:
		if r.Value != 0 && r.Value != 1 {
			return errInvalidf("motion value %.1f is not 0 or 1", r.Value)
		}
	}
	return nil
}

// ActuatorState is the current state of one controllable device.
// It is mutated only by the controller applying rule decisions or an
// explicit manual override.
type ActuatorState struct {
	Kind        ActuatorKind `json:"kind"`
	On          bool         `json:"on"`
	LastChanged time.Time    `json:"last_changed"`
}

// Transition is one desired actuator change produced by a rule
// evaluation pass. Transitions carry an absolute desired state, so
// applying the same transition twice is a no-op the second time.
type Transition struct {
	Actuator ActuatorKind `json:"actuator"`
	On       bool         `json:"on"`
	Rule     string       `json:"rule"`
}

// EventCategory classifies hub events.
type EventCategory string

// Event categories emitted by the controller.
const (
	EventSensorUpdate    EventCategory = "SENSOR_UPDATE"
	EventRuleFired       EventCategory = "RULE_FIRED"
	EventActuatorChanged EventCategory = "ACTUATOR_CHANGED"
	EventManualOverride  EventCategory = "MANUAL_OVERRIDE"
	EventReadingDropped  EventCategory = "READING_DROPPED"
	EventReadingRejected EventCategory = "READING_REJECTED"
	EventSensorFailed    EventCategory = "SENSOR_FAILED"
	EventSensorRestarted EventCategory = "SENSOR_RESTARTED"
	EventModeChanged     EventCategory = "MODE_CHANGED"
)

// Event is a structured record of something the hub did or observed.
// Events are immutable, created only by the controller, and forwarded
// once to the event sink.
//
// Reading, Actuator, and Rule are optional structured payloads:
// SENSOR_UPDATE events carry the reading that triggered them,
// ACTUATOR_CHANGED events carry the resulting actuator state and the
// rule that caused it ("manual" for overrides). Forwarders (telemetry,
// dashboards) use these instead of parsing Message.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Category  EventCategory  `json:"category"`
	Message   string         `json:"message"`
	Reading   *Reading       `json:"reading,omitempty"`
	Actuator  *ActuatorState `json:"actuator,omitempty"`
	Rule      string         `json:"rule,omitempty"`
}

// Snapshot is a deep, read-only copy of the hub state at one instant.
// Mutating a snapshot never affects the live state.
type Snapshot struct {
	Readings  map[SensorKind]Reading         `json:"readings"`
	Actuators map[ActuatorKind]ActuatorState `json:"actuators"`
	Mode      Mode                           `json:"mode"`
	Overrides map[ActuatorKind]bool          `json:"overrides"`
	Failed    map[SensorKind]bool            `json:"failed_sensors"`
	TakenAt   time.Time                      `json:"taken_at"`
}

// Reading returns the latest reading for a kind, treating permanently
// failed sensors as absent. This is the accessor rule evaluation uses.
func (s Snapshot) Reading(kind SensorKind) (Reading, bool) {
	if s.Failed[kind] {
		return Reading{}, false
	}
	r, ok := s.Readings[kind]
	return r, ok
}
