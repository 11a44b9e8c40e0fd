package hub

// Thresholds holds the externally configured rule thresholds. Parsed
// once at startup and passed by value; the hot loop never re-reads
// configuration.
type Thresholds struct {
	// TemperatureLow: below this, heating is desired on.
	TemperatureLow float64
	// TemperatureHigh: at or above this, heating is desired off.
	TemperatureHigh float64
	// LightDark: below this light percentage the room counts as dark.
	LightDark float64
}

// Rule names, recorded on transitions and in RULE_FIRED events.
const (
	RuleTemperatureLow  = "temperature_low"
	RuleTemperatureHigh = "temperature_high"
	RuleMotionDark      = "motion_dark"
	RuleBrightIdle      = "bright_idle"
	RuleAwayIntrusion   = "away_intrusion"
)

// RuleEngine maps a state snapshot to a list of desired actuator
// transitions. It is a pure function of the snapshot: no side effects,
// no I/O, deterministic for identical input. That determinism is what
// makes it testable in isolation.
//
// Rules:
//   - temperature < low threshold → HEATING on
//   - temperature ≥ high threshold → HEATING off
//   - motion detected AND light < dark threshold → LIGHTS on
//   - no motion AND light ≥ dark threshold → LIGHTS off
//   - motion detected AND mode AWAY → ALARM on
//
// The alarm has no off rule: once set by the away-intrusion rule it
// stays on until a manual override clears it. When several rules target
// the same actuator in one pass, on wins over off (fail safe towards the
// protective state). Readings from permanently failed sensors are
// treated as absent.
type RuleEngine struct {
	thresholds Thresholds
}

// NewRuleEngine creates a rule engine with the given thresholds.
func NewRuleEngine(t Thresholds) *RuleEngine {
	return &RuleEngine{thresholds: t}
}

// Evaluate runs one rule evaluation pass against a snapshot.
//
// Returns:
//   - []Transition: desired absolute actuator states, at most one per
//     actuator, ordered heating, lights, alarm
func (e *RuleEngine) Evaluate(snap Snapshot) []Transition {
	desired := make(map[ActuatorKind]Transition, len(ActuatorKinds()))

	temp, hasTemp := snap.Reading(SensorTemperature)
	light, hasLight := snap.Reading(SensorLight)
	motion, hasMotion := snap.Reading(SensorMotion)
	motionDetected := hasMotion && motion.MotionDetected()

	if hasTemp {
		switch {
		case temp.Value < e.thresholds.TemperatureLow:
			propose(desired, Transition{Actuator: ActuatorHeating, On: true, Rule: RuleTemperatureLow})
		case temp.Value >= e.thresholds.TemperatureHigh:
			propose(desired, Transition{Actuator: ActuatorHeating, On: false, Rule: RuleTemperatureHigh})
		}
	}

	if motionDetected && hasLight && light.Value < e.thresholds.LightDark {
		propose(desired, Transition{Actuator: ActuatorLights, On: true, Rule: RuleMotionDark})
	}
	if !motionDetected && hasLight && light.Value >= e.thresholds.LightDark {
		propose(desired, Transition{Actuator: ActuatorLights, On: false, Rule: RuleBrightIdle})
	}

	if motionDetected && snap.Mode == ModeAway {
		propose(desired, Transition{Actuator: ActuatorAlarm, On: true, Rule: RuleAwayIntrusion})
	}

	transitions := make([]Transition, 0, len(desired))
	for _, kind := range ActuatorKinds() {
		if t, ok := desired[kind]; ok {
			transitions = append(transitions, t)
		}
	}
	return transitions
}

// propose merges a transition into the desired set with on-wins
// precedence: an off proposal never displaces an on proposal for the
// same actuator within one pass.
func propose(desired map[ActuatorKind]Transition, t Transition) {
	if prev, ok := desired[t.Actuator]; ok && prev.On && !t.On {
		return
	}
	desired[t.Actuator] = t
}
