package hub

import (
	"fmt"
	"sync"
	"time"
)

// State is the single source of truth for the hub: the latest reading
// per sensor kind, one ActuatorState per actuator kind, the operating
// mode, the manual-override set, and the permanently-failed sensor set.
//
// All mutations go through the controller; monitoring callers only ever
// see deep-copied snapshots. Causally linked updates (apply a rule
// outcome, set an override and its pinned state) happen inside a single
// critical section so a reader never observes a half-applied change.
//
// Invariant: exactly one ActuatorState entry exists per actuator kind at
// all times. A missing entry is corruption and surfaces as
// ErrStateCorrupted.
type State struct {
	mu        sync.RWMutex
	readings  map[SensorKind]Reading
	actuators map[ActuatorKind]ActuatorState
	mode      Mode
	overrides map[ActuatorKind]struct{}
	failed    map[SensorKind]struct{}
}

// NewState creates a State with all actuators off, mode HOME, and no
// readings, overrides, or failed sensors.
func NewState(now time.Time) *State {
	actuators := make(map[ActuatorKind]ActuatorState, len(ActuatorKinds()))
	for _, kind := range ActuatorKinds() {
		actuators[kind] = ActuatorState{Kind: kind, On: false, LastChanged: now}
	}
	return &State{
		readings:  make(map[SensorKind]Reading),
		actuators: actuators,
		mode:      ModeHome,
		overrides: make(map[ActuatorKind]struct{}),
		failed:    make(map[SensorKind]struct{}),
	}
}

// ApplyReading atomically replaces the latest reading for the reading's
// kind. Readings are replaced whole, never mutated in place, so a
// concurrent snapshot can never observe a partially written reading.
func (s *State) ApplyReading(r Reading) {
	s.mu.Lock()
	s.readings[r.Kind] = r
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state. Callers can safely
// retain and mutate the result.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a deep copy. Callers must hold at least a read lock.
func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Readings:  make(map[SensorKind]Reading, len(s.readings)),
		Actuators: make(map[ActuatorKind]ActuatorState, len(s.actuators)),
		Mode:      s.mode,
		Overrides: make(map[ActuatorKind]bool, len(s.overrides)),
		Failed:    make(map[SensorKind]bool, len(s.failed)),
		TakenAt:   time.Now().UTC(),
	}
	for k, r := range s.readings {
		snap.Readings[k] = r
	}
	for k, a := range s.actuators {
		snap.Actuators[k] = a
	}
	for k := range s.overrides {
		snap.Overrides[k] = true
	}
	for k := range s.failed {
		snap.Failed[k] = true
	}
	return snap
}

// ApplyTransitions applies a rule evaluation outcome as one atomic
// critical section.
//
// Transitions for actuators under manual override are suppressed;
// transitions whose desired state matches the current state are no-ops.
// Both are reported so the controller can log them distinctly.
//
// Parameters:
//   - transitions: desired absolute states from one evaluation pass
//   - now: timestamp recorded on each changed actuator
//
// Returns:
//   - applied: transitions that changed an actuator, in input order
//   - suppressed: transitions skipped because of an active override
//   - error: ErrStateCorrupted if an actuator entry is missing
func (s *State) ApplyTransitions(transitions []Transition, now time.Time) (applied, suppressed []Transition, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range transitions {
		current, ok := s.actuators[t.Actuator]
		if !ok {
			return applied, suppressed, fmt.Errorf("%w: no entry for actuator %q", ErrStateCorrupted, t.Actuator)
		}
		if _, pinned := s.overrides[t.Actuator]; pinned {
			if current.On != t.On {
				suppressed = append(suppressed, t)
			}
			continue
		}
		if current.On == t.On {
			continue // rule no-op
		}
		s.actuators[t.Actuator] = ActuatorState{Kind: t.Actuator, On: t.On, LastChanged: now}
		applied = append(applied, t)
	}
	return applied, suppressed, nil
}

// SetOverride pins an actuator kind and applies the desired state in the
// same critical section, so a concurrent rule application can never
// overwrite a just-issued override.
//
// Returns:
//   - changed: true if the actuator's on-state actually changed
//   - error: ErrUnknownActuator for an unsupported kind
func (s *State) SetOverride(kind ActuatorKind, on bool, now time.Time) (changed bool, err error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownActuator, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.actuators[kind]
	if !ok {
		return false, fmt.Errorf("%w: no entry for actuator %q", ErrStateCorrupted, kind)
	}
	s.overrides[kind] = struct{}{}
	if current.On != on {
		s.actuators[kind] = ActuatorState{Kind: kind, On: on, LastChanged: now}
		changed = true
	}
	return changed, nil
}

// ClearOverride unpins an actuator kind. The actuator keeps its current
// state; rule-driven control resumes on the next evaluation pass.
//
// Returns:
//   - cleared: true if an override was active for the kind
//   - error: ErrUnknownActuator for an unsupported kind
func (s *State) ClearOverride(kind ActuatorKind) (cleared bool, err error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownActuator, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, active := s.overrides[kind]
	delete(s.overrides, kind)
	return active, nil
}

// SetMode sets the operating mode.
//
// Returns:
//   - changed: true if the mode differed from the current one
//   - error: ErrUnknownMode for an unsupported mode
func (s *State) SetMode(mode Mode) (changed bool, err error) {
	if !mode.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == mode {
		return false, nil
	}
	s.mode = mode
	return true, nil
}

// MarkSensorFailed records a sensor kind as permanently failed and
// withdraws its latest reading, excluding the kind from further rule
// evaluation.
func (s *State) MarkSensorFailed(kind SensorKind) {
	s.mu.Lock()
	s.failed[kind] = struct{}{}
	delete(s.readings, kind)
	s.mu.Unlock()
}

// Actuator returns the current state of one actuator.
func (s *State) Actuator(kind ActuatorKind) (ActuatorState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actuators[kind]
	return a, ok
}

// Overridden reports whether an actuator kind is currently pinned.
func (s *State) Overridden(kind ActuatorKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.overrides[kind]
	return ok
}
