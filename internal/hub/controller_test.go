package hub

import (
	"context"
	"sync"
	"testing"
	"time"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockSink captures all recorded events.
type mockSink struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockSink) Record(e Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

func (m *mockSink) byCategory(cat EventCategory) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// newTestController builds a running controller with no sensor sources;
// tests feed the channel directly.
func newTestController(t *testing.T, sink Sink) (*Controller, *ReadingChannel) {
	t.Helper()
	state := NewState(time.Now().UTC())
	ch := NewReadingChannel(16, 50*time.Millisecond, DropOldest)
	engine := NewRuleEngine(testThresholds())
	c := NewController(state, ch, engine, sink)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(c.Stop)
	return c, ch
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestController_AppliesReadingAndRule(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	// Temperature 15 with low threshold 18: heating must come on.
	if err := ch.Send(reading(SensorTemperature, 15.0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return c.GetSnapshot().Actuators[ActuatorHeating].On
	}, "heating never switched on")

	if got := c.GetSnapshot().Readings[SensorTemperature].Value; got != 15.0 {
		t.Errorf("latest temperature = %.1f, want 15.0", got)
	}
	if events := sink.byCategory(EventActuatorChanged); len(events) == 0 {
		t.Error("no ACTUATOR_CHANGED event emitted")
	}
	if events := sink.byCategory(EventRuleFired); len(events) == 0 {
		t.Error("no RULE_FIRED event emitted")
	}
}

func TestController_RuleNoOpEmitsNoActuatorEvent(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	// Two consecutive cold readings: the second pass proposes heating on
	// again, which is a no-op and must not emit another change event.
	for i := 0; i < 2; i++ {
		if err := ch.Send(reading(SensorTemperature, 15.0)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	waitFor(t, time.Second, func() bool {
		return len(sink.byCategory(EventSensorUpdate)) == 2
	}, "readings not processed")

	if got := len(sink.byCategory(EventActuatorChanged)); got != 1 {
		t.Errorf("ACTUATOR_CHANGED events = %d, want 1", got)
	}
	_ = c
}

func TestController_LightsScenario(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	// light=10%, motion=true, dark threshold 30%: lights on.
	if err := ch.Send(reading(SensorLight, 10.0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := ch.Send(reading(SensorMotion, 1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return c.GetSnapshot().Actuators[ActuatorLights].On
	}, "lights never switched on")
}

func TestController_AlarmLatchesAcrossMotionCeasing(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	if err := c.SetMode(ModeAway); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if err := ch.Send(reading(SensorMotion, 1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.GetSnapshot().Actuators[ActuatorAlarm].On
	}, "alarm never triggered")

	// Motion ceases; the alarm must stay on.
	if err := ch.Send(reading(SensorMotion, 0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return len(sink.byCategory(EventSensorUpdate)) == 2
	}, "second motion reading not processed")

	if !c.GetSnapshot().Actuators[ActuatorAlarm].On {
		t.Error("alarm self-cleared when motion ceased")
	}

	// Returning home does not clear it either; only a manual clear does.
	if err := c.SetMode(ModeHome); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if !c.GetSnapshot().Actuators[ActuatorAlarm].On {
		t.Error("alarm cleared by mode change")
	}
	if err := c.SetOverride(ActuatorAlarm, false); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}
	if c.GetSnapshot().Actuators[ActuatorAlarm].On {
		t.Error("manual clear did not turn alarm off")
	}
}

func TestController_OverrideSuppressesRules(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	if err := c.SetOverride(ActuatorLights, false); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}
	if got := len(sink.byCategory(EventManualOverride)); got != 1 {
		t.Errorf("MANUAL_OVERRIDE events = %d, want 1", got)
	}

	// Conditions that would switch lights on.
	if err := ch.Send(reading(SensorLight, 10.0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := ch.Send(reading(SensorMotion, 1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return len(sink.byCategory(EventSensorUpdate)) == 2
	}, "readings not processed")

	if c.GetSnapshot().Actuators[ActuatorLights].On {
		t.Error("rule changed an overridden actuator")
	}

	// Clear and re-trigger: rule control resumes.
	if err := c.ClearOverride(ActuatorLights); err != nil {
		t.Fatalf("ClearOverride() error = %v", err)
	}
	if err := ch.Send(reading(SensorMotion, 1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.GetSnapshot().Actuators[ActuatorLights].On
	}, "rule control not restored after override clear")
}

func TestController_MalformedReadingDiscarded(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	if err := ch.Send(Reading{Kind: SensorTemperature, Value: 500.0, Timestamp: time.Now().UTC()}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return len(sink.byCategory(EventReadingRejected)) == 1
	}, "no READING_REJECTED event")

	if _, ok := c.GetSnapshot().Readings[SensorTemperature]; ok {
		t.Error("malformed reading applied to state")
	}
	if err := c.Err(); err != nil {
		t.Errorf("malformed reading treated as fatal: %v", err)
	}
}

func TestController_DropEventEmitted(t *testing.T) {
	sink := &mockSink{}
	state := NewState(time.Now().UTC())
	ch := NewReadingChannel(1, time.Millisecond, DropOldest)
	c := NewController(state, ch, NewRuleEngine(testThresholds()), sink)
	// Not started: nothing consumes, so the buffer saturates immediately.

	for i := 0; i < 3; i++ {
		if err := ch.Send(reading(SensorLight, float64(i))); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	if got := len(sink.byCategory(EventReadingDropped)); got != 2 {
		t.Errorf("READING_DROPPED events = %d, want 2", got)
	}
	_ = c
}

func TestController_SensorFailureNotifications(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	if err := ch.Send(reading(SensorMotion, 1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return len(sink.byCategory(EventSensorUpdate)) == 1
	}, "reading not processed")

	c.NotifySensorRestarted(SensorMotion, 1, time.Second)
	c.NotifySensorFailed(SensorMotion, ErrInvalidReading)

	if got := len(sink.byCategory(EventSensorRestarted)); got != 1 {
		t.Errorf("SENSOR_RESTARTED events = %d, want 1", got)
	}
	if got := len(sink.byCategory(EventSensorFailed)); got != 1 {
		t.Errorf("SENSOR_FAILED events = %d, want 1", got)
	}
	snap := c.GetSnapshot()
	if !snap.Failed[SensorMotion] {
		t.Error("sensor not marked failed in snapshot")
	}
	if _, ok := snap.Readings[SensorMotion]; ok {
		t.Error("failed sensor's reading still present")
	}
}

func TestController_StopIsIdempotentAndFreezesSnapshot(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	if err := ch.Send(reading(SensorTemperature, 15.0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.GetSnapshot().Actuators[ActuatorHeating].On
	}, "heating never switched on")

	c.Stop()
	c.Stop() // must be safe to invoke again

	if got := c.Phase(); got != PhaseStopped {
		t.Errorf("Phase() = %s, want stopped", got)
	}

	// Mutations are rejected after stop; reads return the frozen snapshot.
	if err := c.SetOverride(ActuatorLights, true); err != ErrNotRunning {
		t.Errorf("SetOverride() after stop error = %v, want ErrNotRunning", err)
	}
	if err := c.SetMode(ModeAway); err != ErrNotRunning {
		t.Errorf("SetMode() after stop error = %v, want ErrNotRunning", err)
	}
	snap := c.GetSnapshot()
	if !snap.Actuators[ActuatorHeating].On {
		t.Error("frozen snapshot lost actuator state")
	}
}

// Shutdown drains buffered readings before the loop exits: nothing sent
// before Stop is silently discarded.
func TestController_StopDrainsChannel(t *testing.T) {
	sink := &mockSink{}
	c, ch := newTestController(t, sink)

	for i := 0; i < 5; i++ {
		if err := ch.Send(reading(SensorLight, float64(20+i))); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	c.Stop()

	if got := len(sink.byCategory(EventSensorUpdate)); got != 5 {
		t.Errorf("processed %d readings before stop completed, want 5", got)
	}
	if got := c.GetSnapshot().Readings[SensorLight].Value; got != 24.0 {
		t.Errorf("frozen light reading = %.1f, want 24.0 (last sent)", got)
	}
}
