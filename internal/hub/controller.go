package hub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the hub package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives structured event records. Record must not block the
// controller indefinitely; the eventlog package provides an async
// implementation with a bounded hand-off.
type Sink interface {
	Record(e Event)
}

// noopSink discards events.
type noopSink struct{}

func (noopSink) Record(Event) {}

// Metrics is the instrumentation hook the controller and channel report
// into. The metrics package provides a Prometheus-backed implementation.
type Metrics interface {
	ReadingProcessed(kind SensorKind)
	ReadingRejected(kind SensorKind)
	ReadingDropped(kind SensorKind)
	TransitionApplied(t Transition)
	TransitionSuppressed(t Transition)
	SensorRestarted(kind SensorKind)
	SensorFailed(kind SensorKind)
	ChannelDepth(depth int)
}

// noopMetrics discards all observations.
type noopMetrics struct{}

func (noopMetrics) ReadingProcessed(SensorKind)     {}
func (noopMetrics) ReadingRejected(SensorKind)      {}
func (noopMetrics) ReadingDropped(SensorKind)       {}
func (noopMetrics) TransitionApplied(Transition)    {}
func (noopMetrics) TransitionSuppressed(Transition) {}
func (noopMetrics) SensorRestarted(SensorKind)      {}
func (noopMetrics) SensorFailed(SensorKind)         {}
func (noopMetrics) ChannelDepth(int)                {}

// SensorRunner is the interface the controller needs from the sensor
// package: start all producer goroutines, and stop them waiting until
// every producer has acknowledged cancellation.
type SensorRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// Phase is the controller lifecycle phase.
type Phase int32

// Controller lifecycle phases. Transitions are strictly
// starting → running → stopping → stopped.
const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhaseStopping
	PhaseStopped
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Controller is the hub's consumer loop and the only writer of State.
//
// It drains the ReadingChannel, validates and applies readings,
// evaluates rules against a snapshot, applies the resulting transitions
// atomically (skipping actuators under manual override), and emits one
// event per meaningful change. Monitoring callers use its accessors;
// nothing else holds a mutable reference into the state.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Controller struct {
	state   *State
	ch      *ReadingChannel
	engine  *RuleEngine
	sink    Sink
	logger  Logger
	metrics Metrics
	sources SensorRunner // may be nil (tests feed the channel directly)

	phase    atomic.Int32
	frozen   atomic.Pointer[Snapshot]
	fatalErr atomic.Pointer[error]

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewController creates a controller in the starting phase and wires
// itself as the channel's drop accountant.
func NewController(state *State, ch *ReadingChannel, engine *RuleEngine, sink Sink) *Controller {
	if sink == nil {
		sink = noopSink{}
	}
	c := &Controller{
		state:   state,
		ch:      ch,
		engine:  engine,
		sink:    sink,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		done:    make(chan struct{}),
	}
	c.phase.Store(int32(PhaseStarting))
	ch.SetOnDrop(c.handleDrop)
	return c
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMetrics sets the instrumentation hook for the controller.
func (c *Controller) SetMetrics(m Metrics) {
	c.metrics = m
}

// SetSources registers the sensor runner launched on Start and stopped
// (with acknowledgement) before the channel closes.
func (c *Controller) SetSources(s SensorRunner) {
	c.sources = s
}

// Start launches the sensor sources and the consumer loop, then moves to
// the running phase.
//
// Parameters:
//   - ctx: parent context; its cancellation propagates to sensor loops
//
// Returns:
//   - error: if sources fail to start; the controller stays in starting
func (c *Controller) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if c.sources != nil {
		if err := c.sources.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("starting sensor sources: %w", err)
		}
	}

	c.wg.Add(1)
	go c.run()

	c.phase.Store(int32(PhaseRunning))
	c.logger.Info("hub controller running")
	return nil
}

// Stop shuts the hub down: cancels sensor loops, waits for every
// producer to acknowledge, closes the channel, lets the consumer loop
// drain the remaining readings, then freezes the final snapshot.
// Idempotent; safe to invoke more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.phase.Store(int32(PhaseStopping))
		c.logger.Info("hub controller stopping")

		if c.cancel != nil {
			c.cancel()
		}
		if c.sources != nil {
			c.sources.Stop()
		}
		c.ch.Close()
		c.wg.Wait()

		snap := c.state.Snapshot()
		c.frozen.Store(&snap)
		c.phase.Store(int32(PhaseStopped))
		c.logger.Info("hub controller stopped")
	})
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

// Err returns the fatal error that halted the consumer loop, or nil.
func (c *Controller) Err() error {
	if p := c.fatalErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Done is closed when the consumer loop exits, either through shutdown
// or a fatal state invariant violation (check Err to distinguish).
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// run is the consumer loop. It deliberately receives with a background
// context: shutdown is driven by channel closure so buffered readings
// are drained before the loop exits.
func (c *Controller) run() {
	defer c.wg.Done()
	defer close(c.done)

	for {
		r, err := c.ch.Receive(context.Background())
		if err != nil {
			return // closed and drained
		}
		if err := c.process(r); err != nil {
			c.fatalErr.Store(&err)
			c.logger.Error("fatal hub state corruption, halting controller", "error", err)
			return
		}
	}
}

// process handles one reading: validate, apply, evaluate, transition.
// Returns a non-nil error only for fatal invariant violations.
func (c *Controller) process(r Reading) error {
	if err := r.Validate(); err != nil {
		c.metrics.ReadingRejected(r.Kind)
		c.emit(Event{
			Category: EventReadingRejected,
			Message:  fmt.Sprintf("discarded reading: %v", err),
			Reading:  &r,
		})
		return nil
	}

	c.state.ApplyReading(r)
	c.metrics.ReadingProcessed(r.Kind)
	c.metrics.ChannelDepth(c.ch.Len())
	c.emit(Event{
		Category: EventSensorUpdate,
		Message:  fmt.Sprintf("%s = %.1f", r.Kind, r.Value),
		Reading:  &r,
	})

	snap := c.state.Snapshot()
	transitions := c.engine.Evaluate(snap)
	if len(transitions) == 0 {
		return nil
	}

	now := time.Now().UTC()
	applied, suppressed, err := c.state.ApplyTransitions(transitions, now)
	if err != nil {
		return err
	}

	for _, t := range suppressed {
		c.metrics.TransitionSuppressed(t)
		c.emit(Event{
			Category: EventRuleFired,
			Message:  fmt.Sprintf("rule %s wants %s %s, suppressed by manual override", t.Rule, t.Actuator, onOff(t.On)),
			Rule:     t.Rule,
		})
	}
	for _, t := range applied {
		c.metrics.TransitionApplied(t)
		c.emit(Event{
			Category: EventRuleFired,
			Message:  fmt.Sprintf("rule %s fired for %s", t.Rule, t.Actuator),
			Rule:     t.Rule,
		})
		state, _ := c.state.Actuator(t.Actuator)
		c.emit(Event{
			Category: EventActuatorChanged,
			Message:  fmt.Sprintf("%s switched %s by rule %s", t.Actuator, onOff(t.On), t.Rule),
			Actuator: &state,
			Rule:     t.Rule,
		})
	}
	return nil
}

// GetSnapshot returns a read-only copy of the hub state. After the
// controller has stopped it returns the last-known frozen snapshot.
func (c *Controller) GetSnapshot() Snapshot {
	if c.Phase() == PhaseStopped {
		if snap := c.frozen.Load(); snap != nil {
			return *snap
		}
	}
	return c.state.Snapshot()
}

// SetOverride pins an actuator to a desired state, exempting it from
// rule-driven changes until cleared.
//
// Returns:
//   - error: ErrNotRunning outside the running phase, or
//     ErrUnknownActuator for an unsupported kind
func (c *Controller) SetOverride(kind ActuatorKind, on bool) error {
	if c.Phase() != PhaseRunning {
		return ErrNotRunning
	}
	changed, err := c.state.SetOverride(kind, on, time.Now().UTC())
	if err != nil {
		return err
	}
	c.emit(Event{
		Category: EventManualOverride,
		Message:  fmt.Sprintf("override set: %s pinned %s", kind, onOff(on)),
	})
	if changed {
		state, _ := c.state.Actuator(kind)
		c.emit(Event{
			Category: EventActuatorChanged,
			Message:  fmt.Sprintf("%s switched %s by manual override", kind, onOff(on)),
			Actuator: &state,
			Rule:     "manual",
		})
	}
	return nil
}

// ClearOverride unpins an actuator kind; rule-driven control resumes on
// the next evaluation pass.
func (c *Controller) ClearOverride(kind ActuatorKind) error {
	if c.Phase() != PhaseRunning {
		return ErrNotRunning
	}
	cleared, err := c.state.ClearOverride(kind)
	if err != nil {
		return err
	}
	if cleared {
		c.emit(Event{
			Category: EventManualOverride,
			Message:  fmt.Sprintf("override cleared: %s back under rule control", kind),
		})
	}
	return nil
}

// SetMode sets the operating mode (home or away).
func (c *Controller) SetMode(mode Mode) error {
	if c.Phase() != PhaseRunning {
		return ErrNotRunning
	}
	changed, err := c.state.SetMode(mode)
	if err != nil {
		return err
	}
	if changed {
		c.emit(Event{
			Category: EventModeChanged,
			Message:  fmt.Sprintf("operating mode set to %s", mode),
		})
	}
	return nil
}

// NotifySensorRestarted records a supervised sensor restart.
func (c *Controller) NotifySensorRestarted(kind SensorKind, attempt int, delay time.Duration) {
	c.metrics.SensorRestarted(kind)
	c.emit(Event{
		Category: EventSensorRestarted,
		Message:  fmt.Sprintf("%s sensor restarted (attempt %d after %s)", kind, attempt, delay),
	})
}

// NotifySensorFailed marks a sensor permanently failed after its restart
// budget is exhausted. Its latest reading is withdrawn so rules treat
// the kind as absent from then on.
func (c *Controller) NotifySensorFailed(kind SensorKind, err error) {
	c.state.MarkSensorFailed(kind)
	c.metrics.SensorFailed(kind)
	c.emit(Event{
		Category: EventSensorFailed,
		Message:  fmt.Sprintf("%s sensor permanently failed: %v", kind, err),
	})
}

// handleDrop is the channel's drop accountant: exactly one event per
// discarded reading.
func (c *Controller) handleDrop(dropped Reading, policy DropPolicy) {
	c.metrics.ReadingDropped(dropped.Kind)
	c.emit(Event{
		Category: EventReadingDropped,
		Message:  fmt.Sprintf("channel saturated: dropped %s reading (%s)", dropped.Kind, policy),
		Reading:  &dropped,
	})
}

// emit stamps and forwards an event to the sink exactly once. The core
// never retains events beyond this call.
func (c *Controller) emit(e Event) {
	e.ID = uuid.NewString()
	e.Timestamp = time.Now().UTC()
	c.sink.Record(e)
}

// onOff renders a bool as "on"/"off" for event messages.
func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
