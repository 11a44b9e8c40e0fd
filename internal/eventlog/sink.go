package eventlog

import (
	"sync"
	"sync/atomic"

	"github.com/hearthlab/hearth-core/internal/hub"
)

// Logger abstracts structured logging so the package stays decoupled
// from the logging implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Forwarder receives each recorded event in order. Forward runs on the
// sink's worker goroutine; implementations must not block indefinitely.
type Forwarder interface {
	Forward(e hub.Event)
}

// ForwarderFunc adapts a function to the Forwarder interface.
type ForwarderFunc func(e hub.Event)

// Forward implements Forwarder.
func (f ForwarderFunc) Forward(e hub.Event) { f(e) }

const (
	// DefaultQueueSize bounds the pending-event buffer.
	DefaultQueueSize = 256

	// DefaultRecentSize bounds the recent-event history ring.
	DefaultRecentSize = 100
)

// Sink buffers hub events and delivers them to forwarders from a single
// worker goroutine. Record is non-blocking; events that arrive while
// the buffer is saturated are dropped and counted.
type Sink struct {
	queue      chan hub.Event
	forwarders []Forwarder
	logger     Logger
	dropped    atomic.Uint64

	mu     sync.RWMutex // guards closed and recent
	closed bool
	recent []hub.Event
	limit  int

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSink creates a sink. Non-positive sizes fall back to the defaults.
// Register forwarders with AddForwarder, then call Start.
func NewSink(queueSize, recentSize int) *Sink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if recentSize <= 0 {
		recentSize = DefaultRecentSize
	}
	return &Sink{
		queue:  make(chan hub.Event, queueSize),
		logger: noopLogger{},
		limit:  recentSize,
	}
}

// SetLogger replaces the no-op logger.
func (s *Sink) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// AddForwarder registers a forwarder. Must be called before Start.
func (s *Sink) AddForwarder(f Forwarder) {
	if f != nil {
		s.forwarders = append(s.forwarders, f)
	}
}

// Start launches the delivery worker.
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.worker()
	s.logger.Debug("event sink started", "forwarders", len(s.forwarders))
}

// Record queues an event for delivery. It never blocks: if the buffer
// is full the event is dropped and the drop counter incremented.
func (s *Sink) Record(e hub.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- e:
	default:
		s.dropped.Add(1)
	}
}

// Recent returns up to n most recent events, newest first. n <= 0
// returns the full retained history.
func (s *Sink) Recent(n int) []hub.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.recent) {
		n = len(s.recent)
	}
	out := make([]hub.Event, n)
	for i := 0; i < n; i++ {
		out[i] = s.recent[len(s.recent)-1-i]
	}
	return out
}

// Dropped reports how many events were discarded because the buffer
// was full.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops accepting events, flushes everything already queued to
// the forwarders, and waits for the worker to exit. Safe to call more
// than once.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.queue)
		s.wg.Wait()

		if n := s.dropped.Load(); n > 0 {
			s.logger.Warn("event sink closed with drops", "dropped", n)
		}
	})
}

// worker drains the queue, retains history, and fans out to forwarders.
func (s *Sink) worker() {
	defer s.wg.Done()
	for e := range s.queue {
		s.retain(e)
		for _, f := range s.forwarders {
			s.deliver(f, e)
		}
	}
}

func (s *Sink) retain(e hub.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, e)
	if len(s.recent) > s.limit {
		s.recent = s.recent[len(s.recent)-s.limit:]
	}
}

// deliver isolates forwarder panics so one misbehaving consumer cannot
// kill the delivery worker.
func (s *Sink) deliver(f Forwarder, e hub.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event forwarder panicked", "panic", r, "event", e.Category)
		}
	}()
	f.Forward(e)
}
