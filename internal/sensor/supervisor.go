package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

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

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// BackoffConfig shapes the restart policy for crashed sources.
type BackoffConfig struct {
	// InitialDelay is the wait before the first restart attempt. Each
	// subsequent attempt doubles the delay up to MaxDelay.
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// MaxRestarts is the restart budget per source. One more crash after
	// the budget is spent marks the source permanently failed.
	MaxRestarts int
}

// DefaultBackoff is the restart policy used when none is configured.
var DefaultBackoff = BackoffConfig{
	InitialDelay: time.Second,
	MaxDelay:     30 * time.Second,
	MaxRestarts:  3,
}

// RestartFunc is invoked after a source crash, before the backoff wait.
type RestartFunc func(kind hub.SensorKind, attempt int, delay time.Duration)

// FailureFunc is invoked when a source exhausts its restart budget.
type FailureFunc func(kind hub.SensorKind, err error)

// Supervisor owns the source goroutines. It launches every registered
// source, recovers panics, restarts crashed sources with exponential
// backoff, and reports permanent failures once a source's restart
// budget is exhausted.
//
// Supervisor satisfies the hub's SensorRunner contract: Start launches
// the goroutines, Stop cancels them and blocks until all have exited.
type Supervisor struct {
	sources []*Source
	backoff BackoffConfig
	logger  Logger

	onRestart RestartFunc
	onFailure FailureFunc

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSupervisor creates a supervisor with the given restart policy.
// Zero-value fields fall back to DefaultBackoff.
func NewSupervisor(backoff BackoffConfig) *Supervisor {
	if backoff.InitialDelay <= 0 {
		backoff.InitialDelay = DefaultBackoff.InitialDelay
	}
	if backoff.MaxDelay <= 0 {
		backoff.MaxDelay = DefaultBackoff.MaxDelay
	}
	if backoff.MaxRestarts <= 0 {
		backoff.MaxRestarts = DefaultBackoff.MaxRestarts
	}
	return &Supervisor{
		backoff: backoff,
		logger:  noopLogger{},
	}
}

// Add registers a source. Must be called before Start.
func (s *Supervisor) Add(src *Source) {
	s.sources = append(s.sources, src)
}

// SetLogger replaces the no-op logger.
func (s *Supervisor) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetOnRestart registers the restart notification callback. Must be
// called before Start.
func (s *Supervisor) SetOnRestart(fn RestartFunc) {
	s.onRestart = fn
}

// SetOnFailure registers the permanent-failure callback. Must be
// called before Start.
func (s *Supervisor) SetOnFailure(fn FailureFunc) {
	s.onFailure = fn
}

// Start launches one monitor goroutine per registered source. It
// returns immediately; the goroutines run until Stop or context
// cancellation.
func (s *Supervisor) Start(ctx context.Context) error {
	if len(s.sources) == 0 {
		return ErrNoSources
	}

	ctx, s.cancel = context.WithCancel(ctx)
	for _, src := range s.sources {
		s.wg.Add(1)
		go s.monitor(ctx, src)
	}
	s.logger.Info("sensor sources started", "count", len(s.sources))
	return nil
}

// Stop cancels all sources and blocks until every goroutine has exited.
// Safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.logger.Info("sensor sources stopped")
	})
}

// monitor runs one source and applies the restart policy around it.
func (s *Supervisor) monitor(ctx context.Context, src *Source) {
	defer s.wg.Done()

	kind := src.Kind()
	attempt := 0
	delay := s.backoff.InitialDelay

	for {
		err := runSafely(ctx, src)
		if err == nil {
			// Clean exit: cancellation or hub shutdown.
			s.logger.Debug("sensor source exited", "sensor", kind)
			return
		}
		if ctx.Err() != nil {
			return
		}

		attempt++
		if attempt > s.backoff.MaxRestarts {
			s.logger.Error("sensor source permanently failed",
				"sensor", kind,
				"restarts", s.backoff.MaxRestarts,
				"error", err)
			if s.onFailure != nil {
				s.onFailure(kind, err)
			}
			return
		}

		s.logger.Warn("sensor source crashed, restarting",
			"sensor", kind,
			"attempt", attempt,
			"delay", delay,
			"error", err)
		if s.onRestart != nil {
			s.onRestart(kind, attempt, delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.backoff.MaxDelay {
			delay = s.backoff.MaxDelay
		}
	}
}

// runSafely executes the source loop and converts panics into errors so
// a panicking generator is restarted like any other crash.
func runSafely(ctx context.Context, src *Source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sensor: source panic: %v", r)
		}
	}()
	return src.run(ctx)
}
