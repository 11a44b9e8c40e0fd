package sensor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/hearthlab/hearth-core/internal/hub"
)

// ─── Test Doubles ───────────────────────────────────────────────────────────

// scriptedGenerator emits valid readings but fails (or panics) for a
// configurable number of leading calls.
type scriptedGenerator struct {
	kind      hub.SensorKind
	failFirst int  // calls that return an error
	panics    bool // panic instead of returning an error

	mu    sync.Mutex
	calls int
}

func (g *scriptedGenerator) Kind() hub.SensorKind { return g.kind }

func (g *scriptedGenerator) Next(now time.Time) (hub.Reading, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.mu.Unlock()

	if call <= g.failFirst {
		if g.panics {
			panic("scripted generator failure")
		}
		return hub.Reading{}, ErrSensorFault
	}
	return hub.Reading{Kind: g.kind, Value: 21.0, Timestamp: now}, nil
}

// collector is a thread-safe SendFunc that records delivered readings.
type collector struct {
	mu       sync.Mutex
	readings []hub.Reading
	sendErr  error
}

func (c *collector) send(r hub.Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.readings = append(c.readings, r)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.readings)
}

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

func fastInterval() Interval {
	return Interval{Min: time.Millisecond, Max: 2 * time.Millisecond}
}

func fastBackoff(maxRestarts int) BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		MaxRestarts:  maxRestarts,
	}
}

// ─── Source ─────────────────────────────────────────────────────────────────

func TestSource_EmitsReadingsUntilCancelled(t *testing.T) {
	gen := &scriptedGenerator{kind: hub.SensorTemperature}
	col := &collector{}
	src := NewSource(gen, fastInterval(), col.send, rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.run(ctx) }()

	waitFor(t, time.Second, func() bool { return col.count() >= 5 }, "no readings emitted")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() after cancel error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("source did not stop on cancellation")
	}
}

func TestSource_ExitsCleanlyOnChannelClosed(t *testing.T) {
	gen := &scriptedGenerator{kind: hub.SensorLight}
	col := &collector{sendErr: hub.ErrChannelClosed}
	src := NewSource(gen, fastInterval(), col.send, rand.New(rand.NewSource(1)))

	done := make(chan error, 1)
	go func() { done <- src.run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil on hub shutdown", err)
		}
	case <-time.After(time.Second):
		t.Fatal("source did not exit when the channel reported closed")
	}
}

func TestSource_ReturnsGeneratorError(t *testing.T) {
	gen := &scriptedGenerator{kind: hub.SensorMotion, failFirst: 1000}
	col := &collector{}
	src := NewSource(gen, fastInterval(), col.send, rand.New(rand.NewSource(1)))

	done := make(chan error, 1)
	go func() { done <- src.run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSensorFault) {
			t.Errorf("run() error = %v, want ErrSensorFault", err)
		}
	case <-time.After(time.Second):
		t.Fatal("source did not surface the generator error")
	}
}

// ─── Supervisor ─────────────────────────────────────────────────────────────

func TestSupervisor_StartWithoutSources(t *testing.T) {
	s := NewSupervisor(fastBackoff(3))
	if err := s.Start(context.Background()); !errors.Is(err, ErrNoSources) {
		t.Errorf("Start() error = %v, want ErrNoSources", err)
	}
}

func TestSupervisor_RestartsCrashedSourceThenRecovers(t *testing.T) {
	// Fails twice, then emits normally: two restarts, no permanent failure.
	gen := &scriptedGenerator{kind: hub.SensorTemperature, failFirst: 2}
	col := &collector{}

	var mu sync.Mutex
	var restarts []int
	failed := false

	s := NewSupervisor(fastBackoff(3))
	s.SetOnRestart(func(kind hub.SensorKind, attempt int, delay time.Duration) {
		if kind != hub.SensorTemperature {
			t.Errorf("restart kind = %s, want temperature", kind)
		}
		mu.Lock()
		restarts = append(restarts, attempt)
		mu.Unlock()
	})
	s.SetOnFailure(func(hub.SensorKind, error) {
		mu.Lock()
		failed = true
		mu.Unlock()
	})
	s.Add(NewSource(gen, fastInterval(), col.send, rand.New(rand.NewSource(1))))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return col.count() >= 3 }, "source never recovered")

	mu.Lock()
	defer mu.Unlock()
	if len(restarts) != 2 || restarts[0] != 1 || restarts[1] != 2 {
		t.Errorf("restart attempts = %v, want [1 2]", restarts)
	}
	if failed {
		t.Error("recovered source reported as permanently failed")
	}
}

func TestSupervisor_PermanentFailureAfterBudget(t *testing.T) {
	gen := &scriptedGenerator{kind: hub.SensorMotion, failFirst: 1000}
	col := &collector{}

	var mu sync.Mutex
	restarts := 0
	var failedKind hub.SensorKind
	var failedErr error
	failedCalls := 0

	s := NewSupervisor(fastBackoff(2))
	s.SetOnRestart(func(hub.SensorKind, int, time.Duration) {
		mu.Lock()
		restarts++
		mu.Unlock()
	})
	s.SetOnFailure(func(kind hub.SensorKind, err error) {
		mu.Lock()
		failedKind = kind
		failedErr = err
		failedCalls++
		mu.Unlock()
	})
	s.Add(NewSource(gen, fastInterval(), col.send, rand.New(rand.NewSource(1))))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failedCalls > 0
	}, "permanent failure never reported")

	mu.Lock()
	defer mu.Unlock()
	if restarts != 2 {
		t.Errorf("restarts before failure = %d, want 2", restarts)
	}
	if failedCalls != 1 {
		t.Errorf("failure callbacks = %d, want exactly 1", failedCalls)
	}
	if failedKind != hub.SensorMotion {
		t.Errorf("failed kind = %s, want motion", failedKind)
	}
	if !errors.Is(failedErr, ErrSensorFault) {
		t.Errorf("failure error = %v, want ErrSensorFault", failedErr)
	}
}

func TestSupervisor_RecoversPanickingGenerator(t *testing.T) {
	gen := &scriptedGenerator{kind: hub.SensorLight, failFirst: 1, panics: true}
	col := &collector{}

	s := NewSupervisor(fastBackoff(3))
	s.Add(NewSource(gen, fastInterval(), col.send, rand.New(rand.NewSource(1))))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return col.count() >= 1 }, "panicking source never restarted")
}

func TestSupervisor_StopBlocksUntilSourcesExit(t *testing.T) {
	col := &collector{}

	s := NewSupervisor(fastBackoff(3))
	for _, kind := range []hub.SensorKind{hub.SensorTemperature, hub.SensorLight, hub.SensorMotion} {
		gen := &scriptedGenerator{kind: kind}
		s.Add(NewSource(gen, fastInterval(), col.send, rand.New(rand.NewSource(int64(len(kind))))))
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, time.Second, func() bool { return col.count() >= 3 }, "sources never emitted")

	s.Stop()
	s.Stop() // idempotent

	// No reading may arrive after Stop has returned.
	settled := col.count()
	time.Sleep(20 * time.Millisecond)
	if got := col.count(); got != settled {
		t.Errorf("readings after Stop: %d new", got-settled)
	}
}
