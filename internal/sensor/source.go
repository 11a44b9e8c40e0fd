package sensor

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/hearthlab/hearth-core/internal/hub"
)

// SendFunc delivers a reading to the hub. It reports
// hub.ErrChannelClosed once the hub is shutting down, which a source
// treats as a clean exit rather than a crash.
type SendFunc func(hub.Reading) error

// Interval bounds the randomised sleep between consecutive readings.
type Interval struct {
	Min time.Duration
	Max time.Duration
}

// Source runs one simulated sensor: sleep a randomised interval,
// synthesise a reading, push it to the hub, repeat until cancelled.
type Source struct {
	gen      Generator
	interval Interval
	send     SendFunc
	rng      *rand.Rand
}

// NewSource creates a source around the given generator. The rng
// jitters the emission interval and is used only from the source's own
// goroutine.
func NewSource(gen Generator, interval Interval, send SendFunc, rng *rand.Rand) *Source {
	return &Source{gen: gen, interval: interval, send: send, rng: rng}
}

// Kind returns the sensor kind this source simulates.
func (s *Source) Kind() hub.SensorKind {
	return s.gen.Kind()
}

// run drives the generate-and-send loop until the context is cancelled
// or the hub's channel closes. A generator or send error is returned to
// the supervisor, which treats it as a crash.
func (s *Source) run(ctx context.Context) error {
	timer := time.NewTimer(s.sleep())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		// Cancellation observed between the timer firing and the select
		// must still win: no reading is emitted after the stop signal.
		if ctx.Err() != nil {
			return nil
		}

		r, err := s.gen.Next(time.Now().UTC())
		if err != nil {
			return err
		}
		if err := s.send(r); err != nil {
			if errors.Is(err, hub.ErrChannelClosed) {
				return nil
			}
			return err
		}

		timer.Reset(s.sleep())
	}
}

// sleep picks a uniformly random duration within the interval bounds.
func (s *Source) sleep() time.Duration {
	if s.interval.Max <= s.interval.Min {
		return s.interval.Min
	}
	span := s.interval.Max - s.interval.Min
	return s.interval.Min + time.Duration(s.rng.Int63n(int64(span)))
}
