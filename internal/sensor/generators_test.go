package sensor

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/hearthlab/hearth-core/internal/hub"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestTemperatureGenerator_StaysWithinBounds(t *testing.T) {
	g := NewTemperatureGenerator(TemperatureConfig{
		Initial: 21.0,
		Min:     12.0,
		Max:     32.0,
		Step:    0.5,
	}, testRNG())

	for i := 0; i < 1000; i++ {
		r, err := g.Next(time.Now().UTC())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if r.Kind != hub.SensorTemperature {
			t.Fatalf("Kind = %s, want temperature", r.Kind)
		}
		if r.Value < 12.0 || r.Value > 32.0 {
			t.Fatalf("step %d: value %.1f outside [12, 32]", i, r.Value)
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("step %d: generated invalid reading: %v", i, err)
		}
	}
}

func TestTemperatureGenerator_StepBoundsChange(t *testing.T) {
	g := NewTemperatureGenerator(TemperatureConfig{
		Initial: 21.0,
		Min:     12.0,
		Max:     32.0,
		Step:    0.5,
	}, testRNG())

	prev := 21.0
	for i := 0; i < 200; i++ {
		r, err := g.Next(time.Now().UTC())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		// Rounding adds at most 0.05 on top of the walk step.
		if diff := math.Abs(r.Value - prev); diff > 0.56 {
			t.Fatalf("step %d: jumped %.2f, max step is 0.5", i, diff)
		}
		prev = r.Value
	}
}

func TestTemperatureGenerator_Fault(t *testing.T) {
	g := NewTemperatureGenerator(TemperatureConfig{
		Initial: 21.0,
		Min:     12.0,
		Max:     32.0,
		Step:    0.5,
		Fault:   1.0, // every call faults
	}, testRNG())

	_, err := g.Next(time.Now().UTC())
	if !errors.Is(err, ErrSensorFault) {
		t.Errorf("Next() error = %v, want ErrSensorFault", err)
	}
}

func TestLightGenerator_StaysWithinPercentRange(t *testing.T) {
	g := NewLightGenerator(LightConfig{
		Initial: 50.0,
		Step:    5.0,
	}, testRNG())

	for i := 0; i < 1000; i++ {
		r, err := g.Next(time.Now().UTC())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if r.Value < 0 || r.Value > 100 {
			t.Fatalf("step %d: value %.1f outside [0, 100]", i, r.Value)
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("step %d: generated invalid reading: %v", i, err)
		}
	}
}

func TestLightGenerator_NightFactorScalesLevel(t *testing.T) {
	const cycle = 2 * time.Second

	g := NewLightGenerator(LightConfig{
		Initial:     80.0,
		Step:        0, // freeze the walk so only the cycle matters
		DayCycle:    cycle,
		NightFactor: 0.1,
	}, testRNG())

	day := time.Unix(0, int64(500*time.Millisecond))    // first half
	night := time.Unix(0, int64(1500*time.Millisecond)) // second half

	dayReading, err := g.Next(day)
	if err != nil {
		t.Fatalf("Next(day) error = %v", err)
	}
	nightReading, err := g.Next(night)
	if err != nil {
		t.Fatalf("Next(night) error = %v", err)
	}

	if dayReading.Value != 80.0 {
		t.Errorf("day value = %.1f, want 80.0", dayReading.Value)
	}
	if nightReading.Value != 8.0 {
		t.Errorf("night value = %.1f, want 8.0", nightReading.Value)
	}
}

func TestMotionGenerator_ValuesAreBoolean(t *testing.T) {
	g := NewMotionGenerator(MotionConfig{
		SpikeProbability: 0.2,
		DecayProbability: 0.3,
	}, testRNG())

	seen := map[float64]bool{}
	for i := 0; i < 1000; i++ {
		r, err := g.Next(time.Now().UTC())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if r.Value != 0 && r.Value != 1 {
			t.Fatalf("step %d: motion value %.2f, want 0 or 1", i, r.Value)
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("step %d: generated invalid reading: %v", i, err)
		}
		seen[r.Value] = true
	}
	// With spike probability 0.2 over 1000 samples both states occur.
	if !seen[0] || !seen[1] {
		t.Errorf("states observed = %v, want both idle and active", seen)
	}
}

func TestMotionGenerator_SpikePersistsUntilDecay(t *testing.T) {
	// Certain spike, impossible decay: once active, stays active.
	g := NewMotionGenerator(MotionConfig{
		SpikeProbability: 1.0,
		DecayProbability: 0.0,
	}, testRNG())

	for i := 0; i < 10; i++ {
		r, err := g.Next(time.Now().UTC())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if r.Value != 1 {
			t.Fatalf("step %d: value = %.0f, want sustained motion", i, r.Value)
		}
	}
}
