package sensor

import (
	"math"
	"math/rand"
	"time"

	"github.com/hearthlab/hearth-core/internal/hub"
)

// Generator synthesises successive readings for one sensor kind.
//
// Generators hold internal walk state and are driven from a single
// source goroutine; they are not safe for concurrent use.
type Generator interface {
	// Kind returns the sensor kind this generator simulates.
	Kind() hub.SensorKind

	// Next produces the next reading. A returned error is treated as a
	// source crash and handled by the supervisor's restart policy.
	Next(now time.Time) (hub.Reading, error)
}

// TemperatureConfig parameterises the temperature random walk.
type TemperatureConfig struct {
	Initial float64 // starting value in °C
	Min     float64 // lower clamp
	Max     float64 // upper clamp
	Step    float64 // maximum per-reading change, symmetric
	Fault   float64 // probability of an injected fault per reading
}

// TemperatureGenerator simulates an indoor temperature sensor as a
// bounded random walk around its starting value.
type TemperatureGenerator struct {
	cfg     TemperatureConfig
	current float64
	rng     *rand.Rand
}

// NewTemperatureGenerator creates a temperature generator. The rng is
// injected so tests can fix the walk.
func NewTemperatureGenerator(cfg TemperatureConfig, rng *rand.Rand) *TemperatureGenerator {
	return &TemperatureGenerator{cfg: cfg, current: cfg.Initial, rng: rng}
}

// Kind implements Generator.
func (g *TemperatureGenerator) Kind() hub.SensorKind {
	return hub.SensorTemperature
}

// Next implements Generator.
func (g *TemperatureGenerator) Next(now time.Time) (hub.Reading, error) {
	if fault(g.rng, g.cfg.Fault) {
		return hub.Reading{}, ErrSensorFault
	}
	g.current += (g.rng.Float64()*2 - 1) * g.cfg.Step
	g.current = clamp(g.current, g.cfg.Min, g.cfg.Max)
	return hub.Reading{
		Kind:      hub.SensorTemperature,
		Value:     round1(g.current),
		Timestamp: now,
	}, nil
}

// LightConfig parameterises the ambient light simulation.
type LightConfig struct {
	Initial     float64       // starting level in percent
	Step        float64       // maximum per-reading change, symmetric
	DayCycle    time.Duration // full simulated day length; 0 disables the cycle
	NightFactor float64       // level multiplier during the night half
	Fault       float64       // probability of an injected fault per reading
}

// LightGenerator simulates an ambient light sensor: a bounded random
// walk over 0-100%, scaled down during the night half of the simulated
// day cycle.
type LightGenerator struct {
	cfg   LightConfig
	level float64
	rng   *rand.Rand
}

// NewLightGenerator creates a light generator.
func NewLightGenerator(cfg LightConfig, rng *rand.Rand) *LightGenerator {
	return &LightGenerator{cfg: cfg, level: cfg.Initial, rng: rng}
}

// Kind implements Generator.
func (g *LightGenerator) Kind() hub.SensorKind {
	return hub.SensorLight
}

// Next implements Generator.
func (g *LightGenerator) Next(now time.Time) (hub.Reading, error) {
	if fault(g.rng, g.cfg.Fault) {
		return hub.Reading{}, ErrSensorFault
	}
	g.level += (g.rng.Float64()*2 - 1) * g.cfg.Step
	g.level = clamp(g.level, 0, 100)

	reported := g.level
	if g.cfg.DayCycle > 0 && isNight(now, g.cfg.DayCycle) {
		reported *= g.cfg.NightFactor
	}
	return hub.Reading{
		Kind:      hub.SensorLight,
		Value:     round1(reported),
		Timestamp: now,
	}, nil
}

// isNight reports whether now falls in the second half of the simulated
// day cycle.
func isNight(now time.Time, cycle time.Duration) bool {
	phase := now.UnixNano() % int64(cycle)
	return phase >= int64(cycle)/2
}

// MotionConfig parameterises the motion simulation.
type MotionConfig struct {
	SpikeProbability float64 // chance an idle sensor detects motion
	DecayProbability float64 // chance active motion ceases per reading
	Fault            float64 // probability of an injected fault per reading
}

// MotionGenerator simulates a PIR motion sensor: a low-probability
// boolean spike that persists for a few readings before decaying.
type MotionGenerator struct {
	cfg    MotionConfig
	active bool
	rng    *rand.Rand
}

// NewMotionGenerator creates a motion generator.
func NewMotionGenerator(cfg MotionConfig, rng *rand.Rand) *MotionGenerator {
	return &MotionGenerator{cfg: cfg, rng: rng}
}

// Kind implements Generator.
func (g *MotionGenerator) Kind() hub.SensorKind {
	return hub.SensorMotion
}

// Next implements Generator.
func (g *MotionGenerator) Next(now time.Time) (hub.Reading, error) {
	if fault(g.rng, g.cfg.Fault) {
		return hub.Reading{}, ErrSensorFault
	}
	if g.active {
		if g.rng.Float64() < g.cfg.DecayProbability {
			g.active = false
		}
	} else if g.rng.Float64() < g.cfg.SpikeProbability {
		g.active = true
	}

	value := 0.0
	if g.active {
		value = 1.0
	}
	return hub.Reading{
		Kind:      hub.SensorMotion,
		Value:     value,
		Timestamp: now,
	}, nil
}

func fault(rng *rand.Rand, probability float64) bool {
	return probability > 0 && rng.Float64() < probability
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
