// Hearth Core - Home Automation Hub Simulator
//
// This is the main entry point for the Hearth hub. Hearth simulates a
// small home automation installation end to end:
//   - Concurrent sensor sources (temperature, light, motion)
//   - A bounded reading channel with backpressure
//   - A hub controller applying rule-driven actuator control
//   - REST/WebSocket monitoring API with optional MQTT and InfluxDB mirrors
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearthlab/hearth-core/internal/api"
	"github.com/hearthlab/hearth-core/internal/eventlog"
	"github.com/hearthlab/hearth-core/internal/hub"
	"github.com/hearthlab/hearth-core/internal/infrastructure/config"
	"github.com/hearthlab/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearthlab/hearth-core/internal/infrastructure/logging"
	"github.com/hearthlab/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthlab/hearth-core/internal/metrics"
	"github.com/hearthlab/hearth-core/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit // linear wiring of every subsystem
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Prometheus instrumentation
	promMetrics := metrics.New()

	// Event sink: the async fan-out point for every hub event
	sink := eventlog.NewSink(cfg.Events.QueueSize, cfg.Events.RecentSize)
	sink.SetLogger(log)
	sink.AddForwarder(eventlog.ForwarderFunc(func(e hub.Event) {
		log.Debug("hub event", "category", string(e.Category), "message", e.Message)
	}))

	// Connect to MQTT broker (optional event mirror)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		sink.AddForwarder(newMQTTForwarder(mqttClient, log))
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional telemetry store)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		sink.AddForwarder(newInfluxForwarder(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Assemble the hub: state, channel, rule engine, controller
	state := hub.NewState(time.Now().UTC())
	channel := hub.NewReadingChannel(
		cfg.Channel.Capacity,
		cfg.GetSendTimeout(),
		hub.DropPolicy(cfg.Channel.DropPolicy),
	)
	engine := hub.NewRuleEngine(hub.Thresholds{
		TemperatureLow:  cfg.Rules.TemperatureLow,
		TemperatureHigh: cfg.Rules.TemperatureHigh,
		LightDark:       cfg.Rules.LightDark,
	})

	controller := hub.NewController(state, channel, engine, sink)
	controller.SetLogger(log)
	controller.SetMetrics(promMetrics)

	// Supervised sensor sources feeding the channel
	supervisor := buildSupervisor(cfg, channel, log)
	supervisor.SetOnRestart(controller.NotifySensorRestarted)
	supervisor.SetOnFailure(controller.NotifySensorFailed)
	controller.SetSources(supervisor)

	// API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Controller: controller,
		Channel:    channel,
		Events:     sink,
		Metrics:    promMetrics,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Mirror events to connected WebSocket clients. The hub is created
	// inside Start(), so resolve it lazily at forward time.
	sink.AddForwarder(eventlog.ForwarderFunc(func(e hub.Event) {
		if wsHub := apiServer.WSHub(); wsHub != nil {
			wsHub.Broadcast(string(e.Category), e)
		}
	}))

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Forwarders are registered; open the sink, then the hub
	sink.Start()
	defer sink.Close()

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("starting hub controller: %w", err)
	}
	defer controller.Stop()

	// Verify external connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"site", cfg.Site.ID,
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Wait for a shutdown signal or a controller failure
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case <-controller.Done():
		if err := controller.Err(); err != nil {
			log.Error("hub controller failed", "error", err)
			return fmt.Errorf("hub controller: %w", err)
		}
		log.Info("hub controller finished")
	}

	// Deferred Close() calls run in reverse order:
	// 1. Controller (drains the channel, freezes the snapshot)
	// 2. Event sink (flushes queued events to forwarders)
	// 3. API server
	// 4. InfluxDB, MQTT (if enabled)

	log.Info("Hearth Core stopped")
	return nil
}

// buildSupervisor creates the three sensor sources and their restart
// supervisor from configuration.
func buildSupervisor(cfg *config.Config, channel *hub.ReadingChannel, log *logging.Logger) *sensor.Supervisor {
	interval := sensor.Interval{
		Min: cfg.GetSensorIntervalMin(),
		Max: cfg.GetSensorIntervalMax(),
	}
	send := channel.Send

	newRNG := func(offset int64) *rand.Rand {
		//nolint:gosec // simulation noise, not cryptographic material
		return rand.New(rand.NewSource(time.Now().UnixNano() + offset))
	}

	temperature := sensor.NewTemperatureGenerator(sensor.TemperatureConfig{
		Initial: cfg.Sensors.Temperature.Initial,
		Min:     cfg.Sensors.Temperature.Min,
		Max:     cfg.Sensors.Temperature.Max,
		Step:    cfg.Sensors.Temperature.Step,
		Fault:   cfg.Sensors.Temperature.FaultProbability,
	}, newRNG(0))

	light := sensor.NewLightGenerator(sensor.LightConfig{
		Initial:     cfg.Sensors.Light.Initial,
		Step:        cfg.Sensors.Light.Step,
		DayCycle:    cfg.GetDayCycle(),
		NightFactor: cfg.Sensors.Light.NightFactor,
		Fault:       cfg.Sensors.Light.FaultProbability,
	}, newRNG(1))

	motion := sensor.NewMotionGenerator(sensor.MotionConfig{
		SpikeProbability: cfg.Sensors.Motion.SpikeProbability,
		DecayProbability: cfg.Sensors.Motion.DecayProbability,
		Fault:            cfg.Sensors.Motion.FaultProbability,
	}, newRNG(2))

	supervisor := sensor.NewSupervisor(sensor.BackoffConfig{
		InitialDelay: cfg.GetSupervisorInitialDelay(),
		MaxDelay:     cfg.GetSupervisorMaxDelay(),
		MaxRestarts:  cfg.Supervisor.MaxRestarts,
	})
	supervisor.SetLogger(log)

	supervisor.Add(sensor.NewSource(temperature, interval, send, newRNG(3)))
	supervisor.Add(sensor.NewSource(light, interval, send, newRNG(4)))
	supervisor.Add(sensor.NewSource(motion, interval, send, newRNG(5)))

	return supervisor
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the optional external connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
