package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hearth.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Rules      RulesConfig      `yaml:"rules"`
	Channel    ChannelConfig    `yaml:"channel"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Events     EventsConfig     `yaml:"events"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// SensorsConfig contains the simulation parameters for each sensor kind.
type SensorsConfig struct {
	IntervalMinMs int `yaml:"interval_min_ms"`
	IntervalMaxMs int `yaml:"interval_max_ms"`

	Temperature TemperatureSensorConfig `yaml:"temperature"`
	Light       LightSensorConfig       `yaml:"light"`
	Motion      MotionSensorConfig      `yaml:"motion"`
}

// TemperatureSensorConfig parameterises the temperature random walk.
type TemperatureSensorConfig struct {
	Initial          float64 `yaml:"initial"`
	Min              float64 `yaml:"min"`
	Max              float64 `yaml:"max"`
	Step             float64 `yaml:"step"`
	FaultProbability float64 `yaml:"fault_probability"`
}

// LightSensorConfig parameterises the ambient light simulation.
type LightSensorConfig struct {
	Initial          float64 `yaml:"initial"`
	Step             float64 `yaml:"step"`
	DayCycleSeconds  int     `yaml:"day_cycle_seconds"`
	NightFactor      float64 `yaml:"night_factor"`
	FaultProbability float64 `yaml:"fault_probability"`
}

// MotionSensorConfig parameterises the motion simulation.
type MotionSensorConfig struct {
	SpikeProbability float64 `yaml:"spike_probability"`
	DecayProbability float64 `yaml:"decay_probability"`
	FaultProbability float64 `yaml:"fault_probability"`
}

// RulesConfig contains the rule engine thresholds.
type RulesConfig struct {
	TemperatureLow  float64 `yaml:"temperature_low"`
	TemperatureHigh float64 `yaml:"temperature_high"`
	LightDark       float64 `yaml:"light_dark"`
}

// ChannelConfig contains the reading channel settings.
type ChannelConfig struct {
	Capacity      int    `yaml:"capacity"`
	SendTimeoutMs int    `yaml:"send_timeout_ms"`
	DropPolicy    string `yaml:"drop_policy"`
}

// SupervisorConfig contains the sensor restart policy.
type SupervisorConfig struct {
	InitialDelayMs int `yaml:"initial_delay_ms"`
	MaxDelayMs     int `yaml:"max_delay_ms"`
	MaxRestarts    int `yaml:"max_restarts"`
}

// EventsConfig contains the event sink settings.
type EventsConfig struct {
	QueueSize  int `yaml:"queue_size"`
	RecentSize int `yaml:"recent_size"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the event
// mirror. Disabled by default; the hub runs fully standalone without a
// broker.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	TopicRoot string              `yaml:"topic_root"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for reading
// telemetry. Disabled by default.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HEARTH_SECTION_KEY
// For example: HEARTH_API_PORT, HEARTH_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults. The result is valid
// without any file or environment input, so the hub can start with no
// configuration at all.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Hearth",
			Timezone: "UTC",
		},
		Sensors: SensorsConfig{
			IntervalMinMs: 500,
			IntervalMaxMs: 2000,
			Temperature: TemperatureSensorConfig{
				Initial: 21.0,
				Min:     12.0,
				Max:     32.0,
				Step:    0.5,
			},
			Light: LightSensorConfig{
				Initial:         55.0,
				Step:            5.0,
				DayCycleSeconds: 120,
				NightFactor:     0.15,
			},
			Motion: MotionSensorConfig{
				SpikeProbability: 0.2,
				DecayProbability: 0.3,
			},
		},
		Rules: RulesConfig{
			TemperatureLow:  18.0,
			TemperatureHigh: 24.0,
			LightDark:       30.0,
		},
		Channel: ChannelConfig{
			Capacity:      64,
			SendTimeoutMs: 250,
			DropPolicy:    "drop_oldest",
		},
		Supervisor: SupervisorConfig{
			InitialDelayMs: 1000,
			MaxDelayMs:     30000,
			MaxRestarts:    3,
		},
		Events: EventsConfig{
			QueueSize:  256,
			RecentSize: 100,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hearth-core",
			},
			QoS:       1,
			TopicRoot: "hearth",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "hearth",
			Bucket:        "telemetry",
			BatchSize:     100,
			FlushInterval: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HEARTH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("HEARTH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HEARTH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("HEARTH_MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("HEARTH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HEARTH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEARTH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HEARTH_INFLUXDB_ENABLED"); v != "" {
		cfg.InfluxDB.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("HEARTH_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("HEARTH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("HEARTH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Sensors.IntervalMinMs <= 0 {
		errs = append(errs, "sensors.interval_min_ms must be positive")
	}
	if c.Sensors.IntervalMaxMs < c.Sensors.IntervalMinMs {
		errs = append(errs, "sensors.interval_max_ms must be >= interval_min_ms")
	}
	if c.Sensors.Temperature.Min >= c.Sensors.Temperature.Max {
		errs = append(errs, "sensors.temperature.min must be below max")
	}
	if p := c.Sensors.Motion.SpikeProbability; p < 0 || p > 1 {
		errs = append(errs, "sensors.motion.spike_probability must be in [0, 1]")
	}
	if p := c.Sensors.Motion.DecayProbability; p < 0 || p > 1 {
		errs = append(errs, "sensors.motion.decay_probability must be in [0, 1]")
	}

	if c.Rules.TemperatureLow >= c.Rules.TemperatureHigh {
		errs = append(errs, "rules.temperature_low must be below temperature_high")
	}
	if c.Rules.LightDark < 0 || c.Rules.LightDark > 100 {
		errs = append(errs, "rules.light_dark must be in [0, 100]")
	}

	if c.Channel.Capacity <= 0 {
		errs = append(errs, "channel.capacity must be positive")
	}
	if p := c.Channel.DropPolicy; p != "drop_oldest" && p != "drop_newest" {
		errs = append(errs, "channel.drop_policy must be drop_oldest or drop_newest")
	}

	if c.Supervisor.MaxRestarts < 0 {
		errs = append(errs, "supervisor.max_restarts must not be negative")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.Token == "" {
		errs = append(errs, "influxdb.token is required when influxdb is enabled (set HEARTH_INFLUXDB_TOKEN)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetSensorIntervalMin returns the minimum emission interval as a Duration.
func (c *Config) GetSensorIntervalMin() time.Duration {
	return time.Duration(c.Sensors.IntervalMinMs) * time.Millisecond
}

// GetSensorIntervalMax returns the maximum emission interval as a Duration.
func (c *Config) GetSensorIntervalMax() time.Duration {
	return time.Duration(c.Sensors.IntervalMaxMs) * time.Millisecond
}

// GetDayCycle returns the simulated day length as a Duration.
func (c *Config) GetDayCycle() time.Duration {
	return time.Duration(c.Sensors.Light.DayCycleSeconds) * time.Second
}

// GetSendTimeout returns the channel send timeout as a Duration.
func (c *Config) GetSendTimeout() time.Duration {
	return time.Duration(c.Channel.SendTimeoutMs) * time.Millisecond
}

// GetSupervisorInitialDelay returns the first restart delay as a Duration.
func (c *Config) GetSupervisorInitialDelay() time.Duration {
	return time.Duration(c.Supervisor.InitialDelayMs) * time.Millisecond
}

// GetSupervisorMaxDelay returns the restart delay cap as a Duration.
func (c *Config) GetSupervisorMaxDelay() time.Duration {
	return time.Duration(c.Supervisor.MaxDelayMs) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
