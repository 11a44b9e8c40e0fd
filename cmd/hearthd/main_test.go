package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testConfigYAML is a minimal valid configuration with both optional
// integrations disabled and a high API port unlikely to collide.
const testConfigYAML = `
site:
  id: test-site

sensors:
  interval_min_ms: 50
  interval_max_ms: 100

api:
  host: "127.0.0.1"
  port: 18923
  timeouts:
    read: 5
    write: 5
    idle: 10

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`

// writeTestConfig writes a config file and points HEARTH_CONFIG at it.
func writeTestConfig(t *testing.T, content string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("HEARTH_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidThresholds verifies run fails when validation rejects
// the configuration.
func TestRun_InvalidThresholds(t *testing.T) {
	writeTestConfig(t, testConfigYAML+`
rules:
  temperature_low: 25
  temperature_high: 20
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when temperature_low >= temperature_high")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("HEARTH_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestHealthCheck_NilClients verifies the health check passes when both
// optional integrations are disabled.
func TestHealthCheck_NilClients(t *testing.T) {
	if err := healthCheck(context.Background(), nil, nil); err != nil {
		t.Errorf("healthCheck(nil, nil) error = %v", err)
	}
}

// TestRun_StartupAndShutdown runs the full hub standalone (no MQTT, no
// InfluxDB) and verifies it shuts down cleanly on context cancellation.
func TestRun_StartupAndShutdown(t *testing.T) {
	writeTestConfig(t, testConfigYAML)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}
}
