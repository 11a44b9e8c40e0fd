package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading records one sensor reading.
//
// This is the primary telemetry path: every accepted reading is
// recorded so temperature, light, and motion history can be graphed.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sensor: Sensor kind (e.g., "temperature")
//   - value: The reading value
//   - timestamp: When the sensor produced the reading
//
// Example:
//
//	client.WriteReading("temperature", 21.5, reading.Timestamp)
func (c *Client) WriteReading(sensor string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"readings",
		map[string]string{
			"sensor": sensor,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteActuatorState records an actuator state change.
//
// The on/off state is stored as 0/1 so duty cycles can be computed
// from the series.
//
// Parameters:
//   - actuator: Actuator kind (e.g., "heating")
//   - on: The new state
//   - rule: The rule that caused the change, or "manual"
//   - timestamp: When the change was applied
func (c *Client) WriteActuatorState(actuator string, on bool, rule string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	state := 0.0
	if on {
		state = 1.0
	}

	point := write.NewPoint(
		"actuators",
		map[string]string{
			"actuator": actuator,
			"rule":     rule,
		},
		map[string]interface{}{
			"on": state,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("hub_stats",
//	    map[string]string{"site": "site-001"},
//	    map[string]interface{}{"channel_depth": 3, "goroutines": 24})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
