package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hearthlab/hearth-core/internal/eventlog"
	"github.com/hearthlab/hearth-core/internal/hub"
	"github.com/hearthlab/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearthlab/hearth-core/internal/infrastructure/logging"
	"github.com/hearthlab/hearth-core/internal/infrastructure/mqtt"
)

// newMQTTForwarder mirrors hub events onto the MQTT topic tree.
//
// Every event is published on hearth/event/{category}. State-bearing
// events additionally update the retained state topics so late
// subscribers see the current hub state immediately:
//   - SENSOR_UPDATE    -> hearth/state/sensor/{kind}
//   - ACTUATOR_CHANGED -> hearth/state/actuator/{kind}
//   - MODE_CHANGED     -> hearth/state/mode
func newMQTTForwarder(client *mqtt.Client, log *logging.Logger) eventlog.Forwarder {
	topics := client.Topics()

	return eventlog.ForwarderFunc(func(e hub.Event) {
		payload, err := json.Marshal(e)
		if err != nil {
			log.Error("failed to marshal event for MQTT", "error", err)
			return
		}

		category := strings.ToLower(string(e.Category))
		if err := client.PublishEvent(topics.Event(category), payload); err != nil {
			log.Debug("MQTT event publish failed", "category", category, "error", err)
		}

		switch e.Category {
		case hub.EventSensorUpdate:
			if e.Reading != nil {
				publishRetainedJSON(client, log, topics.SensorReading(string(e.Reading.Kind)), e.Reading)
			}
		case hub.EventActuatorChanged:
			if e.Actuator != nil {
				publishRetainedJSON(client, log, topics.ActuatorState(string(e.Actuator.Kind)), e.Actuator)
			}
		case hub.EventModeChanged:
			publishRetainedJSON(client, log, topics.Mode(), map[string]string{
				"message":   e.Message,
				"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
			})
		}
	})
}

// publishRetainedJSON marshals v and publishes it retained on topic.
func publishRetainedJSON(client *mqtt.Client, log *logging.Logger, topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to marshal retained state for MQTT", "topic", topic, "error", err)
		return
	}
	if err := client.PublishRetained(topic, data); err != nil {
		log.Debug("MQTT retained publish failed", "topic", topic, "error", err)
	}
}

// newInfluxForwarder writes sensor readings and actuator state changes
// to the telemetry bucket. Writes are batched and non-blocking; other
// event categories carry no numeric series and are skipped.
func newInfluxForwarder(client *influxdb.Client) eventlog.Forwarder {
	return eventlog.ForwarderFunc(func(e hub.Event) {
		switch e.Category {
		case hub.EventSensorUpdate:
			if e.Reading != nil {
				client.WriteReading(string(e.Reading.Kind), e.Reading.Value, e.Reading.Timestamp)
			}
		case hub.EventActuatorChanged:
			if e.Actuator != nil {
				client.WriteActuatorState(string(e.Actuator.Kind), e.Actuator.On, e.Rule, e.Actuator.LastChanged)
			}
		}
	})
}
