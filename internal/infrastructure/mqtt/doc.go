// Package mqtt provides MQTT client connectivity for the Hearth event
// mirror.
//
// This package manages:
//   - Connection to a Mosquitto-compatible broker with auto-reconnect
//   - Event and retained-state publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The hub is publish-only on MQTT: every event the controller emits is
// mirrored to the broker, and actuator/mode state is published retained
// so late subscribers see the current state immediately. Nothing is
// consumed from the broker; the hub's inputs are its own simulated
// sensors.
//
//	Hearth hub → MQTT Broker → external dashboards / recorders
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().Event("rule_fired")
//	client.PublishEvent(topic, payloadJSON)
package mqtt
