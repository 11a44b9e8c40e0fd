package mqtt

import "fmt"

// DefaultTopicRoot is the topic namespace used when none is configured.
const DefaultTopicRoot = "hearth"

// Topics provides builders for the hub's MQTT topics. Using these
// helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Root: "hearth"}
//	topics.Event("rule_fired")          // "hearth/event/rule_fired"
//	topics.ActuatorState("heating")     // "hearth/state/actuator/heating"
type Topics struct {
	// Root is the topic namespace. Empty means DefaultTopicRoot.
	Root string
}

func (t Topics) root() string {
	if t.Root == "" {
		return DefaultTopicRoot
	}
	return t.Root
}

// SystemStatus returns the hub online/offline status topic.
//
// Example: hearth/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.root())
}

// Event returns the topic for a hub event category.
//
// Example: hearth/event/actuator_changed
func (t Topics) Event(category string) string {
	return fmt.Sprintf("%s/event/%s", t.root(), category)
}

// ActuatorState returns the retained-state topic for one actuator.
//
// Example: hearth/state/actuator/lights
func (t Topics) ActuatorState(kind string) string {
	return fmt.Sprintf("%s/state/actuator/%s", t.root(), kind)
}

// SensorReading returns the topic for sensor reading updates.
//
// Example: hearth/state/sensor/temperature
func (t Topics) SensorReading(kind string) string {
	return fmt.Sprintf("%s/state/sensor/%s", t.root(), kind)
}

// Mode returns the retained-state topic for the occupancy mode.
//
// Example: hearth/state/mode
func (t Topics) Mode() string {
	return fmt.Sprintf("%s/state/mode", t.root())
}

// AllEvents returns a pattern matching every event topic.
//
// Pattern: hearth/event/+
func (t Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", t.root())
}

// AllTopics returns a pattern matching all hub topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: hearth/#
func (t Topics) AllTopics() string {
	return fmt.Sprintf("%s/#", t.root())
}
