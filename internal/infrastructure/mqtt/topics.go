package mqtt

import "fmt"

// Topic prefixes for the Iris MQTT namespace.
//
// The phone publishes speech transcripts, sensors publish events, and
// the core publishes its own status and session screen - everything
// under a single iris/ root.
const (
	// TopicPrefix is the root of all Iris topics.
	TopicPrefix = "iris"

	// TopicPrefixSensors is the base for sensor-originated events.
	TopicPrefixSensors = "iris/sensors"

	// TopicPrefixVoice is the base for voice transport topics.
	TopicPrefixVoice = "iris/voice"

	// TopicPrefixSystem is the base for core status topics.
	TopicPrefixSystem = "iris/system"
)

// Topics provides builders for Iris MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// SensorEvent returns the topic a named sensor publishes events on.
//
// Example: iris/sensors/motion/event
func (Topics) SensorEvent(device string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixSensors, device)
}

// AllSensorEvents returns a pattern matching every sensor event topic.
//
// Pattern: iris/sensors/+/event
func (Topics) AllSensorEvents() string {
	return fmt.Sprintf("%s/+/event", TopicPrefixSensors)
}

// VoiceTranscript returns the topic the phone publishes STT results on.
//
// Example: iris/voice/transcript
func (Topics) VoiceTranscript() string {
	return fmt.Sprintf("%s/transcript", TopicPrefixVoice)
}

// SystemStatus returns the core's online/offline status topic.
//
// Example: iris/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SessionScreen returns the topic the core announces screen changes on,
// for companion UIs that mirror the glasses display.
//
// Example: iris/system/session
func (Topics) SessionScreen() string {
	return fmt.Sprintf("%s/session", TopicPrefixSystem)
}

// AllTopics returns a pattern matching the whole Iris namespace.
// Use with caution - this receives ALL traffic.
//
// Pattern: iris/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
