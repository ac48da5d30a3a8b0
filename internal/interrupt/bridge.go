package interrupt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// sensorMessage is the payload ESP32 sensors publish on
// iris/sensors/<device>/event.
type sensorMessage struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// SensorBridge translates sensor MQTT messages into interrupt events.
//
// It is registered as a subscription handler; the handler signature
// matches the MQTT client's MessageHandler so the bridge itself carries
// no broker dependency.
type SensorBridge struct {
	channel *Channel
	logger  Logger
}

// NewSensorBridge creates a bridge feeding the given channel.
func NewSensorBridge(channel *Channel, logger Logger) *SensorBridge {
	return &SensorBridge{channel: channel, logger: logger}
}

// HandleMessage converts one sensor message into an interrupt event and
// publishes it. Unknown event names and malformed payloads are logged
// and skipped; they never propagate as handler errors because a bad
// sensor must not disturb the broker session.
func (b *SensorBridge) HandleMessage(topic string, payload []byte) error {
	var msg sensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("malformed sensor payload", "topic", topic, "error", err)
		return nil
	}

	kind, ok := kindForSensorEvent(msg.Event)
	if !ok {
		b.logger.Debug("ignoring unknown sensor event", "topic", topic, "event", msg.Event)
		return nil
	}

	ev := Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    msg.Data,
		Source:     deviceFromTopic(topic),
		ReceivedAt: time.Now(),
	}
	if err := b.channel.Publish(ev); err != nil {
		return fmt.Errorf("publishing sensor interrupt: %w", err)
	}
	return nil
}

// kindForSensorEvent maps wire event names to interrupt kinds.
func kindForSensorEvent(event string) (Kind, bool) {
	switch event {
	case "motion":
		return KindMotionAlert, true
	case "error", "fault":
		return KindDeviceError, true
	default:
		return "", false
	}
}

// deviceFromTopic extracts the device name from
// iris/sensors/<device>/event.
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[2]
	}
	return topic
}
