package mqtt

import "fmt"

// maxPayloadSize caps publishes at 1MB. Iris payloads are small JSON
// documents; anything larger indicates a bug upstream.
const maxPayloadSize = 1024 * 1024

// Publish sends a message to the specified topic.
//
// Parameters:
//   - topic: Topic to publish to (use the Topics builders)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message
//   - payload: Message payload (typically JSON-encoded)
//
// Returns:
//   - error: ErrNotConnected, ErrInvalidTopic, ErrInvalidQoS, or
//     ErrPublishFailed wrapped with the underlying cause
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: got %d", ErrInvalidQoS, qos)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishString is a convenience wrapper for string payloads.
func (c *Client) PublishString(topic string, qos byte, retained bool, payload string) error {
	return c.Publish(topic, qos, retained, []byte(payload))
}

// PublishRetained publishes a retained message at the configured QoS.
// Used for status and session-screen topics where late subscribers
// should receive the latest value immediately.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, byte(c.cfg.QoS), true, payload)
}
