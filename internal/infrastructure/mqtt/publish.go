package mqtt

import (
	"context"
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic and waits for the
// broker's acknowledgement (for QoS 1 and 2).
//
// Parameters:
//   - ctx: Bounds the wait together with the publish timeout
//   - topic: The topic to publish to (e.g., "tsmigrate/sensors/dev-42")
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	topic := client.Topics().Device("dev-42")
//	err := client.Publish(ctx, topic, payload, 1, false)
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if c.isClosed() {
		return ErrClosed
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	waitCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	token := c.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
		}
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishDefault publishes a non-retained message with the configured QoS.
func (c *Client) PublishDefault(ctx context.Context, topic string, payload []byte) error {
	return c.Publish(ctx, topic, payload, byte(c.cfg.QoS), false)
}
