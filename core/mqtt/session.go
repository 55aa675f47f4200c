package mqtt

// MessageHandler receives inbound messages delivered by the broker. Handlers
// run on the transport's delivery goroutine and must not block.
type MessageHandler func(topic string, payload []byte)

// Session represents one connection to the MQTT broker. A dispatch (or a
// recorder) owns exactly one session for its full lifetime; sessions are not
// shared.
type Session interface {
	// Subscribe registers a handler for the given topic filter and waits for
	// the broker to acknowledge the subscription.
	Subscribe(topic string, handler MessageHandler) error

	// Publish sends one message to the given topic. A single best-effort
	// publish is performed; there are no retries.
	Publish(topic string, payload []byte) error

	// Unsubscribe removes the given topic filters.
	Unsubscribe(topics ...string) error

	// Close disconnects from the broker.
	Close()
}
