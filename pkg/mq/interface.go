package mq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client defines the message queue operations the services depend on.
// The concrete implementation reconnects automatically; a mock lives in
// the mock subpackage for tests.
type Client interface {
	// Push publishes data to the queue and waits for broker confirmation,
	// retrying with backoff while the connection is re-established.
	Push(ctx context.Context, data []byte) error

	// UnsafePush publishes without waiting for confirmation. No delivery
	// guarantee is provided.
	UnsafePush(ctx context.Context, data []byte) error

	// Consume returns a channel of deliveries. Each delivery must be
	// Ack'd after successful processing or Nack'd on failure.
	Consume() (<-chan amqp.Delivery, error)

	// Close cleanly shuts down the channel and connection.
	Close() error
}

var _ Client = (*QueueClient)(nil)
