// Package mock provides a configurable in-memory implementation of the mq
// client interface for tests.
package mock

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tenacious60/aquahealthmonitor/pkg/mq"
)

// Client records calls and returns configured results.
type Client struct {
	mu sync.Mutex

	// PushFunc overrides Push behaviour. If nil, Push records the payload
	// and returns PushError.
	PushFunc  func(ctx context.Context, data []byte) error
	PushError error
	Pushed    [][]byte

	UnsafePushFunc  func(ctx context.Context, data []byte) error
	UnsafePushError error
	UnsafePushed    [][]byte

	ConsumeFunc    func() (<-chan amqp.Delivery, error)
	ConsumeChannel <-chan amqp.Delivery
	ConsumeError   error
	ConsumeCalls   int

	CloseError error
	CloseCalls int
}

var _ mq.Client = (*Client)(nil)

// Push implements mq.Client.
func (c *Client) Push(ctx context.Context, data []byte) error {
	c.mu.Lock()
	c.Pushed = append(c.Pushed, append([]byte(nil), data...))
	fn := c.PushFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, data)
	}
	return c.PushError
}

// UnsafePush implements mq.Client.
func (c *Client) UnsafePush(ctx context.Context, data []byte) error {
	c.mu.Lock()
	c.UnsafePushed = append(c.UnsafePushed, append([]byte(nil), data...))
	fn := c.UnsafePushFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, data)
	}
	return c.UnsafePushError
}

// Consume implements mq.Client.
func (c *Client) Consume() (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	c.ConsumeCalls++
	fn := c.ConsumeFunc
	c.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return c.ConsumeChannel, c.ConsumeError
}

// Close implements mq.Client.
func (c *Client) Close() error {
	c.mu.Lock()
	c.CloseCalls++
	c.mu.Unlock()
	return c.CloseError
}

// PushCount returns the number of recorded Push calls.
func (c *Client) PushCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Pushed)
}
