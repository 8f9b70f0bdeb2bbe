// Package mq provides a RabbitMQ client with automatic reconnection used to
// move alert broadcasts and fleet readings between the simulator and the
// gateway.
package mq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

// QueueClient is a RabbitMQ client bound to a single queue. It reconnects
// automatically after connection or channel failures.
type QueueClient struct {
	mu              sync.Mutex
	log             *slog.Logger
	connection      *amqp.Connection
	channel         *amqp.Channel
	done            chan struct{}
	notifyConnClose chan *amqp.Error
	notifyChanClose chan *amqp.Error
	notifyConfirm   chan amqp.Confirmation
	queueName       string
	ready           bool
	metrics         *metrics.MQMetrics // optional
}

const (
	reconnectDelay = 5 * time.Second
	reInitDelay    = 2 * time.Second

	initialBackoff    = 100 * time.Millisecond
	maxBackoff        = 10 * time.Second
	backoffMultiplier = 2
	maxPushAttempts   = 5
)

var (
	errNotConnected  = errors.New("not connected to a server")
	errAlreadyClosed = errors.New("already closed: not connected to the server")
	errShutdown      = errors.New("client is shutting down")
	errPushGaveUp    = errors.New("push retry attempts exhausted")
)

// New creates a client bound to queueName and starts connecting to addr in
// the background.
func New(queueName, addr string, log *slog.Logger) *QueueClient {
	client := &QueueClient{
		log:       log,
		queueName: queueName,
		done:      make(chan struct{}),
	}
	go client.handleReconnect(addr)
	return client
}

// SetMetrics attaches an MQ metrics collector. Call before the client starts
// processing messages.
func (c *QueueClient) SetMetrics(m *metrics.MQMetrics) {
	c.metrics = m
}

// handleReconnect loops for the lifetime of the client, re-dialing after
// every connection loss.
func (c *QueueClient) handleReconnect(addr string) {
	for {
		c.setReady(false)
		c.log.Info("attempting to connect", "queue", c.queueName)

		if c.metrics != nil {
			c.metrics.ReconnectAttempts.Inc()
		}

		conn, err := c.connect(addr)
		if err != nil {
			c.log.Error("failed to connect, retrying", "error", err)
			select {
			case <-c.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		if done := c.handleReInit(conn); done {
			return
		}
	}
}

func (c *QueueClient) connect(addr string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ConnectionStatus.Set(0)
		}
		return nil, err
	}

	c.changeConnection(conn)
	c.log.Info("connected", "queue", c.queueName)

	if c.metrics != nil {
		c.metrics.ConnectionStatus.Set(1)
	}
	return conn, nil
}

// handleReInit re-initializes the channel until the connection dies or the
// client shuts down. Returns true when the client is done for good.
func (c *QueueClient) handleReInit(conn *amqp.Connection) bool {
	for {
		c.setReady(false)

		if err := c.init(conn); err != nil {
			c.log.Error("failed to initialize channel, retrying", "error", err)
			select {
			case <-c.done:
				return true
			case <-c.notifyConnClose:
				c.log.Info("connection closed, reconnecting")
				return false
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-c.done:
			return true
		case <-c.notifyConnClose:
			c.log.Info("connection closed, reconnecting")
			return false
		case <-c.notifyChanClose:
			c.log.Info("channel closed, re-running init")
		}
	}
}

// init opens a confirm-mode channel and declares the queue.
func (c *QueueClient) init(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	if err := ch.Confirm(false); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		c.queueName,
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	c.changeChannel(ch)
	c.setReady(true)
	c.log.Info("queue client ready", "queue", c.queueName)
	return nil
}

func (c *QueueClient) changeConnection(conn *amqp.Connection) {
	c.connection = conn
	c.notifyConnClose = make(chan *amqp.Error, 1)
	c.connection.NotifyClose(c.notifyConnClose)
}

func (c *QueueClient) changeChannel(ch *amqp.Channel) {
	c.channel = ch
	c.notifyChanClose = make(chan *amqp.Error, 1)
	c.notifyConfirm = make(chan amqp.Confirmation, 1)
	c.channel.NotifyClose(c.notifyChanClose)
	c.channel.NotifyPublish(c.notifyConfirm)
}

func (c *QueueClient) setReady(ready bool) {
	c.mu.Lock()
	c.ready = ready
	c.mu.Unlock()
}

func (c *QueueClient) isReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Push publishes data and waits for broker confirmation, retrying with
// exponential backoff while disconnected. Gives up after maxPushAttempts.
func (c *QueueClient) Push(ctx context.Context, data []byte) error {
	var timer *prometheus.Timer
	if c.metrics != nil {
		timer = prometheus.NewTimer(c.metrics.PushDuration.WithLabelValues(c.queueName))
		defer timer.ObserveDuration()
	}

	backoff := initialBackoff
	attempts := 0

	wait := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return errShutdown
		case <-time.After(backoff):
			backoff *= backoffMultiplier
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			attempts++
			return nil
		}
	}

	for {
		if attempts >= maxPushAttempts {
			if c.metrics != nil {
				c.metrics.PushFailures.WithLabelValues(c.queueName, "attempts_exhausted").Inc()
			}
			return errPushGaveUp
		}

		if !c.isReady() {
			c.log.Debug("not connected, waiting for reconnection",
				"backoff", backoff, "attempts", attempts)
			if err := wait(); err != nil {
				return err
			}
			continue
		}

		if err := c.UnsafePush(ctx, data); err != nil {
			c.log.Error("push failed, retrying", "error", err, "attempts", attempts)
			if err := wait(); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			if c.metrics != nil {
				c.metrics.PushFailures.WithLabelValues(c.queueName, "context_canceled").Inc()
			}
			return ctx.Err()
		case confirm := <-c.notifyConfirm:
			if confirm.Ack {
				if c.metrics != nil {
					c.metrics.MessagesPushed.WithLabelValues(c.queueName).Inc()
				}
				c.log.Debug("push confirmed", "delivery_tag", confirm.DeliveryTag)
				return nil
			}
			c.log.Warn("push not acknowledged, retrying", "delivery_tag", confirm.DeliveryTag)
			if err := wait(); err != nil {
				return err
			}
		}
	}
}

// UnsafePush publishes without waiting for confirmation.
func (c *QueueClient) UnsafePush(ctx context.Context, data []byte) error {
	if !c.isReady() {
		return errNotConnected
	}

	return c.channel.PublishWithContext(
		ctx,
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
		},
	)
}

// Consume returns a delivery channel with prefetch 1. Deliveries must be
// Ack'd or Nack'd by the caller.
func (c *QueueClient) Consume() (<-chan amqp.Delivery, error) {
	if !c.isReady() {
		return nil, errNotConnected
	}

	if err := c.channel.Qos(1, 0, false); err != nil {
		return nil, err
	}

	return c.channel.Consume(
		c.queueName,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
}

// Close cleanly shuts down the channel and connection.
func (c *QueueClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return errAlreadyClosed
	}
	close(c.done)

	if err := c.channel.Close(); err != nil {
		return err
	}
	if err := c.connection.Close(); err != nil {
		return err
	}

	c.ready = false
	if c.metrics != nil {
		c.metrics.ConnectionStatus.Set(0)
	}
	return nil
}
