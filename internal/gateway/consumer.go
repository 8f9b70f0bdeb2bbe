package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
	"github.com/tenacious60/aquahealthmonitor/pkg/mq"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// AlertConsumer consumes regional alert broadcasts from RabbitMQ and fans
// them out into per-user alert rows for every health worker registered in
// the broadcast's pincode.
type AlertConsumer struct {
	logger   *slog.Logger
	db       *gorm.DB
	mqClient mq.Client
	metrics  *metrics.GatewayMetrics
	queue    string
	done     chan struct{}
}

// AlertConsumerConfig holds the configuration for the AlertConsumer.
type AlertConsumerConfig struct {
	Logger      *slog.Logger
	DB          *gorm.DB
	RabbitMQURL string
	QueueName   string
	Metrics     *metrics.GatewayMetrics
}

// NewAlertConsumer creates a new AlertConsumer instance.
func NewAlertConsumer(cfg *AlertConsumerConfig) (*AlertConsumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.DB == nil {
		return nil, errors.New("database cannot be nil")
	}

	if cfg.RabbitMQURL == "" {
		return nil, errors.New("rabbitmq URL cannot be empty")
	}

	if cfg.QueueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	mqClient := mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)

	return &AlertConsumer{
		logger:   cfg.Logger,
		db:       cfg.DB,
		mqClient: mqClient,
		metrics:  cfg.Metrics,
		queue:    cfg.QueueName,
		done:     make(chan struct{}),
	}, nil
}

// Start begins consuming alert broadcasts from RabbitMQ.
func (c *AlertConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting alert consumer")

	// Wait for MQ client to be ready
	time.Sleep(2 * time.Second)

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("alert consumer started, waiting for broadcasts")

	go c.processMessages(ctx, deliveries)

	return nil
}

// processMessages processes incoming broadcasts from the deliveries channel.
func (c *AlertConsumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping broadcast processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery processes a single broadcast delivery.
func (c *AlertConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	broadcast, err := waterhealth.DecodeAlertBroadcast(delivery.Body)
	if err != nil {
		c.logger.Error("failed to decode alert broadcast",
			"error", err,
		)
		c.countError("decode")
		// Acknowledge malformed messages to avoid reprocessing
		if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "error", ackErr)
		}
		return
	}

	c.logger.Info("received alert broadcast",
		"pincode", broadcast.Pincode,
		"type", broadcast.Type,
		"title", broadcast.Title,
	)

	created, err := c.fanOut(ctx, broadcast)
	if err != nil {
		c.logger.Error("failed to fan out alert broadcast",
			"pincode", broadcast.Pincode,
			"error", err,
		)
		c.countError("persist")
		// Nack the message so it can be reprocessed
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", "error", nackErr)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
		return
	}

	if c.metrics != nil {
		c.metrics.ConsumerMessagesTotal.WithLabelValues(c.queue, "ok").Inc()
		c.metrics.AlertsFannedOut.Add(float64(created))
	}

	c.logger.Debug("alert broadcast fanned out",
		"pincode", broadcast.Pincode,
		"alerts_created", created,
	)
}

// fanOut creates one alert row per user whose profile matches the
// broadcast's pincode. Returns the number of alerts created.
func (c *AlertConsumer) fanOut(ctx context.Context, broadcast *waterhealth.AlertBroadcast) (int, error) {
	var userIDs []string
	err := c.db.WithContext(ctx).
		Model(&Profile{}).
		Where("pincode = ?", broadcast.Pincode).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find recipients: %w", err)
	}

	if len(userIDs) == 0 {
		c.logger.Debug("no recipients for broadcast", "pincode", broadcast.Pincode)
		return 0, nil
	}

	issuedAt := broadcast.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	alerts := make([]Alert, 0, len(userIDs))
	for _, userID := range userIDs {
		alerts = append(alerts, Alert{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     broadcast.Title,
			Message:   broadcast.Message,
			Type:      broadcast.Type,
			IsRead:    false,
			CreatedAt: issuedAt,
		})
	}

	if err := c.db.WithContext(ctx).Create(&alerts).Error; err != nil {
		return 0, fmt.Errorf("failed to create alerts: %w", err)
	}

	return len(alerts), nil
}

func (c *AlertConsumer) countError(errorType string) {
	if c.metrics != nil {
		c.metrics.ConsumerMessagesTotal.WithLabelValues(c.queue, "error").Inc()
		c.metrics.ConsumerErrors.WithLabelValues(c.queue, errorType).Inc()
	}
}

// Stop stops the consumer and closes the MQ client.
func (c *AlertConsumer) Stop() error {
	c.logger.Info("stopping alert consumer")

	if err := c.mqClient.Close(); err != nil {
		return fmt.Errorf("failed to close mq client: %w", err)
	}

	<-c.done

	c.logger.Info("alert consumer stopped")
	return nil
}

// ReadingConsumer consumes fleet sensor readings from RabbitMQ and persists
// them for regional water quality monitoring.
type ReadingConsumer struct {
	logger   *slog.Logger
	db       *gorm.DB
	mqClient mq.Client
	metrics  *metrics.GatewayMetrics
	queue    string
	done     chan struct{}
}

// ReadingConsumerConfig holds the configuration for the ReadingConsumer.
type ReadingConsumerConfig struct {
	Logger      *slog.Logger
	DB          *gorm.DB
	RabbitMQURL string
	QueueName   string
	Metrics     *metrics.GatewayMetrics
}

// NewReadingConsumer creates a new ReadingConsumer instance.
func NewReadingConsumer(cfg *ReadingConsumerConfig) (*ReadingConsumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.DB == nil {
		return nil, errors.New("database cannot be nil")
	}

	if cfg.RabbitMQURL == "" {
		return nil, errors.New("rabbitmq URL cannot be empty")
	}

	if cfg.QueueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	mqClient := mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)

	return &ReadingConsumer{
		logger:   cfg.Logger,
		db:       cfg.DB,
		mqClient: mqClient,
		metrics:  cfg.Metrics,
		queue:    cfg.QueueName,
		done:     make(chan struct{}),
	}, nil
}

// Start begins consuming fleet readings from RabbitMQ.
func (c *ReadingConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting reading consumer")

	time.Sleep(2 * time.Second)

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("reading consumer started, waiting for messages")

	go c.processMessages(ctx, deliveries)

	return nil
}

func (c *ReadingConsumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping message processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

func (c *ReadingConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	reading, err := waterhealth.DecodeFleetReading(delivery.Body)
	if err != nil {
		c.logger.Error("failed to decode fleet reading",
			"error", err,
		)
		c.countError("decode")
		if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "error", ackErr)
		}
		return
	}

	c.logger.Info("received fleet reading",
		"device_id", reading.DeviceID,
		"pincode", reading.Pincode,
		"ph", reading.PH,
	)

	if err := c.saveReading(ctx, reading); err != nil {
		c.logger.Error("failed to save fleet reading",
			"device_id", reading.DeviceID,
			"error", err,
		)
		c.countError("persist")
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", "error", nackErr)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
		return
	}

	if c.metrics != nil {
		c.metrics.ConsumerMessagesTotal.WithLabelValues(c.queue, "ok").Inc()
	}

	c.logger.Debug("fleet reading saved",
		"device_id", reading.DeviceID,
	)
}

func (c *ReadingConsumer) saveReading(ctx context.Context, reading *waterhealth.FleetReading) error {
	recordedAt := reading.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	row := &FleetReading{
		DeviceID:   reading.DeviceID,
		Pincode:    reading.Pincode,
		PH:         reading.PH,
		Turbidity:  string(reading.Turbidity),
		Bacteria:   reading.Bacteria,
		Battery:    reading.Battery,
		RecordedAt: recordedAt,
	}

	if err := c.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create fleet reading: %w", err)
	}

	return nil
}

func (c *ReadingConsumer) countError(errorType string) {
	if c.metrics != nil {
		c.metrics.ConsumerMessagesTotal.WithLabelValues(c.queue, "error").Inc()
		c.metrics.ConsumerErrors.WithLabelValues(c.queue, errorType).Inc()
	}
}

// Stop stops the consumer and closes the MQ client.
func (c *ReadingConsumer) Stop() error {
	c.logger.Info("stopping reading consumer")

	if err := c.mqClient.Close(); err != nil {
		return fmt.Errorf("failed to close mq client: %w", err)
	}

	<-c.done

	c.logger.Info("reading consumer stopped")
	return nil
}
