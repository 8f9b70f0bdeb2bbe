package simulator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
	"github.com/tenacious60/aquahealthmonitor/pkg/mq"
)

// ServerConfig holds the configuration for the simulator server.
type ServerConfig struct {
	// Logger is the structured logger
	Logger *slog.Logger
	// RabbitMQURL is the connection string for RabbitMQ
	RabbitMQURL string
	// ReadingsQueue is the queue fleet readings are published to
	ReadingsQueue string
	// AlertQueue is the queue alert broadcasts are published to
	AlertQueue string
	// Pincodes the simulated fleet is spread over
	Pincodes []string
	// ReadingInterval is the time between fleet readings
	ReadingInterval time.Duration
	// BroadcastInterval is the time between alert broadcasts
	BroadcastInterval time.Duration
	// FleetCount is the number of concurrent fleet publishers
	FleetCount int
	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.SimulatorMetrics
	// MQMetrics is the optional Prometheus metrics collector for MQ operations
	MQMetrics *metrics.MQMetrics
}

// Server manages multiple simulator instances.
type Server struct {
	logger         *slog.Logger
	config         *ServerConfig
	simulators     []*Simulator
	readingClients []*mq.QueueClient
	alertClients   []*mq.QueueClient
	wg             sync.WaitGroup
	metrics        *metrics.SimulatorMetrics
}

var (
	errInvalidFleetCount        = errors.New("fleet count must be greater than 0")
	errInvalidReadingInterval   = errors.New("reading interval must be greater than 0")
	errInvalidBroadcastInterval = errors.New("broadcast interval must be greater than 0")
	errNoPincodes               = errors.New("at least one pincode is required")
	errLoggerRequired           = errors.New("logger is required")
)

// NewServer creates a new simulator server with the given configuration.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.FleetCount <= 0 {
		return nil, errInvalidFleetCount
	}

	if cfg.ReadingInterval <= 0 {
		return nil, errInvalidReadingInterval
	}

	if cfg.BroadcastInterval <= 0 {
		return nil, errInvalidBroadcastInterval
	}

	if len(cfg.Pincodes) == 0 {
		return nil, errNoPincodes
	}

	if cfg.Logger == nil {
		return nil, errLoggerRequired
	}

	s := &Server{
		config:         cfg,
		simulators:     make([]*Simulator, 0, cfg.FleetCount),
		readingClients: make([]*mq.QueueClient, 0, cfg.FleetCount),
		alertClients:   make([]*mq.QueueClient, 0, cfg.FleetCount),
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}

	// Create simulator instances with their own MQ clients
	for i := 0; i < cfg.FleetCount; i++ {
		readingClient := mq.New(cfg.ReadingsQueue, cfg.RabbitMQURL, cfg.Logger.With(
			slog.String("component", "reading-mq-client"),
			slog.Int("fleet_id", i),
		))
		if cfg.MQMetrics != nil {
			readingClient.SetMetrics(cfg.MQMetrics)
		}

		alertClient := mq.New(cfg.AlertQueue, cfg.RabbitMQURL, cfg.Logger.With(
			slog.String("component", "alert-mq-client"),
			slog.Int("fleet_id", i),
		))
		if cfg.MQMetrics != nil {
			alertClient.SetMetrics(cfg.MQMetrics)
		}

		sim := NewSimulator(readingClient, alertClient, cfg.Pincodes)
		if cfg.Metrics != nil {
			sim.SetMetrics(cfg.Metrics)
		}

		s.readingClients = append(s.readingClients, readingClient)
		s.alertClients = append(s.alertClients, alertClient)
		s.simulators = append(s.simulators, sim)

		s.logger.Info("created simulator instance",
			"fleet_id", i,
			"readings_queue", cfg.ReadingsQueue,
			"alert_queue", cfg.AlertQueue,
			"sensor_count", len(sim.Sensors),
		)
	}

	return s, nil
}

// Run starts all simulators and blocks until shutdown signal is received.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start all fleet publishers
	for i, sim := range s.simulators {
		s.wg.Add(1)
		go s.runFleet(ctx, i, sim)
	}

	// The first simulator doubles as the district authority.
	s.wg.Add(1)
	go s.runAuthority(ctx, s.simulators[0])

	s.logger.Info("simulator server started",
		"fleet_count", len(s.simulators),
		"reading_interval", s.config.ReadingInterval,
		"broadcast_interval", s.config.BroadcastInterval,
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
	}

	s.logger.Info("waiting for simulators to shut down...")
	s.wg.Wait()

	s.logger.Info("closing MQ clients...")
	s.closeClients()

	s.logger.Info("simulator server stopped")
	return nil
}

// runFleet publishes fleet readings at the configured interval.
func (s *Server) runFleet(ctx context.Context, id int, sim *Simulator) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ReadingInterval)
	defer ticker.Stop()

	fleetLogger := s.logger.With(slog.Int("fleet_id", id))
	fleetLogger.Info("fleet publisher started")

	for {
		select {
		case <-ctx.Done():
			fleetLogger.Info("fleet publisher shutting down")
			return

		case <-ticker.C:
			if err := sim.PublishReading(ctx); err != nil {
				fleetLogger.Error("failed to publish fleet reading", "error", err)
				// Continue on error - don't stop the publisher
				continue
			}

			fleetLogger.Debug("fleet reading published")
		}
	}
}

// runAuthority issues alert broadcasts at the configured interval.
func (s *Server) runAuthority(ctx context.Context, sim *Simulator) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.BroadcastInterval)
	defer ticker.Stop()

	s.logger.Info("authority publisher started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("authority publisher shutting down")
			return

		case <-ticker.C:
			if err := sim.PublishBroadcast(ctx); err != nil {
				s.logger.Error("failed to publish alert broadcast", "error", err)
				continue
			}

			s.logger.Debug("alert broadcast published")
		}
	}
}

// closeClients closes all MQ clients gracefully.
func (s *Server) closeClients() {
	var wg sync.WaitGroup

	closeClient := func(kind string, id int, c *mq.QueueClient) {
		defer wg.Done()

		if err := c.Close(); err != nil {
			s.logger.Error("failed to close MQ client",
				"kind", kind,
				"fleet_id", id,
				"error", err,
			)
			return
		}

		s.logger.Info("MQ client closed", "kind", kind, "fleet_id", id)
	}

	for i, client := range s.readingClients {
		wg.Add(1)
		go closeClient("reading", i, client)
	}
	for i, client := range s.alertClients {
		wg.Add(1)
		go closeClient("alert", i, client)
	}

	wg.Wait()
}

// Shutdown initiates a graceful shutdown of the server.
// This is an alternative to sending OS signals.
func (s *Server) Shutdown() error {
	s.logger.Info("shutdown requested")

	s.closeClients()

	return nil
}
