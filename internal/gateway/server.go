package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

// Server represents the gateway server that manages the database, the MQ
// consumers, and the HTTP API.
type Server struct {
	logger     *slog.Logger
	db         *gorm.DB
	alerts     *AlertConsumer
	readings   *ReadingConsumer
	httpServer *http.Server
	config     *ServerConfig
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// Database configuration
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPort     int

	// RabbitMQ configuration
	RabbitMQURL   string
	AlertQueue    string
	ReadingsQueue string

	// HTTP configuration
	HTTPPort int

	// PublicBaseURL is the externally reachable base used to mint object URLs.
	PublicBaseURL string

	// TokenSecret signs session tokens.
	TokenSecret string
}

// NewServer creates a new Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.RabbitMQURL == "" {
		return nil, errors.New("rabbitmq URL cannot be empty")
	}

	if cfg.AlertQueue == "" {
		return nil, errors.New("alert queue name cannot be empty")
	}

	if cfg.ReadingsQueue == "" {
		return nil, errors.New("readings queue name cannot be empty")
	}

	if cfg.DBHost == "" {
		return nil, errors.New("database host cannot be empty")
	}

	if cfg.DBPort <= 0 {
		return nil, errors.New("database port must be positive")
	}

	if cfg.DBUser == "" {
		return nil, errors.New("database user cannot be empty")
	}

	if cfg.DBName == "" {
		return nil, errors.New("database name cannot be empty")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	if cfg.PublicBaseURL == "" {
		return nil, errors.New("public base URL cannot be empty")
	}

	if cfg.TokenSecret == "" {
		return nil, errors.New("token secret cannot be empty")
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run starts the gateway server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting gateway server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Initialize database
	dbCfg := &DBConfig{
		Host:     s.config.DBHost,
		Port:     s.config.DBPort,
		User:     s.config.DBUser,
		Password: s.config.DBPassword,
		DBName:   s.config.DBName,
		SSLMode:  s.config.DBSSLMode,
		Logger:   s.logger,
	}

	db, err := NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	s.logger.Info("database initialized successfully")

	gatewayMetrics := metrics.NewGatewayMetrics("aquahealth_gateway")

	// Initialize consumers
	alerts, err := NewAlertConsumer(&AlertConsumerConfig{
		Logger:      s.logger,
		DB:          s.db,
		RabbitMQURL: s.config.RabbitMQURL,
		QueueName:   s.config.AlertQueue,
		Metrics:     gatewayMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize alert consumer: %w", err)
	}
	s.alerts = alerts

	readings, err := NewReadingConsumer(&ReadingConsumerConfig{
		Logger:      s.logger,
		DB:          s.db,
		RabbitMQURL: s.config.RabbitMQURL,
		QueueName:   s.config.ReadingsQueue,
		Metrics:     gatewayMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize reading consumer: %w", err)
	}
	s.readings = readings

	if err := s.alerts.Start(ctx); err != nil {
		return fmt.Errorf("failed to start alert consumer: %w", err)
	}

	if err := s.readings.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reading consumer: %w", err)
	}

	// Initialize HTTP API
	store, err := NewStore(s.db, s.logger, gatewayMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize record store: %w", err)
	}

	objects, err := NewObjectStore(s.db, s.logger, s.config.PublicBaseURL, gatewayMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	auth, err := NewAuthenticator(s.db, s.logger, s.config.TokenSecret, gatewayMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}

	api, err := NewAPI(s.logger, store, objects, auth, gatewayMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}

	httpAddr := fmt.Sprintf(":%d", s.config.HTTPPort)
	s.httpServer = &http.Server{
		Addr:         httpAddr,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", httpAddr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("gateway server started successfully")

	// Wait for shutdown signal or HTTP error
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down gateway server")

	var shutdownErr error

	if s.httpServer != nil {
		s.logger.Info("stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to stop HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		} else {
			s.logger.Info("HTTP server stopped")
		}
	}

	if s.alerts != nil {
		s.logger.Info("stopping alert consumer")
		if err := s.alerts.Stop(); err != nil {
			s.logger.Error("failed to stop alert consumer", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("alert consumer shutdown error: %w", err))
		}
	}

	if s.readings != nil {
		s.logger.Info("stopping reading consumer")
		if err := s.readings.Stop(); err != nil {
			s.logger.Error("failed to stop reading consumer", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("reading consumer shutdown error: %w", err))
		}
	}

	if s.db != nil {
		s.logger.Info("closing database connection")
		if err := CloseDB(s.db, s.logger); err != nil {
			s.logger.Error("failed to close database", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("database close error: %w", err))
		}
	}

	if shutdownErr != nil {
		s.logger.Error("gateway server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("gateway server shutdown completed successfully")
	return nil
}

func joinShutdownErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%w; %w", existing, next)
}
