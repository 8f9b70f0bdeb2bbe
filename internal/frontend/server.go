package frontend

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

	"github.com/tenacious60/aquahealthmonitor/internal/app"
	"github.com/tenacious60/aquahealthmonitor/internal/sensor"
	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

// Server represents the frontend HTTP server. It holds one signed-in worker
// session against the gateway plus the client-side stores that back the
// screens.
type Server struct {
	logger     *slog.Logger
	config     *ServerConfig
	httpServer *http.Server
	metrics    *metrics.FrontendMetrics

	client   *app.Client
	profiles *app.ProfileStore
	alerts   *app.AlertStore
	reports  *app.ReportStore
	flow     *sensor.Flow
	themes   *ThemeResolver
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// HTTP server configuration
	HTTPPort int

	// Gateway API configuration
	GatewayBaseURL string

	// DeviceProvider overrides the sensor source, mainly for tests. When nil
	// the server assumes no sensor hardware and scans fall back to synthetic
	// readings.
	DeviceProvider sensor.DeviceProvider

	// SchemeSignal overrides the platform color-scheme source, mainly for
	// tests.
	SchemeSignal SchemeSignal
}

// NewServer creates a new frontend Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	if cfg.GatewayBaseURL == "" {
		return nil, errors.New("gateway base URL cannot be empty")
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run starts the frontend server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting frontend server")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	s.metrics = metrics.NewFrontendMetrics("aquahealth_frontend")

	// Create HTTP router
	mux, err := s.Handler()
	if err != nil {
		return err
	}

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	// Start HTTP server in goroutine
	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("frontend server started successfully")

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

	// Shutdown
	return s.Shutdown()
}

// Handler initializes the session stores and returns the routed HTTP
// handler. Run uses it internally; tests drive it directly.
func (s *Server) Handler() (http.Handler, error) {
	if err := s.initStores(); err != nil {
		return nil, err
	}
	return s.setupRoutes(), nil
}

// initStores creates the gateway client and the per-session stores the
// screens render from.
func (s *Server) initStores() error {
	s.logger.Info("connecting to gateway", "base_url", s.config.GatewayBaseURL)

	client, err := app.NewClient(&app.ClientConfig{
		Logger:  s.logger,
		BaseURL: s.config.GatewayBaseURL,
		Metrics: s.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}
	s.client = client

	s.profiles, err = app.NewProfileStore(client, client, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create profile store: %w", err)
	}
	s.alerts, err = app.NewAlertStore(client, client, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create alert store: %w", err)
	}
	s.reports, err = app.NewReportStore(client, client, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	provider := s.config.DeviceProvider
	if provider == nil {
		provider = sensor.Unavailable{}
	}
	s.flow, err = sensor.NewFlow(provider, s.logger, s.metrics)
	if err != nil {
		return fmt.Errorf("failed to create sensor flow: %w", err)
	}

	sig := s.config.SchemeSignal
	if sig == nil {
		sig = StaticSignal{}
	}
	s.themes = NewThemeResolver(sig)

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down frontend server")

	var shutdownErr error

	// Shutdown HTTP server
	if s.httpServer != nil {
		s.logger.Info("stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		s.logger.Info("HTTP server stopped")
	}

	if s.client != nil {
		s.client.Logout()
	}

	if shutdownErr != nil {
		s.logger.Error("frontend server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("frontend server shutdown completed successfully")
	return nil
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Session
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /logout", s.handleLogout)

	// Screens
	mux.HandleFunc("GET /app/{tab}", s.handleScreen)

	// Screen actions
	mux.HandleFunc("POST /app/alerts/read", s.handleAlertRead)
	mux.HandleFunc("POST /app/water-test", s.handleWaterTestSubmit)
	mux.HandleFunc("POST /app/water-test/scan", s.handleSensorScan)
	mux.HandleFunc("POST /app/report-patient", s.handlePatientReport)
	mux.HandleFunc("POST /app/profile", s.handleProfileUpdate)
	mux.HandleFunc("POST /app/profile/image", s.handleProfileImage)
	mux.HandleFunc("POST /app/settings", s.handleSettingsUpdate)
	mux.HandleFunc("POST /app/training/progress", s.handleTrainingProgress)
	mux.HandleFunc("POST /app/feedback", s.handleFeedback)

	// Serve static files (must be before catch-all routes)
	mux.HandleFunc("GET /static/", s.handleStatic)

	// Index page (catch-all, must be last)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	return mux
}
