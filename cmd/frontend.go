package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenacious60/aquahealthmonitor/internal/frontend"
)

var frontendCmd = &cobra.Command{
	Use:   "frontend",
	Short: "Run the frontend server",
	Long: `Run the frontend web server that:
- Serves the worker app screens (dashboard, water tests, reports, alerts,
  training, profile)
- Talks to the gateway HTTP API
- Falls back to synthetic sensor readings when no hardware is present`,
	RunE: runFrontend,
}

func init() {
	rootCmd.AddCommand(frontendCmd)

	// Frontend-specific flags
	frontendCmd.Flags().Int("http-port", 8080, "HTTP server port")
	frontendCmd.Flags().String("gateway-url", "http://localhost:8090", "Gateway API base URL")

	// Bind flags to viper
	_ = viper.BindPFlag("frontend.http.port", frontendCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("frontend.gateway.url", frontendCmd.Flags().Lookup("gateway-url"))
}

func runFrontend(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting frontend service")

	// Create frontend configuration from viper
	config := &frontend.ServerConfig{
		Logger:         logger,
		HTTPPort:       viper.GetInt("frontend.http.port"),
		GatewayBaseURL: viper.GetString("frontend.gateway.url"),
	}

	// Create and run server
	server, err := frontend.NewServer(config)
	if err != nil {
		logger.Error("failed to create frontend server", "error", err)
		return err
	}

	logger.Info("frontend server configuration",
		"http_port", config.HTTPPort,
		"gateway_url", config.GatewayBaseURL,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("frontend server error", "error", err)
		return err
	}

	logger.Info("frontend server stopped")
	return nil
}
