package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenacious60/aquahealthmonitor/internal/gateway"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the gateway server",
	Long: `Run the gateway server that:
- Authenticates community health workers
- Serves the record and object storage HTTP API
- Consumes alert broadcasts from RabbitMQ and fans them out per worker
- Consumes fleet sensor readings from RabbitMQ
- Persists data to PostgreSQL`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)

	// Gateway-specific flags
	gatewayCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	gatewayCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	gatewayCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	gatewayCmd.Flags().String("db-password", "", "PostgreSQL password")
	gatewayCmd.Flags().String("db-name", "aquahealth", "PostgreSQL database name")
	gatewayCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")
	gatewayCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	gatewayCmd.Flags().String("alert-queue", "alert-broadcasts", "RabbitMQ queue name for alert broadcasts")
	gatewayCmd.Flags().String("readings-queue", "fleet-readings", "RabbitMQ queue name for fleet sensor readings")
	gatewayCmd.Flags().Int("http-port", 8090, "HTTP server port")
	gatewayCmd.Flags().String("public-base-url", "http://localhost:8090", "Externally reachable base URL for object links")
	gatewayCmd.Flags().String("token-secret", "", "Secret used to sign session tokens")

	// Bind flags to viper
	_ = viper.BindPFlag("gateway.db.host", gatewayCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("gateway.db.port", gatewayCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("gateway.db.user", gatewayCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("gateway.db.password", gatewayCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("gateway.db.name", gatewayCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("gateway.db.sslmode", gatewayCmd.Flags().Lookup("db-sslmode"))
	_ = viper.BindPFlag("gateway.rabbitmq.url", gatewayCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("gateway.rabbitmq.alert_queue", gatewayCmd.Flags().Lookup("alert-queue"))
	_ = viper.BindPFlag("gateway.rabbitmq.readings_queue", gatewayCmd.Flags().Lookup("readings-queue"))
	_ = viper.BindPFlag("gateway.http.port", gatewayCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("gateway.http.public_base_url", gatewayCmd.Flags().Lookup("public-base-url"))
	_ = viper.BindPFlag("gateway.auth.token_secret", gatewayCmd.Flags().Lookup("token-secret"))
}

func runGateway(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting gateway service")

	// Create gateway configuration from viper
	config := &gateway.ServerConfig{
		Logger:        logger,
		DBHost:        viper.GetString("gateway.db.host"),
		DBPort:        viper.GetInt("gateway.db.port"),
		DBUser:        viper.GetString("gateway.db.user"),
		DBPassword:    viper.GetString("gateway.db.password"),
		DBName:        viper.GetString("gateway.db.name"),
		DBSSLMode:     viper.GetString("gateway.db.sslmode"),
		RabbitMQURL:   viper.GetString("gateway.rabbitmq.url"),
		AlertQueue:    viper.GetString("gateway.rabbitmq.alert_queue"),
		ReadingsQueue: viper.GetString("gateway.rabbitmq.readings_queue"),
		HTTPPort:      viper.GetInt("gateway.http.port"),
		PublicBaseURL: viper.GetString("gateway.http.public_base_url"),
		TokenSecret:   viper.GetString("gateway.auth.token_secret"),
	}

	// Create and run server
	server, err := gateway.NewServer(config)
	if err != nil {
		logger.Error("failed to create gateway server", "error", err)
		return err
	}

	logger.Info("gateway server configuration",
		"db_host", config.DBHost,
		"db_port", config.DBPort,
		"db_name", config.DBName,
		"rabbitmq_url", config.RabbitMQURL,
		"alert_queue", config.AlertQueue,
		"readings_queue", config.ReadingsQueue,
		"http_port", config.HTTPPort,
		"public_base_url", config.PublicBaseURL,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("gateway server error", "error", err)
		return err
	}

	logger.Info("gateway server stopped")
	return nil
}
