package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenacious60/aquahealthmonitor/internal/simulator"
	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

var simulatorCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Run the fleet simulator",
	Long: `Run the fleet simulator that:
- Generates synthetic water sensor fleet readings
- Publishes fleet readings to RabbitMQ
- Issues district health alert broadcasts
- Supports multiple concurrent fleet publishers`,
	RunE: runSimulator,
}

func init() {
	rootCmd.AddCommand(simulatorCmd)

	// Simulator-specific flags
	simulatorCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	simulatorCmd.Flags().String("readings-queue", "fleet-readings", "RabbitMQ queue name for fleet sensor readings")
	simulatorCmd.Flags().String("alert-queue", "alert-broadcasts", "RabbitMQ queue name for alert broadcasts")
	simulatorCmd.Flags().StringSlice("pincodes", []string{"752001", "752002", "752050"}, "Pincodes the simulated fleet is deployed in")
	simulatorCmd.Flags().Int("fleet-count", 3, "Number of concurrent fleet publishers")
	simulatorCmd.Flags().Duration("reading-interval", 5*time.Second, "Interval between fleet readings")
	simulatorCmd.Flags().Duration("broadcast-interval", time.Minute, "Interval between alert broadcasts")
	simulatorCmd.Flags().Int("metrics-port", 9091, "Prometheus metrics port (0 disables)")

	// Bind flags to viper
	_ = viper.BindPFlag("simulator.rabbitmq.url", simulatorCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("simulator.rabbitmq.readings_queue", simulatorCmd.Flags().Lookup("readings-queue"))
	_ = viper.BindPFlag("simulator.rabbitmq.alert_queue", simulatorCmd.Flags().Lookup("alert-queue"))
	_ = viper.BindPFlag("simulator.pincodes", simulatorCmd.Flags().Lookup("pincodes"))
	_ = viper.BindPFlag("simulator.fleet_count", simulatorCmd.Flags().Lookup("fleet-count"))
	_ = viper.BindPFlag("simulator.reading_interval", simulatorCmd.Flags().Lookup("reading-interval"))
	_ = viper.BindPFlag("simulator.broadcast_interval", simulatorCmd.Flags().Lookup("broadcast-interval"))
	_ = viper.BindPFlag("simulator.metrics_port", simulatorCmd.Flags().Lookup("metrics-port"))
}

func runSimulator(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting simulator service")

	simMetrics := metrics.NewSimulatorMetrics("aquahealth_simulator")
	mqMetrics := metrics.NewMQMetrics("aquahealth_simulator")

	// Create simulator configuration from viper
	config := &simulator.ServerConfig{
		Logger:            logger,
		RabbitMQURL:       viper.GetString("simulator.rabbitmq.url"),
		ReadingsQueue:     viper.GetString("simulator.rabbitmq.readings_queue"),
		AlertQueue:        viper.GetString("simulator.rabbitmq.alert_queue"),
		Pincodes:          viper.GetStringSlice("simulator.pincodes"),
		FleetCount:        viper.GetInt("simulator.fleet_count"),
		ReadingInterval:   viper.GetDuration("simulator.reading_interval"),
		BroadcastInterval: viper.GetDuration("simulator.broadcast_interval"),
		Metrics:           simMetrics,
		MQMetrics:         mqMetrics,
	}

	// Create and run server
	server, err := simulator.NewServer(config)
	if err != nil {
		logger.Error("failed to create simulator server", "error", err)
		return err
	}

	// Expose metrics on a side port
	if port := viper.GetInt("simulator.metrics_port"); port > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("GET /metrics", metrics.Handler())
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("serving metrics", "port", port)
			if err := srv.ListenAndServe(); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	logger.Info("simulator server configuration",
		"rabbitmq_url", config.RabbitMQURL,
		"readings_queue", config.ReadingsQueue,
		"alert_queue", config.AlertQueue,
		"pincodes", config.Pincodes,
		"fleet_count", config.FleetCount,
		"reading_interval", config.ReadingInterval,
		"broadcast_interval", config.BroadcastInterval,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("simulator server error", "error", err)
		return err
	}

	logger.Info("simulator server stopped")
	return nil
}
