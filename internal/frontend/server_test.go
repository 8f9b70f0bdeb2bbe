package frontend_test

import (
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenacious60/aquahealthmonitor/internal/frontend"
)

var _ = Describe("Frontend Server", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})

	Describe("NewServer", func() {
		Context("with valid configuration", func() {
			It("should create a server", func() {
				config := &frontend.ServerConfig{
					Logger:         logger,
					HTTPPort:       8080,
					GatewayBaseURL: "http://localhost:8090",
				}

				server, err := frontend.NewServer(config)
				Expect(err).NotTo(HaveOccurred())
				Expect(server).NotTo(BeNil())
			})

			It("should create server with different HTTP ports", func() {
				ports := []int{8080, 8081, 8082, 3000}

				for _, port := range ports {
					config := &frontend.ServerConfig{
						Logger:         logger,
						HTTPPort:       port,
						GatewayBaseURL: "http://localhost:8090",
					}

					server, err := frontend.NewServer(config)
					Expect(err).NotTo(HaveOccurred())
					Expect(server).NotTo(BeNil())
				}
			})
		})

		Context("with invalid configuration", func() {
			It("should return error when config is nil", func() {
				server, err := frontend.NewServer(nil)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
				Expect(server).To(BeNil())
			})

			It("should return error when logger is nil", func() {
				config := &frontend.ServerConfig{
					Logger:         nil,
					HTTPPort:       8080,
					GatewayBaseURL: "http://localhost:8090",
				}

				server, err := frontend.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
				Expect(server).To(BeNil())
			})

			It("should return error when HTTP port is zero", func() {
				config := &frontend.ServerConfig{
					Logger:         logger,
					HTTPPort:       0,
					GatewayBaseURL: "http://localhost:8090",
				}

				server, err := frontend.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("HTTP port"))
				Expect(server).To(BeNil())
			})

			It("should return error when HTTP port is negative", func() {
				config := &frontend.ServerConfig{
					Logger:         logger,
					HTTPPort:       -1,
					GatewayBaseURL: "http://localhost:8090",
				}

				server, err := frontend.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("HTTP port"))
				Expect(server).To(BeNil())
			})

			It("should return error when gateway base URL is empty", func() {
				config := &frontend.ServerConfig{
					Logger:         logger,
					HTTPPort:       8080,
					GatewayBaseURL: "",
				}

				server, err := frontend.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("gateway base URL"))
				Expect(server).To(BeNil())
			})
		})
	})

	Describe("Server Shutdown", func() {
		It("should shutdown cleanly with no initialized components", func() {
			config := &frontend.ServerConfig{
				Logger:         logger,
				HTTPPort:       8083,
				GatewayBaseURL: "http://localhost:8090",
			}

			server, err := frontend.NewServer(config)
			Expect(err).NotTo(HaveOccurred())

			err = server.Shutdown()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should handle multiple shutdown calls", func() {
			config := &frontend.ServerConfig{
				Logger:         logger,
				HTTPPort:       8084,
				GatewayBaseURL: "http://localhost:8090",
			}

			server, err := frontend.NewServer(config)
			Expect(err).NotTo(HaveOccurred())

			err1 := server.Shutdown()
			Expect(err1).NotTo(HaveOccurred())

			err2 := server.Shutdown()
			Expect(err2).NotTo(HaveOccurred())
		})
	})
})
