package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenacious60/aquahealthmonitor/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		Context("with nil options", func() {
			It("should create a non-nil logger", func() {
				Expect(logger.New(nil)).NotTo(BeNil())
			})
		})

		Context("with a service name", func() {
			It("should attach the service attr to every record", func() {
				buf := &bytes.Buffer{}
				log := logger.New(&logger.Options{
					Output:  buf,
					Service: "gateway",
				})
				log.Info("started")

				var entry map[string]interface{}
				Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
				Expect(entry).To(HaveKeyWithValue("service", "gateway"))
				Expect(entry).To(HaveKeyWithValue("msg", "started"))
			})
		})

		Context("with a minimum level", func() {
			It("should drop records below the level", func() {
				buf := &bytes.Buffer{}
				log := logger.New(&logger.Options{
					Output: buf,
					Level:  slog.LevelWarn,
				})
				log.Info("quiet")
				Expect(buf.Len()).To(BeZero())

				log.Warn("loud")
				Expect(buf.Len()).NotTo(BeZero())
			})
		})
	})

	Describe("ForService", func() {
		It("should create a logger tagged with the service name", func() {
			Expect(logger.ForService("frontend", "debug")).NotTo(BeNil())
		})
	})

	Describe("ParseLevel", func() {
		It("should map known names to levels", func() {
			Expect(logger.ParseLevel("debug")).To(Equal(slog.LevelDebug))
			Expect(logger.ParseLevel("info")).To(Equal(slog.LevelInfo))
			Expect(logger.ParseLevel("warn")).To(Equal(slog.LevelWarn))
			Expect(logger.ParseLevel("warning")).To(Equal(slog.LevelWarn))
			Expect(logger.ParseLevel("error")).To(Equal(slog.LevelError))
		})

		It("should fall back to info for unknown names", func() {
			Expect(logger.ParseLevel("verbose")).To(Equal(slog.LevelInfo))
		})
	})
})
