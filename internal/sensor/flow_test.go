package sensor_test

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenacious60/aquahealthmonitor/internal/sensor"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// namedProvider hands out a fixed device.
type namedProvider struct {
	device sensor.Device
}

func (p namedProvider) RequestDevice(context.Context) (*sensor.Device, error) {
	d := p.device
	return &d, nil
}

// parkedProvider parks its first RequestDevice call until released so specs
// can interleave a second scan with one still in flight.
type parkedProvider struct {
	release chan struct{}
	calls   atomic.Int32
}

func (p *parkedProvider) RequestDevice(ctx context.Context) (*sensor.Device, error) {
	if p.calls.Add(1) == 1 {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &sensor.Device{ID: "late-device", Name: "Late Sensor"}, nil
	}
	return &sensor.Device{ID: "fresh-device", Name: "Fresh Sensor"}, nil
}

var _ = Describe("Flow", func() {
	var (
		logger *slog.Logger
		flow   *sensor.Flow
		ctx    context.Context
	)

	newFlow := func(provider sensor.DeviceProvider) *sensor.Flow {
		f, err := sensor.NewFlow(provider, logger, nil)
		Expect(err).NotTo(HaveOccurred())
		f.FallbackDelay = time.Millisecond
		return f
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		ctx = context.Background()
		flow = newFlow(sensor.SyntheticProvider{})
	})

	Describe("NewFlow", func() {
		It("should start idle with no reading", func() {
			Expect(flow.State()).To(Equal(sensor.StateIdle))
			Expect(flow.Reading()).To(BeNil())
		})

		It("should return error when provider is nil", func() {
			f, err := sensor.NewFlow(nil, logger, nil)
			Expect(err).To(HaveOccurred())
			Expect(f).To(BeNil())
		})
	})

	Describe("Scan", func() {
		It("should land in DataReady with a bounded reading", func() {
			Expect(flow.Scan(ctx)).To(Succeed())
			Expect(flow.State()).To(Equal(sensor.StateDataReady))

			reading := flow.Reading()
			Expect(reading).NotTo(BeNil())
			Expect(reading.PH).To(BeNumerically(">=", 6.6))
			Expect(reading.PH).To(BeNumerically("<=", 8.4))
			Expect(flow.Note()).To(BeEmpty())
		})

		It("should degrade to a synthetic reading when hardware is absent", func() {
			flow = newFlow(sensor.Unavailable{})

			Expect(flow.Scan(ctx)).To(Succeed())
			Expect(flow.State()).To(Equal(sensor.StateDataReady))
			Expect(flow.Reading()).NotTo(BeNil())
			Expect(flow.Note()).To(ContainSubstring("no sensor hardware"))
		})

		It("should discard the prior reading on retry", func() {
			Expect(flow.Scan(ctx)).To(Succeed())
			first := flow.Reading()

			Expect(flow.Scan(ctx)).To(Succeed())
			second := flow.Reading()

			Expect(second).NotTo(BeNil())
			Expect(second.CapturedAt).ToNot(BeTemporally("<", first.CapturedAt))
		})

		It("should attribute the reading to the device's reported name", func() {
			flow = newFlow(namedProvider{device: sensor.Device{
				ID:   "3b4c1a9e-hardware-uuid",
				Name: "AquaSense Basin Probe",
			}})

			Expect(flow.Scan(ctx)).To(Succeed())
			Expect(flow.Reading().DeviceID).To(Equal("AquaSense Basin Probe"))
		})

		It("should fall back to the hardware id when the device has no name", func() {
			flow = newFlow(namedProvider{device: sensor.Device{ID: "bare-device"}})

			Expect(flow.Scan(ctx)).To(Succeed())
			Expect(flow.Reading().DeviceID).To(Equal("bare-device"))
		})

		It("should discard the late result of a superseded scan", func() {
			parked := &parkedProvider{release: make(chan struct{})}
			flow = newFlow(parked)

			done := make(chan error, 1)
			go func() { done <- flow.Scan(ctx) }()
			Eventually(func() int32 { return parked.calls.Load() }).Should(Equal(int32(1)))

			// A second scan supersedes the parked one.
			Expect(flow.Scan(ctx)).To(Succeed())
			Expect(flow.Reading().DeviceID).To(Equal("Fresh Sensor"))

			close(parked.release)
			Eventually(done).Should(Receive(BeNil()))

			// The late result never lands.
			Expect(flow.Reading().DeviceID).To(Equal("Fresh Sensor"))
			Expect(flow.State()).To(Equal(sensor.StateDataReady))
		})

		It("should stop on a canceled context instead of committing", func() {
			flow = newFlow(sensor.Unavailable{})
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			err := flow.Scan(canceled)
			Expect(err).To(MatchError(context.Canceled))
			Expect(flow.State()).To(Equal(sensor.StateIdle))
			Expect(flow.Reading()).To(BeNil())
		})
	})

	Describe("Apply", func() {
		It("should refuse before any scan", func() {
			var test waterhealth.WaterTest
			Expect(flow.Apply(&test)).To(MatchError(sensor.ErrNoReading))
		})

		It("should copy all three measurements together and set the method", func() {
			Expect(flow.Scan(ctx)).To(Succeed())
			reading := flow.Reading()

			var test waterhealth.WaterTest
			Expect(flow.Apply(&test)).To(Succeed())
			Expect(test.PH).To(Equal(reading.PH))
			Expect(test.Turbidity).To(Equal(reading.Turbidity))
			Expect(test.Bacteria).To(Equal(reading.Bacteria))
			Expect(test.TestMethod).To(Equal(waterhealth.TestMethodSensor))
		})

		It("should refuse after Reset", func() {
			Expect(flow.Scan(ctx)).To(Succeed())
			flow.Reset()

			var test waterhealth.WaterTest
			Expect(flow.Apply(&test)).To(MatchError(sensor.ErrNoReading))
			Expect(flow.State()).To(Equal(sensor.StateIdle))
		})
	})
})
