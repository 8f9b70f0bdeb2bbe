package sensor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// State of the acquisition flow.
type State string

// Flow states. There is no terminal failure state: a scan that cannot reach
// hardware degrades to a synthetic reading with a note.
const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateDataReady State = "data-ready"
)

// ErrNoReading is returned by Apply while scanning or before any scan.
var ErrNoReading = errors.New("no sensor reading available")

// defaultFallbackDelay approximates a real acquisition when falling back to
// synthetic data.
const defaultFallbackDelay = time.Second

// Flow is the scan state machine. One Flow backs one water-test form.
type Flow struct {
	provider DeviceProvider
	logger   *slog.Logger
	metrics  *metrics.FrontendMetrics // optional

	// FallbackDelay overrides the synthetic acquisition delay; tests set
	// it near zero.
	FallbackDelay time.Duration

	mu      sync.Mutex
	state   State
	reading *waterhealth.SensorReading
	note    string
	scanSeq uint64
}

// NewFlow creates an idle flow over the provider.
func NewFlow(provider DeviceProvider, logger *slog.Logger, m *metrics.FrontendMetrics) (*Flow, error) {
	if provider == nil {
		return nil, errors.New("device provider cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Flow{
		provider:      provider,
		logger:        logger,
		metrics:       m,
		FallbackDelay: defaultFallbackDelay,
		state:         StateIdle,
	}, nil
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reading returns the held reading, or nil before a completed scan.
func (f *Flow) Reading() *waterhealth.SensorReading {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reading == nil {
		return nil
	}
	r := *f.reading
	return &r
}

// Note returns the degradation note attached to the held reading, empty when
// the reading came from real hardware.
func (f *Flow) Note() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.note
}

// Scan acquires one reading and moves the flow to DataReady. Starting a scan
// discards any held reading; a scan superseded by a newer one discards its
// own result instead of committing it. When no hardware is reachable the
// flow waits out the fallback delay and commits a synthetic reading with the
// failure retained as a note.
func (f *Flow) Scan(ctx context.Context) error {
	f.mu.Lock()
	f.scanSeq++
	seq := f.scanSeq
	f.state = StateScanning
	f.reading = nil
	f.note = ""
	f.mu.Unlock()

	reading, note, err := f.acquire(ctx)
	if err != nil {
		f.mu.Lock()
		if seq == f.scanSeq {
			f.state = StateIdle
		}
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.scanSeq {
		// A retry superseded this scan; drop the late result.
		f.countScan("superseded")
		return nil
	}
	f.state = StateDataReady
	f.reading = reading
	f.note = note
	f.countScan("ok")
	return nil
}

// acquire resolves a device and produces a reading, degrading to synthetic
// data when the capability is absent. Only context cancellation is a real
// error.
func (f *Flow) acquire(ctx context.Context) (*waterhealth.SensorReading, string, error) {
	device, err := f.provider.RequestDevice(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		f.logger.Info("sensor unavailable, using synthetic reading", "reason", err)
		if f.metrics != nil {
			f.metrics.SensorFallbacksTotal.Inc()
		}

		select {
		case <-time.After(f.FallbackDelay):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}

		gen := NewGenerator("synthetic", 0)
		return gen.GenerateReading(), err.Error(), nil
	}

	// The reading carries the device's reported name; the raw hardware ID
	// is only useful for logs.
	name := device.Name
	if name == "" {
		name = device.ID
	}
	gen := NewGenerator(name, 0)
	reading := gen.GenerateReading()
	f.logger.Debug("sensor reading acquired", "device", name, "device_id", device.ID)
	return reading, "", nil
}

// Apply copies the held measurements onto the water test: pH, turbidity, and
// bacteria move together or not at all, and the test method flips to sensor.
// Apply refuses while scanning or without a reading.
func (f *Flow) Apply(test *waterhealth.WaterTest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateDataReady || f.reading == nil {
		return ErrNoReading
	}

	test.PH = f.reading.PH
	test.Turbidity = f.reading.Turbidity
	test.Bacteria = f.reading.Bacteria
	test.TestMethod = waterhealth.TestMethodSensor
	return nil
}

// Reset returns the flow to Idle and drops any held reading.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanSeq++
	f.state = StateIdle
	f.reading = nil
	f.note = ""
}

func (f *Flow) countScan(outcome string) {
	if f.metrics != nil {
		f.metrics.SensorScansTotal.WithLabelValues(outcome).Inc()
	}
}
