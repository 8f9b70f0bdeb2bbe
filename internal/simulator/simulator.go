// Package simulator stands in for a deployed sensor fleet and the district
// health authority: it publishes fleet readings and alert broadcasts to the
// queues the gateway consumes.
package simulator

import (
	"context"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tenacious60/aquahealthmonitor/internal/sensor"
	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
	"github.com/tenacious60/aquahealthmonitor/pkg/mq"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// FleetSensor is one simulated water sensor deployed in a pincode.
type FleetSensor struct {
	DeviceID string `fake:"{uuid}"`
	Vendor   string `fake:"{company}"`
	Pincode  string
}

// NewFleetSensor generates a synthetic sensor deployed in the given pincode.
func NewFleetSensor(pincode string) *FleetSensor {
	var s FleetSensor
	if err := gofakeit.Struct(&s); err != nil {
		// Struct generation only fails on unsupported tags.
		panic(err)
	}
	s.Pincode = pincode
	return &s
}

// advisories is the pool the simulated district authority draws from.
var advisories = []struct {
	Title   string
	Message string
	Type    string
}{
	{"Cholera advisory", "Suspected cholera cases reported. Boil all drinking water.", waterhealth.AlertWarning},
	{"Water contamination", "High bacteria levels detected in local sources. Avoid untreated water.", waterhealth.AlertEmergency},
	{"Monsoon preparedness", "Pre-monsoon water testing drive starts this week.", waterhealth.AlertInfo},
	{"Refresher training", "New module on waterborne disease reporting is available.", waterhealth.AlertTraining},
}

// Simulator publishes fleet readings and alert broadcasts for a fixed set of
// sensors.
// Note: Uses math/rand throughout, which is acceptable for simulation data.
type Simulator struct {
	ReadingClient mq.Client
	AlertClient   mq.Client
	Sensors       []*FleetSensor
	metrics       *metrics.SimulatorMetrics // Optional metrics
}

// NewSimulator creates a simulator with a random fleet spread over the given
// pincodes.
func NewSimulator(readingClient, alertClient mq.Client, pincodes []string) *Simulator {
	sensorCount := rand.Intn(5) + 3 // #nosec G404 - weak random is acceptable for test data generation
	sensors := make([]*FleetSensor, 0, sensorCount)
	for range sensorCount {
		pincode := pincodes[rand.Intn(len(pincodes))] // #nosec G404
		sensors = append(sensors, NewFleetSensor(pincode))
	}

	return &Simulator{
		ReadingClient: readingClient,
		AlertClient:   alertClient,
		Sensors:       sensors,
	}
}

// SetMetrics sets the metrics collector for this simulator.
func (s *Simulator) SetMetrics(m *metrics.SimulatorMetrics) {
	s.metrics = m
	if m != nil {
		m.ActiveSensors.Add(float64(len(s.Sensors)))
	}
}

// PublishReading generates a reading from a random fleet sensor and publishes
// it to the readings queue.
func (s *Simulator) PublishReading(ctx context.Context) error {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.PublishDuration.WithLabelValues("fleet_reading"))
		defer timer.ObserveDuration()
	}

	// Select a random sensor
	fleetSensor := s.Sensors[rand.Intn(len(s.Sensors))] // #nosec G404 - weak random is acceptable for simulation

	gen := sensor.NewGenerator(fleetSensor.DeviceID, 0)
	reading := gen.GenerateReading()

	message, err := waterhealth.EncodeFleetReading(&waterhealth.FleetReading{
		DeviceID:   fleetSensor.DeviceID,
		Pincode:    fleetSensor.Pincode,
		PH:         reading.PH,
		Turbidity:  reading.Turbidity,
		Bacteria:   reading.Bacteria,
		Battery:    reading.Battery,
		RecordedAt: reading.CapturedAt,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.PublishFailures.WithLabelValues("fleet_reading", "encode_error").Inc()
		}
		return err
	}

	if err := s.ReadingClient.Push(ctx, message); err != nil {
		if s.metrics != nil {
			s.metrics.PublishFailures.WithLabelValues("fleet_reading", "push_error").Inc()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.MessagesPublished.WithLabelValues("fleet_reading").Inc()
		s.metrics.ReadingsGenerated.Inc()
	}

	return nil
}

// PublishBroadcast issues an advisory for a random fleet pincode, standing in
// for the district health authority.
func (s *Simulator) PublishBroadcast(ctx context.Context) error {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.PublishDuration.WithLabelValues("alert_broadcast"))
		defer timer.ObserveDuration()
	}

	fleetSensor := s.Sensors[rand.Intn(len(s.Sensors))] // #nosec G404
	advisory := advisories[rand.Intn(len(advisories))]  // #nosec G404

	message, err := waterhealth.EncodeAlertBroadcast(&waterhealth.AlertBroadcast{
		Pincode:   fleetSensor.Pincode,
		Title:     advisory.Title,
		Message:   advisory.Message,
		Type:      advisory.Type,
		IssuedAt:  time.Now().UTC(),
		Authority: "district health office",
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.PublishFailures.WithLabelValues("alert_broadcast", "encode_error").Inc()
		}
		return err
	}

	if err := s.AlertClient.Push(ctx, message); err != nil {
		if s.metrics != nil {
			s.metrics.PublishFailures.WithLabelValues("alert_broadcast", "push_error").Inc()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.MessagesPublished.WithLabelValues("alert_broadcast").Inc()
		s.metrics.BroadcastsIssued.Inc()
	}

	return nil
}
