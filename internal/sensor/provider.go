// Package sensor implements the water-test sensor acquisition flow: device
// discovery, synthetic measurement generation, and the scan state machine
// that feeds readings into the water-test form.
package sensor

import (
	"context"
	"errors"

	"github.com/brianvoe/gofakeit/v7"
)

// ErrUnavailable is returned when no sensor hardware can be reached. It is a
// normal condition, not a failure: the flow degrades to synthetic readings.
var ErrUnavailable = errors.New("no sensor hardware available")

// Device is a discovered sensor.
type Device struct {
	ID   string
	Name string
}

// DeviceProvider discovers sensor hardware. Platforms without the capability
// plug in Unavailable.
type DeviceProvider interface {
	RequestDevice(ctx context.Context) (*Device, error)
}

// Unavailable is the DeviceProvider for platforms without sensor support.
type Unavailable struct{}

// RequestDevice always reports the capability as absent.
func (Unavailable) RequestDevice(context.Context) (*Device, error) {
	return nil, ErrUnavailable
}

// syntheticDevice carries the faker tags for a simulated sensor identity.
type syntheticDevice struct {
	ID     string `fake:"{uuid}"`
	Vendor string `fake:"{company}"`
}

// SyntheticProvider hands out simulated devices with generated identities.
type SyntheticProvider struct{}

// RequestDevice returns a freshly generated simulated device.
func (SyntheticProvider) RequestDevice(context.Context) (*Device, error) {
	var d syntheticDevice
	if err := gofakeit.Struct(&d); err != nil {
		return nil, err
	}
	return &Device{
		ID:   d.ID,
		Name: d.Vendor + " AquaSense",
	}, nil
}
