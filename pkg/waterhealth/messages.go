package waterhealth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AlertBroadcast is published by a district health authority (or the
// simulator standing in for one) and fanned out by the gateway to every
// worker registered in the target pincode.
type AlertBroadcast struct {
	Pincode   string    `json:"pincode"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IssuedAt  time.Time `json:"issued_at"`
	Authority string    `json:"authority,omitempty"`
}

// FleetReading is a reading reported by a deployed water sensor. The gateway
// persists these for district-level water monitoring; they are distinct from
// the worker-submitted WaterTest records.
type FleetReading struct {
	DeviceID   string    `json:"device_id"`
	Pincode    string    `json:"pincode"`
	PH         float64   `json:"ph"`
	Turbidity  Turbidity `json:"turbidity"`
	Bacteria   string    `json:"bacteria"`
	Battery    int       `json:"battery"`
	RecordedAt time.Time `json:"recorded_at"`
}

var (
	errEmptyPincode  = errors.New("pincode cannot be empty")
	errEmptyTitle    = errors.New("title cannot be empty")
	errEmptyDeviceID = errors.New("device id cannot be empty")
)

// Validate checks the broadcast before it is fanned out.
func (b *AlertBroadcast) Validate() error {
	if b.Pincode == "" {
		return errEmptyPincode
	}
	if b.Title == "" {
		return errEmptyTitle
	}
	switch b.Type {
	case AlertInfo, AlertWarning, AlertEmergency, AlertTraining:
		return nil
	default:
		return fmt.Errorf("unknown alert type %q", b.Type)
	}
}

// Validate checks the reading before it is persisted.
func (r *FleetReading) Validate() error {
	if r.DeviceID == "" {
		return errEmptyDeviceID
	}
	if r.Pincode == "" {
		return errEmptyPincode
	}
	if !r.Turbidity.Valid() {
		return fmt.Errorf("unknown turbidity %q", r.Turbidity)
	}
	if r.PH < 0 || r.PH > 14 {
		return fmt.Errorf("ph %.2f out of range", r.PH)
	}
	return nil
}

// EncodeAlertBroadcast marshals a broadcast for the queue.
func EncodeAlertBroadcast(b *AlertBroadcast) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(b)
}

// DecodeAlertBroadcast unmarshals and validates a queued broadcast.
func DecodeAlertBroadcast(data []byte) (*AlertBroadcast, error) {
	var b AlertBroadcast
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode alert broadcast: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// EncodeFleetReading marshals a fleet reading for the queue.
func EncodeFleetReading(r *FleetReading) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// DecodeFleetReading unmarshals and validates a queued fleet reading.
func DecodeFleetReading(data []byte) (*FleetReading, error) {
	var r FleetReading
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode fleet reading: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
