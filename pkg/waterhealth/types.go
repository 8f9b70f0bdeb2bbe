// Package waterhealth defines the domain types shared between the gateway,
// the app core, the frontend, and the simulator.
package waterhealth

import (
	"time"
)

// User is the authenticated identity resolved by the gateway. A nil *User
// means "not signed in", which is a normal condition, not an error.
type User struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Theme preference values stored on a profile.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Languages supported by the app UI.
var Languages = []string{"en", "hi", "or", "te", "bn"}

// Profile is the per-user profile record. Exactly one exists per user.
type Profile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	Address         string    `json:"address"`
	Pincode         string    `json:"pincode"`
	ProfileImageURL string    `json:"profile_image_url"`
	Language        string    `json:"language"`
	Theme           string    `json:"theme"`
	LastLoginAt     time.Time `json:"last_login_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserSettings is the per-user settings record, 1:1 with User.
type UserSettings struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	EmergencyContact     string    `json:"emergency_contact"`
	PrivacyLocation      bool      `json:"privacy_location"`
	PrivacyCamera        bool      `json:"privacy_camera"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	AutoSync             bool      `json:"auto_sync"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Alert type tags.
const (
	AlertInfo      = "info"
	AlertWarning   = "warning"
	AlertEmergency = "emergency"
	AlertTraining  = "training"
)

// Alert is a per-user health notification. Read state only ever moves from
// unread to read.
type Alert struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Turbidity is the ordered qualitative water-clarity rating.
type Turbidity string

const (
	TurbidityClear          Turbidity = "clear"
	TurbiditySlightlyCloudy Turbidity = "slightly-cloudy"
	TurbidityCloudy         Turbidity = "cloudy"
	TurbidityVeryCloudy     Turbidity = "very-cloudy"
)

// TurbidityLevels lists the four clarity categories from clear to very cloudy.
var TurbidityLevels = []Turbidity{
	TurbidityClear,
	TurbiditySlightlyCloudy,
	TurbidityCloudy,
	TurbidityVeryCloudy,
}

// Valid reports whether t is one of the four known categories.
func (t Turbidity) Valid() bool {
	for _, level := range TurbidityLevels {
		if t == level {
			return true
		}
	}
	return false
}

// Water source types accepted on a water test.
var SourceTypes = []string{"well", "pond", "river", "borewell", "tank", "other"}

// Test methods for a water test.
const (
	TestMethodManual = "manual"
	TestMethodSensor = "sensor"
)

// WaterTest is a submitted water-quality test.
type WaterTest struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SourceName string    `json:"source_name"`
	SourceType string    `json:"source_type"`
	TestMethod string    `json:"test_method"`
	PH         float64   `json:"ph"`
	Turbidity  Turbidity `json:"turbidity"`
	Bacteria   string    `json:"bacteria"`
	Latitude   float64   `json:"latitude,omitempty"`
	Longitude  float64   `json:"longitude,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Symptoms recognized on a patient report.
var Symptoms = []string{
	"diarrhea", "fever", "vomiting", "nausea",
	"dehydration", "stomach-pain", "fatigue",
}

// PatientReport is a submitted patient case report.
type PatientReport struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	PatientName   string    `json:"patient_name"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
	Symptoms      []string  `json:"symptoms"`
	OtherSymptoms string    `json:"other_symptoms,omitempty"`
	Severity      string    `json:"severity"`
	Village       string    `json:"village"`
	CreatedAt     time.Time `json:"created_at"`
}

// TrainingModule is a catalog entry for a training course.
type TrainingModule struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Duration string `json:"duration"`
	Lessons  int    `json:"lessons"`
}

// TrainingProgress tracks one user's progress through a module.
type TrainingProgress struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ModuleID  string    `json:"module_id"`
	Percent   int       `json:"percent"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SensorReading is one acquisition from a water-test sensor. It is transient
// client state and is never persisted by the app.
type SensorReading struct {
	DeviceID   string    `json:"device_id"`
	Battery    int       `json:"battery"`
	PH         float64   `json:"ph"`
	Turbidity  Turbidity `json:"turbidity"`
	Bacteria   string    `json:"bacteria"`
	CapturedAt time.Time `json:"captured_at"`
}
