// Package gateway implements the hosted backend for the ASHA worker app:
// authenticated identity, table-style record storage with equality filtering
// and ordering, and binary object storage with public URL retrieval. It also
// ingests district alert broadcasts and water-sensor fleet readings from
// RabbitMQ.
package gateway

import (
	"time"

	"gorm.io/gorm"
)

// User is an authenticated account. Profiles and settings hang off it 1:1.
type User struct {
	ID           string         `gorm:"primaryKey;type:uuid"`
	Phone        string         `gorm:"uniqueIndex;not null"`
	Email        string         `gorm:"index"`
	PasswordHash string         `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for User.
func (User) TableName() string {
	return "users"
}

// Profile is the worker profile row, provisioned at signup.
type Profile struct {
	ID              string    `gorm:"primaryKey;type:uuid"`
	UserID          string    `gorm:"uniqueIndex;not null"`
	FullName        string
	Address         string
	Pincode         string    `gorm:"index"`
	ProfileImageURL string
	Language        string    `gorm:"not null;default:en"`
	Theme           string    `gorm:"not null;default:system"`
	LastLoginAt     time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Profile.
func (Profile) TableName() string {
	return "profiles"
}

// UserSettings is the per-user settings row, provisioned at signup.
type UserSettings struct {
	ID                   string    `gorm:"primaryKey;type:uuid"`
	UserID               string    `gorm:"uniqueIndex;not null"`
	EmergencyContact     string
	PrivacyLocation      bool      `gorm:"not null;default:true"`
	PrivacyCamera        bool      `gorm:"not null;default:true"`
	NotificationsEnabled bool      `gorm:"not null;default:true"`
	AutoSync             bool      `gorm:"not null;default:true"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserSettings.
func (UserSettings) TableName() string {
	return "user_settings"
}

// Alert is a per-user notification. IsRead only ever flips false to true.
type Alert struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"index:idx_alerts_user_created;not null"`
	Title     string    `gorm:"not null"`
	Message   string
	Type      string    `gorm:"not null;default:info"`
	IsRead    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index:idx_alerts_user_created;autoCreateTime"`
}

// TableName specifies the table name for Alert.
func (Alert) TableName() string {
	return "alerts"
}

// WaterTest is a worker-submitted water-quality test.
type WaterTest struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	UserID     string    `gorm:"index;not null"`
	SourceName string    `gorm:"not null"`
	SourceType string    `gorm:"not null"`
	TestMethod string    `gorm:"not null"`
	PH         float64   `gorm:"not null"`
	Turbidity  string    `gorm:"not null"`
	Bacteria   string    `gorm:"not null"`
	Latitude   float64
	Longitude  float64
	PhotoURL   string
	CreatedAt  time.Time `gorm:"index;autoCreateTime"`
}

// TableName specifies the table name for WaterTest.
func (WaterTest) TableName() string {
	return "water_tests"
}

// PatientReport is a worker-submitted patient case.
type PatientReport struct {
	ID            string    `gorm:"primaryKey;type:uuid"`
	UserID        string    `gorm:"index;not null"`
	PatientName   string    `gorm:"not null"`
	Age           int       `gorm:"not null"`
	Gender        string    `gorm:"not null"`
	Symptoms      []string  `gorm:"serializer:json"`
	OtherSymptoms string
	Severity      string
	Village       string
	CreatedAt     time.Time `gorm:"index;autoCreateTime"`
}

// TableName specifies the table name for PatientReport.
func (PatientReport) TableName() string {
	return "patient_reports"
}

// TrainingModule is a catalog entry, seeded at startup.
type TrainingModule struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	Title    string `gorm:"uniqueIndex;not null"`
	Category string `gorm:"index;not null"`
	Duration string
	Lessons  int
}

// TableName specifies the table name for TrainingModule.
func (TrainingModule) TableName() string {
	return "training_modules"
}

// TrainingProgress tracks one user's progress through a module.
type TrainingProgress struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"index:idx_training_user_module,unique;not null"`
	ModuleID  string    `gorm:"index:idx_training_user_module,unique;not null"`
	Percent   int       `gorm:"not null;default:0"`
	Completed bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for TrainingProgress.
func (TrainingProgress) TableName() string {
	return "training_progress"
}

// FleetReading is an ingested reading from a deployed district sensor.
type FleetReading struct {
	ID         uint      `gorm:"primaryKey"`
	DeviceID   string    `gorm:"index:idx_fleet_device_recorded;not null"`
	Pincode    string    `gorm:"index;not null"`
	PH         float64   `gorm:"not null"`
	Turbidity  string    `gorm:"not null"`
	Bacteria   string    `gorm:"not null"`
	Battery    int       `gorm:"not null"`
	RecordedAt time.Time `gorm:"index:idx_fleet_device_recorded;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for FleetReading.
func (FleetReading) TableName() string {
	return "fleet_readings"
}

// StoredObject is a blob row. (Bucket, Key) is unique; uploads overwrite.
type StoredObject struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	Bucket      string    `gorm:"index:idx_objects_bucket_key,unique;not null"`
	Key         string    `gorm:"index:idx_objects_bucket_key,unique;not null"`
	ContentType string    `gorm:"not null"`
	Size        int64     `gorm:"not null"`
	Data        []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for StoredObject.
func (StoredObject) TableName() string {
	return "stored_objects"
}
