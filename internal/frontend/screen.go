// Package frontend provides the web shell for the worker app: screen
// routing, theme resolution, and server-rendered views over the app stores.
package frontend

import (
	"github.com/tenacious60/aquahealthmonitor/internal/app"
)

// Screen is the closed set of app screens. Each variant carries its own
// parameters; navigation always dispatches on the concrete type.
type Screen interface {
	screenName() string
}

// DashboardScreen is the landing screen with stats and quick actions.
type DashboardScreen struct{}

// ReportPatientScreen is the patient case report form.
type ReportPatientScreen struct{}

// WaterTestScreen is the water test form with the sensor dialog.
type WaterTestScreen struct {
	// SensorDialogOpen shows the acquisition dialog.
	SensorDialogOpen bool
}

// ReportsScreen lists submitted water tests and patient reports.
type ReportsScreen struct{}

// AlertsScreen is the alert feed with filter chips.
type AlertsScreen struct {
	Filter app.AlertFilter
}

// TrainingScreen lists training modules with per-module progress.
type TrainingScreen struct{}

// ProfileScreen is the profile and settings editor.
type ProfileScreen struct{}

// FeedbackScreen is the feedback form.
type FeedbackScreen struct{}

func (DashboardScreen) screenName() string     { return "dashboard" }
func (ReportPatientScreen) screenName() string { return "report-patient" }
func (WaterTestScreen) screenName() string     { return "water-test" }
func (ReportsScreen) screenName() string       { return "reports" }
func (AlertsScreen) screenName() string        { return "alerts" }
func (TrainingScreen) screenName() string      { return "training" }
func (ProfileScreen) screenName() string       { return "profile" }
func (FeedbackScreen) screenName() string      { return "feedback" }

// Tabs in display order, with their screen labels.
var Tabs = []struct {
	Slug  string
	Label string
}{
	{"dashboard", "Home"},
	{"water-test", "Water Test"},
	{"report-patient", "Report"},
	{"alerts", "Alerts"},
	{"training", "Training"},
	{"profile", "Profile"},
}

// ScreenForTab maps a navigation slug to its screen. Unknown slugs land on
// the dashboard.
func ScreenForTab(slug string) Screen {
	switch slug {
	case "report-patient":
		return ReportPatientScreen{}
	case "water-test":
		return WaterTestScreen{}
	case "reports":
		return ReportsScreen{}
	case "alerts":
		return AlertsScreen{Filter: app.FilterAll}
	case "training":
		return TrainingScreen{}
	case "profile":
		return ProfileScreen{}
	case "feedback":
		return FeedbackScreen{}
	default:
		return DashboardScreen{}
	}
}
