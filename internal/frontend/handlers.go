// Package frontend provides the web UI for community health workers. It
// renders the screen shell server-side over the client stores, which talk to
// the gateway API.
package frontend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tenacious60/aquahealthmonitor/internal/app"
	"github.com/tenacious60/aquahealthmonitor/internal/sensor"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// maxImageUpload bounds profile photo uploads.
const maxImageUpload = 5 << 20

// handleIndex serves the dashboard for a signed-in worker, or the login page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling index request")

	if s.client.CurrentUser() == nil {
		if err := renderLogin(r.Context(), w, r.URL.Query().Get("flash"), s.metrics); err != nil {
			s.logger.Error("failed to render login", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

// handleLogin signs a worker in and loads their session stores.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling login request")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	phone := r.FormValue("phone")
	password := r.FormValue("password")

	if _, err := s.client.Login(ctx, phone, password); err != nil {
		s.logger.Warn("login failed", "phone", phone, "error", err)
		http.Redirect(w, r, "/?flash="+url.QueryEscape("Sign in failed, check your phone number and password"), http.StatusSeeOther)
		return
	}

	s.loadSession(ctx)
	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

// handleSignup registers a worker and signs them in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling signup request")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	phone := r.FormValue("phone")
	password := r.FormValue("password")
	fullName := r.FormValue("full_name")

	if _, err := s.client.Signup(ctx, phone, password, fullName); err != nil {
		s.logger.Warn("signup failed", "phone", phone, "error", err)
		http.Redirect(w, r, "/?flash="+url.QueryEscape("Registration failed"), http.StatusSeeOther)
		return
	}

	s.loadSession(ctx)
	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

// loadSession refreshes the stores after a sign-in and picks up the worker's
// saved theme preference.
func (s *Server) loadSession(ctx context.Context) {
	s.profiles.Load(ctx)
	s.alerts.Load(ctx)

	if p := s.profiles.Profile(); p != nil {
		s.themes.SetPreference(p.Theme)
	}
}

// handleLogout drops the session and any held sensor reading.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling logout request")

	s.client.Logout()
	s.flow.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleScreen serves a screen by its navigation slug.
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	tab := r.PathValue("tab")
	s.logger.Debug("handling screen request", "tab", tab)

	if s.client.CurrentUser() == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	screen := ScreenForTab(tab)
	if alertsScreen, ok := screen.(AlertsScreen); ok {
		if f := r.URL.Query().Get("filter"); f != "" {
			alertsScreen.Filter = app.AlertFilter(f)
		}
		screen = alertsScreen
	}
	if waterTest, ok := screen.(WaterTestScreen); ok {
		waterTest.SensorDialogOpen = r.URL.Query().Get("sensor") == "open"
		screen = waterTest
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	data, err := s.buildViewData(ctx, screen)
	if err != nil {
		s.logger.Error("failed to assemble screen data", "tab", tab, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Flash = r.URL.Query().Get("flash")

	if err := renderScreen(r.Context(), w, data, s.metrics); err != nil {
		s.logger.Error("failed to render screen", "tab", tab, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// buildViewData assembles what the active screen needs from the stores. Only
// the collections a screen actually renders are fetched.
func (s *Server) buildViewData(ctx context.Context, screen Screen) (*viewData, error) {
	data := &viewData{
		Screen:      screen,
		User:        s.client.CurrentUser(),
		Profile:     s.profiles.Profile(),
		Settings:    s.profiles.Settings(),
		UnreadCount: s.alerts.UnreadCount(),
		FlowState:   s.flow.State(),
		Reading:     s.flow.Reading(),
		FlowNote:    s.flow.Note(),
		AlertFilter: app.FilterAll,
		Scheme:      s.themes.Resolve(),
	}

	switch sc := screen.(type) {
	case DashboardScreen:
		tests, err := s.reports.WaterTests(ctx, 0)
		if err != nil {
			return nil, err
		}
		reports, err := s.reports.PatientReports(ctx, 0)
		if err != nil {
			return nil, err
		}
		data.WaterTests = tests
		data.Reports = reports
	case ReportsScreen:
		tests, err := s.reports.WaterTests(ctx, 0)
		if err != nil {
			return nil, err
		}
		reports, err := s.reports.PatientReports(ctx, 0)
		if err != nil {
			return nil, err
		}
		data.WaterTests = tests
		data.Reports = reports
	case AlertsScreen:
		s.alerts.Load(ctx)
		data.AlertFilter = sc.Filter
		data.Alerts = s.alerts.FilterAlerts(sc.Filter)
		data.UnreadCount = s.alerts.UnreadCount()
	case TrainingScreen:
		modules, err := s.reports.TrainingModules(ctx)
		if err != nil {
			return nil, err
		}
		progress, err := s.reports.TrainingProgress(ctx)
		if err != nil {
			return nil, err
		}
		data.Modules = modules
		data.Progress = progress
	case ProfileScreen:
		s.profiles.Load(ctx)
		data.Profile = s.profiles.Profile()
		data.Settings = s.profiles.Settings()
		if data.Profile != nil {
			s.themes.SetPreference(data.Profile.Theme)
			data.Scheme = s.themes.Resolve()
		}
	}

	return data, nil
}

// handleAlertRead marks one alert as read.
func (s *Server) handleAlertRead(w http.ResponseWriter, r *http.Request) {
	alertID := r.FormValue("id")
	s.logger.Debug("handling alert read request", "alert_id", alertID)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.alerts.MarkAsRead(ctx, alertID); err != nil {
		s.logger.Error("failed to mark alert read", "alert_id", alertID, "error", err)
	}
	http.Redirect(w, r, "/app/alerts", http.StatusSeeOther)
}

// handleWaterTestSubmit submits a water-quality test. A held sensor reading
// wins over hand-entered values.
func (s *Server) handleWaterTestSubmit(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling water test submit")

	test := waterhealth.WaterTest{
		SourceName: r.FormValue("source_name"),
		SourceType: r.FormValue("source_type"),
		TestMethod: waterhealth.TestMethodManual,
		Turbidity:  waterhealth.Turbidity(r.FormValue("turbidity")),
		Bacteria:   r.FormValue("bacteria"),
	}
	if ph, err := strconv.ParseFloat(r.FormValue("ph"), 64); err == nil {
		test.PH = ph
	}
	if err := s.flow.Apply(&test); errors.Is(err, sensor.ErrNoReading) {
		s.logger.Debug("no sensor reading to apply")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.reports.SubmitWaterTest(ctx, test); err != nil {
		s.logger.Warn("water test rejected", "error", err)
		http.Redirect(w, r, "/app/water-test?flash="+url.QueryEscape("Test not saved: "+err.Error()), http.StatusSeeOther)
		return
	}

	s.flow.Reset()
	http.Redirect(w, r, "/app/reports?flash="+url.QueryEscape("Water test saved"), http.StatusSeeOther)
}

// handleSensorScan drives the acquisition dialog on the water-test screen.
func (s *Server) handleSensorScan(w http.ResponseWriter, r *http.Request) {
	op := r.FormValue("op")
	s.logger.Debug("handling sensor scan request", "op", op)

	switch op {
	case "scan":
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.flow.Scan(ctx); err != nil {
			s.logger.Error("sensor scan failed", "error", err)
		}
		http.Redirect(w, r, "/app/water-test?sensor=open", http.StatusSeeOther)
	case "apply":
		// The form is prefilled from the held reading on the next render.
		http.Redirect(w, r, "/app/water-test", http.StatusSeeOther)
	case "reset":
		s.flow.Reset()
		http.Redirect(w, r, "/app/water-test?sensor=open", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/app/water-test", http.StatusSeeOther)
	}
}

// handlePatientReport submits a patient case report.
func (s *Server) handlePatientReport(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling patient report submit")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	report := waterhealth.PatientReport{
		PatientName:   r.FormValue("patient_name"),
		Gender:        r.FormValue("gender"),
		Symptoms:      r.Form["symptoms"],
		OtherSymptoms: r.FormValue("other_symptoms"),
		Severity:      r.FormValue("severity"),
		Village:       r.FormValue("village"),
	}
	if age, err := strconv.Atoi(r.FormValue("age")); err == nil {
		report.Age = age
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.reports.SubmitPatientReport(ctx, report); err != nil {
		s.logger.Warn("patient report rejected", "error", err)
		http.Redirect(w, r, "/app/report-patient?flash="+url.QueryEscape("Report not saved: "+err.Error()), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/app/reports?flash="+url.QueryEscape("Patient report saved"), http.StatusSeeOther)
}

// handleProfileUpdate saves the profile form.
func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling profile update")

	changes := app.Row{
		"full_name": r.FormValue("full_name"),
		"address":   r.FormValue("address"),
		"pincode":   r.FormValue("pincode"),
		"language":  r.FormValue("language"),
		"theme":     r.FormValue("theme"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.profiles.UpdateProfile(ctx, changes); err != nil {
		s.logger.Error("failed to update profile", "error", err)
		http.Redirect(w, r, "/app/profile?flash="+url.QueryEscape("Profile not saved"), http.StatusSeeOther)
		return
	}

	s.themes.SetPreference(r.FormValue("theme"))
	http.Redirect(w, r, "/app/profile?flash="+url.QueryEscape("Profile saved"), http.StatusSeeOther)
}

// handleProfileImage uploads a new profile photo.
func (s *Server) handleProfileImage(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling profile image upload")

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUpload))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := s.profiles.UploadProfileImage(ctx, header.Filename, header.Header.Get("Content-Type"), data); err != nil {
		s.logger.Error("failed to upload profile image", "error", err)
		http.Redirect(w, r, "/app/profile?flash="+url.QueryEscape("Photo not uploaded"), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/app/profile?flash="+url.QueryEscape("Photo updated"), http.StatusSeeOther)
}

// handleSettingsUpdate saves the settings form. Unchecked boxes are absent
// from the form, so every toggle is written explicitly.
func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling settings update")

	changes := app.Row{
		"emergency_contact":     r.FormValue("emergency_contact"),
		"notifications_enabled": r.FormValue("notifications_enabled") != "",
		"auto_sync":             r.FormValue("auto_sync") != "",
		"privacy_location":      r.FormValue("privacy_location") != "",
		"privacy_camera":        r.FormValue("privacy_camera") != "",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.profiles.UpdateSettings(ctx, changes); err != nil {
		s.logger.Error("failed to update settings", "error", err)
		http.Redirect(w, r, "/app/profile?flash="+url.QueryEscape("Settings not saved"), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/app/profile?flash="+url.QueryEscape("Settings saved"), http.StatusSeeOther)
}

// handleTrainingProgress records progress through a training module.
func (s *Server) handleTrainingProgress(w http.ResponseWriter, r *http.Request) {
	moduleID := r.FormValue("module_id")
	s.logger.Debug("handling training progress", "module_id", moduleID)

	percent, err := strconv.Atoi(r.FormValue("percent"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.reports.RecordTrainingProgress(ctx, moduleID, percent); err != nil {
		s.logger.Error("failed to record training progress", "module_id", moduleID, "error", err)
	}
	http.Redirect(w, r, "/app/training", http.StatusSeeOther)
}

// handleFeedback records app feedback and acknowledges it with an alert.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	subject := r.FormValue("subject")
	s.logger.Info("feedback received", "subject", subject, "message", r.FormValue("message"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.alerts.CreateAlert(ctx, "Feedback received", "Thank you for your feedback: "+subject, waterhealth.AlertInfo); err != nil {
		s.logger.Error("failed to record feedback alert", "error", err)
	}
	http.Redirect(w, r, "/app/dashboard?flash="+url.QueryEscape("Feedback sent"), http.StatusSeeOther)
}

// handleStatic serves the stylesheet.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling static file request", "path", r.URL.Path)

	if r.URL.Path != "/static/app.css" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.WriteString(w, appCSS); err != nil {
		s.logger.Error("failed to write stylesheet", "error", err)
	}
}

// handleHealth serves health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}
