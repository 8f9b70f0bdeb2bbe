package frontend

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/tenacious60/aquahealthmonitor/internal/app"
	"github.com/tenacious60/aquahealthmonitor/internal/sensor"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// viewData carries everything the layout and screens render from.
type viewData struct {
	Screen      Screen
	Scheme      Scheme
	User        *waterhealth.User
	Profile     *waterhealth.Profile
	Settings    *waterhealth.UserSettings
	Alerts      []waterhealth.Alert
	AlertFilter app.AlertFilter
	UnreadCount int
	WaterTests  []waterhealth.WaterTest
	Reports     []waterhealth.PatientReport
	Modules     []waterhealth.TrainingModule
	Progress    map[string]waterhealth.TrainingProgress
	FlowState   sensor.State
	Reading     *waterhealth.SensorReading
	FlowNote    string
	Flash       string
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// page is the outer document: head, nav tabs with the unread badge, and the
// active screen's body.
func page(data *viewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := data.Screen.screenName()
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en" data-theme=%q><head><meta charset="utf-8">`+
				`<meta name="viewport" content="width=device-width, initial-scale=1">`+
				`<title>AquaHealth Monitor</title><link rel="stylesheet" href="/static/app.css">`+
				`</head><body class="screen-%s">`, data.Scheme, esc(name)); err != nil {
			return err
		}
		if err := navBar(data).Render(ctx, w); err != nil {
			return err
		}
		if data.Flash != "" {
			if _, err := fmt.Fprintf(w, `<div class="flash">%s</div>`, esc(data.Flash)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<main class="content">`); err != nil {
			return err
		}
		if err := screenBody(data).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func navBar(data *viewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<nav class="tabs">`); err != nil {
			return err
		}
		active := data.Screen.screenName()
		for _, tab := range Tabs {
			class := "tab"
			if tab.Slug == active {
				class = "tab active"
			}
			badge := ""
			if tab.Slug == "alerts" && data.UnreadCount > 0 {
				badge = fmt.Sprintf(`<span class="badge">%d</span>`, data.UnreadCount)
			}
			if _, err := fmt.Fprintf(w, `<a class=%q href="/app/%s">%s%s</a>`,
				class, esc(tab.Slug), esc(tab.Label), badge); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</nav>`)
		return err
	})
}

// screenBody dispatches on the concrete screen type.
func screenBody(data *viewData) templ.Component {
	switch s := data.Screen.(type) {
	case DashboardScreen:
		return dashboard(data)
	case WaterTestScreen:
		return waterTestForm(data, s)
	case ReportPatientScreen:
		return patientReportForm(data)
	case ReportsScreen:
		return reportsHistory(data)
	case AlertsScreen:
		return alertsList(data)
	case TrainingScreen:
		return trainingList(data)
	case ProfileScreen:
		return profileEditor(data)
	case FeedbackScreen:
		return feedbackForm()
	default:
		return dashboard(data)
	}
}

func dashboard(data *viewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		greeting := "Welcome"
		if data.Profile != nil && data.Profile.FullName != "" {
			greeting = "Welcome, " + data.Profile.FullName
		}
		if _, err := fmt.Fprintf(w, `<h1>%s</h1><section class="stats">`, esc(greeting)); err != nil {
			return err
		}
		stats := []struct {
			Label string
			Value int
		}{
			{"Water tests", len(data.WaterTests)},
			{"Patient reports", len(data.Reports)},
			{"Unread alerts", data.UnreadCount},
		}
		for _, s := range stats {
			if _, err := fmt.Fprintf(w,
				`<div class="stat"><span class="value">%d</span><span class="label">%s</span></div>`,
				s.Value, esc(s.Label)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</section><section class="quick-actions">`+
			`<a class="action" href="/app/water-test">Test Water</a>`+
			`<a class="action" href="/app/report-patient">Report Patient</a>`+
			`<a class="action" href="/app/training">Training</a>`+
			`<a class="action" href="/app/reports">History</a>`+
			`</section>`)
		return err
	})
}

func waterTestForm(data *viewData, screen WaterTestScreen) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Water Quality Test</h1>`+
			`<form method="post" action="/app/water-test" class="water-test">`+
			`<label>Source name<input name="source_name" required></label>`+
			`<label>Source type<select name="source_type">`); err != nil {
			return err
		}
		for _, t := range waterhealth.SourceTypes {
			if _, err := fmt.Fprintf(w, `<option value=%q>%s</option>`, esc(t), esc(t)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</select></label>`+
			`<label>pH<input name="ph" type="number" step="0.1" min="0" max="14"`); err != nil {
			return err
		}
		ph, turbidity, bacteria := "", "", ""
		if data.Reading != nil {
			ph = fmt.Sprintf("%.1f", data.Reading.PH)
			turbidity = string(data.Reading.Turbidity)
			bacteria = data.Reading.Bacteria
		}
		if _, err := fmt.Fprintf(w, ` value=%q></label><label>Turbidity<select name="turbidity">`, ph); err != nil {
			return err
		}
		for _, level := range waterhealth.TurbidityLevels {
			selected := ""
			if string(level) == turbidity {
				selected = " selected"
			}
			if _, err := fmt.Fprintf(w, `<option value=%q%s>%s</option>`,
				esc(string(level)), selected, esc(string(level))); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</select></label><label>Bacteria<select name="bacteria">`); err != nil {
			return err
		}
		for _, v := range []string{"no", "yes"} {
			selected := ""
			if v == bacteria {
				selected = " selected"
			}
			if _, err := fmt.Fprintf(w, `<option value=%q%s>%s</option>`, v, selected, v); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</select></label>`+
			`<button type="submit">Submit Test</button></form>`); err != nil {
			return err
		}
		return sensorDialog(data, screen).Render(ctx, w)
	})
}

// sensorDialog renders the acquisition dialog for the water-test screen.
// Apply stays disabled until a reading is held.
func sensorDialog(data *viewData, screen WaterTestScreen) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		open := ""
		if screen.SensorDialogOpen {
			open = " open"
		}
		if _, err := fmt.Fprintf(w, `<dialog class="sensor"%s><h2>Sensor Reading</h2>`, open); err != nil {
			return err
		}
		switch data.FlowState {
		case sensor.StateScanning:
			if _, err := io.WriteString(w, `<p class="status">Scanning…</p>`); err != nil {
				return err
			}
		case sensor.StateDataReady:
			if data.Reading != nil {
				if _, err := fmt.Fprintf(w,
					`<dl class="reading"><dt>pH</dt><dd>%.1f</dd>`+
						`<dt>Turbidity</dt><dd>%s</dd>`+
						`<dt>Bacteria</dt><dd>%s</dd>`+
						`<dt>Battery</dt><dd>%d%%</dd></dl>`,
					data.Reading.PH, esc(string(data.Reading.Turbidity)),
					esc(data.Reading.Bacteria), data.Reading.Battery); err != nil {
					return err
				}
			}
			if data.FlowNote != "" {
				if _, err := fmt.Fprintf(w, `<p class="note">%s</p>`, esc(data.FlowNote)); err != nil {
					return err
				}
			}
		default:
			if _, err := io.WriteString(w, `<p class="status">Ready to scan.</p>`); err != nil {
				return err
			}
		}

		applyDisabled := ""
		if data.FlowState != sensor.StateDataReady || data.Reading == nil {
			applyDisabled = " disabled"
		}
		_, err := fmt.Fprintf(w, `<form method="post" action="/app/water-test/scan">`+
			`<button name="op" value="scan">Scan</button>`+
			`<button name="op" value="apply"%s>Apply</button>`+
			`</form></dialog>`, applyDisabled)
		return err
	})
}

func patientReportForm(_ *viewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Report Patient Case</h1>`+
			`<form method="post" action="/app/report-patient" class="patient-report">`+
			`<label>Patient name<input name="patient_name" required></label>`+
			`<label>Age<input name="age" type="number" min="0" max="120"></label>`+
			`<label>Gender<select name="gender"><option>female</option><option>male</option><option>other</option></select></label>`+
			`<fieldset><legend>Symptoms</legend>`); err != nil {
			return err
		}
		for _, symptom := range waterhealth.Symptoms {
			if _, err := fmt.Fprintf(w,
				`<label class="check"><input type="checkbox" name="symptoms" value=%q>%s</label>`,
				esc(symptom), esc(symptom)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</fieldset>`+
			`<label>Other symptoms<input name="other_symptoms"></label>`+
			`<label>Severity<select name="severity"><option>mild</option><option>moderate</option><option>severe</option></select></label>`+
			`<label>Village<input name="village"></label>`+
			`<button type="submit">Submit Report</button></form>`)
		return err
	})
}

func reportsHistory(data *viewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Submission History</h1><h2>Water Tests</h2><ul class="history">`); err != nil {
			return err
		}
		for _, t := range data.WaterTests {
			if _, err := fmt.Fprintf(w,
				`<li><strong>%s</strong> (%s) pH %.1f, %s, bacteria %s <time>%s</time></li>`,
				esc(t.SourceName), esc(t.SourceType), t.PH, esc(string(t.Turbidity)),
				esc(t.Bacteria), t.CreatedAt.Format("02 Jan 2006")); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</ul><h2>Patient Reports</h2><ul class="history">`); err != nil {
			return err
		}
		for _, r := range data.Reports {
			if _, err := fmt.Fprintf(w,
				`<li><strong>%s</strong>, %s severity, %s <time>%s</time></li>`,
				esc(r.PatientName), esc(r.Severity), esc(r.Village),
				r.CreatedAt.Format("02 Jan 2006")); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func alertsList(data *viewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>Alerts <span class="badge">%d unread</span></h1><div class="chips">`,
			data.UnreadCount); err != nil {
			return err
		}
		for _, f := range []app.AlertFilter{app.FilterAll, app.FilterToday, app.FilterYesterday, app.FilterUnread} {
			class := "chip"
			if f == data.AlertFilter {
				class = "chip active"
			}
			if _, err := fmt.Fprintf(w, `<a class=%q href="/app/alerts?filter=%s">%s</a>`,
				class, f, f); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</div><ul class="alerts">`); err != nil {
			return err
		}
		for _, a := range data.Alerts {
			state := "read"
			if !a.IsRead {
				state = "unread"
			}
			if _, err := fmt.Fprintf(w,
				`<li class="alert %s %s"><strong>%s</strong><p>%s</p><time>%s</time>`,
				esc(a.Type), state, esc(a.Title), esc(a.Message),
				a.CreatedAt.Format("02 Jan 15:04")); err != nil {
				return err
			}
			if !a.IsRead {
				if _, err := fmt.Fprintf(w,
					`<form method="post" action="/app/alerts/read"><input type="hidden" name="id" value=%q>`+
						`<button type="submit">Mark read</button></form>`, esc(a.ID)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</li>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func trainingList(data *viewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Training</h1><ul class="modules">`); err != nil {
			return err
		}
		for _, m := range data.Modules {
			percent := 0
			if p, ok := data.Progress[m.ID]; ok {
				percent = p.Percent
			}
			if _, err := fmt.Fprintf(w,
				`<li><strong>%s</strong> <span class="category">%s</span> <span>%s, %d lessons</span>`+
					`<progress max="100" value="%d"></progress></li>`,
				esc(m.Title), esc(m.Category), esc(m.Duration), m.Lessons, percent); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func profileEditor(data *viewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Profile</h1>`); err != nil {
			return err
		}
		var p waterhealth.Profile
		if data.Profile != nil {
			p = *data.Profile
		}
		if p.ProfileImageURL != "" {
			if _, err := fmt.Fprintf(w, `<img class="avatar" src=%q alt="Profile photo">`,
				esc(p.ProfileImageURL)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w,
			`<form method="post" action="/app/profile" class="profile">`+
				`<label>Full name<input name="full_name" value=%q></label>`+
				`<label>Address<input name="address" value=%q></label>`+
				`<label>Pincode<input name="pincode" value=%q></label>`+
				`<label>Language<select name="language">`,
			esc(p.FullName), esc(p.Address), esc(p.Pincode)); err != nil {
			return err
		}
		for _, lang := range waterhealth.Languages {
			selected := ""
			if lang == p.Language {
				selected = " selected"
			}
			if _, err := fmt.Fprintf(w, `<option value=%q%s>%s</option>`, lang, selected, lang); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</select></label><label>Theme<select name="theme">`); err != nil {
			return err
		}
		for _, theme := range []string{waterhealth.ThemeSystem, waterhealth.ThemeLight, waterhealth.ThemeDark} {
			selected := ""
			if theme == p.Theme {
				selected = " selected"
			}
			if _, err := fmt.Fprintf(w, `<option value=%q%s>%s</option>`, theme, selected, theme); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</select></label>`+
			`<button type="submit">Save</button></form>`+
			`<form method="post" action="/app/profile/image" enctype="multipart/form-data">`+
			`<label>Profile photo<input type="file" name="image" accept="image/*"></label>`+
			`<button type="submit">Upload</button></form>`); err != nil {
			return err
		}

		var s waterhealth.UserSettings
		if data.Settings != nil {
			s = *data.Settings
		}
		checked := func(b bool) string {
			if b {
				return " checked"
			}
			return ""
		}
		_, err := fmt.Fprintf(w,
			`<h2>Settings</h2><form method="post" action="/app/settings" class="settings">`+
				`<label>Emergency contact<input name="emergency_contact" value=%q></label>`+
				`<label class="check"><input type="checkbox" name="notifications_enabled"%s>Notifications</label>`+
				`<label class="check"><input type="checkbox" name="auto_sync"%s>Auto sync</label>`+
				`<label class="check"><input type="checkbox" name="privacy_location"%s>Share location</label>`+
				`<label class="check"><input type="checkbox" name="privacy_camera"%s>Allow camera</label>`+
				`<button type="submit">Save Settings</button></form>`,
			esc(s.EmergencyContact), checked(s.NotificationsEnabled), checked(s.AutoSync),
			checked(s.PrivacyLocation), checked(s.PrivacyCamera))
		return err
	})
}

func feedbackForm() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>Feedback</h1>`+
			`<form method="post" action="/app/feedback" class="feedback">`+
			`<label>Subject<input name="subject" required></label>`+
			`<label>Message<textarea name="message" rows="5" required></textarea></label>`+
			`<button type="submit">Send</button></form>`)
		return err
	})
}

// loginPage is shown to anonymous visitors.
func loginPage(flash string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<title>AquaHealth Monitor</title><link rel="stylesheet" href="/static/app.css"></head>`+
			`<body class="screen-login"><main class="content"><h1>AquaHealth Monitor</h1>`); err != nil {
			return err
		}
		if flash != "" {
			if _, err := fmt.Fprintf(w, `<div class="flash">%s</div>`, esc(flash)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<form method="post" action="/login" class="login">`+
			`<label>Phone<input name="phone" required></label>`+
			`<label>Password<input name="password" type="password" required></label>`+
			`<button type="submit">Sign In</button></form>`+
			`<form method="post" action="/signup" class="signup"><h2>New worker?</h2>`+
			`<label>Full name<input name="full_name"></label>`+
			`<label>Phone<input name="phone" required></label>`+
			`<label>Password<input name="password" type="password" required></label>`+
			`<button type="submit">Register</button></form></main></body></html>`)
		return err
	})
}
