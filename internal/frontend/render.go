package frontend

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

// renderScreen renders the shell around the active screen.
func renderScreen(ctx context.Context, w http.ResponseWriter, data *viewData, m *metrics.FrontendMetrics) error {
	//nolint:contextcheck // Context is passed to Templ's Render method
	return trackScreenRender(w, m, data.Screen.screenName(), func() error {
		return page(data).Render(ctx, w)
	})
}

// renderLogin renders the sign-in page shown to anonymous visitors.
func renderLogin(ctx context.Context, w http.ResponseWriter, flash string, m *metrics.FrontendMetrics) error {
	//nolint:contextcheck // Context is passed to Templ's Render method
	return trackScreenRender(w, m, "login", func() error {
		return loginPage(flash).Render(ctx, w)
	})
}

// trackScreenRender wraps screen rendering with metrics tracking.
func trackScreenRender(w http.ResponseWriter, m *metrics.FrontendMetrics, screenName string, renderFunc func() error) error {
	// If metrics not enabled, just render
	if m == nil {
		return renderFunc()
	}

	timer := prometheus.NewTimer(m.ScreenRenderTime.WithLabelValues(screenName))
	defer timer.ObserveDuration()

	err := renderFunc()
	if err != nil {
		m.ScreenRenderErrors.WithLabelValues(screenName, "render_error").Inc()
		return err
	}

	return nil
}
