package frontend

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// browse follows redirects like a browser and returns the final page body.
func browse(method, path string, form url.Values) (int, string) {
	var resp *http.Response
	var err error

	switch method {
	case http.MethodGet:
		resp, err = http.Get(frontendURL + path)
	case http.MethodPost:
		resp, err = http.PostForm(frontendURL+path, form)
	default:
		Fail("unsupported method " + method)
	}
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, string(body)
}

var _ = Describe("Screens E2E", Ordered, func() {
	var (
		phone    string
		fullName = "Asha Devi"
	)

	BeforeAll(func() {
		phone = fmt.Sprintf("9%09d", time.Now().UnixNano()%1_000_000_000)
	})

	It("should show the login page to an anonymous visitor", func() {
		status, body := browse(http.MethodGet, "/", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`action="/login"`))
		Expect(body).To(ContainSubstring(`action="/signup"`))
	})

	It("should redirect anonymous screen requests to the login page", func() {
		status, body := browse(http.MethodGet, "/app/dashboard", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`action="/login"`))
	})

	It("should sign up and land on the dashboard", func() {
		status, body := browse(http.MethodPost, "/signup", url.Values{
			"phone":     {phone},
			"password":  {"e2e-password"},
			"full_name": {fullName},
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("Welcome, " + fullName))
	})

	It("should submit a water test and show it in reports", func() {
		status, body := browse(http.MethodPost, "/app/water-test", url.Values{
			"source_name": {"Temple tank"},
			"source_type": {"pond"},
			"ph":          {"7.4"},
			"turbidity":   {"slightly-cloudy"},
			"bacteria":    {"no"},
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("Temple tank"))
	})

	It("should submit a patient report", func() {
		status, body := browse(http.MethodPost, "/app/report-patient", url.Values{
			"patient_name": {"Ravi Kumar"},
			"age":          {"34"},
			"gender":       {"male"},
			"symptoms":     {"diarrhea", "fever"},
			"severity":     {"moderate"},
			"village":      {"Birapratappur"},
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("Ravi Kumar"))
	})

	It("should show the seeded training catalog", func() {
		status, body := browse(http.MethodGet, "/app/training", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("Cholera Prevention"))
	})

	It("should save profile changes and apply the dark theme", func() {
		status, _ := browse(http.MethodPost, "/app/profile", url.Values{
			"full_name": {fullName},
			"address":   {"Ward 4, Puri"},
			"pincode":   {"752001"},
			"language":  {"or"},
			"theme":     {"dark"},
		})
		Expect(status).To(Equal(http.StatusOK))

		status, body := browse(http.MethodGet, "/app/profile", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`data-theme="dark"`))
		Expect(body).To(ContainSubstring("Ward 4, Puri"))
	})

	It("should update settings toggles", func() {
		status, _ := browse(http.MethodPost, "/app/settings", url.Values{
			"emergency_contact":     {"104"},
			"notifications_enabled": {"on"},
			"auto_sync":             {"on"},
		})
		Expect(status).To(Equal(http.StatusOK))

		status, body := browse(http.MethodGet, "/app/profile", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`value="104"`))
	})

	It("should record a feedback confirmation alert", func() {
		status, _ := browse(http.MethodPost, "/app/feedback", url.Values{
			"subject": {"App idea"},
			"message": {"Add an offline mode for field visits"},
		})
		Expect(status).To(Equal(http.StatusOK))

		status, body := browse(http.MethodGet, "/app/alerts", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("Feedback received"))
	})

	It("should serve the stylesheet", func() {
		status, body := browse(http.MethodGet, "/static/app.css", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(strings.Contains(body, "--bg")).To(BeTrue())
	})

	It("should log out and return to the login page", func() {
		status, body := browse(http.MethodPost, "/logout", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`action="/login"`))

		status, body = browse(http.MethodGet, "/app/dashboard", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`action="/login"`))
	})

	It("should log back in with the same credentials", func() {
		status, body := browse(http.MethodPost, "/login", url.Values{
			"phone":    {phone},
			"password": {"e2e-password"},
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("Welcome, " + fullName))
	})
})
