package gateway

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenacious60/aquahealthmonitor/internal/app"
)

// newSignedInClient signs up a fresh user and returns the client holding its
// session. Each spec gets its own user so record scoping is part of what is
// being tested.
func newSignedInClient(ctx context.Context, fullName string) *app.Client {
	client, err := app.NewClient(&app.ClientConfig{
		Logger:  testLogger,
		BaseURL: baseURL,
	})
	Expect(err).NotTo(HaveOccurred())

	phone := fmt.Sprintf("9%09d", time.Now().UnixNano()%1_000_000_000)
	user, err := client.Signup(ctx, phone, "e2e-password", fullName)
	Expect(err).NotTo(HaveOccurred())
	Expect(user.ID).NotTo(BeEmpty())

	return client
}

var _ = Describe("Records E2E", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Signup", func() {
		It("should create a profile row for the new user", func() {
			client := newSignedInClient(ctx, "Asha Devi")

			rows, err := client.Select(ctx, "profiles", app.SelectQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]["full_name"]).To(Equal("Asha Devi"))
		})

		It("should create default settings for the new user", func() {
			client := newSignedInClient(ctx, "Settings User")

			rows, err := client.Select(ctx, "user_settings", app.SelectQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
		})

		It("should reject a duplicate phone number", func() {
			client, err := app.NewClient(&app.ClientConfig{
				Logger:  testLogger,
				BaseURL: baseURL,
			})
			Expect(err).NotTo(HaveOccurred())

			phone := fmt.Sprintf("8%09d", time.Now().UnixNano()%1_000_000_000)
			_, err = client.Signup(ctx, phone, "e2e-password", "First User")
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Signup(ctx, phone, "e2e-password", "Second User")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Training catalog", func() {
		It("should serve the seeded modules to any user", func() {
			client := newSignedInClient(ctx, "Catalog User")

			rows, err := client.Select(ctx, "training_modules", app.SelectQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(len(rows)).To(BeNumerically(">=", 10))

			titles := make([]string, 0, len(rows))
			for _, row := range rows {
				title, _ := row["title"].(string)
				titles = append(titles, title)
			}
			Expect(titles).To(ContainElement("Cholera Prevention"))
		})

		It("should reject writes to the catalog", func() {
			client := newSignedInClient(ctx, "Catalog Writer")

			_, err := client.Insert(ctx, "training_modules", app.Row{
				"title": "Unofficial Module",
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Water tests", func() {
		It("should insert and read back a water test", func() {
			client := newSignedInClient(ctx, "Tester")

			inserted, err := client.Insert(ctx, "water_tests", app.Row{
				"source_name": "Village well",
				"source_type": "well",
				"test_method": "manual",
				"ph":          7.2,
				"turbidity":   "clear",
				"bacteria":    "no",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted["id"]).NotTo(BeEmpty())

			rows, err := client.Select(ctx, "water_tests", app.SelectQuery{
				OrderBy:    "created_at",
				Descending: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]["source_name"]).To(Equal("Village well"))
		})

		It("should not leak water tests across users", func() {
			first := newSignedInClient(ctx, "First Worker")
			second := newSignedInClient(ctx, "Second Worker")

			_, err := first.Insert(ctx, "water_tests", app.Row{
				"source_name": "Private pond",
				"source_type": "pond",
				"test_method": "manual",
				"ph":          6.8,
				"turbidity":   "cloudy",
				"bacteria":    "yes",
			})
			Expect(err).NotTo(HaveOccurred())

			rows, err := second.Select(ctx, "water_tests", app.SelectQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})
	})

	Describe("Profile updates", func() {
		It("should persist profile changes", func() {
			client := newSignedInClient(ctx, "Profile User")

			updated, err := client.Update(ctx, "profiles", app.UpdateRequest{
				Changes: app.Row{
					"address": "Ward 4, Puri",
					"pincode": "752001",
					"theme":   "dark",
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated["pincode"]).To(Equal("752001"))

			rows, err := client.Select(ctx, "profiles", app.SelectQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]["theme"]).To(Equal("dark"))
		})

		It("should reject non-writable profile columns", func() {
			client := newSignedInClient(ctx, "Sneaky User")

			_, err := client.Update(ctx, "profiles", app.UpdateRequest{
				Changes: app.Row{"user_id": "someone-else"},
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Alert read state", func() {
		It("should reject clearing the read flag", func() {
			client := newSignedInClient(ctx, "Alert User")

			inserted, err := client.Insert(ctx, "alerts", app.Row{
				"title":   "Boil water notice",
				"message": "Boil drinking water until further notice",
				"type":    "warning",
			})
			Expect(err).NotTo(HaveOccurred())

			// Marking read is allowed.
			_, err = client.Update(ctx, "alerts", app.UpdateRequest{
				Filter:  app.Row{"id": inserted["id"]},
				Changes: app.Row{"is_read": true},
			})
			Expect(err).NotTo(HaveOccurred())

			// Marking unread is not.
			_, err = client.Update(ctx, "alerts", app.UpdateRequest{
				Filter:  app.Row{"id": inserted["id"]},
				Changes: app.Row{"is_read": false},
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Authorization", func() {
		It("should reject record calls without a session", func() {
			client, err := app.NewClient(&app.ClientConfig{
				Logger:  testLogger,
				BaseURL: baseURL,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Select(ctx, "profiles", app.SelectQuery{})
			Expect(err).To(HaveOccurred())
		})

		It("should reject unknown tables", func() {
			client := newSignedInClient(ctx, "Table User")

			_, err := client.Select(ctx, "secrets", app.SelectQuery{})
			Expect(err).To(HaveOccurred())
		})
	})
})
