package app_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenacious60/aquahealthmonitor/internal/app"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

var _ = Describe("AlertStore", func() {
	var (
		logger *slog.Logger
		gw     *app.FakeGateway
		store  *app.AlertStore
		ctx    context.Context
	)

	user := &waterhealth.User{ID: "user-1", Phone: "9999900000"}

	seedAlert := func(id string, createdAt time.Time, read bool) {
		gw.Seed("alerts", app.Row{
			"id":         id,
			"user_id":    user.ID,
			"title":      "Cholera outbreak warning",
			"message":    "Boil water before drinking",
			"type":       waterhealth.AlertWarning,
			"is_read":    read,
			"created_at": createdAt,
		})
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		gw = app.NewFakeGateway()
		ctx = context.Background()

		var err error
		store, err = app.NewAlertStore(gw, app.StaticSession{User: user}, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Load", func() {
		It("should load alerts newest first", func() {
			now := time.Now()
			seedAlert("old", now.Add(-2*time.Hour), false)
			seedAlert("new", now, false)
			seedAlert("middle", now.Add(-time.Hour), true)

			store.Load(ctx)

			alerts := store.Alerts()
			Expect(alerts).To(HaveLen(3))
			Expect(alerts[0].ID).To(Equal("new"))
			Expect(alerts[1].ID).To(Equal("middle"))
			Expect(alerts[2].ID).To(Equal("old"))
		})

		It("should stay empty and silent without a session", func() {
			seedAlert("a", time.Now(), false)
			anonymous, err := app.NewAlertStore(gw, app.StaticSession{}, logger)
			Expect(err).NotTo(HaveOccurred())

			anonymous.Load(ctx)
			Expect(anonymous.Alerts()).To(BeEmpty())
			Expect(gw.Selects["alerts"]).To(BeZero())
		})

		It("should leave the collection empty when the fetch fails", func() {
			seedAlert("a", time.Now(), false)
			gw.SelectErr = errors.New("gateway unreachable")

			store.Load(ctx)
			Expect(store.Alerts()).To(BeEmpty())
		})
	})

	Describe("UnreadCount", func() {
		It("should count only unread alerts", func() {
			now := time.Now()
			seedAlert("a", now, false)
			seedAlert("b", now, true)
			seedAlert("c", now, false)

			store.Load(ctx)
			Expect(store.UnreadCount()).To(Equal(2))
		})
	})

	Describe("MarkAsRead", func() {
		It("should flip the entry and decrement the unread count", func() {
			seedAlert("a", time.Now(), false)
			store.Load(ctx)
			Expect(store.UnreadCount()).To(Equal(1))

			Expect(store.MarkAsRead(ctx, "a")).To(Succeed())
			Expect(store.UnreadCount()).To(BeZero())
			Expect(store.Alerts()[0].IsRead).To(BeTrue())
		})

		It("should be idempotent for an already-read alert", func() {
			seedAlert("a", time.Now(), true)
			store.Load(ctx)

			Expect(store.MarkAsRead(ctx, "a")).To(Succeed())
			Expect(store.MarkAsRead(ctx, "a")).To(Succeed())
			Expect(store.UnreadCount()).To(BeZero())
		})

		It("should keep the entry unread when the remote update fails", func() {
			seedAlert("a", time.Now(), false)
			store.Load(ctx)
			gw.UpdateErr = errors.New("gateway unreachable")

			err := store.MarkAsRead(ctx, "a")
			Expect(err).To(HaveOccurred())
			Expect(store.Alerts()[0].IsRead).To(BeFalse())
			Expect(store.UnreadCount()).To(Equal(1))
		})

		It("should refuse without a session", func() {
			anonymous, err := app.NewAlertStore(gw, app.StaticSession{}, logger)
			Expect(err).NotTo(HaveOccurred())

			err = anonymous.MarkAsRead(ctx, "a")
			Expect(err).To(MatchError(app.ErrNotSignedIn))
		})
	})

	Describe("CreateAlert", func() {
		It("should prepend exactly one unread entry", func() {
			seedAlert("existing", time.Now().Add(-time.Hour), true)
			store.Load(ctx)

			alert, err := store.CreateAlert(ctx, "Training reminder", "Module 3 due", waterhealth.AlertTraining)
			Expect(err).NotTo(HaveOccurred())
			Expect(alert.IsRead).To(BeFalse())

			alerts := store.Alerts()
			Expect(alerts).To(HaveLen(2))
			Expect(alerts[0].ID).To(Equal(alert.ID))
			Expect(store.UnreadCount()).To(Equal(1))
		})

		It("should default the type to info", func() {
			store.Load(ctx)

			alert, err := store.CreateAlert(ctx, "t", "m", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(alert.Type).To(Equal(waterhealth.AlertInfo))
		})

		It("should not touch the collection when the insert fails", func() {
			store.Load(ctx)
			gw.InsertErr = errors.New("gateway unreachable")

			_, err := store.CreateAlert(ctx, "t", "m", "")
			Expect(err).To(HaveOccurred())
			Expect(store.Alerts()).To(BeEmpty())
		})
	})

	Describe("FilterAlerts", func() {
		var (
			today     time.Time
			yesterday time.Time
		)

		BeforeEach(func() {
			now := time.Now()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			today = midnight.Add(time.Hour)
			yesterday = midnight.Add(-23 * time.Hour)

			seedAlert("today-1", today, false)
			seedAlert("yesterday-1", yesterday, true)
			seedAlert("older", midnight.AddDate(0, 0, -5), false)
			store.Load(ctx)
		})

		It("should return everything for the all filter", func() {
			Expect(store.FilterAlerts(app.FilterAll)).To(HaveLen(3))
		})

		It("should return only unread alerts for the unread filter", func() {
			unread := store.FilterAlerts(app.FilterUnread)
			Expect(unread).To(HaveLen(2))
			for _, a := range unread {
				Expect(a.IsRead).To(BeFalse())
			}
		})

		It("should keep today and yesterday disjoint", func() {
			todays := store.FilterAlerts(app.FilterToday)
			yesterdays := store.FilterAlerts(app.FilterYesterday)

			Expect(todays).To(HaveLen(1))
			Expect(todays[0].ID).To(Equal("today-1"))
			Expect(yesterdays).To(HaveLen(1))
			Expect(yesterdays[0].ID).To(Equal("yesterday-1"))

			for _, t := range todays {
				for _, y := range yesterdays {
					Expect(t.ID).NotTo(Equal(y.ID))
				}
			}
		})

		It("should exclude alerts older than yesterday from both day windows", func() {
			for _, filter := range []app.AlertFilter{app.FilterToday, app.FilterYesterday} {
				for _, a := range store.FilterAlerts(filter) {
					Expect(a.ID).NotTo(Equal("older"))
				}
			}
		})

		It("should treat an unknown filter as all", func() {
			Expect(store.FilterAlerts("bogus")).To(HaveLen(3))
		})
	})
})
