package app_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenacious60/aquahealthmonitor/internal/app"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// gatedGateway wraps the fake and parks Select calls while holding, so specs
// can order two concurrent loads deterministically.
type gatedGateway struct {
	*app.FakeGateway

	mu      sync.Mutex
	holding bool
	parked  chan struct{}
	release chan struct{}
}

func newGatedGateway(fake *app.FakeGateway) *gatedGateway {
	return &gatedGateway{
		FakeGateway: fake,
		parked:      make(chan struct{}, 4),
		release:     make(chan struct{}),
	}
}

func (g *gatedGateway) hold() {
	g.mu.Lock()
	g.holding = true
	g.mu.Unlock()
}

func (g *gatedGateway) unhold() {
	g.mu.Lock()
	g.holding = false
	g.mu.Unlock()
}

func (g *gatedGateway) Select(ctx context.Context, table string, q app.SelectQuery) ([]app.Row, error) {
	g.mu.Lock()
	holding := g.holding
	g.mu.Unlock()

	if holding {
		g.parked <- struct{}{}
		<-g.release
	}
	return g.FakeGateway.Select(ctx, table, q)
}

var _ = Describe("Superseded loads", func() {
	var (
		logger *slog.Logger
		fake   *app.FakeGateway
		gated  *gatedGateway
		ctx    context.Context
	)

	user := &waterhealth.User{ID: "user-1", Phone: "9999900000"}
	session := app.StaticSession{User: user}

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		fake = app.NewFakeGateway()
		gated = newGatedGateway(fake)
		ctx = context.Background()
	})

	Describe("ProfileStore", func() {
		It("should discard the late result of a superseded load", func() {
			fake.Seed("profiles", app.Row{
				"id":        "profile-1",
				"user_id":   user.ID,
				"full_name": "Asha Worker",
				"language":  "en",
				"theme":     "system",
			})
			fake.Seed("user_settings", app.Row{
				"id":      "settings-1",
				"user_id": user.ID,
			})

			store, err := app.NewProfileStore(gated, session, logger)
			Expect(err).NotTo(HaveOccurred())

			// Load #1 parks inside its profile fetch.
			gated.hold()
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				store.Load(ctx)
				close(done)
			}()
			Eventually(gated.parked).Should(Receive())

			// Load #2 starts later and completes first.
			gated.unhold()
			store.Load(ctx)
			Expect(store.Profile().FullName).To(Equal("Asha Worker"))

			// Change the record so the parked fetch returns something
			// observably different, then let it finish.
			_, err = fake.Update(ctx, "profiles", app.UpdateRequest{
				Filter:  app.Row{"id": "profile-1"},
				Changes: app.Row{"full_name": "Late Worker"},
			})
			Expect(err).NotTo(HaveOccurred())

			close(gated.release)
			Eventually(done).Should(BeClosed())

			// The late result never lands.
			Expect(store.Profile().FullName).To(Equal("Asha Worker"))
			Expect(store.Loading()).To(BeFalse())
		})
	})

	Describe("AlertStore", func() {
		It("should discard the late result of a superseded load", func() {
			fake.Seed("alerts", app.Row{
				"id":         "alert-1",
				"user_id":    user.ID,
				"title":      "First advisory",
				"type":       waterhealth.AlertInfo,
				"is_read":    false,
				"created_at": time.Now().Add(-time.Hour),
			})

			store, err := app.NewAlertStore(gated, session, logger)
			Expect(err).NotTo(HaveOccurred())

			gated.hold()
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				store.Load(ctx)
				close(done)
			}()
			Eventually(gated.parked).Should(Receive())

			gated.unhold()
			store.Load(ctx)
			Expect(store.Alerts()).To(HaveLen(1))

			// A new alert arrives after load #2; the parked load #1 will
			// see it but must not commit it.
			fake.Seed("alerts", app.Row{
				"id":         "alert-2",
				"user_id":    user.ID,
				"title":      "Late arrival",
				"type":       waterhealth.AlertWarning,
				"is_read":    false,
				"created_at": time.Now(),
			})

			close(gated.release)
			Eventually(done).Should(BeClosed())

			alerts := store.Alerts()
			Expect(alerts).To(HaveLen(1))
			Expect(alerts[0].Title).To(Equal("First advisory"))
			Expect(store.UnreadCount()).To(Equal(1))
		})
	})
})
