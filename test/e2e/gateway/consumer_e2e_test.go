package gateway

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tenacious60/aquahealthmonitor/internal/app"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// publishToQueue sends a payload to a consumer queue through the test
// channel, the same way the simulator publishes.
func publishToQueue(ctx context.Context, queueName string, payload []byte) {
	err := mqChannel.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
	Expect(err).NotTo(HaveOccurred())
}

// uniquePincode returns a pincode unlikely to collide with other specs so
// broadcast fanout stays isolated per test.
func uniquePincode() string {
	return fmt.Sprintf("7%05d", time.Now().UnixNano()%100000)
}

var _ = Describe("Consumer E2E", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Alert broadcasts", func() {
		It("should fan a broadcast out to users in the matching pincode", func() {
			pincode := uniquePincode()

			client := newSignedInClient(ctx, "District Worker")
			_, err := client.Update(ctx, "profiles", app.UpdateRequest{
				Changes: app.Row{"pincode": pincode},
			})
			Expect(err).NotTo(HaveOccurred())

			payload, err := waterhealth.EncodeAlertBroadcast(&waterhealth.AlertBroadcast{
				Pincode:   pincode,
				Title:     "Contamination advisory",
				Message:   "Avoid the river intake until tests clear",
				Type:      waterhealth.AlertEmergency,
				IssuedAt:  time.Now().UTC(),
				Authority: "district health office",
			})
			Expect(err).NotTo(HaveOccurred())

			publishToQueue(ctx, alertQueueName, payload)

			Eventually(func() []string {
				rows, err := client.Select(ctx, "alerts", app.SelectQuery{})
				if err != nil {
					return nil
				}
				titles := make([]string, 0, len(rows))
				for _, row := range rows {
					title, _ := row["title"].(string)
					titles = append(titles, title)
				}
				return titles
			}, 15*time.Second, 500*time.Millisecond).Should(ContainElement("Contamination advisory"))
		})

		It("should not alert users in other pincodes", func() {
			broadcastPincode := uniquePincode()
			otherPincode := uniquePincode()
			Expect(otherPincode).NotTo(Equal(broadcastPincode))

			client := newSignedInClient(ctx, "Far Away Worker")
			_, err := client.Update(ctx, "profiles", app.UpdateRequest{
				Changes: app.Row{"pincode": otherPincode},
			})
			Expect(err).NotTo(HaveOccurred())

			payload, err := waterhealth.EncodeAlertBroadcast(&waterhealth.AlertBroadcast{
				Pincode:  broadcastPincode,
				Title:    "Elsewhere advisory",
				Message:  "This should stay in its own district",
				Type:     waterhealth.AlertInfo,
				IssuedAt: time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())

			publishToQueue(ctx, alertQueueName, payload)

			Consistently(func() int {
				rows, err := client.Select(ctx, "alerts", app.SelectQuery{})
				if err != nil {
					return -1
				}
				return len(rows)
			}, 5*time.Second, 500*time.Millisecond).Should(Equal(0))
		})

		It("should drop an invalid broadcast without crashing the consumer", func() {
			publishToQueue(ctx, alertQueueName, []byte("not json at all"))

			// The consumer must still process valid messages afterwards.
			pincode := uniquePincode()
			client := newSignedInClient(ctx, "Resilience Worker")
			_, err := client.Update(ctx, "profiles", app.UpdateRequest{
				Changes: app.Row{"pincode": pincode},
			})
			Expect(err).NotTo(HaveOccurred())

			payload, err := waterhealth.EncodeAlertBroadcast(&waterhealth.AlertBroadcast{
				Pincode:  pincode,
				Title:    "Post-failure advisory",
				Message:  "Consumer recovered",
				Type:     waterhealth.AlertWarning,
				IssuedAt: time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())

			publishToQueue(ctx, alertQueueName, payload)

			Eventually(func() int {
				rows, err := client.Select(ctx, "alerts", app.SelectQuery{})
				if err != nil {
					return 0
				}
				return len(rows)
			}, 15*time.Second, 500*time.Millisecond).Should(Equal(1))
		})
	})

	Describe("Fleet readings", func() {
		It("should persist a published reading", func() {
			deviceID := fmt.Sprintf("device-e2e-%d", time.Now().UnixNano())

			payload, err := waterhealth.EncodeFleetReading(&waterhealth.FleetReading{
				DeviceID:   deviceID,
				Pincode:    "752001",
				PH:         7.3,
				Turbidity:  waterhealth.TurbidityCloudy,
				Bacteria:   "yes",
				Battery:    64,
				RecordedAt: time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())

			publishToQueue(ctx, readingsQueueName, payload)

			client := newSignedInClient(ctx, "Readings Watcher")

			Eventually(func() []app.Row {
				rows, err := client.Select(ctx, "fleet_readings", app.SelectQuery{
					Filter: app.Row{"device_id": deviceID},
				})
				if err != nil {
					return nil
				}
				return rows
			}, 15*time.Second, 500*time.Millisecond).Should(HaveLen(1))

			rows, err := client.Select(ctx, "fleet_readings", app.SelectQuery{
				Filter: app.Row{"device_id": deviceID},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0]["turbidity"]).To(Equal("cloudy"))
			Expect(rows[0]["bacteria"]).To(Equal("yes"))
		})

		It("should reject client writes to the readings table", func() {
			client := newSignedInClient(ctx, "Readings Writer")

			_, err := client.Insert(ctx, "fleet_readings", app.Row{
				"device_id": "rogue-device",
				"pincode":   "752001",
			})
			Expect(err).To(HaveOccurred())
		})
	})
})
