package simulator_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenacious60/aquahealthmonitor/internal/simulator"
	"github.com/tenacious60/aquahealthmonitor/pkg/mq/mock"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

var _ = Describe("Simulator", func() {
	var (
		readingClient *mock.Client
		alertClient   *mock.Client
		pincodes      []string
	)

	BeforeEach(func() {
		readingClient = &mock.Client{}
		alertClient = &mock.Client{}
		pincodes = []string{"752001", "752002"}
	})

	Describe("NewSimulator", func() {
		It("should create a fleet of sensors", func() {
			sim := simulator.NewSimulator(readingClient, alertClient, pincodes)
			Expect(sim.Sensors).NotTo(BeEmpty())
			Expect(len(sim.Sensors)).To(BeNumerically(">=", 3))
			Expect(len(sim.Sensors)).To(BeNumerically("<=", 7))
		})

		It("should deploy every sensor in a known pincode", func() {
			sim := simulator.NewSimulator(readingClient, alertClient, pincodes)
			for _, s := range sim.Sensors {
				Expect(pincodes).To(ContainElement(s.Pincode))
				Expect(s.DeviceID).NotTo(BeEmpty())
			}
		})

		It("should create different fleets on multiple calls", func() {
			sim1 := simulator.NewSimulator(readingClient, alertClient, pincodes)
			sim2 := simulator.NewSimulator(readingClient, alertClient, pincodes)

			allSame := true
			if len(sim1.Sensors) != len(sim2.Sensors) {
				allSame = false
			} else {
				for i := range sim1.Sensors {
					if sim1.Sensors[i].DeviceID != sim2.Sensors[i].DeviceID {
						allSame = false
						break
					}
				}
			}
			Expect(allSame).To(BeFalse())
		})
	})

	Describe("PublishReading", func() {
		var sim *simulator.Simulator

		BeforeEach(func() {
			sim = simulator.NewSimulator(readingClient, alertClient, pincodes)
		})

		It("should publish a decodable fleet reading", func() {
			Expect(sim.PublishReading(context.Background())).To(Succeed())
			Expect(readingClient.PushCount()).To(Equal(1))

			reading, err := waterhealth.DecodeFleetReading(readingClient.Pushed[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(reading.DeviceID).NotTo(BeEmpty())
			Expect(pincodes).To(ContainElement(reading.Pincode))
			Expect(reading.PH).To(BeNumerically(">=", 0))
			Expect(reading.PH).To(BeNumerically("<=", 14))
			Expect(reading.Turbidity.Valid()).To(BeTrue())
		})

		It("should publish readings from fleet sensors only", func() {
			for range 20 {
				Expect(sim.PublishReading(context.Background())).To(Succeed())
			}

			known := map[string]bool{}
			for _, s := range sim.Sensors {
				known[s.DeviceID] = true
			}
			for _, payload := range readingClient.Pushed {
				reading, err := waterhealth.DecodeFleetReading(payload)
				Expect(err).NotTo(HaveOccurred())
				Expect(known).To(HaveKey(reading.DeviceID))
			}
		})

		It("should return the push error", func() {
			readingClient.PushError = errors.New("broker unavailable")
			Expect(sim.PublishReading(context.Background())).NotTo(Succeed())
		})

		It("should not touch the alert queue", func() {
			Expect(sim.PublishReading(context.Background())).To(Succeed())
			Expect(alertClient.PushCount()).To(BeZero())
		})
	})

	Describe("PublishBroadcast", func() {
		var sim *simulator.Simulator

		BeforeEach(func() {
			sim = simulator.NewSimulator(readingClient, alertClient, pincodes)
		})

		It("should publish a decodable alert broadcast", func() {
			Expect(sim.PublishBroadcast(context.Background())).To(Succeed())
			Expect(alertClient.PushCount()).To(Equal(1))

			broadcast, err := waterhealth.DecodeAlertBroadcast(alertClient.Pushed[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(pincodes).To(ContainElement(broadcast.Pincode))
			Expect(broadcast.Title).NotTo(BeEmpty())
			Expect(broadcast.IssuedAt).NotTo(BeZero())
			Expect(broadcast.Authority).To(Equal("district health office"))
		})

		It("should issue broadcasts that pass validation", func() {
			for range 10 {
				Expect(sim.PublishBroadcast(context.Background())).To(Succeed())
			}
			for _, payload := range alertClient.Pushed {
				broadcast, err := waterhealth.DecodeAlertBroadcast(payload)
				Expect(err).NotTo(HaveOccurred())
				Expect(broadcast.Validate()).To(Succeed())
			}
		})

		It("should return the push error", func() {
			alertClient.PushError = errors.New("broker unavailable")
			Expect(sim.PublishBroadcast(context.Background())).NotTo(Succeed())
		})
	})
})
