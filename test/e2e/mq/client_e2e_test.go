// Package mq provides end-to-end tests for the RabbitMQ client.
package mq

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	clientmq "github.com/tenacious60/aquahealthmonitor/pkg/mq"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

var _ = Describe("MQ Client E2E", func() {
	var (
		client    *clientmq.QueueClient
		queueName string
		ctx       context.Context
	)

	BeforeEach(func() {
		// Generate unique queue name for this test
		queueName = "test-queue-" + time.Now().Format("20060102-150405.000")
		ctx = context.Background()
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
			client = nil
		}
	})

	Describe("Connection", func() {
		It("should connect to RabbitMQ successfully", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			Expect(client).NotTo(BeNil())

			// Give client time to connect
			time.Sleep(1 * time.Second)
		})

		It("should handle invalid URL gracefully", func() {
			invalidClient := clientmq.New("test-queue", "amqp://invalid:5672", testLogger)
			Expect(invalidClient).NotTo(BeNil())

			// Should not crash, will keep retrying in background
			time.Sleep(500 * time.Millisecond)

			_ = invalidClient.Close()
		})
	})

	Describe("Publishing", func() {
		BeforeEach(func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second) // Wait for connection
		})

		It("should publish a message successfully", func() {
			err := client.Push(ctx, []byte("test message"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should publish multiple messages successfully", func() {
			messages := []string{"message 1", "message 2", "message 3"}

			for _, msg := range messages {
				err := client.Push(ctx, []byte(msg))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should publish an encoded fleet reading", func() {
			payload, err := waterhealth.EncodeFleetReading(&waterhealth.FleetReading{
				DeviceID:   "device-e2e",
				Pincode:    "752001",
				PH:         7.1,
				Turbidity:  waterhealth.TurbidityClear,
				Bacteria:   "no",
				Battery:    80,
				RecordedAt: time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(client.Push(ctx, payload)).To(Succeed())
		})

		It("should handle rapid successive publishes", func() {
			for i := 0; i < 10; i++ {
				err := client.Push(ctx, []byte("rapid message"))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should use UnsafePush without blocking", func() {
			err := client.UnsafePush(ctx, []byte("unsafe message"))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Consuming", func() {
		BeforeEach(func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second) // Wait for connection
		})

		It("should consume messages successfully", func() {
			// Start consuming FIRST
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())
			Expect(deliveries).NotTo(BeNil())

			// Wait for consumer to register on server
			time.Sleep(500 * time.Millisecond)

			// THEN publish a message
			err = client.Push(ctx, []byte("consume test message"))
			Expect(err).NotTo(HaveOccurred())

			// Receive the message
			select {
			case delivery := <-deliveries:
				Expect(string(delivery.Body)).To(ContainSubstring("consume test message"))
			case <-time.After(5 * time.Second):
				Fail("Did not receive message within timeout")
			}
		})

		It("should consume multiple messages in order", func() {
			// Start consuming FIRST
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			// Wait for consumer to register on server
			time.Sleep(500 * time.Millisecond)

			// THEN publish multiple messages
			messages := []string{"first", "second", "third"}
			for _, msg := range messages {
				err := client.Push(ctx, []byte(msg))
				Expect(err).NotTo(HaveOccurred())
			}

			// Receive all messages and acknowledge each one
			receivedMessages := make([]string, 0, 3)
			for i := 0; i < 3; i++ {
				select {
				case delivery := <-deliveries:
					receivedMessages = append(receivedMessages, string(delivery.Body))
					// Acknowledge the message so the next one can be delivered
					err := delivery.Ack(false)
					Expect(err).NotTo(HaveOccurred())
				case <-time.After(5 * time.Second):
					Fail("Did not receive all messages within timeout")
				}
			}

			// Verify order and content
			Expect(receivedMessages).To(Equal([]string{"first", "second", "third"}))
		})

		It("should round-trip an alert broadcast", func() {
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(500 * time.Millisecond)

			payload, err := waterhealth.EncodeAlertBroadcast(&waterhealth.AlertBroadcast{
				Pincode:  "752001",
				Title:    "Cholera advisory",
				Message:  "Boil all drinking water",
				Type:     waterhealth.AlertWarning,
				IssuedAt: time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Push(ctx, payload)).To(Succeed())

			select {
			case delivery := <-deliveries:
				broadcast, err := waterhealth.DecodeAlertBroadcast(delivery.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(broadcast.Title).To(Equal("Cholera advisory"))
				Expect(delivery.Ack(false)).To(Succeed())
			case <-time.After(5 * time.Second):
				Fail("Did not receive message within timeout")
			}
		})
	})

	Describe("Error Handling", func() {
		It("should handle operations before connection", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			// Don't wait for connection

			// Operations should fail gracefully
			err := client.UnsafePush(ctx, []byte("test"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Resource Cleanup", func() {
		It("should close client cleanly", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second)

			err := client.Close()
			Expect(err).NotTo(HaveOccurred())

			client = nil // Prevent double close in AfterEach
		})

		It("should handle close on unconnected client", func() {
			client = clientmq.New(queueName, "amqp://invalid:5672", testLogger)
			time.Sleep(500 * time.Millisecond)

			err := client.Close()
			Expect(err).To(HaveOccurred()) // Should error as it never connected

			client = nil
		})

		It("should handle double close gracefully", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second)

			err1 := client.Close()
			Expect(err1).NotTo(HaveOccurred())

			err2 := client.Close()
			Expect(err2).To(HaveOccurred()) // Second close should error

			client = nil
		})
	})

	Describe("Message Properties", func() {
		BeforeEach(func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second)
		})

		It("should preserve message content exactly", func() {
			// Start consuming FIRST
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			// Wait for consumer to register on server
			time.Sleep(500 * time.Millisecond)

			// THEN publish
			originalMessage := []byte(`{"device_id":"pump-7","ph":7.4}`)
			err = client.Push(ctx, originalMessage)
			Expect(err).NotTo(HaveOccurred())

			// Receive and verify
			select {
			case delivery := <-deliveries:
				Expect(delivery.Body).To(Equal(originalMessage))
			case <-time.After(5 * time.Second):
				Fail("Did not receive message within timeout")
			}
		})

		It("should handle binary data correctly", func() {
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(500 * time.Millisecond)

			binaryData := []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0xFD}
			err = client.Push(ctx, binaryData)
			Expect(err).NotTo(HaveOccurred())

			select {
			case delivery := <-deliveries:
				Expect(delivery.Body).To(Equal(binaryData))
			case <-time.After(5 * time.Second):
				Fail("Did not receive message within timeout")
			}
		})
	})
})
