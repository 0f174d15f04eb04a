package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/storefront-payments/internal/email"
	"github.com/example/storefront-payments/internal/infrastructure/kinesis"
	"github.com/example/storefront-payments/internal/notification"
)

var notificationHandler *notification.Handler

func init() {
	smtpHost := getEnv("SMTP_HOST", "localhost")
	smtpPort := getEnv("SMTP_PORT", "1025")
	smtpFrom := getEnv("SMTP_FROM", "noreply@example.com")

	emailSvc := email.NewService(smtpHost, smtpPort, smtpFrom)
	notificationHandler = notification.NewHandler(emailSvc)

	log.Printf("[Lambda Notifier] Initialized successfully (SMTP: %s:%s)", smtpHost, smtpPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Printf("[Lambda Notifier] Received %d records", len(kinesisEvent.Records))

	var batchItemFailures []events.KinesisBatchItemFailure

	for _, record := range kinesisEvent.Records {
		event, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			log.Printf("[Lambda Notifier] Failed to convert record %s: %v", record.EventID, err)
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}

		// Skip stream records that do not represent a lifecycle transition
		if event == nil {
			continue
		}

		log.Printf("[Lambda Notifier] Processing %s for order %s", event.EventType, event.OrderID)

		// Marshal event to JSON for the notification handler
		eventJSON, err := json.Marshal(event)
		if err != nil {
			log.Printf("[Lambda Notifier] Failed to marshal event for order %s: %v", event.OrderID, err)
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}

		// Process the event using the shared notification handler
		if err := notificationHandler.HandleEvent(ctx, []byte(event.OrderID), eventJSON); err != nil {
			log.Printf("[Lambda Notifier] Failed to process event for order %s: %v", event.OrderID, err)
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}
	}

	successCount := len(kinesisEvent.Records) - len(batchItemFailures)
	log.Printf("[Lambda Notifier] Processed %d/%d records successfully", successCount, len(kinesisEvent.Records))

	return events.KinesisEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

func main() {
	lambda.Start(handler)
}
