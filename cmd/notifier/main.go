package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/storefront-payments/internal/email"
	"github.com/example/storefront-payments/internal/infrastructure/kafka"
	"github.com/example/storefront-payments/internal/notification"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "payment-events")
	consumerGroup := "receipt-notifier" // Dedicated consumer group for receipt emails

	smtpHost := getEnv("SMTP_HOST", "localhost")
	smtpPort := getEnv("SMTP_PORT", "1025")
	smtpFrom := getEnv("SMTP_FROM", "noreply@example.com")

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Storefront Payments - Receipt Notifier")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", kafkaBrokers)
	log.Printf("[Notifier] Topic: %s", kafkaTopic)
	log.Printf("[Notifier] Group: %s", consumerGroup)
	log.Printf("[Notifier] SMTP: %s:%s", smtpHost, smtpPort)
	log.Printf("[Notifier] From: %s", smtpFrom)

	// Initialize email service
	emailSvc := email.NewService(smtpHost, smtpPort, smtpFrom)

	// Initialize notification handler
	handler := notification.NewHandler(emailSvc)

	// Initialize Kafka consumer
	consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, consumerGroup)
	defer consumer.Close()

	// Start consuming
	go func() {
		log.Println("[Notifier] Starting event consumer...")
		log.Printf("[Notifier] Listening to topic: %s", kafkaTopic)
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil {
			log.Printf("[Notifier] Consumer error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Notifier] Shutting down...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
