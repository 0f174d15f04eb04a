package kinesis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/storefront-payments/internal/domain/order"
)

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams
// format) from the orders table into an order lifecycle event. DynamoDB's
// Kinesis integration wraps stream records in the DynamoDB Streams shape.
//
// INSERT images become OrderCreated. MODIFY images become OrderCompleted or
// OrderFailed when the status actually crossed into that state; every other
// modification (provider id writes, subscription linkage) returns nil.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*order.Event, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}

	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record to an
// order event. This is used when directly consuming from DynamoDB Streams
// (e.g., in tests).
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*order.Event, error) {
	switch record.EventName {
	case "INSERT":
		return convertOrderImage(record.Change.NewImage, order.EventOrderCreated)

	case "MODIFY":
		oldStatus := imageString(record.Change.OldImage, "status")
		newStatus := imageString(record.Change.NewImage, "status")
		if oldStatus == newStatus {
			return nil, nil
		}
		switch order.Status(newStatus) {
		case order.StatusCompleted:
			return convertOrderImage(record.Change.NewImage, order.EventOrderCompleted)
		case order.StatusFailed:
			return convertOrderImage(record.Change.NewImage, order.EventOrderFailed)
		}
		return nil, nil

	default:
		return nil, nil
	}
}

// convertOrderImage builds the event envelope from an orders-table item
// image. The attribute names match the dynamodbav tags of the order item.
func convertOrderImage(image map[string]events.DynamoDBAttributeValue, eventType string) (*order.Event, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	event := &order.Event{
		EventType:      eventType,
		OrderID:        imageString(image, "id"),
		PlanID:         imageString(image, "plan_id"),
		Currency:       imageString(image, "currency"),
		GuestEmail:     imageString(image, "guest_email"),
		SubscriptionID: imageString(image, "subscription_id"),
		OccurredAt:     time.Now().UTC(),
	}

	if v, ok := image["amount"]; ok {
		amount, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		event.Amount = amount
	}
	if v, ok := image["quantity"]; ok {
		quantity, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		event.Quantity = int(quantity)
	}
	if v, ok := image["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v.String()); err == nil {
			event.OccurredAt = t
		}
	}

	if event.OrderID == "" || event.PlanID == "" {
		return nil, fmt.Errorf("missing required fields: id=%s, plan_id=%s", event.OrderID, event.PlanID)
	}

	return event, nil
}

func imageString(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok {
		return v.String()
	}
	return ""
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event.
// Returns successfully converted events and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*order.Event, []error) {
	var eventList []*order.Event
	var errors []error

	for _, record := range kinesisEvent.Records {
		event, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errors = append(errors, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if event != nil {
			eventList = append(eventList, event)
		}
	}

	return eventList, errors
}
