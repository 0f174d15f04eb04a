package kinesis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/storefront-payments/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderImage(status string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":          events.NewStringAttribute("ord-123"),
		"plan_id":     events.NewStringAttribute("plan-456"),
		"amount":      events.NewNumberAttribute("100000"),
		"currency":    events.NewStringAttribute("USD"),
		"status":      events.NewStringAttribute(status),
		"quantity":    events.NewNumberAttribute("2"),
		"guest_email": events.NewStringAttribute("guest@example.com"),
		"created_at":  events.NewStringAttribute(time.Now().Format(time.RFC3339Nano)),
	}
}

func TestConvertOrderImage(t *testing.T) {
	tests := []struct {
		name    string
		image   map[string]events.DynamoDBAttributeValue
		wantErr bool
	}{
		{
			name:    "valid order image",
			image:   orderImage("pending"),
			wantErr: false,
		},
		{
			name:    "nil image",
			image:   nil,
			wantErr: true,
		},
		{
			name: "missing required fields",
			image: map[string]events.DynamoDBAttributeValue{
				"id": events.NewStringAttribute("ord-123"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := convertOrderImage(tt.image, order.EventOrderCreated)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, event)
			assert.Equal(t, order.EventOrderCreated, event.EventType)
			assert.Equal(t, "ord-123", event.OrderID)
			assert.Equal(t, "plan-456", event.PlanID)
			assert.Equal(t, int64(100000), event.Amount)
			assert.Equal(t, 2, event.Quantity)
			assert.Equal(t, "guest@example.com", event.GuestEmail)
		})
	}
}

func TestConvertFromDynamoDBStreamRecord(t *testing.T) {
	t.Run("INSERT becomes OrderCreated", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: orderImage("pending"),
			},
		}

		event, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, order.EventOrderCreated, event.EventType)
		assert.Equal(t, "ord-123", event.OrderID)
	})

	t.Run("MODIFY into completed becomes OrderCompleted", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "MODIFY",
			Change: events.DynamoDBStreamRecord{
				OldImage: orderImage("pending"),
				NewImage: orderImage("completed"),
			},
		}

		event, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, order.EventOrderCompleted, event.EventType)
	})

	t.Run("MODIFY into failed becomes OrderFailed", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "MODIFY",
			Change: events.DynamoDBStreamRecord{
				OldImage: orderImage("pending"),
				NewImage: orderImage("failed"),
			},
		}

		event, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, order.EventOrderFailed, event.EventType)
	})

	t.Run("MODIFY without status change returns nil", func(t *testing.T) {
		newImage := orderImage("pending")
		newImage["payment_provider_id"] = events.NewStringAttribute("prov-1")
		record := events.DynamoDBEventRecord{
			EventName: "MODIFY",
			Change: events.DynamoDBStreamRecord{
				OldImage: orderImage("pending"),
				NewImage: newImage,
			},
		}

		event, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("REMOVE returns nil", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "REMOVE",
		}

		event, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		assert.Nil(t, event)
	})
}

func TestConvertFromKinesisRecord(t *testing.T) {
	t.Run("valid Kinesis record", func(t *testing.T) {
		dynamoRecord := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: orderImage("pending"),
			},
		}

		dynamoRecordJSON, err := json.Marshal(dynamoRecord)
		require.NoError(t, err)

		kinesisRecord := events.KinesisEventRecord{
			EventID: "kinesis-event-1",
			Kinesis: events.KinesisRecord{
				Data: dynamoRecordJSON,
			},
		}

		event, err := ConvertFromKinesisRecord(kinesisRecord)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "ord-123", event.OrderID)
	})
}

func TestBatchConvertFromKinesisEvent(t *testing.T) {
	t.Run("batch conversion with mixed results", func(t *testing.T) {
		insertRecord := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: orderImage("pending"),
			},
		}
		insertJSON, _ := json.Marshal(insertRecord)

		noopModify := events.DynamoDBEventRecord{
			EventName: "MODIFY",
			Change: events.DynamoDBStreamRecord{
				OldImage: orderImage("pending"),
				NewImage: orderImage("pending"),
			},
		}
		modifyJSON, _ := json.Marshal(noopModify)

		kinesisEvent := events.KinesisEvent{
			Records: []events.KinesisEventRecord{
				{EventID: "1", Kinesis: events.KinesisRecord{Data: insertJSON}},
				{EventID: "2", Kinesis: events.KinesisRecord{Data: modifyJSON}},
				{EventID: "3", Kinesis: events.KinesisRecord{Data: []byte("invalid json")}},
			},
		}

		eventList, errors := BatchConvertFromKinesisEvent(kinesisEvent)

		assert.Len(t, eventList, 1)
		assert.Len(t, errors, 1)
		assert.Equal(t, order.EventOrderCreated, eventList[0].EventType)
	})
}
