package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/storefront-payments/internal/domain/catalog"
	"github.com/example/storefront-payments/internal/domain/order"
	"github.com/example/storefront-payments/internal/domain/subscription"
)

// ProviderIDIndex is the GSI on the orders table keyed by
// payment_provider_id; webhooks only know the provider's id.
const ProviderIDIndex = "provider_id-index"

// DynamoOrderStore implements OrderStore on DynamoDB. The completion guard
// and the never-downgrade rule use condition expressions, the DynamoDB
// equivalent of the conditional UPDATEs in the Postgres implementation.
// Order writes are streamed to Kinesis via the DynamoDB Kinesis integration,
// which feeds the Lambda notifier.
type DynamoOrderStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoOrderStore(client *dynamodb.Client, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{client: client, tableName: tableName}
}

// dynamoOrder represents the DynamoDB item structure for orders
type dynamoOrder struct {
	ID                string `dynamodbav:"id"`
	PlanID            string `dynamodbav:"plan_id"`
	Amount            int64  `dynamodbav:"amount"`
	Currency          string `dynamodbav:"currency"`
	Status            string `dynamodbav:"status"`
	Quantity          int    `dynamodbav:"quantity"`
	UserID            string `dynamodbav:"user_id,omitempty"`
	GuestEmail        string `dynamodbav:"guest_email,omitempty"`
	PaymentProvider   string `dynamodbav:"payment_provider"`
	PaymentProviderID string `dynamodbav:"payment_provider_id,omitempty"`
	PhoneNumber       string `dynamodbav:"phone_number"`
	SubscriptionID    string `dynamodbav:"subscription_id,omitempty"`
	CreatedAt         string `dynamodbav:"created_at"`
}

func (d dynamoOrder) toOrder() (*order.Order, error) {
	o := &order.Order{
		ID:                d.ID,
		PlanID:            d.PlanID,
		Amount:            d.Amount,
		Currency:          d.Currency,
		Status:            order.Status(d.Status),
		Quantity:          d.Quantity,
		UserID:            d.UserID,
		GuestEmail:        d.GuestEmail,
		PaymentProvider:   d.PaymentProvider,
		PaymentProviderID: d.PaymentProviderID,
		PhoneNumber:       d.PhoneNumber,
		SubscriptionID:    d.SubscriptionID,
	}
	if d.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		o.CreatedAt = t
	}
	return o, nil
}

func (s *DynamoOrderStore) Insert(ctx context.Context, o *order.Order) error {
	item := dynamoOrder{
		ID:                o.ID,
		PlanID:            o.PlanID,
		Amount:            o.Amount,
		Currency:          o.Currency,
		Status:            string(o.Status),
		Quantity:          o.Quantity,
		UserID:            o.UserID,
		GuestEmail:        o.GuestEmail,
		PaymentProvider:   o.PaymentProvider,
		PaymentProviderID: o.PaymentProviderID,
		PhoneNumber:       o.PhoneNumber,
		SubscriptionID:    o.SubscriptionID,
		CreatedAt:         o.CreatedAt.Format(time.RFC3339Nano),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

func (s *DynamoOrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       orderKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if result.Item == nil {
		return nil, order.ErrOrderNotFound
	}
	var item dynamoOrder
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return item.toOrder()
}

func (s *DynamoOrderStore) GetByProviderID(ctx context.Context, providerID string) (*order.Order, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(ProviderIDIndex),
		KeyConditionExpression: aws.String("payment_provider_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: providerID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query order by provider id: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, order.ErrOrderNotFound
	}
	var item dynamoOrder
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return item.toOrder()
}

func (s *DynamoOrderStore) SetProviderID(ctx context.Context, id, providerID string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(id),
		UpdateExpression:    aws.String("SET payment_provider_id = :pid"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: providerID},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return order.ErrOrderNotFound
		}
		return fmt.Errorf("failed to set provider id: %w", err)
	}
	return nil
}

func (s *DynamoOrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) (order.Status, error) {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(id),
		UpdateExpression:    aws.String("SET #s = :status"),
		ConditionExpression: aws.String("attribute_exists(id) AND #s <> :completed"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(status)},
			":completed": &types.AttributeValueMemberS{Value: string(order.StatusCompleted)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			// Completed orders are sticky; missing orders are an error. The
			// re-read reports the status the order kept.
			current, getErr := s.GetByID(ctx, id)
			if getErr != nil {
				return "", getErr
			}
			return current.Status, nil
		}
		return "", fmt.Errorf("failed to update order status: %w", err)
	}
	return status, nil
}

// CompleteOrder is the compare-and-set transition into completed: DynamoDB
// arbitrates racing callers through the condition expression and exactly one
// of them observes first=true.
func (s *DynamoOrderStore) CompleteOrder(ctx context.Context, id string) (bool, error) {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(id),
		UpdateExpression:    aws.String("SET #s = :completed"),
		ConditionExpression: aws.String("attribute_exists(id) AND #s <> :completed"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberS{Value: string(order.StatusCompleted)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			if _, getErr := s.GetByID(ctx, id); getErr != nil {
				return false, getErr
			}
			return false, nil
		}
		return false, fmt.Errorf("failed to complete order: %w", err)
	}
	return true, nil
}

func (s *DynamoOrderStore) SetSubscriptionID(ctx context.Context, id, subscriptionID string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(id),
		UpdateExpression:    aws.String("SET subscription_id = :sid"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: subscriptionID},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return order.ErrOrderNotFound
		}
		return fmt.Errorf("failed to set subscription id: %w", err)
	}
	return nil
}

// DynamoCatalogStore implements CatalogStore on DynamoDB.
type DynamoCatalogStore struct {
	client       *dynamodb.Client
	planTable    string
	productTable string
}

func NewDynamoCatalogStore(client *dynamodb.Client, planTable, productTable string) *DynamoCatalogStore {
	return &DynamoCatalogStore{client: client, planTable: planTable, productTable: productTable}
}

// dynamoPlan represents the DynamoDB item structure for plans
type dynamoPlan struct {
	ID        string `dynamodbav:"id"`
	ProductID string `dynamodbav:"product_id"`
	Name      string `dynamodbav:"name"`
	Price     int64  `dynamodbav:"price"`
	Currency  string `dynamodbav:"currency"`
	Interval  string `dynamodbav:"interval"`
	Active    bool   `dynamodbav:"active"`
}

// dynamoProduct represents the DynamoDB item structure for products.
// StockQuantity is absent for unmetered products.
type dynamoProduct struct {
	ID            string `dynamodbav:"id"`
	Name          string `dynamodbav:"name"`
	StockQuantity *int   `dynamodbav:"stock_quantity,omitempty"`
}

func (s *DynamoCatalogStore) GetActivePlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, catalog.ErrPlanNotFound
	}
	return plan, nil
}

func (s *DynamoCatalogStore) GetPlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.planTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: planID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if result.Item == nil {
		return nil, catalog.ErrPlanNotFound
	}
	var item dynamoPlan
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}

	product, err := s.getProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	return &catalog.Plan{
		ID:        item.ID,
		ProductID: item.ProductID,
		Name:      item.Name,
		Price:     item.Price,
		Currency:  item.Currency,
		Interval:  catalog.Interval(item.Interval),
		Active:    item.Active,
		Product:   *product,
	}, nil
}

func (s *DynamoCatalogStore) getProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.productTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if result.Item == nil {
		return nil, catalog.ErrProductNotFound
	}
	var item dynamoProduct
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return &catalog.Product{
		ID:            item.ID,
		Name:          item.Name,
		StockQuantity: item.StockQuantity,
	}, nil
}

// DecrementStock subtracts with a condition expression so the decrement is
// atomic on the table, and reads the post-decrement quantity back from the
// update's returned attributes. Unmetered products have no stock_quantity
// attribute and pass through untouched.
func (s *DynamoCatalogStore) DecrementStock(ctx context.Context, productID string, quantity int) (*int, error) {
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Metered() {
		return nil, nil
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.productTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: productID},
		},
		UpdateExpression:    aws.String("SET stock_quantity = stock_quantity - :q"),
		ConditionExpression: aws.String("attribute_exists(id) AND stock_quantity >= :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, catalog.ErrInsufficientStock
		}
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	var updated struct {
		StockQuantity int `dynamodbav:"stock_quantity"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated stock: %w", err)
	}
	return &updated.StockQuantity, nil
}

// DynamoSubscriptionStore implements SubscriptionStore on DynamoDB.
type DynamoSubscriptionStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoSubscriptionStore(client *dynamodb.Client, tableName string) *DynamoSubscriptionStore {
	return &DynamoSubscriptionStore{client: client, tableName: tableName}
}

// dynamoSubscription represents the DynamoDB item structure for subscriptions
type dynamoSubscription struct {
	ID                 string `dynamodbav:"id"`
	PlanID             string `dynamodbav:"plan_id"`
	UserID             string `dynamodbav:"user_id,omitempty"`
	GuestEmail         string `dynamodbav:"guest_email,omitempty"`
	Status             string `dynamodbav:"status"`
	CurrentPeriodStart string `dynamodbav:"current_period_start"`
	CurrentPeriodEnd   string `dynamodbav:"current_period_end"`
	CreatedAt          string `dynamodbav:"created_at"`
}

func (s *DynamoSubscriptionStore) Insert(ctx context.Context, sub *subscription.Subscription) error {
	item := dynamoSubscription{
		ID:                 sub.ID,
		PlanID:             sub.PlanID,
		UserID:             sub.UserID,
		GuestEmail:         sub.GuestEmail,
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart.Format(time.RFC3339Nano),
		CurrentPeriodEnd:   sub.CurrentPeriodEnd.Format(time.RFC3339Nano),
		CreatedAt:          sub.CreatedAt.Format(time.RFC3339Nano),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put subscription: %w", err)
	}
	return nil
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
