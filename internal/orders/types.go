package orders

import (
	"time"

	"github.com/imrishuroy/go-order-saga/internal/store"
)

// Status is the lifecycle state of an order record.
type Status string

// Order statuses
const (
	StatusProcessing Status = "PROCESSING"
	StatusFulfilled  Status = "FULFILLED"
	StatusFailed     Status = "FAILED"
)

// MaxTotalQuantity is the business limit on the summed item quantities of one order.
const MaxTotalQuantity = 100

// FulfillmentFailureReason is recorded on every failed-order snapshot the simulator writes.
const FulfillmentFailureReason = "Fulfillment simulation failed"

// Default logical tables. Physical names come from configuration.
var (
	OrdersTable       = store.Table{Name: "orders", Key: "order_id"}
	FailedOrdersTable = store.Table{Name: "failed_orders", Key: "failed_order_id"}
)

// Item is a single order line.
type Item struct {
	ProductID string `json:"product_id" dynamodbav:"product_id"`
	Quantity  int    `json:"quantity" dynamodbav:"quantity"`
}

// Order represents the item stored in the orders table.
type Order struct {
	OrderID       string     `json:"order_id" dynamodbav:"order_id"` // PK
	CustomerID    string     `json:"customer_id" dynamodbav:"customer_id"`
	Items         []Item     `json:"items" dynamodbav:"items"`
	Timestamp     string     `json:"timestamp,omitempty" dynamodbav:"timestamp,omitempty"` // intake time
	TotalQuantity int        `json:"total_quantity" dynamodbav:"total_quantity"`
	Status        Status     `json:"status,omitempty" dynamodbav:"status,omitempty"` // PROCESSING | FULFILLED | FAILED
	CreatedAt     time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" dynamodbav:"updated_at"`
	FulfilledAt   *time.Time `json:"fulfilled_at,omitempty" dynamodbav:"fulfilled_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty" dynamodbav:"failed_at,omitempty"`
	RetryCount    int        `json:"retry_count" dynamodbav:"retry_count"`
}

// TotalQuantity sums the quantities of items.
func TotalQuantity(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// FailedOrder is the append-only snapshot written to failed_orders each time
// fulfillment fails for an order.
type FailedOrder struct {
	FailedOrderID   string     `json:"failed_order_id,omitempty" dynamodbav:"failed_order_id,omitempty"` // PK, assigned by the store
	OrderID         string     `json:"order_id" dynamodbav:"order_id"`
	CustomerID      string     `json:"customer_id" dynamodbav:"customer_id"`
	Items           []Item     `json:"items" dynamodbav:"items"`
	Timestamp       string     `json:"timestamp,omitempty" dynamodbav:"timestamp,omitempty"`
	TotalQuantity   int        `json:"total_quantity" dynamodbav:"total_quantity"`
	Status          Status     `json:"status" dynamodbav:"status"`
	CreatedAt       time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" dynamodbav:"updated_at"`
	FulfilledAt     *time.Time `json:"fulfilled_at,omitempty" dynamodbav:"fulfilled_at,omitempty"`
	FailedAt        time.Time  `json:"failed_at" dynamodbav:"failed_at"`
	FailureReason   string     `json:"failure_reason" dynamodbav:"failure_reason"`
	RetryCount      int        `json:"retry_count" dynamodbav:"retry_count"`
	OriginalOrderID string     `json:"original_order_id" dynamodbav:"original_order_id"`
}

// NewFailedOrder snapshots o at failure time with the given reason and retry count.
// The order's own status is carried as it was when the failure was observed.
func NewFailedOrder(o Order, reason string, retryCount int, failedAt time.Time) FailedOrder {
	return FailedOrder{
		OrderID:         o.OrderID,
		CustomerID:      o.CustomerID,
		Items:           o.Items,
		Timestamp:       o.Timestamp,
		TotalQuantity:   o.TotalQuantity,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		FulfilledAt:     o.FulfilledAt,
		FailedAt:        failedAt,
		FailureReason:   reason,
		RetryCount:      retryCount,
		OriginalOrderID: o.OrderID,
	}
}

// DeadLetterSource marks failed_orders records captured from the dead-letter queue.
const DeadLetterSource = "sqs-dlq"

// DeadLetterRecord is what the dead-letter handler writes to failed_orders. Its
// OriginalMessage may not be a valid order at all.
type DeadLetterRecord struct {
	FailedOrderID   string    `json:"failed_order_id,omitempty" dynamodbav:"failed_order_id,omitempty"`
	OrderID         string    `json:"order_id" dynamodbav:"order_id"`
	FailedAt        time.Time `json:"failed_at" dynamodbav:"failed_at"`
	FailureSource   string    `json:"failure_source" dynamodbav:"failure_source"`
	FailureReason   string    `json:"failure_reason,omitempty" dynamodbav:"failure_reason,omitempty"`
	OriginalMessage any       `json:"original_message" dynamodbav:"original_message"`
}
