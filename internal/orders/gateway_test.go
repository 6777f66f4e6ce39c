package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

func fixedNow() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

func sampleOrder() Order {
	return Order{
		OrderID:    "o1",
		CustomerID: "cust1",
		Items: []Item{
			{ProductID: "p1", Quantity: 5},
			{ProductID: "p2", Quantity: 3},
		},
		Timestamp: "2024-06-01T09:59:59Z",
	}
}

func TestGatewayStore_CreatesProcessingRecord(t *testing.T) {
	mem := store.NewMemoryStore()
	g := NewGateway(mem, OrdersTable)
	g.nowFunc = fixedNow

	got, err := g.Store(context.Background(), sampleOrder())
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if got.Status != StatusProcessing || got.RetryCount != 0 || got.TotalQuantity != 8 {
		t.Fatalf("unexpected stored order: %+v", got)
	}
	if !got.CreatedAt.Equal(fixedNow()) || !got.UpdatedAt.Equal(fixedNow()) {
		t.Fatalf("timestamps not set: %+v", got)
	}

	read, err := g.Get(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if read.TotalQuantity != 8 || read.Status != StatusProcessing || read.Timestamp != "2024-06-01T09:59:59Z" {
		t.Fatalf("unexpected persisted order: %+v", read)
	}
}

func TestGatewayStore_SecondCallIsDuplicate(t *testing.T) {
	g := NewGateway(store.NewMemoryStore(), OrdersTable)
	ctx := context.Background()

	results := make([]error, 2)
	for i := range results {
		_, results[i] = g.Store(ctx, sampleOrder())
	}
	if results[0] != nil {
		t.Fatalf("first Store error: %v", results[0])
	}
	if !errors.Is(results[1], apperr.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", results[1])
	}
}

func TestGatewayStore_StorageUnavailable(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.SetFault(func(op store.Op, table string) error { return errors.New("timeout") })
	g := NewGateway(mem, OrdersTable)

	_, err := g.Store(context.Background(), sampleOrder())
	if !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if !apperr.Retryable(err) {
		t.Fatalf("storage faults should be retryable")
	}
}

func TestGatewayGet_NotFound(t *testing.T) {
	g := NewGateway(store.NewMemoryStore(), store.Table{})
	if _, err := g.Get(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewFailedOrder(t *testing.T) {
	o := sampleOrder()
	o.Status = StatusProcessing
	o.TotalQuantity = 8
	f := NewFailedOrder(o, FulfillmentFailureReason, 2, fixedNow())

	if f.OriginalOrderID != "o1" || f.OrderID != "o1" || f.RetryCount != 2 {
		t.Fatalf("unexpected failed order: %+v", f)
	}
	if f.FailureReason != "Fulfillment simulation failed" || !f.FailedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected failure fields: %+v", f)
	}
	if TotalQuantity(f.Items) != 8 {
		t.Fatalf("items not carried over")
	}
}
