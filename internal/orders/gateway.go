package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

// Gateway creates order records exactly once and reads them back.
type Gateway struct {
	store   store.Store
	table   store.Table
	nowFunc func() time.Time
	logger  *slog.Logger
}

// NewGateway returns a Gateway writing to table (OrdersTable when its name is empty).
func NewGateway(s store.Store, table store.Table) *Gateway {
	if table.Name == "" {
		table = OrdersTable
	}
	if table.Key == "" {
		table.Key = OrdersTable.Key
	}
	return &Gateway{
		store:   s,
		table:   table,
		nowFunc: time.Now,
		logger:  slog.Default(),
	}
}

// Store persists a validated order in PROCESSING state. A second call for the same
// order_id returns apperr.ErrDuplicateOrder and leaves the first record untouched.
func (g *Gateway) Store(ctx context.Context, o Order) (*Order, error) {
	now := g.nowFunc().UTC()
	rec := Order{
		OrderID:       o.OrderID,
		CustomerID:    o.CustomerID,
		Items:         o.Items,
		Timestamp:     o.Timestamp,
		TotalQuantity: TotalQuantity(o.Items),
		Status:        StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
		RetryCount:    0,
	}

	err := g.store.ConditionalCreate(ctx, g.table, rec)
	switch {
	case err == nil:
		g.logger.Info("Gateway.Store: order stored", "order_id", rec.OrderID, "total_quantity", rec.TotalQuantity)
		return &rec, nil
	case errors.Is(err, store.ErrAlreadyExists):
		g.logger.Info("Gateway.Store: order already exists", "order_id", rec.OrderID)
		return nil, fmt.Errorf("order %s: %w", rec.OrderID, apperr.ErrDuplicateOrder)
	default:
		return nil, fmt.Errorf("store order %s: %w: %w", rec.OrderID, apperr.ErrStorageUnavailable, err)
	}
}

// Get loads an order by id.
func (g *Gateway) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := g.store.Get(ctx, g.table, orderID, &o)
	switch {
	case err == nil:
		return &o, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	default:
		return nil, fmt.Errorf("get order %s: %w: %w", orderID, apperr.ErrStorageUnavailable, err)
	}
}
