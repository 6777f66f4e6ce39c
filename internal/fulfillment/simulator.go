// Package fulfillment simulates order fulfillment as a biased coin flip and
// records the outcome on the order and, for failures, in the failed-order table.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
	"github.com/imrishuroy/go-order-saga/internal/orders"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

// DefaultSuccessProbability is used when no probability is configured.
const DefaultSuccessProbability = 0.7

// RandSource yields uniform samples in [0,1).
type RandSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Result is the outcome of one fulfillment attempt. FailedOrder is set only when
// the simulation failed.
type Result struct {
	Order       orders.Order
	FailedOrder *orders.FailedOrder
}

// Fulfilled reports whether the attempt succeeded.
func (r *Result) Fulfilled() bool {
	return r.FailedOrder == nil
}

// Simulator performs fulfillment attempts against the orders and failed_orders tables.
type Simulator struct {
	store   store.Store
	orders  store.Table
	failed  store.Table
	rand    RandSource
	nowFunc func() time.Time
	logger  *slog.Logger
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithRandSource replaces the random source, e.g. with a fixed sequence in tests.
func WithRandSource(r RandSource) Option {
	return func(s *Simulator) { s.rand = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.nowFunc = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// NewSimulator returns a Simulator over the given tables.
func NewSimulator(s store.Store, ordersTable, failedTable store.Table, opts ...Option) *Simulator {
	sim := &Simulator{
		store:   s,
		orders:  ordersTable,
		failed:  failedTable,
		rand:    globalRand{},
		nowFunc: time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sim)
	}
	return sim
}

// Fulfill draws one sample and succeeds iff it is below successProbability.
//
// On failure it appends a FailedOrder snapshot and then marks the order FAILED with
// an incremented retry_count. The two writes are independent: both are attempted,
// and if either fails the call returns ErrStorageUnavailable without undoing the other.
func (s *Simulator) Fulfill(ctx context.Context, orderID string, successProbability float64) (*Result, error) {
	sample := s.rand.Float64()
	now := s.nowFunc().UTC()

	if sample < successProbability {
		return s.succeed(ctx, orderID, now)
	}
	return s.fail(ctx, orderID, now)
}

func (s *Simulator) succeed(ctx context.Context, orderID string, now time.Time) (*Result, error) {
	var updated orders.Order
	err := s.store.Update(ctx, s.orders, orderID, map[string]any{
		"status":       orders.StatusFulfilled,
		"updated_at":   now,
		"fulfilled_at": now,
	}, &updated)
	if err != nil {
		return nil, classify("mark fulfilled", orderID, err)
	}

	s.logger.Info("Simulator.Fulfill: order fulfilled", "order_id", orderID)
	return &Result{Order: updated}, nil
}

func (s *Simulator) fail(ctx context.Context, orderID string, now time.Time) (*Result, error) {
	var existing orders.Order
	if err := s.store.Get(ctx, s.orders, orderID, &existing); err != nil {
		return nil, classify("read order", orderID, err)
	}

	retryCount := existing.RetryCount + 1
	snapshot := orders.NewFailedOrder(existing, orders.FulfillmentFailureReason, retryCount, now)

	id, appendErr := s.store.Append(ctx, s.failed, snapshot)
	if appendErr == nil {
		snapshot.FailedOrderID = id
	}

	var updated orders.Order
	updateErr := s.store.Update(ctx, s.orders, orderID, map[string]any{
		"status":      orders.StatusFailed,
		"updated_at":  now,
		"failed_at":   now,
		"retry_count": retryCount,
	}, &updated)

	if appendErr != nil || updateErr != nil {
		s.logger.Error("Simulator.Fulfill: partial failure recording fulfillment failure",
			"order_id", orderID,
			"failed_order_written", appendErr == nil,
			"order_updated", updateErr == nil,
			"append_error", appendErr,
			"update_error", updateErr)
		return nil, fmt.Errorf("record fulfillment failure %s: %w: %w",
			orderID, apperr.ErrStorageUnavailable, errors.Join(appendErr, updateErr))
	}

	s.logger.Warn("Simulator.Fulfill: fulfillment failed", "order_id", orderID, "retry_count", retryCount)
	return &Result{Order: updated, FailedOrder: &snapshot}, nil
}

func classify(op, orderID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", op, orderID, apperr.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w: %w", op, orderID, apperr.ErrStorageUnavailable, err)
}
