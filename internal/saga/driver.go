// Package saga sequences the order stages (validate, store, fulfill) for one
// delivered message and routes anything it cannot deliver to a dead-letter sink.
package saga

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
	"github.com/imrishuroy/go-order-saga/internal/fulfillment"
	"github.com/imrishuroy/go-order-saga/internal/orders"
)

// OutcomeStatus is the terminal state of one saga run.
type OutcomeStatus string

// Outcomes
const (
	OutcomeFulfilled    OutcomeStatus = "FULFILLED"
	OutcomeFailed       OutcomeStatus = "FAILED"
	OutcomeRejected     OutcomeStatus = "REJECTED"
	OutcomeDuplicate    OutcomeStatus = "DUPLICATE"
	OutcomeDeadLettered OutcomeStatus = "DEAD_LETTERED"
)

// Outcome describes how a message left the saga.
type Outcome struct {
	Status      OutcomeStatus
	OrderID     string
	Order       *orders.Order
	FailedOrder *orders.FailedOrder
	Reason      string
}

// Validator checks a raw order payload.
type Validator interface {
	Validate(raw []byte) (*orders.Order, error)
}

// OrderStore persists a validated order.
type OrderStore interface {
	Store(ctx context.Context, o orders.Order) (*orders.Order, error)
}

// Fulfiller attempts fulfillment of a stored order.
type Fulfiller interface {
	Fulfill(ctx context.Context, orderID string, successProbability float64) (*fulfillment.Result, error)
}

// Recorder counts outcomes. *aws.MetricsRecorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, outcome string) error
}

// Config wires a Driver. DeadLetters and Recorder are optional.
type Config struct {
	Validator          Validator
	Orders             OrderStore
	Fulfiller          Fulfiller
	DeadLetters        DeadLetterSink
	Recorder           Recorder
	Retry              RetryPolicy
	SuccessProbability float64
	Logger             *slog.Logger
}

// Driver runs the saga for one message at a time and is safe for concurrent use.
type Driver struct {
	validator   Validator
	orders      OrderStore
	fulfiller   Fulfiller
	deadLetters DeadLetterSink
	recorder    Recorder
	retry       RetryPolicy
	probability float64
	logger      *slog.Logger
}

// NewDriver builds a Driver from cfg.
func NewDriver(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		validator:   cfg.Validator,
		orders:      cfg.Orders,
		fulfiller:   cfg.Fulfiller,
		deadLetters: cfg.DeadLetters,
		recorder:    cfg.Recorder,
		retry:       cfg.Retry,
		probability: cfg.SuccessProbability,
		logger:      logger,
	}
}

// Run processes one message body, either a bare order or an intake envelope
// {"order": {...}, "timestamp": ..., "source": ...}.
//
// A non-nil error means the message was neither completed nor dead-lettered and
// should be redelivered: the context ended, or the dead-letter sink failed.
func (d *Driver) Run(ctx context.Context, body []byte) (*Outcome, error) {
	payload, err := unwrap(body)
	if err != nil {
		return d.deadLetter(ctx, body, "", err)
	}

	order, err := d.validator.Validate(payload)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			d.logger.Warn("Driver.Run: order rejected", "reason", err.Error())
			return d.finish(ctx, &Outcome{
				Status:  OutcomeRejected,
				OrderID: gjson.GetBytes(payload, "order_id").String(),
				Reason:  err.Error(),
			}), nil
		}
		return d.deadLetter(ctx, body, "", err)
	}

	var stored *orders.Order
	attempts, err := d.retry.Do(ctx, func() error {
		var serr error
		stored, serr = d.orders.Store(ctx, *order)
		return serr
	})
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrDuplicateOrder):
		d.logger.Info("Driver.Run: order already stored, skipping", "order_id", order.OrderID)
		return d.finish(ctx, &Outcome{Status: OutcomeDuplicate, OrderID: order.OrderID}), nil
	case interrupted(err):
		return nil, fmt.Errorf("store order %s: %w", order.OrderID, err)
	default:
		d.logger.Error("Driver.Run: store stage gave up", "order_id", order.OrderID, "attempts", attempts, "error", err)
		return d.deadLetter(ctx, body, order.OrderID, err)
	}

	var res *fulfillment.Result
	attempts, err = d.retry.Do(ctx, func() error {
		var ferr error
		res, ferr = d.fulfiller.Fulfill(ctx, stored.OrderID, d.probability)
		return ferr
	})
	if err != nil {
		if interrupted(err) {
			return nil, fmt.Errorf("fulfill order %s: %w", stored.OrderID, err)
		}
		d.logger.Error("Driver.Run: fulfill stage gave up", "order_id", stored.OrderID, "attempts", attempts, "error", err)
		return d.deadLetter(ctx, body, stored.OrderID, err)
	}

	if res.Fulfilled() {
		return d.finish(ctx, &Outcome{Status: OutcomeFulfilled, OrderID: stored.OrderID, Order: &res.Order}), nil
	}
	return d.finish(ctx, &Outcome{
		Status:      OutcomeFailed,
		OrderID:     stored.OrderID,
		Order:       &res.Order,
		FailedOrder: res.FailedOrder,
		Reason:      res.FailedOrder.FailureReason,
	}), nil
}

func (d *Driver) deadLetter(ctx context.Context, body []byte, orderID string, cause error) (*Outcome, error) {
	if d.deadLetters == nil {
		return nil, fmt.Errorf("no dead-letter sink: %w", cause)
	}
	reason := cause.Error()
	if err := d.deadLetters.DeadLetter(ctx, body, reason); err != nil {
		d.logger.Error("Driver.Run: dead-letter failed", "order_id", orderID, "cause", cause, "error", err)
		return nil, fmt.Errorf("dead-letter (%s): %w", reason, err)
	}
	d.logger.Warn("Driver.Run: message dead-lettered", "order_id", orderID, "kind", apperr.Kind(cause), "reason", reason)
	return d.finish(ctx, &Outcome{Status: OutcomeDeadLettered, OrderID: orderID, Reason: reason}), nil
}

func (d *Driver) finish(ctx context.Context, out *Outcome) *Outcome {
	if d.recorder != nil {
		if err := d.recorder.Record(ctx, string(out.Status)); err != nil {
			d.logger.Warn("Driver.Run: record outcome failed", "outcome", out.Status, "error", err)
		}
	}
	return out
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// unwrap returns the order payload. An envelope's timestamp is copied onto the
// order unless the order already carries one.
func unwrap(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, fmt.Errorf("message body is not a JSON object: %w", apperr.ErrDecode)
	}
	envelope := gjson.ParseBytes(body)
	order := envelope.Get("order")
	if !order.IsObject() {
		return body, nil
	}

	payload := []byte(order.Raw)
	ts := envelope.Get("timestamp")
	if ts.Type == gjson.String && !order.Get("timestamp").Exists() {
		withTS, err := sjson.SetBytes(payload, "timestamp", ts.Str)
		if err != nil {
			return nil, fmt.Errorf("copy envelope timestamp: %w: %w", apperr.ErrDecode, err)
		}
		payload = withTS
	}
	return payload, nil
}
