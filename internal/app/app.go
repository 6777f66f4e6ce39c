// Package app wires configuration, storage and the saga stages into the
// components the binaries run.
package app

import (
	"log/slog"
	"os"

	"github.com/imrishuroy/go-order-saga/internal/config"
	"github.com/imrishuroy/go-order-saga/internal/deadletter"
	"github.com/imrishuroy/go-order-saga/internal/fulfillment"
	"github.com/imrishuroy/go-order-saga/internal/orders"
	"github.com/imrishuroy/go-order-saga/internal/saga"
	"github.com/imrishuroy/go-order-saga/internal/store"
	"github.com/imrishuroy/go-order-saga/internal/validation"
)

// Deps are the pieces a saga driver is built from. DeadLetters defaults to an
// in-process sink over the failed-order table; Recorder and Rand are optional.
type Deps struct {
	Config      config.Config
	Store       store.Store
	DeadLetters saga.DeadLetterSink
	Recorder    saga.Recorder
	Rand        fulfillment.RandSource
	Logger      *slog.Logger
}

// NewDriver assembles Validate -> Store -> Fulfill over d.Store.
func NewDriver(d Deps) *saga.Driver {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := d.Config

	simOpts := []fulfillment.Option{fulfillment.WithLogger(logger)}
	if d.Rand != nil {
		simOpts = append(simOpts, fulfillment.WithRandSource(d.Rand))
	}

	sink := d.DeadLetters
	if sink == nil {
		sink = saga.NewHandlerSink(NewDeadLetterHandler(cfg, d.Store))
	}

	return saga.NewDriver(saga.Config{
		Validator:          validation.NewValidator(),
		Orders:             orders.NewGateway(d.Store, cfg.OrdersTable),
		Fulfiller:          fulfillment.NewSimulator(d.Store, cfg.OrdersTable, cfg.FailedOrdersTable, simOpts...),
		DeadLetters:        sink,
		Recorder:           d.Recorder,
		Retry:              cfg.Retry,
		SuccessProbability: cfg.SuccessProbability,
		Logger:             logger,
	})
}

// NewDeadLetterHandler returns a handler appending to the configured failed-order table.
func NewDeadLetterHandler(cfg config.Config, s store.Store) *deadletter.Handler {
	return deadletter.NewHandler(s, cfg.FailedOrdersTable)
}

// InitLogger installs a JSON slog handler on stdout as the default logger.
func InitLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
