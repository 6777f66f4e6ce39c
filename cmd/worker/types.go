package main

import (
	"context"

	"github.com/imrishuroy/go-order-saga/internal/saga"
)

// Runner runs the saga for one message body. *saga.Driver satisfies it.
type Runner interface {
	Run(ctx context.Context, body []byte) (*saga.Outcome, error)
}
