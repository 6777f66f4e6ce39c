package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-order-saga/internal/queue"
)

// Processor feeds SQS messages through the saga.
type Processor struct {
	runner  Runner
	workers int
}

// NewProcessor returns a Processor running up to workers messages at once.
func NewProcessor(r Runner, workers int) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{runner: r, workers: workers}
}

// Handle processes an SQS batch. Messages that were neither completed nor
// dead-lettered are reported as batch item failures so SQS redelivers only them.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	slog.Info("Processor.Handle: received batch", "records", len(ev.Records))

	var (
		mu       sync.Mutex
		failures []events.SQSBatchItemFailure
		g        errgroup.Group
	)
	g.SetLimit(p.workers)
	for _, rec := range ev.Records {
		g.Go(func() error {
			if err := p.process(ctx, rec.MessageId, []byte(rec.Body)); err != nil {
				mu.Lock()
				failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

// HandleMessage is the queue.HandlerFunc used when polling locally.
func (p *Processor) HandleMessage(ctx context.Context, msg queue.Message) error {
	return p.process(ctx, msg.ID, msg.Body)
}

func (p *Processor) process(ctx context.Context, id string, body []byte) error {
	out, err := p.runner.Run(ctx, body)
	if err != nil {
		slog.Error("Processor.process: message left for redelivery", "message_id", id, "error", err)
		return fmt.Errorf("message %s: %w", id, err)
	}
	slog.Info("Processor.process: saga finished",
		"message_id", id,
		"order_id", out.OrderID,
		"outcome", out.Status,
		"reason", out.Reason)
	return nil
}
