// Package queue models the at-least-once delivery channel between saga stages.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Message is one delivery. ID is whatever the channel needs to acknowledge it
// (an SQS receipt handle for SQSChannel).
type Message struct {
	ID         string
	Body       []byte
	Attributes map[string]string
}

// Channel delivers batches of messages until they are acknowledged.
type Channel interface {
	Receive(ctx context.Context) ([]Message, error)
	Ack(ctx context.Context, id string) error
}

// HandlerFunc processes one message. A nil return acknowledges it; an error leaves
// it on the channel for redelivery.
type HandlerFunc func(ctx context.Context, msg Message) error

// Consume polls ch until ctx is done, running up to workers handlers at a time
// within each batch.
func Consume(ctx context.Context, ch Channel, workers int, handle HandlerFunc) error {
	if workers < 1 {
		workers = 1
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		batch, err := ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			slog.Error("queue.Consume: receive failed", "error", err)
			if err := sleepOrDone(ctx, time.Second); err != nil {
				return nil
			}
			continue
		}
		ProcessBatch(ctx, ch, batch, workers, handle)
	}
}

// ProcessBatch runs handle over batch with at most workers concurrent calls and
// acknowledges each message whose handler succeeded. Handler and ack failures are
// logged and leave the message for redelivery; one failure never stops the rest
// of the batch. It returns the number of messages acknowledged.
func ProcessBatch(ctx context.Context, ch Channel, batch []Message, workers int, handle HandlerFunc) int {
	var (
		g     errgroup.Group
		acked atomic.Int64
	)
	g.SetLimit(workers)
	for _, msg := range batch {
		g.Go(func() error {
			if err := handle(ctx, msg); err != nil {
				slog.Warn("queue.ProcessBatch: handler failed, leaving message for redelivery",
					"message_id", msg.ID, "error", err)
				return nil
			}
			if err := ch.Ack(ctx, msg.ID); err != nil {
				slog.Warn("queue.ProcessBatch: ack failed, message will be redelivered",
					"message_id", msg.ID, "error", err)
				return nil
			}
			acked.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(acked.Load())
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
