package main

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-order-saga/internal/deadletter"
	"github.com/imrishuroy/go-order-saga/internal/queue"
)

// Response is returned to the Lambda runtime for a dead-letter batch.
type Response struct {
	StatusCode int                 `json:"statusCode"`
	Processed  []deadletter.Stored `json:"processed"`
}

type dlqHandler struct {
	handler *deadletter.Handler
}

func newDLQHandler(h *deadletter.Handler) *dlqHandler {
	return &dlqHandler{handler: h}
}

// Handle stores every record of the batch. A store outage fails the whole
// invocation so SQS keeps the batch.
func (d *dlqHandler) Handle(ctx context.Context, ev events.SQSEvent) (Response, error) {
	bodies := make([][]byte, 0, len(ev.Records))
	for _, rec := range ev.Records {
		bodies = append(bodies, []byte(rec.Body))
	}

	stored, err := d.handler.HandleDeadLetter(ctx, bodies)
	if err != nil {
		slog.Error("dlq.Handle: batch aborted", "stored", len(stored), "records", len(bodies), "error", err)
		return Response{}, err
	}
	slog.Info("dlq.Handle: batch stored", "records", len(stored))
	return Response{StatusCode: 200, Processed: stored}, nil
}

// HandleMessage stores a single polled message.
func (d *dlqHandler) HandleMessage(ctx context.Context, msg queue.Message) error {
	_, err := d.handler.HandleDeadLetter(ctx, [][]byte{msg.Body})
	return err
}
