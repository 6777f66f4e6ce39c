package saga

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/imrishuroy/go-order-saga/internal/deadletter"
)

// DeadLetterSink receives messages the saga could not deliver through its
// normal path, together with the reason.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, body []byte, reason string) error
}

// Sender publishes a message body with string attributes. *aws.Publisher satisfies it.
type Sender interface {
	Send(ctx context.Context, body []byte, attributes map[string]string) error
}

// QueueSink forwards dead letters to a dead-letter queue.
type QueueSink struct {
	sender Sender
}

// NewQueueSink returns a sink publishing through sender.
func NewQueueSink(sender Sender) *QueueSink {
	return &QueueSink{sender: sender}
}

func (s *QueueSink) DeadLetter(ctx context.Context, body []byte, reason string) error {
	msg := annotate(body, reason)
	attrs := map[string]string{"failure_reason": reason}
	if id := gjson.GetBytes(msg, "order.order_id"); id.Exists() {
		attrs["order_id"] = id.String()
	} else if id := gjson.GetBytes(msg, "order_id"); id.Exists() {
		attrs["order_id"] = id.String()
	}
	if err := s.sender.Send(ctx, msg, attrs); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}

// HandlerSink stores dead letters directly, skipping the queue hop.
type HandlerSink struct {
	handler *deadletter.Handler
}

// NewHandlerSink returns a sink writing through h.
func NewHandlerSink(h *deadletter.Handler) *HandlerSink {
	return &HandlerSink{handler: h}
}

func (s *HandlerSink) DeadLetter(ctx context.Context, body []byte, reason string) error {
	if _, err := s.handler.HandleDeadLetter(ctx, [][]byte{annotate(body, reason)}); err != nil {
		return fmt.Errorf("store dead letter: %w", err)
	}
	return nil
}

// annotate sets "error" on a JSON object body so the dead-letter handler picks it
// up as failure_reason. Other payloads are passed through untouched.
func annotate(body []byte, reason string) []byte {
	if reason == "" || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return body
	}
	out, err := sjson.SetBytes(body, "error", reason)
	if err != nil {
		return body
	}
	return out
}
