// Package deadletter persists messages the saga could not process into the
// failed-order table, whatever shape they arrive in.
package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
	"github.com/imrishuroy/go-order-saga/internal/orders"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

// UnknownOrderID is recorded when a message carries no order id.
const UnknownOrderID = "unknown"

// StatusStored is reported for every message written to the failed-order table.
const StatusStored = "stored"

// Stored reports the outcome for one message of a batch.
type Stored struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Handler writes dead-lettered messages to the failed-order table.
type Handler struct {
	store   store.Store
	table   store.Table
	nowFunc func() time.Time
	logger  *slog.Logger
}

// NewHandler returns a Handler appending to table.
func NewHandler(s store.Store, table store.Table) *Handler {
	return &Handler{
		store:   s,
		table:   table,
		nowFunc: time.Now,
		logger:  slog.Default(),
	}
}

// HandleDeadLetter stores every message independently. Malformed payloads are
// kept verbatim under raw_body. A store outage aborts the rest of the batch and
// returns ErrStorageUnavailable together with the results stored so far.
func (h *Handler) HandleDeadLetter(ctx context.Context, messages [][]byte) ([]Stored, error) {
	results := make([]Stored, 0, len(messages))
	for i, msg := range messages {
		rec := h.record(msg)
		if _, err := h.store.Append(ctx, h.table, rec); err != nil {
			h.logger.Error("Handler.HandleDeadLetter: store failed, aborting batch",
				"index", i, "order_id", rec.OrderID, "error", err)
			if errors.Is(err, store.ErrUnavailable) {
				return results, fmt.Errorf("dead-letter message %d: %w: %w", i, apperr.ErrStorageUnavailable, err)
			}
			return results, fmt.Errorf("dead-letter message %d: %w", i, err)
		}
		h.logger.Info("Handler.HandleDeadLetter: stored", "order_id", rec.OrderID)
		results = append(results, Stored{OrderID: rec.OrderID, Status: StatusStored})
	}
	return results, nil
}

func (h *Handler) record(msg []byte) orders.DeadLetterRecord {
	body, err := decode(msg)
	if err != nil {
		h.logger.Warn("Handler.HandleDeadLetter: undecodable payload, storing raw body", "error", err)
	}

	rec := orders.DeadLetterRecord{
		OrderID:         orderID(body),
		FailedAt:        h.nowFunc().UTC(),
		FailureSource:   orders.DeadLetterSource,
		OriginalMessage: body,
	}
	if reason, ok := body["error"]; ok {
		rec.FailureReason = reasonString(reason)
	}
	return rec
}

// decode parses a JSON object payload. Anything else comes back wrapped as
// {"raw_body": <payload>} along with an ErrDecode error.
func decode(msg []byte) (map[string]any, error) {
	if gjson.ValidBytes(msg) && gjson.ParseBytes(msg).IsObject() {
		var body map[string]any
		if err := json.Unmarshal(msg, &body); err == nil {
			return body, nil
		}
	}
	return map[string]any{"raw_body": string(msg)}, apperr.ErrDecode
}

func orderID(body map[string]any) string {
	if nested, ok := body["order"].(map[string]any); ok {
		if id, ok := nested["order_id"]; ok {
			return idString(id)
		}
	}
	if id, ok := body["order_id"]; ok {
		return idString(id)
	}
	return UnknownOrderID
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case nil:
		return UnknownOrderID
	default:
		b, _ := json.Marshal(id)
		return string(b)
	}
}

func reasonString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}
