package idempotency

import (
	"time"

	"github.com/imrishuroy/go-order-saga/internal/store"
)

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// DefaultTTL is how long a key is honored after it was claimed.
const DefaultTTL = 48 * time.Hour

// Table is the default logical table for intake keys.
var Table = store.Table{Name: "idempotency", Key: "idempotency_key"}

// Record is the shape persisted in the idempotency table.
type Record struct {
	IdempotencyKey string    `json:"idempotency_key" dynamodbav:"idempotency_key"` // PK
	Status         string    `json:"status" dynamodbav:"status"`
	OrderID        string    `json:"order_id,omitempty" dynamodbav:"order_id,omitempty"`
	ResponseBody   string    `json:"response_body,omitempty" dynamodbav:"response_body,omitempty"` // small responses only
	ResponseStatus int       `json:"response_status,omitempty" dynamodbav:"response_status,omitempty"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
	ExpiresAt      int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `json:"note,omitempty" dynamodbav:"note,omitempty"`
}

// Expired reports whether the record's TTL has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt > 0 && now.Unix() >= r.ExpiresAt
}
