// Package store defines the key-value contract the saga stages persist through
// and its DynamoDB, SQL and in-memory implementations.
//
// Every implementation must reject a second ConditionalCreate for an existing key
// and apply Update and UpdateIf atomically per record; the saga relies on these
// for exactly-once order creation, the fulfillment read-modify-write and
// single-winner idempotency key reclaims.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrUnavailable   = errors.New("store unavailable")

	// ErrConditionFailed means an UpdateIf expectation did not hold.
	ErrConditionFailed = errors.New("record changed")
)

// Table names a logical table and the attribute its records are keyed by.
type Table struct {
	Name string
	Key  string
}

// Store is the persistence contract consumed by the order gateway, the fulfillment
// simulator, the dead-letter handler and the intake idempotency keys.
type Store interface {
	// Get loads the record stored under key into out.
	Get(ctx context.Context, t Table, key string, out any) error
	// ConditionalCreate inserts record only if nothing exists under its t.Key attribute.
	ConditionalCreate(ctx context.Context, t Table, record any) error
	// Update sets fields on an existing record. When out is non-nil it receives the
	// record as it is after the update.
	Update(ctx context.Context, t Table, key string, fields map[string]any, out any) error
	// UpdateIf is Update guarded by expect: each attribute named there must hold
	// the given value or ErrConditionFailed is returned and nothing changes.
	UpdateIf(ctx context.Context, t Table, key string, expect, fields map[string]any, out any) error
	// Append inserts record under a freshly generated key and returns that key.
	Append(ctx context.Context, t Table, record any) (string, error)
}
