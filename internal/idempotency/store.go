// Package idempotency keeps intake Idempotency-Key records so a retried POST
// replays the original order instead of enqueuing a second one.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imrishuroy/go-order-saga/internal/store"
)

// Store encapsulates idempotency operations on top of a store.Store.
type Store struct {
	store     store.Store
	table     store.Table
	ttlWindow time.Duration // default TTL window when creating entries
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow: default TTL window (e.g., 48*time.Hour); DefaultTTL when zero.
func NewStore(s store.Store, table store.Table, ttlWindow time.Duration) *Store {
	if ttlWindow <= 0 {
		ttlWindow = DefaultTTL
	}
	return &Store{
		store:     s,
		table:     table,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Claim reserves key for orderID.
// Returns (rec, true, nil) when the caller now owns the key: it was unused, expired,
// or its previous attempt FAILED.
// Returns (existing, false, nil) when another request holds or completed it; the
// caller should replay existing.OrderID.
func (s *Store) Claim(ctx context.Context, key, orderID string) (*Record, bool, error) {
	now := s.nowFunc().UTC()
	rec := Record{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}

	err := s.store.ConditionalCreate(ctx, s.table, rec)
	if err == nil {
		return &rec, true, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return nil, false, fmt.Errorf("claim key: %w", err)
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("claim key %s: record vanished after conflict", key)
	}
	if !existing.Expired(now) && existing.Status != StatusFailed {
		return existing, false, nil
	}

	// Guarded on the state just read so only one of several racing reclaims wins.
	var reclaimed Record
	err = s.store.UpdateIf(ctx, s.table, key, map[string]any{
		"status":     existing.Status,
		"expires_at": existing.ExpiresAt,
	}, map[string]any{
		"status":          StatusInProgress,
		"order_id":        orderID,
		"created_at":      now,
		"updated_at":      now,
		"expires_at":      rec.ExpiresAt,
		"response_body":   "",
		"response_status": 0,
		"note":            "",
	}, &reclaimed)
	if errors.Is(err, store.ErrConditionFailed) {
		winner, err := s.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if winner == nil {
			return nil, false, fmt.Errorf("claim key %s: record vanished after reclaim race", key)
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reclaim key: %w", err)
	}
	return &reclaimed, true, nil
}

// Get retrieves an idempotency record by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	var rec Record
	err := s.store.Get(ctx, s.table, key, &rec)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	return &rec, nil
}

// MarkDone sets status to DONE and stores a small response body & status for replay.
func (s *Store) MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error {
	err := s.store.Update(ctx, s.table, key, map[string]any{
		"status":          StatusDone,
		"response_body":   responseBody,
		"response_status": responseStatus,
		"updated_at":      s.nowFunc().UTC(),
	}, nil)
	if err != nil {
		return fmt.Errorf("update key (mark done): %w", err)
	}
	return nil
}

// MarkFailed marks the idempotency record as FAILED and optionally stores a note.
// A FAILED key can be claimed again.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	err := s.store.Update(ctx, s.table, key, map[string]any{
		"status":     StatusFailed,
		"note":       note,
		"updated_at": s.nowFunc().UTC(),
	}, nil)
	if err != nil {
		return fmt.Errorf("update key (mark failed): %w", err)
	}
	return nil
}
