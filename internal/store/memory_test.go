package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ConditionalCreateOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ConditionalCreate(ctx, widgets, widget{ID: "w1", Name: "first"}))
	err := s.ConditionalCreate(ctx, widgets, widget{ID: "w1", Name: "second"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	var got widget
	require.NoError(t, s.Get(ctx, widgets, "w1", &got))
	assert.Equal(t, "first", got.Name)
}

func TestMemoryStore_ConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ConditionalCreate(ctx, widgets, widget{ID: "same"}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryStore_UpdateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ConditionalCreate(ctx, widgets, widget{ID: "w1", Name: "a", Count: 1}))

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var updated widget
	err := s.Update(ctx, widgets, "w1", map[string]any{"count": 2, "updated_at": now}, &updated)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Count)
	assert.Equal(t, "a", updated.Name)
	assert.True(t, updated.UpdatedAt.Equal(now))

	err = s.Update(ctx, widgets, "missing", map[string]any{"count": 1}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Get(ctx, widgets, "missing", &updated), ErrNotFound)
}

func TestMemoryStore_UpdateIf(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ConditionalCreate(ctx, widgets, widget{ID: "w1", Name: "a", Count: 1}))

	var got widget
	require.NoError(t, s.UpdateIf(ctx, widgets, "w1", map[string]any{"count": 1}, map[string]any{"count": 2}, &got))
	assert.Equal(t, 2, got.Count)

	err := s.UpdateIf(ctx, widgets, "w1", map[string]any{"count": 1}, map[string]any{"count": 9}, nil)
	assert.ErrorIs(t, err, ErrConditionFailed)
	require.NoError(t, s.Get(ctx, widgets, "w1", &got))
	assert.Equal(t, 2, got.Count)

	err = s.UpdateIf(ctx, widgets, "missing", map[string]any{"count": 1}, map[string]any{"count": 9}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConcurrentUpdateIfSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ConditionalCreate(ctx, widgets, widget{ID: "w1", Name: "free"}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateIf(ctx, widgets, "w1", map[string]any{"name": "free"}, map[string]any{"name": "taken"}, nil)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryStore_AppendGeneratesKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id1, err := s.Append(ctx, events, map[string]any{"order_id": "o1"})
	require.NoError(t, err)
	id2, err := s.Append(ctx, events, map[string]any{"order_id": "o1"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	recs := s.Records("events")
	require.Len(t, recs, 2)
	assert.Equal(t, id1, recs[0]["event_id"])
	assert.Equal(t, "o1", recs[1]["order_id"])
}

func TestMemoryStore_Fault(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetFault(func(op Op, table string) error {
		if op == OpAppend {
			return errors.New("connection reset")
		}
		return nil
	})

	_, err := s.Append(ctx, events, map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, s.ConditionalCreate(ctx, widgets, widget{ID: "w1"}))

	s.SetFault(nil)
	_, err = s.Append(ctx, events, map[string]any{"x": 1})
	assert.NoError(t, err)
}
