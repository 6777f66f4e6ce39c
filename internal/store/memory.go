package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Op identifies a Store method, used to target injected faults.
type Op string

const (
	OpGet               Op = "get"
	OpConditionalCreate Op = "conditional_create"
	OpUpdate            Op = "update"
	OpAppend            Op = "append"
)

// MemoryStore keeps records as JSON documents in process memory. It is safe
// for concurrent use; a single mutex gives per-record atomicity.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]map[string]document
	order  map[string][]string
	fault  func(op Op, table string) error
	newID  func() string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: map[string]map[string]document{},
		order:  map[string][]string{},
		newID:  uuid.NewString,
	}
}

// SetFault installs a hook consulted before every operation; a non-nil return is
// surfaced as an ErrUnavailable failure. Pass nil to clear it.
func (m *MemoryStore) SetFault(fn func(op Op, table string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

func (m *MemoryStore) check(op Op, table string) error {
	if m.fault == nil {
		return nil
	}
	if err := m.fault(op, table); err != nil {
		return fmt.Errorf("%s %s: %w: %w", op, table, ErrUnavailable, err)
	}
	return nil
}

func (m *MemoryStore) table(name string) map[string]document {
	tbl, ok := m.tables[name]
	if !ok {
		tbl = map[string]document{}
		m.tables[name] = tbl
	}
	return tbl
}

func (m *MemoryStore) put(name, key string, doc document) {
	tbl := m.table(name)
	if _, exists := tbl[key]; !exists {
		m.order[name] = append(m.order[name], key)
	}
	tbl[key] = doc
}

func (m *MemoryStore) Get(ctx context.Context, t Table, key string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpGet, t.Name); err != nil {
		return err
	}
	doc, ok := m.table(t.Name)[key]
	if !ok {
		return ErrNotFound
	}
	return doc.decode(out)
}

func (m *MemoryStore) ConditionalCreate(ctx context.Context, t Table, record any) error {
	doc, err := toDocument(record)
	if err != nil {
		return err
	}
	key, err := doc.key(t.Key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpConditionalCreate, t.Name); err != nil {
		return err
	}
	if _, exists := m.table(t.Name)[key]; exists {
		return ErrAlreadyExists
	}
	m.put(t.Name, key, doc)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, t Table, key string, fields map[string]any, out any) error {
	return m.update(t, key, nil, fields, out)
}

func (m *MemoryStore) UpdateIf(ctx context.Context, t Table, key string, expect, fields map[string]any, out any) error {
	return m.update(t, key, expect, fields, out)
}

func (m *MemoryStore) update(t Table, key string, expect, fields map[string]any, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpUpdate, t.Name); err != nil {
		return err
	}
	current, ok := m.table(t.Name)[key]
	if !ok {
		return ErrNotFound
	}
	if ok, err := current.matches(expect); err != nil {
		return err
	} else if !ok {
		return ErrConditionFailed
	}
	next := make(document, len(current)+len(fields))
	for k, v := range current {
		next[k] = v
	}
	if err := next.apply(fields); err != nil {
		return err
	}
	m.put(t.Name, key, next)
	return next.decode(out)
}

func (m *MemoryStore) Append(ctx context.Context, t Table, record any) (string, error) {
	doc, err := toDocument(record)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpAppend, t.Name); err != nil {
		return "", err
	}
	id := m.newID()
	doc[t.Key] = id
	m.put(t.Name, id, doc)
	return id, nil
}

// Records returns copies of every record in a table in insertion order.
func (m *MemoryStore) Records(table string) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.tables[table]
	out := make([]map[string]any, 0, len(tbl))
	for _, key := range m.order[table] {
		cp := make(map[string]any, len(tbl[key]))
		for k, v := range tbl[key] {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}
