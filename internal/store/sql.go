package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Driver     string
	numbered   bool
	lockClause string
}

var (
	DialectSQLite   = Dialect{Driver: "sqlite3"}
	DialectPostgres = Dialect{Driver: "postgres", numbered: true, lockClause: " FOR UPDATE"}
)

// DialectFor maps a driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "postgres", "postgresql":
		return DialectPostgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// rebind rewrites ? placeholders into $n for drivers that need numbered ones.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schema = `CREATE TABLE IF NOT EXISTS saga_records (
	table_name TEXT NOT NULL,
	record_key TEXT NOT NULL,
	body       TEXT NOT NULL,
	PRIMARY KEY (table_name, record_key)
)`

// SQLStore implements Store on a single SQL table holding JSON documents for
// every logical table. It backs local runs of the saga on sqlite or postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	newID   func() string
}

// OpenSQL opens a database for driver/dsn and returns a store with its schema created.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	s := NewSQLStore(db, dialect)
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, newID: uuid.NewString}
}

// InitSchema creates the backing table when missing.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func (s *SQLStore) Get(ctx context.Context, t Table, key string, out any) error {
	var body string
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT body FROM saga_records WHERE table_name = ? AND record_key = ?"),
		t.Name, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("select record", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

func (s *SQLStore) ConditionalCreate(ctx context.Context, t Table, record any) error {
	doc, err := toDocument(record)
	if err != nil {
		return err
	}
	key, err := doc.key(t.Key)
	if err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind("INSERT INTO saga_records (table_name, record_key, body) VALUES (?, ?, ?) ON CONFLICT (table_name, record_key) DO NOTHING"),
		t.Name, key, string(body),
	)
	if err != nil {
		return unavailable("insert record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Update reads, merges and writes the document inside one transaction.
func (s *SQLStore) Update(ctx context.Context, t Table, key string, fields map[string]any, out any) error {
	return s.update(ctx, t, key, nil, fields, out)
}

func (s *SQLStore) UpdateIf(ctx context.Context, t Table, key string, expect, fields map[string]any, out any) error {
	return s.update(ctx, t, key, expect, fields, out)
}

// update reads the row under a lock, checks expect and writes the merged body
// in one transaction.
func (s *SQLStore) update(ctx context.Context, t Table, key string, expect, fields map[string]any, out any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		s.dialect.rebind("SELECT body FROM saga_records WHERE table_name = ? AND record_key = ?"+s.dialect.lockClause),
		t.Name, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("select record", err)
	}

	var doc document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if ok, err := doc.matches(expect); err != nil {
		return err
	} else if !ok {
		return ErrConditionFailed
	}
	if err := doc.apply(fields); err != nil {
		return err
	}
	next, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		s.dialect.rebind("UPDATE saga_records SET body = ? WHERE table_name = ? AND record_key = ?"),
		string(next), t.Name, key,
	); err != nil {
		return unavailable("update record", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return doc.decode(out)
}

func (s *SQLStore) Append(ctx context.Context, t Table, record any) (string, error) {
	doc, err := toDocument(record)
	if err != nil {
		return "", err
	}
	id := s.newID()
	doc[t.Key] = id
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		s.dialect.rebind("INSERT INTO saga_records (table_name, record_key, body) VALUES (?, ?, ?)"),
		t.Name, id, string(body),
	); err != nil {
		return "", unavailable("insert record", err)
	}
	return id, nil
}
