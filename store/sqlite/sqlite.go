/*
Package sqlite provides a SQLite-backed implementation of depot.Store.

PURPOSE:
  Persists the crate ledger tables and answers the engine's table-oriented
  Find / Insert / Upsert / Delete calls. Statements are built with squirrel
  from depot.Query; column names are checked against depot.Schema before
  any SQL is generated.

KEY TABLES:
  closing_snapshot:       Daily baselines, UNIQUE(depot_id, category_id, date)
  incoming_event:         Crates received at a depot
  outgoing_event:         Crates leaving a depot
  transfer_event:         One row per transfer, both legs
  customer_ledger_entry:  Customer deposits / withdrawals
  depot, crate_category, customer: Reference data

INDEXES:
  - idx_<movement>_depot_category_date: Delta accumulation (hot path)
  - idx_transfer_from / idx_transfer_to: Transfer legs
  - idx_ledger_customer_category_date: Customer replay

DATES:
  Business dates are TEXT "YYYY-MM-DD" and timestamps fixed-width TEXT, so
  comparisons in SQL match chronological order. Columns are deliberately
  not declared DATE/TIMESTAMP: the driver would convert them to time.Time.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode.

USAGE:
  store, err := sqlite.New("./data/depot.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  engine := depot.NewEngine(store, depot.Options{})

SEE ALSO:
  - depot/store.go: Interface definitions
  - depot/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/crate-ledger/depot"
)

// Store implements depot.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS depot (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS crate_category (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS customer (
		id TEXT PRIMARY KEY,
		depot_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		ledger_enabled INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_customer_depot
		ON customer(depot_id, name);

	-- One authoritative baseline per (depot, category, date)
	CREATE TABLE IF NOT EXISTS closing_snapshot (
		id TEXT PRIMARY KEY,
		depot_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		date TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		created_at TEXT NOT NULL,
		updated_at TEXT,
		UNIQUE(depot_id, category_id, date)
	);

	CREATE TABLE IF NOT EXISTS incoming_event (
		id TEXT PRIMARY KEY,
		depot_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		date TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		reason TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_incoming_depot_category_date
		ON incoming_event(depot_id, category_id, date);

	CREATE TABLE IF NOT EXISTS outgoing_event (
		id TEXT PRIMARY KEY,
		depot_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		date TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		reason TEXT,
		destination_info TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outgoing_depot_category_date
		ON outgoing_event(depot_id, category_id, date);

	-- A single row carries both legs of a transfer
	CREATE TABLE IF NOT EXISTS transfer_event (
		id TEXT PRIMARY KEY,
		from_depot_id TEXT NOT NULL,
		to_depot_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		date TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		reason TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		CHECK (from_depot_id <> to_depot_id)
	);

	CREATE INDEX IF NOT EXISTS idx_transfer_from
		ON transfer_event(from_depot_id, category_id, date);
	CREATE INDEX IF NOT EXISTS idx_transfer_to
		ON transfer_event(to_depot_id, category_id, date);

	CREATE TABLE IF NOT EXISTS customer_ledger_entry (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		depot_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('deposit', 'withdrawal', 'reversal')),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		running_balance INTEGER NOT NULL DEFAULT 0,
		reason TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		created_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_customer_category_date
		ON customer_ledger_entry(customer_id, category_id, date DESC, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// depot.Store
// =============================================================================

// Find runs q as a single SELECT.
func (s *Store) Find(ctx context.Context, q depot.Query) ([]depot.Row, error) {
	if err := validate(q.Table, q.Columns()); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args, err := selectSQL(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func selectSQL(q depot.Query) (string, []any, error) {
	b := sq.Select(depot.Schema[q.Table]...).From(string(q.Table))
	if len(q.Equals) > 0 {
		b = b.Where(sq.Eq(q.Equals))
	}
	if len(q.LessOrEqual) > 0 {
		b = b.Where(sq.LtOrEq(q.LessOrEqual))
	}
	if len(q.GreaterOrEqual) > 0 {
		b = b.Where(sq.GtOrEq(q.GreaterOrEqual))
	}
	if len(q.GreaterThan) > 0 {
		b = b.Where(sq.Gt(q.GreaterThan))
	}
	for _, o := range q.OrderBy {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		b = b.OrderBy(o.Column + " " + dir)
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b.ToSql()
}

// Insert adds a row, assigning id and created_at when missing.
func (s *Store) Insert(ctx context.Context, table depot.Table, row depot.Row) (depot.Row, error) {
	row = prepare(table, row)
	if err := validate(table, columnsOf(row)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := sq.Insert(string(table)).SetMap(map[string]any(row)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return row, nil
}

// Upsert inserts row or, on a conflict over conflictKeys, overwrites every
// other column except id and created_at. The stored row is returned.
func (s *Store) Upsert(ctx context.Context, table depot.Table, row depot.Row, conflictKeys []string) (depot.Row, error) {
	row = prepare(table, row)
	if depot.HasColumn(table, depot.ColUpdatedAt) && row[depot.ColUpdatedAt] == nil {
		row[depot.ColUpdatedAt] = row[depot.ColCreatedAt]
	}
	if err := validate(table, append(columnsOf(row), conflictKeys...)); err != nil {
		return nil, err
	}

	var updates []string
	for _, col := range depot.Schema[table] {
		if _, ok := row[col]; !ok || col == depot.ColID || col == depot.ColCreatedAt || contains(conflictKeys, col) {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	suffix := fmt.Sprintf("ON CONFLICT(%s) DO NOTHING", strings.Join(conflictKeys, ", "))
	if len(updates) > 0 {
		suffix = fmt.Sprintf("ON CONFLICT(%s) DO UPDATE SET %s", strings.Join(conflictKeys, ", "), strings.Join(updates, ", "))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := sq.Insert(string(table)).SetMap(map[string]any(row)).Suffix(suffix).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert into %s: %w", table, err)
	}

	key := sq.Eq{}
	for _, col := range conflictKeys {
		key[col] = row[col]
	}
	query, args, err = sq.Select(depot.Schema[table]...).From(string(table)).Where(key).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reload: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to reload %s: %w", table, err)
	}
	defer rows.Close()

	stored, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("upserted %s row vanished: %w", table, depot.ErrNotFound)
	}
	return stored[0], nil
}

// Delete removes the row with id.
func (s *Store) Delete(ctx context.Context, table depot.Table, id string) error {
	if err := validate(table, nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := sq.Delete(string(table)).Where(sq.Eq{depot.ColID: id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, depot.ErrNotFound)
	}
	return nil
}

// Reset deletes every row of every table (dev/demo only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for table := range depot.Schema {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+string(table)); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func scanRows(rows *sql.Rows) ([]depot.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []depot.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(depot.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func prepare(table depot.Table, row depot.Row) depot.Row {
	out := make(depot.Row, len(row)+2)
	for k, v := range row {
		out[k] = v
	}
	if out[depot.ColID] == nil {
		out[depot.ColID] = uuid.NewString()
	}
	if depot.HasColumn(table, depot.ColCreatedAt) && out[depot.ColCreatedAt] == nil {
		out[depot.ColCreatedAt] = time.Now().UTC().Format(depot.TimestampLayout)
	}
	return out
}

func validate(table depot.Table, cols []string) error {
	if _, ok := depot.Schema[table]; !ok {
		return fmt.Errorf("%q: %w", table, depot.ErrUnknownTable)
	}
	for _, c := range cols {
		if !depot.HasColumn(table, c) {
			return fmt.Errorf("%s.%s: %w", table, c, depot.ErrUnknownColumn)
		}
	}
	return nil
}

func columnsOf(row depot.Row) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IsConstraintError reports a CHECK / UNIQUE violation from SQLite.
func IsConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}
