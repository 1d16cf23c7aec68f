// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/crate-ledger/depot"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps rows per table in insertion order.
type Memory struct {
	mu     sync.RWMutex
	tables map[depot.Table][]depot.Row
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		tables: make(map[depot.Table][]depot.Row),
		now:    time.Now,
	}
}

func (m *Memory) Find(_ context.Context, q depot.Query) ([]depot.Row, error) {
	if err := validate(q.Table, q.Columns()); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []depot.Row
	for _, row := range m.tables[q.Table] {
		if matches(row, q) {
			result = append(result, copyRow(row))
		}
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(result, func(i, j int) bool {
			for _, o := range q.OrderBy {
				c := compare(result[i][o.Column], result[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (m *Memory) Insert(_ context.Context, table depot.Table, row depot.Row) (depot.Row, error) {
	if err := validate(table, keys(row)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.prepareLocked(row)
	m.tables[table] = append(m.tables[table], stored)
	return copyRow(stored), nil
}

// Upsert replaces the first row sharing conflictKeys, keeping its id and
// created_at. Later writes win.
func (m *Memory) Upsert(_ context.Context, table depot.Table, row depot.Row, conflictKeys []string) (depot.Row, error) {
	if err := validate(table, append(keys(row), conflictKeys...)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[table]
	for i, existing := range rows {
		if !sameKey(existing, row, conflictKeys) {
			continue
		}
		merged := copyRow(existing)
		for k, v := range row {
			if k == depot.ColID || k == depot.ColCreatedAt {
				continue
			}
			merged[k] = v
		}
		if depot.HasColumn(table, depot.ColUpdatedAt) && merged[depot.ColUpdatedAt] == nil {
			merged[depot.ColUpdatedAt] = m.stamp()
		}
		rows[i] = merged
		return copyRow(merged), nil
	}

	stored := m.prepareLocked(row)
	if depot.HasColumn(table, depot.ColUpdatedAt) && stored[depot.ColUpdatedAt] == nil {
		stored[depot.ColUpdatedAt] = stored[depot.ColCreatedAt]
	}
	m.tables[table] = append(rows, stored)
	return copyRow(stored), nil
}

func (m *Memory) Delete(_ context.Context, table depot.Table, id string) error {
	if err := validate(table, nil); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[table]
	for i, row := range rows {
		if row[depot.ColID] == id {
			m.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", table, id, depot.ErrNotFound)
}

// Len returns the number of rows in table.
func (m *Memory) Len(table depot.Table) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[table])
}

// Reset drops every row.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = make(map[depot.Table][]depot.Row)
	return nil
}

func (m *Memory) prepareLocked(row depot.Row) depot.Row {
	stored := copyRow(row)
	if stored[depot.ColID] == nil {
		stored[depot.ColID] = uuid.NewString()
	}
	if stored[depot.ColCreatedAt] == nil {
		stored[depot.ColCreatedAt] = m.stamp()
	}
	return stored
}

func (m *Memory) stamp() string {
	return m.now().UTC().Format(depot.TimestampLayout)
}

// =============================================================================
// FILTERING
// =============================================================================

func matches(row depot.Row, q depot.Query) bool {
	for col, want := range q.Equals {
		if compare(row[col], want) != 0 {
			return false
		}
	}
	for col, bound := range q.LessOrEqual {
		if row[col] == nil || compare(row[col], bound) > 0 {
			return false
		}
	}
	for col, bound := range q.GreaterOrEqual {
		if row[col] == nil || compare(row[col], bound) < 0 {
			return false
		}
	}
	for col, bound := range q.GreaterThan {
		if row[col] == nil || compare(row[col], bound) <= 0 {
			return false
		}
	}
	return true
}

func sameKey(a, b depot.Row, cols []string) bool {
	for _, c := range cols {
		if compare(a[c], b[c]) != 0 {
			return false
		}
	}
	return true
}

// compare orders nil < everything, numbers numerically, strings lexically.
// Dates and timestamps are fixed-width strings so lexical order is
// chronological.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	x, y := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func number(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
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

func keys(row depot.Row) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		out = append(out, k)
	}
	return out
}

func copyRow(row depot.Row) depot.Row {
	out := make(depot.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
