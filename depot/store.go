/*
store.go - Collaborator store contract

PURPOSE:
  The engine never talks to a database directly. It consumes a small,
  table-oriented store: find, insert, upsert, delete. The store is injected
  so the engine runs unchanged against SQLite or the in-memory fake.

QUERY SHAPE:
  Find(Query{Table, Equals, LessOrEqual, GreaterOrEqual, GreaterThan,
             OrderBy, Limit})
  All filters are ANDed. GreaterThan carries the exclusive lower bound used
  by delta accumulation, so both bounds are applied by the store.

UPSERT:
  Only closing snapshots (and customer status changes) are upserted. The
  conflict keys identify the row; the later write wins.

IMPLEMENTATIONS:
  - depot/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite via squirrel

SEE ALSO:
  - repository.go: Typed access on top of Store
*/
package depot

import "context"

// =============================================================================
// TABLES AND COLUMNS
// =============================================================================

type Table string

const (
	TableDepot           Table = "depot"
	TableCategory        Table = "crate_category"
	TableCustomer        Table = "customer"
	TableClosingSnapshot Table = "closing_snapshot"
	TableIncoming        Table = "incoming_event"
	TableOutgoing        Table = "outgoing_event"
	TableTransfer        Table = "transfer_event"
	TableLedgerEntry     Table = "customer_ledger_entry"
)

// Column names shared by several tables.
const (
	ColID              = "id"
	ColName            = "name"
	ColSortOrder       = "sort_order"
	ColDepotID         = "depot_id"
	ColCategoryID      = "category_id"
	ColCustomerID      = "customer_id"
	ColFromDepotID     = "from_depot_id"
	ColToDepotID       = "to_depot_id"
	ColDate            = "date"
	ColQuantity        = "quantity"
	ColReason          = "reason"
	ColNotes           = "notes"
	ColDestinationInfo = "destination_info"
	ColStatus          = "status"
	ColLedgerEnabled   = "ledger_enabled"
	ColEntryType       = "type"
	ColRunningBalance  = "running_balance"
	ColCreatedBy       = "created_by"
	ColCreatedAt       = "created_at"
	ColUpdatedAt       = "updated_at"
)

// SnapshotConflictKeys is the composite key enforced on closing snapshots.
var SnapshotConflictKeys = []string{ColDepotID, ColCategoryID, ColDate}

// Schema lists the columns of every table. Stores reject anything else.
var Schema = map[Table][]string{
	TableDepot:    {ColID, ColName, ColCreatedAt},
	TableCategory: {ColID, ColName, ColSortOrder, ColCreatedAt},
	TableCustomer: {ColID, ColDepotID, ColName, ColStatus, ColLedgerEnabled, ColNotes, ColCreatedAt, ColUpdatedAt},
	TableClosingSnapshot: {
		ColID, ColDepotID, ColCategoryID, ColDate, ColQuantity, ColCreatedAt, ColUpdatedAt,
	},
	TableIncoming: {
		ColID, ColDepotID, ColCategoryID, ColDate, ColQuantity, ColReason, ColNotes, ColCreatedAt,
	},
	TableOutgoing: {
		ColID, ColDepotID, ColCategoryID, ColDate, ColQuantity, ColReason, ColDestinationInfo, ColNotes, ColCreatedAt,
	},
	TableTransfer: {
		ColID, ColFromDepotID, ColToDepotID, ColCategoryID, ColDate, ColQuantity, ColReason, ColNotes, ColCreatedAt,
	},
	TableLedgerEntry: {
		ColID, ColCustomerID, ColDepotID, ColCategoryID, ColDate, ColEntryType, ColQuantity,
		ColRunningBalance, ColReason, ColNotes, ColCreatedAt, ColCreatedBy,
	},
}

// HasColumn reports whether column belongs to table.
func HasColumn(table Table, column string) bool {
	for _, c := range Schema[table] {
		if c == column {
			return true
		}
	}
	return false
}

// =============================================================================
// ROWS AND QUERIES
// =============================================================================

// Row is one stored record. Values are string, int64, or bool.
type Row map[string]any

type Order struct {
	Column string
	Desc   bool
}

// Query selects rows from one table. Empty maps mean "no filter".
type Query struct {
	Table          Table
	Equals         map[string]any
	LessOrEqual    map[string]any
	GreaterOrEqual map[string]any
	GreaterThan    map[string]any
	OrderBy        []Order
	Limit          int
}

// From starts a query on table.
func From(table Table) Query {
	return Query{Table: table}
}

func (q Query) Eq(column string, value any) Query {
	q.Equals = with(q.Equals, column, value)
	return q
}

func (q Query) Lte(column string, value any) Query {
	q.LessOrEqual = with(q.LessOrEqual, column, value)
	return q
}

func (q Query) Gte(column string, value any) Query {
	q.GreaterOrEqual = with(q.GreaterOrEqual, column, value)
	return q
}

func (q Query) Gt(column string, value any) Query {
	q.GreaterThan = with(q.GreaterThan, column, value)
	return q
}

func (q Query) Asc(column string) Query {
	q.OrderBy = append(append([]Order(nil), q.OrderBy...), Order{Column: column})
	return q
}

func (q Query) Desc(column string) Query {
	q.OrderBy = append(append([]Order(nil), q.OrderBy...), Order{Column: column, Desc: true})
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Columns returns every column the query references.
func (q Query) Columns() []string {
	var cols []string
	for _, m := range []map[string]any{q.Equals, q.LessOrEqual, q.GreaterOrEqual, q.GreaterThan} {
		for c := range m {
			cols = append(cols, c)
		}
	}
	for _, o := range q.OrderBy {
		cols = append(cols, o.Column)
	}
	return cols
}

// with copies m so that derived queries never share filter maps.
func with(m map[string]any, column string, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[column] = value
	return out
}

// =============================================================================
// STORE - Collaborator interface
// =============================================================================

// Store is the persistent event store consumed by the engine.
type Store interface {
	// Find returns rows matching q.
	Find(ctx context.Context, q Query) ([]Row, error)

	// Insert stores row, assigning id and created_at when absent, and
	// returns the stored row.
	Insert(ctx context.Context, table Table, row Row) (Row, error)

	// Upsert inserts row or replaces the row sharing conflictKeys.
	Upsert(ctx context.Context, table Table, row Row, conflictKeys []string) (Row, error)

	// Delete removes the row with id. Returns ErrNotFound if none matched.
	Delete(ctx context.Context, table Table, id string) error
}
