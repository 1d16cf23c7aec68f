/*
Package depot provides the crate ledger engine.

PURPOSE:
  Records crate movements between depots and customers and reconstructs
  point-in-time balances from those event logs. A depot balance is never
  stored as a mutable counter; it is derived from the most recent closing
  snapshot plus every movement after it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: DepotID, CategoryID, CustomerID, EventID
  - ClosingSnapshot: authoritative baseline for (depot, category, date)
  - MovementEvent: incoming or outgoing crates at one depot
  - TransferEvent: one record moving crates between two depots
  - LedgerEntry: customer deposit / withdrawal

RECONSTRUCTION:
  balance(depot, category, D) =
      max(0, snapshot(<= D) + incoming - outgoing + transferIn - transferOut)
  where every movement is dated strictly after the snapshot and on or
  before D.

SEE ALSO:
  - snapshot.go: Snapshot locator
  - delta.go:    Delta accumulator
  - balance.go:  Balance composer
  - customer.go: Customer ledger reducer
*/
package depot

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DepotID string
type CategoryID string
type CustomerID string
type EventID string

// =============================================================================
// REFERENCE DATA
// =============================================================================

// Depot is a physical inventory location.
type Depot struct {
	ID        DepotID
	Name      string
	CreatedAt time.Time
}

// CrateCategory is a trackable crate type. SortOrder is cosmetic.
type CrateCategory struct {
	ID        CategoryID
	Name      string
	SortOrder int
	CreatedAt time.Time
}

// CustomerStatus is a soft-delete flag.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
)

type Customer struct {
	ID            CustomerID
	DepotID       DepotID
	Name          string
	Status        CustomerStatus
	LedgerEnabled bool
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c Customer) IsActive() bool { return c.Status == CustomerActive }

// =============================================================================
// CLOSING SNAPSHOT - Upsertable baseline, unique per (depot, category, date)
// =============================================================================

type ClosingSnapshot struct {
	ID         EventID
	DepotID    DepotID
	CategoryID CategoryID
	Date       Date
	Quantity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// MOVEMENT EVENTS - Append-only, deletable by depot staff
// =============================================================================

type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// MovementEvent changes the stock of a single depot.
type MovementEvent struct {
	ID         EventID
	Direction  Direction
	DepotID    DepotID
	CategoryID CategoryID
	Date       Date
	Quantity   int
	Reason     string

	// DestinationInfo is only meaningful for outgoing movements.
	DestinationInfo string
	Notes           string
	CreatedAt       time.Time
}

// TransferEvent is the single source of truth for both legs of a transfer.
// It is never split into a debit/credit pair.
type TransferEvent struct {
	ID          EventID
	FromDepotID DepotID
	ToDepotID   DepotID
	CategoryID  CategoryID
	Date        Date
	Quantity    int
	Reason      string
	Notes       string
	CreatedAt   time.Time
}

// =============================================================================
// CUSTOMER LEDGER
// =============================================================================

type EntryType string

const (
	EntryDeposit    EntryType = "deposit"    // crates lent to the customer
	EntryWithdrawal EntryType = "withdrawal" // crates returned by the customer
	EntryReversal   EntryType = "reversal"   // declared, not folded into balances
)

type LedgerEntry struct {
	ID         EventID
	CustomerID CustomerID
	DepotID    DepotID
	CategoryID CategoryID
	Date       Date
	Type       EntryType
	Quantity   int

	// RunningBalance is the customer balance computed when the entry was
	// inserted. It is informational; balances are always replayed.
	RunningBalance int
	Reason         string
	Notes          string
	CreatedAt      time.Time
	CreatedBy      string
}
