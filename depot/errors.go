/*
errors.go - Error types for the crate ledger

ERROR CATEGORIES:
  1. Store errors - the collaborator store failed (ReadError)
  2. Validation errors - bad input or insufficient balance
  3. Lookup errors - referenced record does not exist

Balance and reducer paths do not surface store errors by default: the
failing source contributes zero and the result is marked Degraded.

SEE ALSO:
  - balance.go: Degraded results
  - customer.go: InsufficientBalanceError
*/
package depot

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity is returned for non-positive event quantities
	// or negative snapshot quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrSameDepot is returned when a transfer names the same depot twice.
	ErrSameDepot = errors.New("transfer source and destination must differ")

	// ErrInvalidDirection is returned for a movement that is neither
	// incoming nor outgoing.
	ErrInvalidDirection = errors.New("invalid movement direction")

	// ErrMissingReference is returned when a required id is empty.
	ErrMissingReference = errors.New("missing reference")

	// ErrInsufficientBalance is returned when a withdrawal exceeds the
	// customer balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCustomerInactive is returned when recording against an inactive customer.
	ErrCustomerInactive = errors.New("customer is inactive")

	// ErrLedgerDisabled is returned when the customer has no ledger.
	ErrLedgerDisabled = errors.New("customer ledger is disabled")

	// ErrUnsupportedEntryType is returned when recording an entry type the
	// reducer does not fold (reversal).
	ErrUnsupportedEntryType = errors.New("unsupported ledger entry type")

	// ErrInvalidRange is returned for unknown range presets or reversed bounds.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrUnknownTable is returned by stores for tables outside the schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned by stores for filters on unknown columns.
	ErrUnknownColumn = errors.New("unknown column")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ReadError records which store read failed during a computation.
type ReadError struct {
	Table Table
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Table, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// InsufficientBalanceError provides details about a withdrawal shortfall.
type InsufficientBalanceError struct {
	CustomerID CustomerID
	CategoryID CategoryID
	Available  int
	Requested  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrSameDepot) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrMissingReference) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrCustomerInactive) ||
		errors.Is(err, ErrLedgerDisabled) ||
		errors.Is(err, ErrUnsupportedEntryType) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
