package depot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// TimestampLayout is the storage format of created_at / updated_at. The
// fixed width keeps lexical order equal to chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// =============================================================================
// REPOSITORY - Typed records on top of Store
// =============================================================================

// Repository maps domain records to store rows.
type Repository struct {
	Store Store
}

func NewRepository(store Store) *Repository {
	return &Repository{Store: store}
}

// -----------------------------------------------------------------------------
// Depots and categories
// -----------------------------------------------------------------------------

func (r *Repository) CreateDepot(ctx context.Context, d Depot) (Depot, error) {
	row, err := r.Store.Insert(ctx, TableDepot, Row{
		ColID:        optional(string(d.ID)),
		ColName:      d.Name,
		ColCreatedAt: optionalTime(d.CreatedAt),
	})
	if err != nil {
		return Depot{}, fmt.Errorf("create depot: %w", err)
	}
	return decodeDepot(row), nil
}

func (r *Repository) GetDepot(ctx context.Context, id DepotID) (Depot, error) {
	rows, err := r.Store.Find(ctx, From(TableDepot).Eq(ColID, string(id)).Take(1))
	if err != nil {
		return Depot{}, fmt.Errorf("get depot: %w", err)
	}
	if len(rows) == 0 {
		return Depot{}, fmt.Errorf("depot %s: %w", id, ErrNotFound)
	}
	return decodeDepot(rows[0]), nil
}

// ListDepots returns depots ordered by name.
func (r *Repository) ListDepots(ctx context.Context) ([]Depot, error) {
	rows, err := r.Store.Find(ctx, From(TableDepot).Asc(ColName))
	if err != nil {
		return nil, fmt.Errorf("list depots: %w", err)
	}
	out := make([]Depot, len(rows))
	for i, row := range rows {
		out[i] = decodeDepot(row)
	}
	return out, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c CrateCategory) (CrateCategory, error) {
	row, err := r.Store.Insert(ctx, TableCategory, Row{
		ColID:        optional(string(c.ID)),
		ColName:      c.Name,
		ColSortOrder: int64(c.SortOrder),
		ColCreatedAt: optionalTime(c.CreatedAt),
	})
	if err != nil {
		return CrateCategory{}, fmt.Errorf("create category: %w", err)
	}
	return decodeCategory(row), nil
}

// ListCategories returns categories in display order.
func (r *Repository) ListCategories(ctx context.Context) ([]CrateCategory, error) {
	rows, err := r.Store.Find(ctx, From(TableCategory).Asc(ColSortOrder).Asc(ColName))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]CrateCategory, len(rows))
	for i, row := range rows {
		out[i] = decodeCategory(row)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Customers
// -----------------------------------------------------------------------------

func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	if c.Status == "" {
		c.Status = CustomerActive
	}
	row, err := r.Store.Insert(ctx, TableCustomer, encodeCustomer(c))
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return decodeCustomer(row), nil
}

func (r *Repository) GetCustomer(ctx context.Context, id CustomerID) (Customer, error) {
	rows, err := r.Store.Find(ctx, From(TableCustomer).Eq(ColID, string(id)).Take(1))
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	if len(rows) == 0 {
		return Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return decodeCustomer(rows[0]), nil
}

// ListCustomers returns a depot's customers by name. Empty status lists all.
func (r *Repository) ListCustomers(ctx context.Context, depotID DepotID, status CustomerStatus) ([]Customer, error) {
	q := From(TableCustomer).Eq(ColDepotID, string(depotID)).Asc(ColName)
	if status != "" {
		q = q.Eq(ColStatus, string(status))
	}
	rows, err := r.Store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]Customer, len(rows))
	for i, row := range rows {
		out[i] = decodeCustomer(row)
	}
	return out, nil
}

// SetCustomerStatus flips the soft-delete flag. Customers are never deleted.
func (r *Repository) SetCustomerStatus(ctx context.Context, id CustomerID, status CustomerStatus) (Customer, error) {
	c, err := r.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	row, err := r.Store.Upsert(ctx, TableCustomer, encodeCustomer(c), []string{ColID})
	if err != nil {
		return Customer{}, fmt.Errorf("set customer status: %w", err)
	}
	return decodeCustomer(row), nil
}

// -----------------------------------------------------------------------------
// Closing snapshots
// -----------------------------------------------------------------------------

// UpsertSnapshot stores the snapshot for (depot, category, date). A second
// write for the same key replaces the quantity.
func (r *Repository) UpsertSnapshot(ctx context.Context, s ClosingSnapshot) (ClosingSnapshot, error) {
	if s.Quantity < 0 {
		return ClosingSnapshot{}, fmt.Errorf("snapshot quantity %d: %w", s.Quantity, ErrInvalidQuantity)
	}
	row, err := r.Store.Upsert(ctx, TableClosingSnapshot, Row{
		ColID:         optional(string(s.ID)),
		ColDepotID:    string(s.DepotID),
		ColCategoryID: string(s.CategoryID),
		ColDate:       s.Date.String(),
		ColQuantity:   int64(s.Quantity),
		ColUpdatedAt:  formatTime(time.Now()),
	}, SnapshotConflictKeys)
	if err != nil {
		return ClosingSnapshot{}, fmt.Errorf("upsert snapshot: %w", err)
	}
	return decodeSnapshot(row), nil
}

// SnapshotsOn returns every snapshot of a depot for one day.
func (r *Repository) SnapshotsOn(ctx context.Context, depotID DepotID, day Date) ([]ClosingSnapshot, error) {
	rows, err := r.Store.Find(ctx, From(TableClosingSnapshot).
		Eq(ColDepotID, string(depotID)).
		Eq(ColDate, day.String()))
	if err != nil {
		return nil, fmt.Errorf("snapshots on %s: %w", day, err)
	}
	out := make([]ClosingSnapshot, len(rows))
	for i, row := range rows {
		out[i] = decodeSnapshot(row)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Movements and transfers
// -----------------------------------------------------------------------------

func movementTable(d Direction) (Table, error) {
	switch d {
	case Incoming:
		return TableIncoming, nil
	case Outgoing:
		return TableOutgoing, nil
	default:
		return "", fmt.Errorf("direction %q: %w", d, ErrInvalidDirection)
	}
}

func (r *Repository) InsertMovement(ctx context.Context, m MovementEvent) (MovementEvent, error) {
	table, err := movementTable(m.Direction)
	if err != nil {
		return MovementEvent{}, err
	}
	row := Row{
		ColID:         optional(string(m.ID)),
		ColDepotID:    string(m.DepotID),
		ColCategoryID: string(m.CategoryID),
		ColDate:       m.Date.String(),
		ColQuantity:   int64(m.Quantity),
		ColReason:     m.Reason,
		ColNotes:      m.Notes,
		ColCreatedAt:  optionalTime(m.CreatedAt),
	}
	if m.Direction == Outgoing {
		row[ColDestinationInfo] = m.DestinationInfo
	}
	stored, err := r.Store.Insert(ctx, table, row)
	if err != nil {
		return MovementEvent{}, fmt.Errorf("insert %s movement: %w", m.Direction, err)
	}
	return decodeMovement(m.Direction, stored), nil
}

// ListMovements returns a depot's movements, newest business date first.
func (r *Repository) ListMovements(ctx context.Context, d Direction, depotID DepotID, limit int) ([]MovementEvent, error) {
	table, err := movementTable(d)
	if err != nil {
		return nil, err
	}
	rows, err := r.Store.Find(ctx, From(table).
		Eq(ColDepotID, string(depotID)).
		Desc(ColDate).Desc(ColCreatedAt).
		Take(limit))
	if err != nil {
		return nil, fmt.Errorf("list %s movements: %w", d, err)
	}
	out := make([]MovementEvent, len(rows))
	for i, row := range rows {
		out[i] = decodeMovement(d, row)
	}
	return out, nil
}

func (r *Repository) DeleteMovement(ctx context.Context, d Direction, id EventID) error {
	table, err := movementTable(d)
	if err != nil {
		return err
	}
	if err := r.Store.Delete(ctx, table, string(id)); err != nil {
		return fmt.Errorf("delete %s movement %s: %w", d, id, err)
	}
	return nil
}

func (r *Repository) InsertTransfer(ctx context.Context, t TransferEvent) (TransferEvent, error) {
	row, err := r.Store.Insert(ctx, TableTransfer, Row{
		ColID:          optional(string(t.ID)),
		ColFromDepotID: string(t.FromDepotID),
		ColToDepotID:   string(t.ToDepotID),
		ColCategoryID:  string(t.CategoryID),
		ColDate:        t.Date.String(),
		ColQuantity:    int64(t.Quantity),
		ColReason:      t.Reason,
		ColNotes:       t.Notes,
		ColCreatedAt:   optionalTime(t.CreatedAt),
	})
	if err != nil {
		return TransferEvent{}, fmt.Errorf("insert transfer: %w", err)
	}
	return decodeTransfer(row), nil
}

// ListTransfers returns transfers touching a depot on either leg, newest first.
func (r *Repository) ListTransfers(ctx context.Context, depotID DepotID, limit int) ([]TransferEvent, error) {
	var out []TransferEvent
	for _, col := range []string{ColFromDepotID, ColToDepotID} {
		rows, err := r.Store.Find(ctx, From(TableTransfer).
			Eq(col, string(depotID)).
			Desc(ColDate).Desc(ColCreatedAt).
			Take(limit))
		if err != nil {
			return nil, fmt.Errorf("list transfers: %w", err)
		}
		for _, row := range rows {
			out = append(out, decodeTransfer(row))
		}
	}
	sortTransfersDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) DeleteTransfer(ctx context.Context, id EventID) error {
	if err := r.Store.Delete(ctx, TableTransfer, string(id)); err != nil {
		return fmt.Errorf("delete transfer %s: %w", id, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Customer ledger entries
// -----------------------------------------------------------------------------

func (r *Repository) InsertLedgerEntry(ctx context.Context, e LedgerEntry) (LedgerEntry, error) {
	row, err := r.Store.Insert(ctx, TableLedgerEntry, Row{
		ColID:             optional(string(e.ID)),
		ColCustomerID:     string(e.CustomerID),
		ColDepotID:        string(e.DepotID),
		ColCategoryID:     string(e.CategoryID),
		ColDate:           e.Date.String(),
		ColEntryType:      string(e.Type),
		ColQuantity:       int64(e.Quantity),
		ColRunningBalance: int64(e.RunningBalance),
		ColReason:         e.Reason,
		ColNotes:          e.Notes,
		ColCreatedAt:      optionalTime(e.CreatedAt),
		ColCreatedBy:      e.CreatedBy,
	})
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	return decodeLedgerEntry(row), nil
}

// LedgerEntries returns a customer's entries, newest first (business date,
// then creation time). Empty category means every category; nil upTo means
// no upper bound.
func (r *Repository) LedgerEntries(ctx context.Context, customerID CustomerID, categoryID CategoryID, upTo *Date) ([]LedgerEntry, error) {
	q := From(TableLedgerEntry).
		Eq(ColCustomerID, string(customerID)).
		Desc(ColDate).Desc(ColCreatedAt)
	if categoryID != "" {
		q = q.Eq(ColCategoryID, string(categoryID))
	}
	if upTo != nil {
		q = q.Lte(ColDate, upTo.String())
	}
	rows, err := r.Store.Find(ctx, q)
	if err != nil {
		return nil, &ReadError{Table: TableLedgerEntry, Err: err}
	}
	out := make([]LedgerEntry, len(rows))
	for i, row := range rows {
		out[i] = decodeLedgerEntry(row)
	}
	return out, nil
}

func sortTransfersDesc(ts []TransferEvent) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].Date.Equal(ts[j].Date) {
			return ts[i].Date.After(ts[j].Date)
		}
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
}

// =============================================================================
// ROW CODEC
// =============================================================================

func encodeCustomer(c Customer) Row {
	return Row{
		ColID:            optional(string(c.ID)),
		ColDepotID:       string(c.DepotID),
		ColName:          c.Name,
		ColStatus:        string(c.Status),
		ColLedgerEnabled: c.LedgerEnabled,
		ColNotes:         c.Notes,
		ColCreatedAt:     optionalTime(c.CreatedAt),
		ColUpdatedAt:     optionalTime(c.UpdatedAt),
	}
}

func decodeDepot(row Row) Depot {
	return Depot{
		ID:        DepotID(rowString(row, ColID)),
		Name:      rowString(row, ColName),
		CreatedAt: rowTime(row, ColCreatedAt),
	}
}

func decodeCategory(row Row) CrateCategory {
	return CrateCategory{
		ID:        CategoryID(rowString(row, ColID)),
		Name:      rowString(row, ColName),
		SortOrder: rowInt(row, ColSortOrder),
		CreatedAt: rowTime(row, ColCreatedAt),
	}
}

func decodeCustomer(row Row) Customer {
	return Customer{
		ID:            CustomerID(rowString(row, ColID)),
		DepotID:       DepotID(rowString(row, ColDepotID)),
		Name:          rowString(row, ColName),
		Status:        CustomerStatus(rowString(row, ColStatus)),
		LedgerEnabled: rowBool(row, ColLedgerEnabled),
		Notes:         rowString(row, ColNotes),
		CreatedAt:     rowTime(row, ColCreatedAt),
		UpdatedAt:     rowTime(row, ColUpdatedAt),
	}
}

func decodeSnapshot(row Row) ClosingSnapshot {
	return ClosingSnapshot{
		ID:         EventID(rowString(row, ColID)),
		DepotID:    DepotID(rowString(row, ColDepotID)),
		CategoryID: CategoryID(rowString(row, ColCategoryID)),
		Date:       rowDate(row, ColDate),
		Quantity:   rowInt(row, ColQuantity),
		CreatedAt:  rowTime(row, ColCreatedAt),
		UpdatedAt:  rowTime(row, ColUpdatedAt),
	}
}

func decodeMovement(d Direction, row Row) MovementEvent {
	return MovementEvent{
		ID:              EventID(rowString(row, ColID)),
		Direction:       d,
		DepotID:         DepotID(rowString(row, ColDepotID)),
		CategoryID:      CategoryID(rowString(row, ColCategoryID)),
		Date:            rowDate(row, ColDate),
		Quantity:        rowInt(row, ColQuantity),
		Reason:          rowString(row, ColReason),
		DestinationInfo: rowString(row, ColDestinationInfo),
		Notes:           rowString(row, ColNotes),
		CreatedAt:       rowTime(row, ColCreatedAt),
	}
}

func decodeTransfer(row Row) TransferEvent {
	return TransferEvent{
		ID:          EventID(rowString(row, ColID)),
		FromDepotID: DepotID(rowString(row, ColFromDepotID)),
		ToDepotID:   DepotID(rowString(row, ColToDepotID)),
		CategoryID:  CategoryID(rowString(row, ColCategoryID)),
		Date:        rowDate(row, ColDate),
		Quantity:    rowInt(row, ColQuantity),
		Reason:      rowString(row, ColReason),
		Notes:       rowString(row, ColNotes),
		CreatedAt:   rowTime(row, ColCreatedAt),
	}
}

func decodeLedgerEntry(row Row) LedgerEntry {
	return LedgerEntry{
		ID:             EventID(rowString(row, ColID)),
		CustomerID:     CustomerID(rowString(row, ColCustomerID)),
		DepotID:        DepotID(rowString(row, ColDepotID)),
		CategoryID:     CategoryID(rowString(row, ColCategoryID)),
		Date:           rowDate(row, ColDate),
		Type:           EntryType(rowString(row, ColEntryType)),
		Quantity:       rowInt(row, ColQuantity),
		RunningBalance: rowInt(row, ColRunningBalance),
		Reason:         rowString(row, ColReason),
		Notes:          rowString(row, ColNotes),
		CreatedAt:      rowTime(row, ColCreatedAt),
		CreatedBy:      rowString(row, ColCreatedBy),
	}
}

// optional maps "" to nil so the store assigns a value.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func formatTime(t time.Time) string { return t.UTC().Format(TimestampLayout) }

func rowString(row Row, col string) string {
	switch v := row[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func rowInt(row Row, col string) int {
	switch v := row[col].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func rowBool(row Row, col string) bool {
	switch v := row[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

func rowDate(row Row, col string) Date {
	d, err := ParseDate(rowString(row, col))
	if err != nil {
		return Date{}
	}
	return d
}

func rowTime(row Row, col string) time.Time {
	t, _ := time.Parse(TimestampLayout, rowString(row, col))
	return t
}
