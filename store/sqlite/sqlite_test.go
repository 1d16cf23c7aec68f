package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crate-ledger/depot"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_FindPushesDownFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, r := range []depot.Row{
		{depot.ColDepotID: "a", depot.ColCategoryID: "crate", depot.ColDate: "2025-01-01", depot.ColQuantity: int64(1)},
		{depot.ColDepotID: "a", depot.ColCategoryID: "crate", depot.ColDate: "2025-01-02", depot.ColQuantity: int64(2)},
		{depot.ColDepotID: "a", depot.ColCategoryID: "crate", depot.ColDate: "2025-01-03", depot.ColQuantity: int64(3)},
		{depot.ColDepotID: "b", depot.ColCategoryID: "crate", depot.ColDate: "2025-01-02", depot.ColQuantity: int64(9)},
	} {
		_, err := s.Insert(ctx, depot.TableIncoming, r)
		require.NoError(t, err)
	}

	rows, err := s.Find(ctx, depot.From(depot.TableIncoming).
		Eq(depot.ColDepotID, "a").
		Gt(depot.ColDate, "2025-01-01").
		Lte(depot.ColDate, "2025-01-03").
		Desc(depot.ColDate).
		Take(5))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0][depot.ColQuantity])
	assert.Equal(t, "2025-01-03", rows[0][depot.ColDate])
	assert.Equal(t, int64(2), rows[1][depot.ColQuantity])

	rows, err = s.Find(ctx, depot.From(depot.TableIncoming).Gte(depot.ColDate, "2025-01-02").Take(1))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStore_UpsertSnapshotLaterWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	snap := func(qty int64) depot.Row {
		return depot.Row{
			depot.ColDepotID:    "a",
			depot.ColCategoryID: "crate",
			depot.ColDate:       "2025-01-01",
			depot.ColQuantity:   qty,
		}
	}

	first, err := s.Upsert(ctx, depot.TableClosingSnapshot, snap(10), depot.SnapshotConflictKeys)
	require.NoError(t, err)
	second, err := s.Upsert(ctx, depot.TableClosingSnapshot, snap(25), depot.SnapshotConflictKeys)
	require.NoError(t, err)

	assert.Equal(t, first[depot.ColID], second[depot.ColID])
	assert.Equal(t, int64(25), second[depot.ColQuantity])

	rows, err := s.Find(ctx, depot.From(depot.TableClosingSnapshot))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStore_ConstraintsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Insert(ctx, depot.TableTransfer, depot.Row{
		depot.ColFromDepotID: "a", depot.ColToDepotID: "a",
		depot.ColCategoryID: "crate", depot.ColDate: "2025-01-01", depot.ColQuantity: int64(1),
	})
	require.Error(t, err)
	assert.True(t, IsConstraintError(err))

	row, err := s.Insert(ctx, depot.TableOutgoing, depot.Row{
		depot.ColDepotID: "a", depot.ColCategoryID: "crate", depot.ColDate: "2025-01-01", depot.ColQuantity: int64(1),
	})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, depot.TableOutgoing, row[depot.ColID].(string)))
	assert.ErrorIs(t, s.Delete(ctx, depot.TableOutgoing, row[depot.ColID].(string)), depot.ErrNotFound)
}

func TestStore_RejectsUnknownColumns(t *testing.T) {
	s := newStore(t)
	_, err := s.Find(context.Background(), depot.From(depot.TableIncoming).Eq("1=1; DROP TABLE depot; --", "x"))
	assert.ErrorIs(t, err, depot.ErrUnknownColumn)

	_, err = s.Find(context.Background(), depot.From("sqlite_master"))
	assert.ErrorIs(t, err, depot.ErrUnknownTable)
}

// The engine over SQLite reproduces the reconstruction rules end to end.
func TestStore_EngineScenarios(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	d1 := depot.NewDate(2025, 3, 1)
	engine := depot.NewEngine(s, depot.Options{Clock: depot.FixedClock{Day: d1.AddDays(2)}})

	_, err := engine.Repo.CreateDepot(ctx, depot.Depot{ID: "depot-a", Name: "A"})
	require.NoError(t, err)

	// GIVEN: +100 on day 1, -30 on day 2, no snapshot
	_, err = engine.Movements.RecordMovement(ctx, depot.MovementEvent{
		Direction: depot.Incoming, DepotID: "depot-a", CategoryID: "crate", Date: d1, Quantity: 100,
	})
	require.NoError(t, err)
	_, err = engine.Movements.RecordMovement(ctx, depot.MovementEvent{
		Direction: depot.Outgoing, DepotID: "depot-a", CategoryID: "crate", Date: d1.AddDays(1), Quantity: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, 70, engine.Balances.Balance(ctx, "depot-a", "crate", d1.AddDays(1)))
	assert.Equal(t, 100, engine.Balances.Balance(ctx, "depot-a", "crate", d1))
	assert.Equal(t, 0, engine.Balances.Balance(ctx, "depot-a", "crate", d1.AddDays(-1)))

	// WHEN: day 2 closes at 60 and 80 more leave on day 3
	_, err = engine.Closings.Save(ctx, "depot-a", d1.AddDays(1), []depot.ClosingLine{{CategoryID: "crate", Quantity: 60}})
	require.NoError(t, err)
	_, err = engine.Movements.RecordMovement(ctx, depot.MovementEvent{
		Direction: depot.Outgoing, DepotID: "depot-a", CategoryID: "crate", Date: d1.AddDays(2), Quantity: 80,
	})
	require.NoError(t, err)

	// THEN: clamped from the new baseline
	res, err := engine.Balances.BalanceAt(ctx, "depot-a", "crate", d1.AddDays(2))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Balance)
	assert.Equal(t, -20, res.Raw)
	assert.Equal(t, 60, res.Baseline.Quantity)
}

func TestStore_CustomerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	d1 := depot.NewDate(2025, 3, 1)
	engine := depot.NewEngine(s, depot.Options{Clock: depot.FixedClock{Day: d1.AddDays(2)}})

	c, err := engine.Repo.CreateCustomer(ctx, depot.Customer{ID: "c1", DepotID: "depot-a", Name: "Grocer", LedgerEnabled: true})
	require.NoError(t, err)
	assert.True(t, c.LedgerEnabled)
	assert.True(t, c.IsActive())

	_, err = engine.Customers.Record(ctx, depot.LedgerEntry{CustomerID: "c1", CategoryID: "crate", Type: depot.EntryDeposit, Date: d1, Quantity: 20})
	require.NoError(t, err)
	_, err = engine.Customers.Record(ctx, depot.LedgerEntry{CustomerID: "c1", CategoryID: "crate", Type: depot.EntryWithdrawal, Date: d1.AddDays(1), Quantity: 5})
	require.NoError(t, err)

	check, err := engine.Customers.ValidateWithdrawal(ctx, "c1", "crate", 20)
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, 15, check.CurrentBalance)

	got, err := engine.Repo.SetCustomerStatus(ctx, "c1", depot.CustomerInactive)
	require.NoError(t, err)
	assert.False(t, got.IsActive())
	assert.True(t, got.LedgerEnabled)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.Insert(ctx, depot.TableDepot, depot.Row{depot.ColName: "A"})
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	rows, err := s.Find(ctx, depot.From(depot.TableDepot))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
