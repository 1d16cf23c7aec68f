package depot_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/warp/crate-ledger/depot"
	"github.com/warp/crate-ledger/depot/store"
)

const (
	depotA depot.DepotID    = "depot-a"
	depotB depot.DepotID    = "depot-b"
	crates depot.CategoryID = "crate-std"
	boxes  depot.CategoryID = "box-large"
)

// day0 anchors every scenario; dayN is day0 + N.
var day0 = depot.NewDate(2025, 3, 1)

func day(n int) depot.Date { return day0.AddDays(n) }

var errBoom = errors.New("store unavailable")

// flakyStore fails Find on the configured tables, or on queries matched by
// failWhen, and delegates otherwise.
type flakyStore struct {
	depot.Store
	mu       sync.Mutex
	failOn   map[depot.Table]bool
	failWhen func(depot.Query) bool
}

func (f *flakyStore) failMatching(match func(depot.Query) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWhen = match
}

func (f *flakyStore) fail(tables ...depot.Table) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tables {
		f.failOn[t] = true
	}
}

func (f *flakyStore) Find(ctx context.Context, q depot.Query) ([]depot.Row, error) {
	f.mu.Lock()
	failing := f.failOn[q.Table] || (f.failWhen != nil && f.failWhen(q))
	f.mu.Unlock()
	if failing {
		return nil, errBoom
	}
	return f.Store.Find(ctx, q)
}

type fixture struct {
	engine  *depot.Engine
	store   *flakyStore
	metrics *depot.Metrics
	reg     *prometheus.Registry
}

// newFixture builds an engine over a memory store with today = day(today).
func newFixture(t *testing.T, today int, mutate ...func(*depot.Options)) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	fs := &flakyStore{Store: store.NewMemory(), failOn: map[depot.Table]bool{}}
	opts := depot.Options{
		Metrics: depot.NewMetrics(reg),
		Clock:   depot.FixedClock{Day: day(today)},
	}
	for _, m := range mutate {
		m(&opts)
	}
	return &fixture{engine: depot.NewEngine(fs, opts), store: fs, metrics: opts.Metrics, reg: reg}
}

func strict(o *depot.Options) { o.Strict = true }

func (f *fixture) in(t *testing.T, d depot.DepotID, cat depot.CategoryID, on depot.Date, qty int) {
	t.Helper()
	_, err := f.engine.Movements.RecordMovement(context.Background(), depot.MovementEvent{
		Direction: depot.Incoming, DepotID: d, CategoryID: cat, Date: on, Quantity: qty,
	})
	require.NoError(t, err)
}

func (f *fixture) out(t *testing.T, d depot.DepotID, cat depot.CategoryID, on depot.Date, qty int) {
	t.Helper()
	_, err := f.engine.Movements.RecordMovement(context.Background(), depot.MovementEvent{
		Direction: depot.Outgoing, DepotID: d, CategoryID: cat, Date: on, Quantity: qty,
	})
	require.NoError(t, err)
}

func (f *fixture) transfer(t *testing.T, from, to depot.DepotID, cat depot.CategoryID, on depot.Date, qty int) {
	t.Helper()
	_, err := f.engine.Movements.RecordTransfer(context.Background(), depot.TransferEvent{
		FromDepotID: from, ToDepotID: to, CategoryID: cat, Date: on, Quantity: qty,
	})
	require.NoError(t, err)
}

func (f *fixture) snapshot(t *testing.T, d depot.DepotID, cat depot.CategoryID, on depot.Date, qty int) {
	t.Helper()
	_, err := f.engine.Closings.Save(context.Background(), d, on, []depot.ClosingLine{{CategoryID: cat, Quantity: qty}})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, d depot.DepotID, cat depot.CategoryID, on depot.Date) depot.Result {
	t.Helper()
	res, err := f.engine.Balances.BalanceAt(context.Background(), d, cat, on)
	require.NoError(t, err)
	return res
}

func (f *fixture) customer(t *testing.T, c depot.Customer) depot.Customer {
	t.Helper()
	if c.DepotID == "" {
		c.DepotID = depotA
	}
	stored, err := f.engine.Repo.CreateCustomer(context.Background(), c)
	require.NoError(t, err)
	return stored
}

func (f *fixture) entry(t *testing.T, id depot.CustomerID, cat depot.CategoryID, typ depot.EntryType, on depot.Date, qty int) depot.LedgerEntry {
	t.Helper()
	e, err := f.engine.Customers.Record(context.Background(), depot.LedgerEntry{
		CustomerID: id, CategoryID: cat, Type: typ, Date: on, Quantity: qty,
	})
	require.NoError(t, err)
	return e
}
