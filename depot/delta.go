package depot

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// DELTAS - Movement totals per direction
// =============================================================================

// Deltas holds the four independent movement sums of a depot.
type Deltas struct {
	Incoming    int
	Outgoing    int
	TransferIn  int
	TransferOut int
}

// Net is the signed effect of the deltas on a depot balance.
func (d Deltas) Net() int {
	return d.Incoming - d.Outgoing + d.TransferIn - d.TransferOut
}

func (d Deltas) Add(o Deltas) Deltas {
	return Deltas{
		Incoming:    d.Incoming + o.Incoming,
		Outgoing:    d.Outgoing + o.Outgoing,
		TransferIn:  d.TransferIn + o.TransferIn,
		TransferOut: d.TransferOut + o.TransferOut,
	}
}

// =============================================================================
// DELTA ACCUMULATOR
// =============================================================================

// DeltaAccumulator sums the movements of one depot over a date window.
// The four reads run concurrently; a failed read leaves its sum at zero
// and is reported through the returned error.
type DeltaAccumulator struct {
	Repo *Repository
}

// Accumulate sums events dated in (after, upTo]. The exclusive lower bound
// keeps a snapshot's own day from being counted twice.
func (a *DeltaAccumulator) Accumulate(ctx context.Context, depotID DepotID, categoryID CategoryID, after, upTo Date) (Deltas, error) {
	return a.sum(ctx, depotID, categoryID, func(q Query) Query {
		return q.Gt(ColDate, after.String()).Lte(ColDate, upTo.String())
	})
}

// Between sums events dated in [from, to]. An empty categoryID covers
// every category.
func (a *DeltaAccumulator) Between(ctx context.Context, depotID DepotID, categoryID CategoryID, from, to Date) (Deltas, error) {
	return a.sum(ctx, depotID, categoryID, func(q Query) Query {
		return q.Gte(ColDate, from.String()).Lte(ColDate, to.String())
	})
}

// On sums events dated exactly day.
func (a *DeltaAccumulator) On(ctx context.Context, depotID DepotID, categoryID CategoryID, day Date) (Deltas, error) {
	return a.sum(ctx, depotID, categoryID, func(q Query) Query {
		return q.Eq(ColDate, day.String())
	})
}

func (a *DeltaAccumulator) sum(ctx context.Context, depotID DepotID, categoryID CategoryID, window func(Query) Query) (Deltas, error) {
	var out Deltas
	sources := []struct {
		query Query
		total *int
	}{
		{From(TableIncoming).Eq(ColDepotID, string(depotID)), &out.Incoming},
		{From(TableOutgoing).Eq(ColDepotID, string(depotID)), &out.Outgoing},
		{From(TableTransfer).Eq(ColToDepotID, string(depotID)), &out.TransferIn},
		{From(TableTransfer).Eq(ColFromDepotID, string(depotID)), &out.TransferOut},
	}

	var g errgroup.Group
	for _, src := range sources {
		q := window(src.query)
		if categoryID != "" {
			q = q.Eq(ColCategoryID, string(categoryID))
		}
		total := src.total
		g.Go(func() error {
			n, err := a.quantity(ctx, q)
			if err != nil {
				return &ReadError{Table: q.Table, Err: err}
			}
			*total = n
			return nil
		})
	}
	err := g.Wait()
	return out, err
}

func (a *DeltaAccumulator) quantity(ctx context.Context, q Query) (int, error) {
	rows, err := a.Repo.Store.Find(ctx, q)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, row := range rows {
		total += rowInt(row, ColQuantity)
	}
	return total, nil
}
