package depot

import (
	"context"

	"go.uber.org/zap"
)

// =============================================================================
// SNAPSHOT LOCATOR - Latest closing on or before a date
// =============================================================================

// Baseline is the starting point of a reconstruction.
type Baseline struct {
	Date     Date
	Quantity int

	// Found is false for the virtual zero baseline.
	Found bool
}

// ZeroBaseline is used when no snapshot exists. Its date precedes every
// event, so every event is included in the delta sum.
func ZeroBaseline() Baseline {
	return Baseline{Date: EpochSentinel}
}

type SnapshotLocator struct {
	Repo *Repository
}

// Locate returns the snapshot with the greatest date <= target for the
// depot and category. Uniqueness on (depot, category, date) makes the
// result deterministic.
func (l *SnapshotLocator) Locate(ctx context.Context, depotID DepotID, categoryID CategoryID, target Date) (Baseline, error) {
	rows, err := l.Repo.Store.Find(ctx, From(TableClosingSnapshot).
		Eq(ColDepotID, string(depotID)).
		Eq(ColCategoryID, string(categoryID)).
		Lte(ColDate, target.String()).
		Desc(ColDate).
		Take(1))
	if err != nil {
		return ZeroBaseline(), &ReadError{Table: TableClosingSnapshot, Err: err}
	}
	if len(rows) == 0 {
		return ZeroBaseline(), nil
	}
	s := decodeSnapshot(rows[0])
	return Baseline{Date: s.Date, Quantity: s.Quantity, Found: true}, nil
}

func depotFields(depotID DepotID, categoryID CategoryID, at Date) []zap.Field {
	return []zap.Field{
		zap.String("depot_id", string(depotID)),
		zap.String("category_id", string(categoryID)),
		zap.Stringer("as_of", at),
	}
}
