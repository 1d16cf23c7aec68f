package depot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrDegradedBalance is returned when a closing would be taken from a
// balance computed over a failed read.
var ErrDegradedBalance = errors.New("balance computed from degraded reads")

// =============================================================================
// DAILY CLOSING - Upsert of authoritative snapshots
// =============================================================================

// ClosingLine is one category of a daily closing.
type ClosingLine struct {
	CategoryID CategoryID
	Quantity   int
}

// ClosingManager runs the daily-closing workflow. Saving the same date
// twice replaces the earlier quantities.
type ClosingManager struct {
	Repo     *Repository
	Balances *BalanceCalculator
	opts     Options
}

func NewClosingManager(repo *Repository, balances *BalanceCalculator, opts Options) *ClosingManager {
	return &ClosingManager{Repo: repo, Balances: balances, opts: opts.withDefaults()}
}

// Save upserts one snapshot per line. Negative counts are floored to zero,
// matching what the closing form accepts.
func (m *ClosingManager) Save(ctx context.Context, depotID DepotID, day Date, lines []ClosingLine) ([]ClosingSnapshot, error) {
	if depotID == "" {
		return nil, fmt.Errorf("closing: %w", ErrMissingReference)
	}
	saved := make([]ClosingSnapshot, 0, len(lines))
	for _, line := range lines {
		if line.CategoryID == "" {
			return saved, fmt.Errorf("closing line: %w", ErrMissingReference)
		}
		s, err := m.Repo.UpsertSnapshot(ctx, ClosingSnapshot{
			DepotID:    depotID,
			CategoryID: line.CategoryID,
			Date:       day,
			Quantity:   max(0, line.Quantity),
		})
		if err != nil {
			return saved, err
		}
		saved = append(saved, s)
	}
	m.opts.Logger.Info("daily closing saved",
		zap.String("depot_id", string(depotID)),
		zap.Stringer("date", day),
		zap.Int("lines", len(saved)))
	return saved, nil
}

// For returns the closing of a day, one line per category (zero when the
// category has no snapshot), and whether any snapshot exists.
func (m *ClosingManager) For(ctx context.Context, depotID DepotID, day Date, categories []CategoryID) ([]ClosingLine, bool, error) {
	snapshots, err := m.Repo.SnapshotsOn(ctx, depotID, day)
	if err != nil {
		return nil, false, err
	}
	byCategory := make(map[CategoryID]int, len(snapshots))
	for _, s := range snapshots {
		byCategory[s.CategoryID] = s.Quantity
	}
	lines := make([]ClosingLine, len(categories))
	for i, cat := range categories {
		lines[i] = ClosingLine{CategoryID: cat, Quantity: byCategory[cat]}
	}
	return lines, len(snapshots) > 0, nil
}

// HasClosing reports whether any snapshot exists for the depot on day.
func (m *ClosingManager) HasClosing(ctx context.Context, depotID DepotID, day Date) (bool, error) {
	rows, err := m.Repo.Store.Find(ctx, From(TableClosingSnapshot).
		Eq(ColDepotID, string(depotID)).
		Eq(ColDate, day.String()).
		Take(1))
	if err != nil {
		return false, &ReadError{Table: TableClosingSnapshot, Err: err}
	}
	return len(rows) > 0, nil
}

// CloseFromLedger snapshots the reconstructed balance of every category as
// the closing of day. Degraded balances are never persisted.
func (m *ClosingManager) CloseFromLedger(ctx context.Context, depotID DepotID, day Date, categories []CategoryID) ([]ClosingSnapshot, error) {
	results, err := m.Balances.DepotBalances(ctx, depotID, categories, day)
	if err != nil {
		return nil, err
	}
	lines := make([]ClosingLine, len(results))
	for i, res := range results {
		if res.Degraded {
			return nil, fmt.Errorf("close %s/%s on %s: %w", depotID, res.CategoryID, day, ErrDegradedBalance)
		}
		lines[i] = ClosingLine{CategoryID: res.CategoryID, Quantity: res.Balance}
	}
	return m.Save(ctx, depotID, day, lines)
}
