/*
balance.go - Point-in-time depot balance

PURPOSE:
  Answers "how many crates of category C were at depot D on date T?"

ALGORITHM:
  1. Locate the latest closing snapshot dated <= T (or the zero baseline)
  2. Sum movements dated in (snapshot date, T], four reads in parallel
  3. Compose: max(0, snapshot + in - out + transferIn - transferOut)

CLAMPING:
  Negative raw results are floored to zero. The raw value stays on the
  Result (and a warning plus a metric are emitted) so data-entry errors
  and overdrafts remain visible.

READ FAILURES:
  By default a failed read contributes zero and marks the Result as
  Degraded. With Options.Strict the error is returned instead.

SEE ALSO:
  - snapshot.go: Baseline lookup
  - delta.go:    Movement sums
  - report.go:   Consumers of BalanceAt
*/
package depot

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// COMPOSER - Pure fold of baseline and deltas
// =============================================================================

type Composition struct {
	Raw     int
	Balance int
}

// Compose folds a snapshot quantity and movement deltas into a balance.
func Compose(snapshotQuantity int, d Deltas) Composition {
	raw := snapshotQuantity + d.Net()
	return Composition{Raw: raw, Balance: max(0, raw)}
}

// =============================================================================
// RESULT
// =============================================================================

// Result is a reconstructed depot balance with its inputs.
type Result struct {
	DepotID    DepotID
	CategoryID CategoryID
	AsOf       Date
	Baseline   Baseline
	Deltas     Deltas

	// Raw is the unclamped value; Balance = max(0, Raw).
	Raw     int
	Balance int

	// Degraded is set when a store read failed and was counted as zero.
	Degraded bool
}

// Clamped reports whether the raw value was negative.
func (r Result) Clamped() bool { return r.Raw < 0 }

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

type BalanceCalculator struct {
	Snapshots *SnapshotLocator
	Deltas    *DeltaAccumulator
	opts      Options
}

func NewBalanceCalculator(repo *Repository, opts Options) *BalanceCalculator {
	return &BalanceCalculator{
		Snapshots: &SnapshotLocator{Repo: repo},
		Deltas:    &DeltaAccumulator{Repo: repo},
		opts:      opts.withDefaults(),
	}
}

// BalanceAt reconstructs the balance of (depot, category) as of asOf.
// Calling it twice over the same stored data yields the same Result.
func (c *BalanceCalculator) BalanceAt(ctx context.Context, depotID DepotID, categoryID CategoryID, asOf Date) (Result, error) {
	defer c.opts.Metrics.observe(kindDepot, time.Now())

	res := Result{DepotID: depotID, CategoryID: categoryID, AsOf: asOf}
	fields := depotFields(depotID, categoryID, asOf)

	baseline, err := c.Snapshots.Locate(ctx, depotID, categoryID, asOf)
	if err != nil {
		if err := c.opts.degrade(err, "snapshot lookup failed, using zero baseline", fields...); err != nil {
			return Result{}, err
		}
		res.Degraded = true
		baseline = ZeroBaseline()
	}
	res.Baseline = baseline

	deltas, err := c.Deltas.Accumulate(ctx, depotID, categoryID, baseline.Date, asOf)
	if err != nil {
		if err := c.opts.degrade(err, "movement read failed, counted as zero", fields...); err != nil {
			return Result{}, err
		}
		res.Degraded = true
	}
	res.Deltas = deltas

	comp := Compose(baseline.Quantity, deltas)
	res.Raw, res.Balance = comp.Raw, comp.Balance
	if res.Clamped() {
		c.opts.Metrics.clampedBalance(kindDepot)
		c.opts.Logger.Warn("negative depot balance clamped to zero",
			append(fields, zap.Int("raw", comp.Raw))...)
	}
	return res, nil
}

// Balance is BalanceAt reduced to its number. Any failure yields 0.
func (c *BalanceCalculator) Balance(ctx context.Context, depotID DepotID, categoryID CategoryID, asOf Date) int {
	res, err := c.BalanceAt(ctx, depotID, categoryID, asOf)
	if err != nil {
		return 0
	}
	return res.Balance
}

// Current is BalanceAt for today.
func (c *BalanceCalculator) Current(ctx context.Context, depotID DepotID, categoryID CategoryID) (Result, error) {
	return c.BalanceAt(ctx, depotID, categoryID, c.opts.Clock.Today())
}

// DepotBalances computes one Result per category concurrently. Results
// keep the order of categories.
func (c *BalanceCalculator) DepotBalances(ctx context.Context, depotID DepotID, categories []CategoryID, asOf Date) ([]Result, error) {
	results := make([]Result, len(categories))
	g, ctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		i, cat := i, cat
		g.Go(func() error {
			res, err := c.BalanceAt(ctx, depotID, cat, asOf)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
