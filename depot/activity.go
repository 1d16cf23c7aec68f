package depot

import (
	"context"

	"go.uber.org/zap"
)

// Activity is the movement total of a depot over a window, without
// any snapshot involved.
type Activity struct {
	Deltas
	Degraded bool
}

// ActivityAggregator produces the same-day and date-range totals shown on
// the dashboard and in reports.
type ActivityAggregator struct {
	Deltas *DeltaAccumulator
	opts   Options
}

func NewActivityAggregator(repo *Repository, opts Options) *ActivityAggregator {
	return &ActivityAggregator{Deltas: &DeltaAccumulator{Repo: repo}, opts: opts.withDefaults()}
}

// On returns the totals of every category at depotID dated day.
func (a *ActivityAggregator) On(ctx context.Context, depotID DepotID, day Date) (Activity, error) {
	d, err := a.Deltas.On(ctx, depotID, "", day)
	return a.finish(d, err, depotFields(depotID, "", day))
}

// Today returns the totals for the current business date.
func (a *ActivityAggregator) Today(ctx context.Context, depotID DepotID) (Activity, error) {
	return a.On(ctx, depotID, a.opts.Clock.Today())
}

// Between returns the totals dated in [from, to] for one category, or for
// every category when categoryID is empty.
func (a *ActivityAggregator) Between(ctx context.Context, depotID DepotID, categoryID CategoryID, from, to Date) (Activity, error) {
	d, err := a.Deltas.Between(ctx, depotID, categoryID, from, to)
	return a.finish(d, err, append(depotFields(depotID, categoryID, to), zap.Stringer("from", from)))
}

func (a *ActivityAggregator) finish(d Deltas, err error, fields []zap.Field) (Activity, error) {
	act := Activity{Deltas: d}
	if err != nil {
		if err := a.opts.degrade(err, "activity read failed, counted as zero", fields...); err != nil {
			return Activity{}, err
		}
		act.Degraded = true
	}
	return act, nil
}
