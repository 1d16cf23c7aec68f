/*
report.go - Period reports and the depot dashboard

PERIOD REPORT:
  For each category over [from, to]:
    opening = balance as of (from - 1 day)
    in/out/transfers = movements dated in [from, to]
    closing = max(0, opening + in - out + transferIn - transferOut)
  A totals row sums every column.

DASHBOARD:
  Current balance per category with its share of the depot total, the
  count of categories under the low-stock threshold, today's activity and
  whether a closing was taken today.
*/
package depot

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// DATE RANGES
// =============================================================================

type RangePreset string

const (
	RangeToday      RangePreset = "today"
	RangeLast7Days  RangePreset = "last7days"
	RangeLast30Days RangePreset = "last30days"
	RangeCustom     RangePreset = "custom"
)

// ResolveRange turns a preset into inclusive bounds. Custom ranges require
// from and to with from <= to.
func ResolveRange(preset RangePreset, today Date, from, to *Date) (Date, Date, error) {
	switch preset {
	case RangeToday, "":
		return today, today, nil
	case RangeLast7Days:
		return today.AddDays(-6), today, nil
	case RangeLast30Days:
		return today.AddDays(-29), today, nil
	case RangeCustom:
		if from == nil || to == nil {
			return Date{}, Date{}, fmt.Errorf("custom range needs from and to: %w", ErrMissingReference)
		}
		if to.Before(*from) {
			return Date{}, Date{}, fmt.Errorf("custom range %s..%s: %w", *from, *to, ErrInvalidRange)
		}
		return *from, *to, nil
	default:
		return Date{}, Date{}, fmt.Errorf("range preset %q: %w", preset, ErrInvalidRange)
	}
}

// =============================================================================
// PERIOD REPORT
// =============================================================================

type ReportRow struct {
	CategoryID   CategoryID
	CategoryName string
	Opening      int
	Incoming     int
	Outgoing     int
	TransferIn   int
	TransferOut  int
	Closing      int
}

type PeriodReport struct {
	Depot    Depot
	From     Date
	To       Date
	Rows     []ReportRow
	Totals   ReportRow
	Degraded bool
}

// Reporter assembles reports and dashboards from the other components.
type Reporter struct {
	Balances *BalanceCalculator
	Activity *ActivityAggregator
	Closings *ClosingManager
	opts     Options
}

func NewReporter(balances *BalanceCalculator, activity *ActivityAggregator, closings *ClosingManager, opts Options) *Reporter {
	return &Reporter{Balances: balances, Activity: activity, Closings: closings, opts: opts.withDefaults()}
}

// Period builds the report of depot over [from, to], one row per category
// in the given order. Categories are computed concurrently.
func (r *Reporter) Period(ctx context.Context, depot Depot, categories []CrateCategory, from, to Date) (PeriodReport, error) {
	if to.Before(from) {
		return PeriodReport{}, fmt.Errorf("report %s..%s: %w", from, to, ErrInvalidRange)
	}

	rows := make([]ReportRow, len(categories))
	degraded := make([]bool, len(categories))
	g, ctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		i, cat := i, cat
		g.Go(func() error {
			var (
				opening Result
				moves   Activity
			)
			inner, ictx := errgroup.WithContext(ctx)
			inner.Go(func() error {
				var err error
				opening, err = r.Balances.BalanceAt(ictx, depot.ID, cat.ID, from.AddDays(-1))
				return err
			})
			inner.Go(func() error {
				var err error
				moves, err = r.Activity.Between(ictx, depot.ID, cat.ID, from, to)
				return err
			})
			if err := inner.Wait(); err != nil {
				return err
			}

			comp := Compose(opening.Balance, moves.Deltas)
			rows[i] = ReportRow{
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				Opening:      opening.Balance,
				Incoming:     moves.Incoming,
				Outgoing:     moves.Outgoing,
				TransferIn:   moves.TransferIn,
				TransferOut:  moves.TransferOut,
				Closing:      comp.Balance,
			}
			degraded[i] = opening.Degraded || moves.Degraded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PeriodReport{}, err
	}

	report := PeriodReport{Depot: depot, From: from, To: to, Rows: rows}
	report.Totals.CategoryName = "Total"
	for i, row := range rows {
		report.Totals.Opening += row.Opening
		report.Totals.Incoming += row.Incoming
		report.Totals.Outgoing += row.Outgoing
		report.Totals.TransferIn += row.TransferIn
		report.Totals.TransferOut += row.TransferOut
		report.Totals.Closing += row.Closing
		report.Degraded = report.Degraded || degraded[i]
	}
	return report, nil
}

// WriteCSV renders the report: a title block, the header, one line per
// category, a blank line and the totals.
func (p PeriodReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{"CrateFlow Pro Report"},
		{"Depot: " + depotLabel(p.Depot)},
		{fmt.Sprintf("Period: %s to %s", p.From, p.To)},
		{},
		{"Crate Type", "Opening", "Incoming", "Outgoing", "Trans In", "Trans Out", "Closing"},
	}
	for _, row := range p.Rows {
		records = append(records, reportRecord(row))
	}
	records = append(records, []string{}, reportRecord(p.Totals))

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write report csv: %w", err)
	}
	return nil
}

// CSVFilename is the download name of the report.
func (p PeriodReport) CSVFilename() string {
	return fmt.Sprintf("report-%s-to-%s.csv", p.From, p.To)
}

func reportRecord(row ReportRow) []string {
	return []string{
		row.CategoryName,
		strconv.Itoa(row.Opening),
		strconv.Itoa(row.Incoming),
		strconv.Itoa(row.Outgoing),
		strconv.Itoa(row.TransferIn),
		strconv.Itoa(row.TransferOut),
		strconv.Itoa(row.Closing),
	}
}

func depotLabel(d Depot) string {
	if d.Name != "" {
		return d.Name
	}
	if d.ID != "" {
		return string(d.ID)
	}
	return "All"
}

// =============================================================================
// DASHBOARD
// =============================================================================

type CategoryBalance struct {
	CategoryID   CategoryID
	CategoryName string
	Quantity     int
	Raw          int

	// Share is the percentage of the depot total, two decimal places.
	Share    decimal.Decimal
	LowStock bool
}

type Dashboard struct {
	DepotID         DepotID
	AsOf            Date
	Balances        []CategoryBalance
	TotalCrates     int
	LowStockCount   int
	Today           Activity
	HasClosingToday bool
	Degraded        bool
}

var hundred = decimal.NewFromInt(100)

// Dashboard summarises a depot as of today.
func (r *Reporter) Dashboard(ctx context.Context, depotID DepotID, categories []CrateCategory) (Dashboard, error) {
	today := r.opts.Clock.Today()
	ids := CategoryIDs(categories)

	var (
		results         []Result
		activity        Activity
		hasClosing      bool
		closingDegraded bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = r.Balances.DepotBalances(gctx, depotID, ids, today)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = r.Activity.On(gctx, depotID, today)
		return err
	})
	g.Go(func() error {
		ok, err := r.Closings.HasClosing(gctx, depotID, today)
		if err != nil {
			closingDegraded = true
			return r.opts.degrade(err, "closing check failed", depotFields(depotID, "", today)...)
		}
		hasClosing = ok
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	dash := Dashboard{
		DepotID:         depotID,
		AsOf:            today,
		Balances:        make([]CategoryBalance, len(results)),
		Today:           activity,
		HasClosingToday: hasClosing,
		Degraded:        activity.Degraded || closingDegraded,
	}
	for i, res := range results {
		dash.TotalCrates += res.Balance
		dash.Degraded = dash.Degraded || res.Degraded
		low := res.Balance < r.opts.LowStockThreshold
		if low {
			dash.LowStockCount++
		}
		dash.Balances[i] = CategoryBalance{
			CategoryID:   res.CategoryID,
			CategoryName: categories[i].Name,
			Quantity:     res.Balance,
			Raw:          res.Raw,
			LowStock:     low,
		}
	}
	for i := range dash.Balances {
		dash.Balances[i].Share = share(dash.Balances[i].Quantity, dash.TotalCrates)
	}
	return dash, nil
}

func share(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}
