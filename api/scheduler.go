/*
scheduler.go - Automated end-of-day closing scheduler

PURPOSE:
  Periodically closes the previous business day for every depot that has
  no closing yet, by snapshotting the reconstructed balances. Keeps the
  snapshot chain short so reconstruction reads stay bounded.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Targets yesterday: today is still open for movements
  - Skips depots that already have a closing for that day
  - Never snapshots a degraded balance (see depot.ErrDegradedBalance)

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: false)

USAGE:
  scheduler := NewClosingScheduler(engine, logger)
  scheduler.Enabled = true
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: AutoClose endpoint (manual closing)
  - depot/closing.go: ClosingManager
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/crate-ledger/depot"
)

// ClosingScheduler handles automated daily closings.
type ClosingScheduler struct {
	Engine        *depot.Engine
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// RunReport summarises one scheduler pass.
type RunReport struct {
	Day     depot.Date
	Closed  []depot.DepotID
	Skipped []depot.DepotID
	Failed  []depot.DepotID
}

// NewClosingScheduler creates a new, disabled scheduler.
func NewClosingScheduler(engine *depot.Engine, logger *zap.Logger) *ClosingScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosingScheduler{
		Engine:        engine,
		Logger:        logger,
		CheckInterval: time.Hour,
	}
}

// Start begins the scheduler.
func (cs *ClosingScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Logger.Info("closing scheduler disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.stop = make(chan struct{})
	cs.wg.Add(1)

	go cs.run()

	cs.Logger.Info("closing scheduler started", zap.Duration("interval", cs.CheckInterval))
}

// Stop halts the scheduler and waits for an in-flight pass.
func (cs *ClosingScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.Logger.Info("closing scheduler stopped")
	}
}

func (cs *ClosingScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.RunNow(context.Background())

	for {
		select {
		case <-cs.ticker.C:
			cs.RunNow(context.Background())
		case <-cs.stop:
			return
		}
	}
}

// RunNow closes yesterday for every depot missing a closing.
func (cs *ClosingScheduler) RunNow(ctx context.Context) RunReport {
	day := cs.Engine.Clock.Today().AddDays(-1)
	report := RunReport{Day: day}

	depots, err := cs.Engine.Repo.ListDepots(ctx)
	if err != nil {
		cs.Logger.Error("closing scheduler: list depots", zap.Error(err))
		return report
	}
	categories, err := cs.Engine.Repo.ListCategories(ctx)
	if err != nil {
		cs.Logger.Error("closing scheduler: list categories", zap.Error(err))
		return report
	}
	ids := depot.CategoryIDs(categories)

	for _, d := range depots {
		done, err := cs.Engine.Closings.HasClosing(ctx, d.ID, day)
		if err != nil {
			cs.Logger.Warn("closing scheduler: check closing", zap.String("depot_id", string(d.ID)), zap.Error(err))
			report.Failed = append(report.Failed, d.ID)
			continue
		}
		if done {
			report.Skipped = append(report.Skipped, d.ID)
			continue
		}
		if _, err := cs.Engine.Closings.CloseFromLedger(ctx, d.ID, day, ids); err != nil {
			cs.Logger.Warn("closing scheduler: close day", zap.String("depot_id", string(d.ID)), zap.Stringer("date", day), zap.Error(err))
			report.Failed = append(report.Failed, d.ID)
			continue
		}
		report.Closed = append(report.Closed, d.ID)
	}

	if len(report.Closed) > 0 || len(report.Failed) > 0 {
		cs.Logger.Info("closing scheduler pass",
			zap.Stringer("date", day),
			zap.Int("closed", len(report.Closed)),
			zap.Int("skipped", len(report.Skipped)),
			zap.Int("failed", len(report.Failed)))
	}
	return report
}
