/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with realistic depot
  data. Each scenario creates depots, crate categories, closings, movements
  and customer ledgers demonstrating one aspect of balance reconstruction.

AVAILABLE SCENARIOS:
  single-depot:    One depot, movements with and without a closing
  transfers:       Two depots exchanging crates
  customer-ledger: Ledger-enabled customer with deposits and withdrawals
  low-stock:       Dashboard with categories under the low-stock threshold

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create depots and crate categories
 3. Record closings and movements relative to today
 4. Optionally record customer ledger entries

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "transfers"}

NOTE:
  Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and error helpers
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/crate-ledger/depot"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-depot",
		Name:        "Single Depot",
		Description: "Incoming and outgoing crates, then a closing that resets the baseline",
	},
	{
		ID:          "transfers",
		Name:        "Depot Transfers",
		Description: "Two depots moving crates between each other",
	},
	{
		ID:          "customer-ledger",
		Name:        "Customer Ledger",
		Description: "Crates lent to and returned by a customer",
	},
	{
		ID:          "low-stock",
		Name:        "Low Stock",
		Description: "Dashboard with categories below the low-stock threshold",
	},
}

var scenarioLoaders = map[string]func(*Handler, context.Context) error{
	"single-depot":    (*Handler).loadSingleDepotScenario,
	"transfers":       (*Handler).loadTransfersScenario,
	"customer-ledger": (*Handler).loadCustomerLedgerScenario,
	"low-stock":       (*Handler).loadLowStockScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if h.Resetter == nil {
		writeError(w, http.StatusForbidden, "Store reset is not available", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := load(h, ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every table.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if h.Resetter == nil {
		writeError(w, http.StatusForbidden, "Store reset is not available", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Resetter.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// Shared reference data for every scenario.
const (
	demoDepotNorth depot.DepotID    = "depot-north"
	demoDepotSouth depot.DepotID    = "depot-south"
	demoSmall      depot.CategoryID = "crate-small"
	demoLarge      depot.CategoryID = "crate-large"
	demoPallet     depot.CategoryID = "pallet-box"
)

func (h *Handler) seedReferenceData(ctx context.Context) error {
	repo := h.Engine.Repo
	for _, d := range []depot.Depot{
		{ID: demoDepotNorth, Name: "North Depot"},
		{ID: demoDepotSouth, Name: "South Depot"},
	} {
		if _, err := repo.CreateDepot(ctx, d); err != nil {
			return err
		}
	}
	for _, c := range []depot.CrateCategory{
		{ID: demoSmall, Name: "Small Crate", SortOrder: 1},
		{ID: demoLarge, Name: "Large Crate", SortOrder: 2},
		{ID: demoPallet, Name: "Pallet Box", SortOrder: 3},
	} {
		if _, err := repo.CreateCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// movement is a compact form for scenario data. day is relative to today.
type movement struct {
	dir      depot.Direction
	depot    depot.DepotID
	category depot.CategoryID
	day      int
	quantity int
	reason   string
}

func (h *Handler) recordMovements(ctx context.Context, ms []movement) error {
	today := h.Engine.Clock.Today()
	for _, m := range ms {
		_, err := h.Engine.Movements.RecordMovement(ctx, depot.MovementEvent{
			Direction:  m.dir,
			DepotID:    m.depot,
			CategoryID: m.category,
			Date:       today.AddDays(m.day),
			Quantity:   m.quantity,
			Reason:     m.reason,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// loadSingleDepotScenario: 100 small crates arrive, 30 leave, then a
// closing of 65 (a miscount) becomes the new baseline.
func (h *Handler) loadSingleDepotScenario(ctx context.Context) error {
	if err := h.seedReferenceData(ctx); err != nil {
		return err
	}
	if err := h.recordMovements(ctx, []movement{
		{depot.Incoming, demoDepotNorth, demoSmall, -5, 100, "Supplier delivery"},
		{depot.Outgoing, demoDepotNorth, demoSmall, -4, 30, "Market run"},
		{depot.Incoming, demoDepotNorth, demoLarge, -4, 80, "Supplier delivery"},
		{depot.Outgoing, demoDepotNorth, demoLarge, -1, 15, "Market run"},
		{depot.Incoming, demoDepotNorth, demoSmall, 0, 12, "Returns"},
	}); err != nil {
		return err
	}

	today := h.Engine.Clock.Today()
	_, err := h.Engine.Closings.Save(ctx, demoDepotNorth, today.AddDays(-3), []depot.ClosingLine{
		{CategoryID: demoSmall, Quantity: 65},
		{CategoryID: demoLarge, Quantity: 80},
	})
	return err
}

// loadTransfersScenario: both depots are stocked, then exchange crates.
func (h *Handler) loadTransfersScenario(ctx context.Context) error {
	if err := h.seedReferenceData(ctx); err != nil {
		return err
	}
	if err := h.recordMovements(ctx, []movement{
		{depot.Incoming, demoDepotNorth, demoSmall, -10, 200, "Initial stock"},
		{depot.Incoming, demoDepotSouth, demoSmall, -10, 40, "Initial stock"},
		{depot.Incoming, demoDepotSouth, demoPallet, -10, 25, "Initial stock"},
	}); err != nil {
		return err
	}

	today := h.Engine.Clock.Today()
	for _, t := range []depot.TransferEvent{
		{FromDepotID: demoDepotNorth, ToDepotID: demoDepotSouth, CategoryID: demoSmall, Date: today.AddDays(-6), Quantity: 60, Reason: "Rebalance"},
		{FromDepotID: demoDepotSouth, ToDepotID: demoDepotNorth, CategoryID: demoPallet, Date: today.AddDays(-2), Quantity: 10, Reason: "Rebalance"},
		{FromDepotID: demoDepotNorth, ToDepotID: demoDepotSouth, CategoryID: demoSmall, Date: today, Quantity: 15, Reason: "Weekend demand"},
	} {
		if _, err := h.Engine.Movements.RecordTransfer(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// loadCustomerLedgerScenario: a grocer borrows 20 crates and returns 5.
func (h *Handler) loadCustomerLedgerScenario(ctx context.Context) error {
	if err := h.seedReferenceData(ctx); err != nil {
		return err
	}
	repo := h.Engine.Repo
	grocer, err := repo.CreateCustomer(ctx, depot.Customer{
		ID:            "cust-grocer",
		DepotID:       demoDepotNorth,
		Name:          "Corner Grocer",
		LedgerEnabled: true,
	})
	if err != nil {
		return err
	}
	if _, err := repo.CreateCustomer(ctx, depot.Customer{
		ID:      "cust-walkin",
		DepotID: demoDepotNorth,
		Name:    "Walk-in Buyer",
	}); err != nil {
		return err
	}

	today := h.Engine.Clock.Today()
	for _, e := range []depot.LedgerEntry{
		{CategoryID: demoSmall, Type: depot.EntryDeposit, Quantity: 20, Date: today.AddDays(-2), Reason: "Weekly order"},
		{CategoryID: demoSmall, Type: depot.EntryWithdrawal, Quantity: 5, Date: today.AddDays(-1), Reason: "Empties returned"},
		{CategoryID: demoLarge, Type: depot.EntryDeposit, Quantity: 8, Date: today.AddDays(-1), Reason: "Weekly order"},
	} {
		e.CustomerID = grocer.ID
		e.CreatedBy = "scenario"
		if _, err := h.Engine.Customers.Record(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// loadLowStockScenario: one healthy category and two under the threshold.
func (h *Handler) loadLowStockScenario(ctx context.Context) error {
	if err := h.seedReferenceData(ctx); err != nil {
		return err
	}
	today := h.Engine.Clock.Today()
	if _, err := h.Engine.Closings.Save(ctx, demoDepotNorth, today.AddDays(-1), []depot.ClosingLine{
		{CategoryID: demoSmall, Quantity: 300},
		{CategoryID: demoLarge, Quantity: 45},
		{CategoryID: demoPallet, Quantity: 10},
	}); err != nil {
		return err
	}
	return h.recordMovements(ctx, []movement{
		{depot.Outgoing, demoDepotNorth, demoPallet, 0, 25, "Oversold"},
		{depot.Incoming, demoDepotNorth, demoLarge, 0, 3, "Returns"},
	})
}
