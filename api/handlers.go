/*
handlers.go - HTTP API handlers for the crate ledger

PURPOSE:
  Exposes the depot engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the depot package.

ENDPOINTS:
  Reference data:
    GET    /api/depots                          List depots
    POST   /api/depots                          Create depot
    GET    /api/depots/{depotID}                Get depot
    GET    /api/categories                      List crate categories
    POST   /api/categories                      Create crate category

  Stock:
    GET    /api/depots/{depotID}/balances                 All categories (?as_of=)
    GET    /api/depots/{depotID}/balances/{categoryID}    One category (?as_of=)
    GET    /api/depots/{depotID}/activity                 Day totals (?date=)
    GET    /api/depots/{depotID}/dashboard                Dashboard
    GET    /api/depots/{depotID}/report                   ?range=&from=&to=&format=csv

  Events:
    GET    /api/depots/{depotID}/movements/{direction}    Recent movements
    POST   /api/depots/{depotID}/movements/{direction}    Record movement
    DELETE /api/movements/{direction}/{id}                Delete movement
    GET    /api/depots/{depotID}/transfers                Transfers touching depot
    POST   /api/transfers                                 Record transfer
    DELETE /api/transfers/{id}                            Delete transfer

  Closings:
    GET    /api/depots/{depotID}/closings/{date}          Closing of a day
    PUT    /api/depots/{depotID}/closings/{date}          Save closing
    POST   /api/depots/{depotID}/closings/{date}/auto     Close from ledger

  Customers:
    GET    /api/depots/{depotID}/customers                ?status=
    POST   /api/depots/{depotID}/customers                Create customer
    GET    /api/customers/{customerID}                    Get customer
    PUT    /api/customers/{customerID}/status             Activate / deactivate
    GET    /api/customers/{customerID}/balances           Per category (?as_of=)
    GET    /api/customers/{customerID}/ledger/{categoryID} History
    POST   /api/customers/{customerID}/ledger             Record entry
    POST   /api/customers/{customerID}/withdrawals/validate

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call the depot engine
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Insufficient customer balance
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/crate-ledger/depot"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter wipes the backing store (scenarios only).
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine   *depot.Engine
	Logger   *zap.Logger
	Resetter Resetter

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over engine. resetter may be nil, in
// which case scenario loading is refused.
func NewHandler(engine *depot.Engine, resetter Resetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, Resetter: resetter, Logger: logger}
}

// =============================================================================
// DEPOT AND CATEGORY HANDLERS
// =============================================================================

func (h *Handler) ListDepots(w http.ResponseWriter, r *http.Request) {
	depots, err := h.Engine.Repo.ListDepots(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list depots", err)
		return
	}
	dtos := make([]DepotDTO, len(depots))
	for i, d := range depots {
		dtos[i] = toDepotDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetDepot(w http.ResponseWriter, r *http.Request) {
	d, err := h.Engine.Repo.GetDepot(r.Context(), depotParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get depot", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepotDTO(d))
}

func (h *Handler) CreateDepot(w http.ResponseWriter, r *http.Request) {
	var req CreateDepotRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	d, err := h.Engine.Repo.CreateDepot(r.Context(), depot.Depot{ID: depot.DepotID(req.ID), Name: req.Name})
	if err != nil {
		h.writeDomainError(w, "Failed to create depot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepotDTO(d))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Engine.Repo.ListCategories(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}
	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	c, err := h.Engine.Repo.CreateCategory(r.Context(), depot.CrateCategory{
		ID:        depot.CategoryID(req.ID),
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(c))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetDepotBalances returns one balance per category.
// GET /api/depots/{depotID}/balances?as_of=YYYY-MM-DD
func (h *Handler) GetDepotBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asOf, ok := h.dateQuery(w, r, "as_of")
	if !ok {
		return
	}
	categories, err := h.Engine.Repo.ListCategories(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}

	results, err := h.Engine.Balances.DepotBalances(ctx, depotParam(r), depot.CategoryIDs(categories), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balances", err)
		return
	}
	dtos := make([]BalanceDTO, len(results))
	for i, res := range results {
		dtos[i] = toBalanceDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBalance returns the reconstruction of a single category.
// GET /api/depots/{depotID}/balances/{categoryID}?as_of=YYYY-MM-DD
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.dateQuery(w, r, "as_of")
	if !ok {
		return
	}
	categoryID := depot.CategoryID(chi.URLParam(r, "categoryID"))
	res, err := h.Engine.Balances.BalanceAt(r.Context(), depotParam(r), categoryID, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(res))
}

// GetActivity returns movement totals of a day (default today).
// GET /api/depots/{depotID}/activity?date=YYYY-MM-DD
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	day, ok := h.dateQuery(w, r, "date")
	if !ok {
		return
	}
	a, err := h.Engine.Activity.On(r.Context(), depotParam(r), day)
	if err != nil {
		h.writeDomainError(w, "Failed to aggregate activity", err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityDTO(a))
}

// GetDashboard returns the depot dashboard as of today.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categories, err := h.Engine.Repo.ListCategories(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}
	d, err := h.Engine.Reports.Dashboard(ctx, depotParam(r), categories)
	if err != nil {
		h.writeDomainError(w, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

// GetReport returns the period report as JSON, or CSV with format=csv.
// GET /api/depots/{depotID}/report?range=last7days
// GET /api/depots/{depotID}/report?range=custom&from=2025-01-01&to=2025-01-31&format=csv
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	from, err := optionalDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from (use YYYY-MM-DD)", err)
		return
	}
	to, err := optionalDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to (use YYYY-MM-DD)", err)
		return
	}
	start, end, err := depot.ResolveRange(depot.RangePreset(q.Get("range")), h.Engine.Clock.Today(), from, to)
	if err != nil {
		h.writeDomainError(w, "Invalid report range", err)
		return
	}

	d, err := h.Engine.Repo.GetDepot(ctx, depotParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get depot", err)
		return
	}
	categories, err := h.Engine.Repo.ListCategories(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}

	report, err := h.Engine.Reports.Period(ctx, d, categories, start, end)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.CSVFilename()))
		w.WriteHeader(http.StatusOK)
		if err := report.WriteCSV(w); err != nil {
			h.Logger.Warn("write csv report", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// =============================================================================
// MOVEMENT HANDLERS
// =============================================================================

const defaultListLimit = 50

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	events, err := h.Engine.Repo.ListMovements(r.Context(), directionParam(r), depotParam(r), defaultListLimit)
	if err != nil {
		h.writeDomainError(w, "Failed to list movements", err)
		return
	}
	dtos := make([]MovementDTO, len(events))
	for i, e := range events {
		dtos[i] = toMovementDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var req CreateMovementRequest
	if !decode(w, r, &req) {
		return
	}
	day, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	m := depot.MovementEvent{
		Direction:       directionParam(r),
		DepotID:         depotParam(r),
		CategoryID:      depot.CategoryID(req.CategoryID),
		Quantity:        req.Quantity,
		Reason:          req.Reason,
		DestinationInfo: req.DestinationInfo,
		Notes:           req.Notes,
	}
	if day != nil {
		m.Date = *day
	}

	stored, err := h.Engine.Movements.RecordMovement(r.Context(), m)
	if err != nil {
		h.writeDomainError(w, "Failed to record movement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(stored))
}

func (h *Handler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	id := depot.EventID(chi.URLParam(r, "id"))
	if err := h.Engine.Movements.DeleteMovement(r.Context(), directionParam(r), id); err != nil {
		h.writeDomainError(w, "Failed to delete movement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Engine.Repo.ListTransfers(r.Context(), depotParam(r), defaultListLimit)
	if err != nil {
		h.writeDomainError(w, "Failed to list transfers", err)
		return
	}
	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if !decode(w, r, &req) {
		return
	}
	day, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	t := depot.TransferEvent{
		FromDepotID: depot.DepotID(req.FromDepotID),
		ToDepotID:   depot.DepotID(req.ToDepotID),
		CategoryID:  depot.CategoryID(req.CategoryID),
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		Notes:       req.Notes,
	}
	if day != nil {
		t.Date = *day
	}

	stored, err := h.Engine.Movements.RecordTransfer(r.Context(), t)
	if err != nil {
		h.writeDomainError(w, "Failed to record transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(stored))
}

func (h *Handler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Movements.DeleteTransfer(r.Context(), depot.EventID(chi.URLParam(r, "id"))); err != nil {
		h.writeDomainError(w, "Failed to delete transfer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CLOSING HANDLERS
// =============================================================================

func (h *Handler) GetClosing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day, ok := datePathParam(w, r)
	if !ok {
		return
	}
	categories, err := h.Engine.Repo.ListCategories(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}
	lines, exists, err := h.Engine.Closings.For(ctx, depotParam(r), day, depot.CategoryIDs(categories))
	if err != nil {
		h.writeDomainError(w, "Failed to get closing", err)
		return
	}
	writeJSON(w, http.StatusOK, closingDTO(depotParam(r), day, exists, lines))
}

// SaveClosing upserts the closing of a day. Re-saving replaces quantities.
func (h *Handler) SaveClosing(w http.ResponseWriter, r *http.Request) {
	day, ok := datePathParam(w, r)
	if !ok {
		return
	}
	var req SaveClosingRequest
	if !decode(w, r, &req) {
		return
	}
	lines := make([]depot.ClosingLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = depot.ClosingLine{CategoryID: depot.CategoryID(l.CategoryID), Quantity: l.Quantity}
	}

	saved, err := h.Engine.Closings.Save(r.Context(), depotParam(r), day, lines)
	if err != nil {
		h.writeDomainError(w, "Failed to save closing", err)
		return
	}
	writeJSON(w, http.StatusOK, closingDTO(depotParam(r), day, true, snapshotLines(saved)))
}

// AutoClose snapshots the reconstructed balances as the closing of a day.
func (h *Handler) AutoClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day, ok := datePathParam(w, r)
	if !ok {
		return
	}
	categories, err := h.Engine.Repo.ListCategories(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}
	saved, err := h.Engine.Closings.CloseFromLedger(ctx, depotParam(r), day, depot.CategoryIDs(categories))
	if err != nil {
		h.writeDomainError(w, "Failed to close day", err)
		return
	}
	writeJSON(w, http.StatusOK, closingDTO(depotParam(r), day, true, snapshotLines(saved)))
}

func closingDTO(depotID depot.DepotID, day depot.Date, exists bool, lines []depot.ClosingLine) ClosingDTO {
	dto := ClosingDTO{DepotID: string(depotID), Date: day.String(), Exists: exists, Lines: make([]ClosingLineDTO, len(lines))}
	for i, l := range lines {
		dto.Lines[i] = ClosingLineDTO{CategoryID: string(l.CategoryID), Quantity: l.Quantity}
	}
	return dto
}

func snapshotLines(snapshots []depot.ClosingSnapshot) []depot.ClosingLine {
	lines := make([]depot.ClosingLine, len(snapshots))
	for i, s := range snapshots {
		lines[i] = depot.ClosingLine{CategoryID: s.CategoryID, Quantity: s.Quantity}
	}
	return lines
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	status := depot.CustomerStatus(r.URL.Query().Get("status"))
	customers, err := h.Engine.Repo.ListCustomers(r.Context(), depotParam(r), status)
	if err != nil {
		h.writeDomainError(w, "Failed to list customers", err)
		return
	}
	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	c, err := h.Engine.Repo.CreateCustomer(r.Context(), depot.Customer{
		ID:            depot.CustomerID(req.ID),
		DepotID:       depotParam(r),
		Name:          req.Name,
		LedgerEnabled: req.LedgerEnabled,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Engine.Repo.GetCustomer(r.Context(), customerParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// UpdateCustomerStatus soft-deletes or reactivates a customer.
func (h *Handler) UpdateCustomerStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateCustomerStatusRequest
	if !decode(w, r, &req) {
		return
	}
	status := depot.CustomerStatus(req.Status)
	if status != depot.CustomerActive && status != depot.CustomerInactive {
		writeError(w, http.StatusBadRequest, "status must be active or inactive", nil)
		return
	}
	c, err := h.Engine.Repo.SetCustomerStatus(r.Context(), customerParam(r), status)
	if err != nil {
		h.writeDomainError(w, "Failed to update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// GetCustomerBalances returns the customer's holdings per category.
// GET /api/customers/{customerID}/balances?as_of=YYYY-MM-DD
func (h *Handler) GetCustomerBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asOf, err := optionalDate(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	id := customerParam(r)
	if _, err := h.Engine.Repo.GetCustomer(ctx, id); err != nil {
		h.writeDomainError(w, "Failed to get customer", err)
		return
	}
	categories, err := h.Engine.Repo.ListCategories(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}

	balances, err := h.Engine.Customers.AllBalances(ctx, id, depot.CategoryIDs(categories), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute customer balances", err)
		return
	}
	total, err := h.Engine.Customers.TotalHeld(ctx, id, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute customer total", err)
		return
	}

	dto := CustomerBalanceDTO{CustomerID: string(id), Balances: make(map[string]int, len(balances)), TotalHeld: total}
	dto.AsOf = h.Engine.Clock.Today().String()
	if asOf != nil {
		dto.AsOf = asOf.String()
	}
	for cat, qty := range balances {
		dto.Balances[string(cat)] = qty
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetLedgerHistory lists entries of one category, newest first.
func (h *Handler) GetLedgerHistory(w http.ResponseWriter, r *http.Request) {
	categoryID := depot.CategoryID(chi.URLParam(r, "categoryID"))
	entries, err := h.Engine.Customers.History(r.Context(), customerParam(r), categoryID)
	if err != nil {
		h.writeDomainError(w, "Failed to list ledger entries", err)
		return
	}
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordLedgerEntry appends a deposit or withdrawal.
func (h *Handler) RecordLedgerEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateLedgerEntryRequest
	if !decode(w, r, &req) {
		return
	}
	day, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	e := depot.LedgerEntry{
		CustomerID: customerParam(r),
		CategoryID: depot.CategoryID(req.CategoryID),
		Type:       depot.EntryType(req.Type),
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		Notes:      req.Notes,
		CreatedBy:  req.CreatedBy,
	}
	if day != nil {
		e.Date = *day
	}

	stored, err := h.Engine.Customers.Record(r.Context(), e)
	if err != nil {
		h.writeDomainError(w, "Failed to record ledger entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLedgerEntryDTO(stored))
}

// ValidateWithdrawal checks, without recording, whether a withdrawal fits.
func (h *Handler) ValidateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req ValidateWithdrawalRequest
	if !decode(w, r, &req) {
		return
	}
	check, err := h.Engine.Customers.ValidateWithdrawal(r.Context(), customerParam(r), depot.CategoryID(req.CategoryID), req.Quantity)
	if err != nil {
		h.writeDomainError(w, "Failed to validate withdrawal", err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawalCheckDTO{
		Valid:          check.Valid,
		CurrentBalance: check.CurrentBalance,
		Message:        check.Message,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func depotParam(r *http.Request) depot.DepotID {
	return depot.DepotID(chi.URLParam(r, "depotID"))
}

func customerParam(r *http.Request) depot.CustomerID {
	return depot.CustomerID(chi.URLParam(r, "customerID"))
}

func directionParam(r *http.Request) depot.Direction {
	return depot.Direction(chi.URLParam(r, "direction"))
}

func optionalDate(s string) (*depot.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := depot.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// dateQuery reads a date query parameter, defaulting to today.
func (h *Handler) dateQuery(w http.ResponseWriter, r *http.Request, name string) (depot.Date, bool) {
	d, err := optionalDate(r.URL.Query().Get(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s (use YYYY-MM-DD)", name), err)
		return depot.Date{}, false
	}
	if d == nil {
		return h.Engine.Clock.Today(), true
	}
	return *d, true
}

func datePathParam(w http.ResponseWriter, r *http.Request) (depot.Date, bool) {
	d, err := depot.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return depot.Date{}, false
	}
	return d, true
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps depot errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case depot.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, depot.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, message, err)
	case depot.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
