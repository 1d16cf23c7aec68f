/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the depot domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Reference data:
    DepotDTO, CategoryDTO, CustomerDTO and their Create*Request

  Stock:
    BalanceDTO, ActivityDTO, DashboardDTO, ReportDTO

  Events:
    MovementDTO, TransferDTO, ClosingDTO

  Customer ledger:
    CustomerBalanceDTO, LedgerEntryDTO, WithdrawalCheckDTO

DATES:
  Business dates are "YYYY-MM-DD" strings, timestamps RFC3339.

VALIDATION:
  Validation is done in handlers and the depot package, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crate-ledger/depot"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

type DepotDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type CreateDepotRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type CategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type CreateCategoryRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type CustomerDTO struct {
	ID            string `json:"id"`
	DepotID       string `json:"depot_id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	LedgerEnabled bool   `json:"ledger_enabled"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type CreateCustomerRequest struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	LedgerEnabled bool   `json:"ledger_enabled"`
	Notes         string `json:"notes,omitempty"`
}

type UpdateCustomerStatusRequest struct {
	Status string `json:"status"` // active, inactive
}

// =============================================================================
// BALANCES AND ACTIVITY
// =============================================================================

// BalanceDTO exposes the reconstruction inputs alongside the result.
// Raw is the unclamped value; it differs from Balance only when negative.
type BalanceDTO struct {
	DepotID          string `json:"depot_id"`
	CategoryID       string `json:"category_id"`
	AsOf             string `json:"as_of"`
	SnapshotDate     string `json:"snapshot_date"`
	SnapshotQuantity int    `json:"snapshot_quantity"`
	SnapshotFound    bool   `json:"snapshot_found"`
	Incoming         int    `json:"incoming"`
	Outgoing         int    `json:"outgoing"`
	TransferIn       int    `json:"transfer_in"`
	TransferOut      int    `json:"transfer_out"`
	Raw              int    `json:"raw"`
	Balance          int    `json:"balance"`
	Degraded         bool   `json:"degraded"`
}

type ActivityDTO struct {
	Incoming    int  `json:"incoming"`
	Outgoing    int  `json:"outgoing"`
	TransferIn  int  `json:"transfer_in"`
	TransferOut int  `json:"transfer_out"`
	Degraded    bool `json:"degraded"`
}

type CategoryBalanceDTO struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Quantity     int             `json:"quantity"`
	Raw          int             `json:"raw"`
	Share        decimal.Decimal `json:"share_percent"`
	LowStock     bool            `json:"low_stock"`
}

type DashboardDTO struct {
	DepotID         string               `json:"depot_id"`
	AsOf            string               `json:"as_of"`
	Balances        []CategoryBalanceDTO `json:"balances"`
	TotalCrates     int                  `json:"total_crates"`
	LowStockCount   int                  `json:"low_stock_count"`
	Today           ActivityDTO          `json:"today"`
	HasClosingToday bool                 `json:"has_closing_today"`
	Degraded        bool                 `json:"degraded"`
}

type ReportRowDTO struct {
	CategoryID   string `json:"category_id,omitempty"`
	CategoryName string `json:"category_name"`
	Opening      int    `json:"opening"`
	Incoming     int    `json:"incoming"`
	Outgoing     int    `json:"outgoing"`
	TransferIn   int    `json:"transfer_in"`
	TransferOut  int    `json:"transfer_out"`
	Closing      int    `json:"closing"`
}

type ReportDTO struct {
	DepotID  string         `json:"depot_id"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Rows     []ReportRowDTO `json:"rows"`
	Totals   ReportRowDTO   `json:"totals"`
	Degraded bool           `json:"degraded"`
}

// =============================================================================
// EVENTS
// =============================================================================

type MovementDTO struct {
	ID              string `json:"id"`
	Direction       string `json:"direction"`
	DepotID         string `json:"depot_id"`
	CategoryID      string `json:"category_id"`
	Date            string `json:"date"`
	Quantity        int    `json:"quantity"`
	Reason          string `json:"reason,omitempty"`
	DestinationInfo string `json:"destination_info,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type CreateMovementRequest struct {
	CategoryID      string `json:"category_id"`
	Date            string `json:"date,omitempty"` // defaults to today
	Quantity        int    `json:"quantity"`
	Reason          string `json:"reason,omitempty"`
	DestinationInfo string `json:"destination_info,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type TransferDTO struct {
	ID          string `json:"id"`
	FromDepotID string `json:"from_depot_id"`
	ToDepotID   string `json:"to_depot_id"`
	CategoryID  string `json:"category_id"`
	Date        string `json:"date"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type CreateTransferRequest struct {
	FromDepotID string `json:"from_depot_id"`
	ToDepotID   string `json:"to_depot_id"`
	CategoryID  string `json:"category_id"`
	Date        string `json:"date,omitempty"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type ClosingLineDTO struct {
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

type ClosingDTO struct {
	DepotID string           `json:"depot_id"`
	Date    string           `json:"date"`
	Exists  bool             `json:"exists"`
	Lines   []ClosingLineDTO `json:"lines"`
}

type SaveClosingRequest struct {
	Lines []ClosingLineDTO `json:"lines"`
}

// =============================================================================
// CUSTOMER LEDGER
// =============================================================================

type CustomerBalanceDTO struct {
	CustomerID string         `json:"customer_id"`
	AsOf       string         `json:"as_of"`
	Balances   map[string]int `json:"balances"`
	TotalHeld  int            `json:"total_held"`
}

type LedgerEntryDTO struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer_id"`
	DepotID        string `json:"depot_id"`
	CategoryID     string `json:"category_id"`
	Date           string `json:"date"`
	Type           string `json:"type"`
	Quantity       int    `json:"quantity"`
	RunningBalance int    `json:"running_balance"`
	Reason         string `json:"reason,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
	CreatedBy      string `json:"created_by,omitempty"`
}

type CreateLedgerEntryRequest struct {
	CategoryID string `json:"category_id"`
	Date       string `json:"date,omitempty"`
	Type       string `json:"type"` // deposit, withdrawal
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
}

type ValidateWithdrawalRequest struct {
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

type WithdrawalCheckDTO struct {
	Valid          bool   `json:"valid"`
	CurrentBalance int    `json:"current_balance"`
	Message        string `json:"message,omitempty"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toDepotDTO(d depot.Depot) DepotDTO {
	return DepotDTO{ID: string(d.ID), Name: d.Name, CreatedAt: formatTimestamp(d.CreatedAt)}
}

func toCategoryDTO(c depot.CrateCategory) CategoryDTO {
	return CategoryDTO{ID: string(c.ID), Name: c.Name, SortOrder: c.SortOrder}
}

func toCustomerDTO(c depot.Customer) CustomerDTO {
	return CustomerDTO{
		ID:            string(c.ID),
		DepotID:       string(c.DepotID),
		Name:          c.Name,
		Status:        string(c.Status),
		LedgerEnabled: c.LedgerEnabled,
		Notes:         c.Notes,
		CreatedAt:     formatTimestamp(c.CreatedAt),
	}
}

func toBalanceDTO(r depot.Result) BalanceDTO {
	return BalanceDTO{
		DepotID:          string(r.DepotID),
		CategoryID:       string(r.CategoryID),
		AsOf:             r.AsOf.String(),
		SnapshotDate:     r.Baseline.Date.String(),
		SnapshotQuantity: r.Baseline.Quantity,
		SnapshotFound:    r.Baseline.Found,
		Incoming:         r.Deltas.Incoming,
		Outgoing:         r.Deltas.Outgoing,
		TransferIn:       r.Deltas.TransferIn,
		TransferOut:      r.Deltas.TransferOut,
		Raw:              r.Raw,
		Balance:          r.Balance,
		Degraded:         r.Degraded,
	}
}

func toActivityDTO(a depot.Activity) ActivityDTO {
	return ActivityDTO{
		Incoming:    a.Incoming,
		Outgoing:    a.Outgoing,
		TransferIn:  a.TransferIn,
		TransferOut: a.TransferOut,
		Degraded:    a.Degraded,
	}
}

func toDashboardDTO(d depot.Dashboard) DashboardDTO {
	balances := make([]CategoryBalanceDTO, len(d.Balances))
	for i, b := range d.Balances {
		balances[i] = CategoryBalanceDTO{
			CategoryID:   string(b.CategoryID),
			CategoryName: b.CategoryName,
			Quantity:     b.Quantity,
			Raw:          b.Raw,
			Share:        b.Share,
			LowStock:     b.LowStock,
		}
	}
	return DashboardDTO{
		DepotID:         string(d.DepotID),
		AsOf:            d.AsOf.String(),
		Balances:        balances,
		TotalCrates:     d.TotalCrates,
		LowStockCount:   d.LowStockCount,
		Today:           toActivityDTO(d.Today),
		HasClosingToday: d.HasClosingToday,
		Degraded:        d.Degraded,
	}
}

func toReportRowDTO(r depot.ReportRow) ReportRowDTO {
	return ReportRowDTO{
		CategoryID:   string(r.CategoryID),
		CategoryName: r.CategoryName,
		Opening:      r.Opening,
		Incoming:     r.Incoming,
		Outgoing:     r.Outgoing,
		TransferIn:   r.TransferIn,
		TransferOut:  r.TransferOut,
		Closing:      r.Closing,
	}
}

func toReportDTO(p depot.PeriodReport) ReportDTO {
	rows := make([]ReportRowDTO, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = toReportRowDTO(r)
	}
	return ReportDTO{
		DepotID:  string(p.Depot.ID),
		From:     p.From.String(),
		To:       p.To.String(),
		Rows:     rows,
		Totals:   toReportRowDTO(p.Totals),
		Degraded: p.Degraded,
	}
}

func toMovementDTO(m depot.MovementEvent) MovementDTO {
	return MovementDTO{
		ID:              string(m.ID),
		Direction:       string(m.Direction),
		DepotID:         string(m.DepotID),
		CategoryID:      string(m.CategoryID),
		Date:            m.Date.String(),
		Quantity:        m.Quantity,
		Reason:          m.Reason,
		DestinationInfo: m.DestinationInfo,
		Notes:           m.Notes,
		CreatedAt:       formatTimestamp(m.CreatedAt),
	}
}

func toTransferDTO(t depot.TransferEvent) TransferDTO {
	return TransferDTO{
		ID:          string(t.ID),
		FromDepotID: string(t.FromDepotID),
		ToDepotID:   string(t.ToDepotID),
		CategoryID:  string(t.CategoryID),
		Date:        t.Date.String(),
		Quantity:    t.Quantity,
		Reason:      t.Reason,
		Notes:       t.Notes,
		CreatedAt:   formatTimestamp(t.CreatedAt),
	}
}

func toLedgerEntryDTO(e depot.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:             string(e.ID),
		CustomerID:     string(e.CustomerID),
		DepotID:        string(e.DepotID),
		CategoryID:     string(e.CategoryID),
		Date:           e.Date.String(),
		Type:           string(e.Type),
		Quantity:       e.Quantity,
		RunningBalance: e.RunningBalance,
		Reason:         e.Reason,
		Notes:          e.Notes,
		CreatedAt:      formatTimestamp(e.CreatedAt),
		CreatedBy:      e.CreatedBy,
	}
}
