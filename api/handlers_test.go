/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Reference data endpoints (depots, categories, customers)
- Movement and transfer recording and deletion
- Closings (manual and from ledger)
- Customer ledger endpoints
- Error status mapping
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crate-ledger/depot"
	"github.com/warp/crate-ledger/depot/store"
)

var testToday = depot.NewDate(2025, 3, 10)

type testServer struct {
	router *chi.Mux
	engine *depot.Engine
	store  *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	reg := prometheus.NewRegistry()
	engine := depot.NewEngine(mem, depot.Options{
		Clock:   depot.FixedClock{Day: testToday},
		Metrics: depot.NewMetrics(reg),
	})
	h := NewHandler(engine, mem, nil)
	return &testServer{router: NewRouter(h, RouterOptions{Gatherer: reg}), engine: engine, store: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seed creates depots north/south and categories small/large.
func (s *testServer) seed(t *testing.T) {
	t.Helper()
	for _, d := range []CreateDepotRequest{{ID: "north", Name: "North"}, {ID: "south", Name: "South"}} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/depots", d).Code)
	}
	for _, c := range []CreateCategoryRequest{{ID: "small", Name: "Small", SortOrder: 1}, {ID: "large", Name: "Large", SortOrder: 2}} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/categories", c).Code)
	}
}

func TestDepotsAndCategories(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodGet, "/api/depots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	depots := decodeBody[[]DepotDTO](t, rec)
	require.Len(t, depots, 2)
	assert.Equal(t, "North", depots[0].Name)

	rec = s.do(t, http.MethodGet, "/api/depots/north", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "north", decodeBody[DepotDTO](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/depots/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decodeBody[[]CategoryDTO](t, rec)
	require.Len(t, cats, 2)
	assert.Equal(t, "small", cats[0].ID)

	rec = s.do(t, http.MethodPost, "/api/depots", CreateDepotRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMovement(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	// Defaults to today
	rec := s.do(t, http.MethodPost, "/api/depots/north/movements/incoming", CreateMovementRequest{CategoryID: "small", Quantity: 40})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decodeBody[MovementDTO](t, rec)
	assert.Equal(t, "2025-03-10", m.Date)
	assert.Equal(t, "incoming", m.Direction)

	rec = s.do(t, http.MethodPost, "/api/depots/north/movements/outgoing", CreateMovementRequest{
		CategoryID: "small", Quantity: 15, Date: "2025-03-09", DestinationInfo: "Market",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/depots/north/movements/outgoing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]MovementDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Market", list[0].DestinationInfo)

	// Validation errors
	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"zero quantity", "/api/depots/north/movements/incoming", CreateMovementRequest{CategoryID: "small"}, http.StatusBadRequest},
		{"bad direction", "/api/depots/north/movements/sideways", CreateMovementRequest{CategoryID: "small", Quantity: 1}, http.StatusBadRequest},
		{"bad date", "/api/depots/north/movements/incoming", CreateMovementRequest{CategoryID: "small", Quantity: 1, Date: "10/03/2025"}, http.StatusBadRequest},
		{"no category", "/api/depots/north/movements/incoming", CreateMovementRequest{Quantity: 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.do(t, http.MethodPost, tt.path, tt.body).Code)
		})
	}
}

func TestDeleteMovement(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	rec := s.do(t, http.MethodPost, "/api/depots/north/movements/incoming", CreateMovementRequest{CategoryID: "small", Quantity: 5})
	m := decodeBody[MovementDTO](t, rec)

	rec = s.do(t, http.MethodDelete, "/api/movements/incoming/"+m.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/movements/incoming/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransfers(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodPost, "/api/transfers", CreateTransferRequest{
		FromDepotID: "north", ToDepotID: "north", CategoryID: "small", Quantity: 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/transfers", CreateTransferRequest{
		FromDepotID: "north", ToDepotID: "south", CategoryID: "small", Quantity: 12,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tr := decodeBody[TransferDTO](t, rec)

	for _, d := range []string{"north", "south"} {
		rec = s.do(t, http.MethodGet, "/api/depots/"+d+"/transfers", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]TransferDTO](t, rec), 1)
	}

	rec = s.do(t, http.MethodDelete, "/api/transfers/"+tr.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClosings(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.do(t, http.MethodPost, "/api/depots/north/movements/incoming", CreateMovementRequest{CategoryID: "small", Quantity: 30, Date: "2025-03-08"})

	// No closing yet
	rec := s.do(t, http.MethodGet, "/api/depots/north/closings/2025-03-09", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[ClosingDTO](t, rec)
	assert.False(t, got.Exists)
	assert.Len(t, got.Lines, 2)

	// Close from the ledger
	rec = s.do(t, http.MethodPost, "/api/depots/north/closings/2025-03-09/auto", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[ClosingDTO](t, rec)
	assert.Equal(t, []ClosingLineDTO{{CategoryID: "small", Quantity: 30}, {CategoryID: "large", Quantity: 0}}, got.Lines)

	// Manual correction replaces the quantity
	rec = s.do(t, http.MethodPut, "/api/depots/north/closings/2025-03-09", SaveClosingRequest{
		Lines: []ClosingLineDTO{{CategoryID: "small", Quantity: 28}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/depots/north/closings/2025-03-09", nil)
	got = decodeBody[ClosingDTO](t, rec)
	assert.True(t, got.Exists)
	assert.Equal(t, 28, got.Lines[0].Quantity)

	rec = s.do(t, http.MethodGet, "/api/depots/north/closings/yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomerLedgerEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodPost, "/api/depots/north/customers", CreateCustomerRequest{ID: "grocer", Name: "Grocer", LedgerEnabled: true})
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, e := range []CreateLedgerEntryRequest{
		{CategoryID: "small", Type: "deposit", Quantity: 20, Date: "2025-03-08"},
		{CategoryID: "small", Type: "withdrawal", Quantity: 5, Date: "2025-03-09"},
	} {
		rec = s.do(t, http.MethodPost, "/api/customers/grocer/ledger", e)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// Balance
	rec = s.do(t, http.MethodGet, "/api/customers/grocer/balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decodeBody[CustomerBalanceDTO](t, rec)
	assert.Equal(t, 15, bal.Balances["small"])
	assert.Equal(t, 0, bal.Balances["large"])
	assert.Equal(t, 15, bal.TotalHeld)
	assert.Equal(t, "2025-03-10", bal.AsOf)

	rec = s.do(t, http.MethodGet, "/api/customers/grocer/balances?as_of=2025-03-08", nil)
	assert.Equal(t, 20, decodeBody[CustomerBalanceDTO](t, rec).Balances["small"])

	// Validation
	rec = s.do(t, http.MethodPost, "/api/customers/grocer/withdrawals/validate", ValidateWithdrawalRequest{CategoryID: "small", Quantity: 20})
	require.Equal(t, http.StatusOK, rec.Code)
	check := decodeBody[WithdrawalCheckDTO](t, rec)
	assert.False(t, check.Valid)
	assert.Equal(t, 15, check.CurrentBalance)

	// Overdraw is a conflict
	rec = s.do(t, http.MethodPost, "/api/customers/grocer/ledger", CreateLedgerEntryRequest{CategoryID: "small", Type: "withdrawal", Quantity: 16})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Reversal is not accepted
	rec = s.do(t, http.MethodPost, "/api/customers/grocer/ledger", CreateLedgerEntryRequest{CategoryID: "small", Type: "reversal", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// History
	rec = s.do(t, http.MethodGet, "/api/customers/grocer/ledger/small", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[[]LedgerEntryDTO](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "withdrawal", history[0].Type)
	assert.Equal(t, 15, history[0].RunningBalance)

	rec = s.do(t, http.MethodGet, "/api/customers/ghost/balances", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerStatus(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.do(t, http.MethodPost, "/api/depots/north/customers", CreateCustomerRequest{ID: "c1", Name: "Alpha", LedgerEnabled: true})
	s.do(t, http.MethodPost, "/api/depots/north/customers", CreateCustomerRequest{ID: "c2", Name: "Beta"})

	rec := s.do(t, http.MethodPut, "/api/customers/c1/status", UpdateCustomerStatusRequest{Status: "inactive"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inactive", decodeBody[CustomerDTO](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/depots/north/customers?status=active", nil)
	active := decodeBody[[]CustomerDTO](t, rec)
	require.Len(t, active, 1)
	assert.Equal(t, "c2", active[0].ID)

	// Inactive customers cannot record entries
	rec = s.do(t, http.MethodPost, "/api/customers/c1/ledger", CreateLedgerEntryRequest{CategoryID: "small", Type: "deposit", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/customers/c1/status", UpdateCustomerStatusRequest{Status: "deleted"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/depots", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeBody[ErrorResponse](t, rec).Error)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.do(t, http.MethodGet, "/api/depots/north/balances", nil)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crate_ledger_balance_computation_seconds")
}
