/*
balance_test.go - Tests for the stock endpoints

Covers balances, day activity, the dashboard and the period report (JSON
and CSV), all over the single-depot scenario with today fixed to
2025-03-10:

	03-05 incoming small 100
	03-06 outgoing small 30, incoming large 80
	03-07 closing small 65, large 80
	03-09 outgoing large 15
	03-10 incoming small 12
*/
package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, s *testServer, id string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetBalance_FromSnapshot(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "single-depot")

	// GIVEN a closing of 65 on 03-07 and 12 small crates in today
	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/balances/crate-small", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeBody[BalanceDTO](t, rec)

	// THEN the snapshot replaces the earlier movements
	assert.True(t, b.SnapshotFound)
	assert.Equal(t, "2025-03-07", b.SnapshotDate)
	assert.Equal(t, 65, b.SnapshotQuantity)
	assert.Equal(t, 12, b.Incoming)
	assert.Equal(t, 0, b.Outgoing)
	assert.Equal(t, 77, b.Balance)
	assert.Equal(t, "2025-03-10", b.AsOf)
	assert.False(t, b.Degraded)
}

func TestGetBalance_BeforeAnySnapshot(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "single-depot")

	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/balances/crate-small?as_of=2025-03-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeBody[BalanceDTO](t, rec)

	assert.False(t, b.SnapshotFound)
	assert.Equal(t, "1900-01-01", b.SnapshotDate)
	assert.Equal(t, 70, b.Balance)
}

func TestGetBalance_InvalidDate(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/balances/crate-small?as_of=March", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDepotBalances(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "single-depot")

	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balances := decodeBody[[]BalanceDTO](t, rec)
	require.Len(t, balances, 3)

	got := map[string]int{}
	for _, b := range balances {
		got[b.CategoryID] = b.Balance
	}
	assert.Equal(t, map[string]int{"crate-small": 77, "crate-large": 65, "pallet-box": 0}, got)
	// category display order
	assert.Equal(t, "crate-small", balances[0].CategoryID)
	assert.Equal(t, "pallet-box", balances[2].CategoryID)
}

func TestGetActivity(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "single-depot")

	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/activity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ActivityDTO{Incoming: 12}, decodeBody[ActivityDTO](t, rec))

	rec = s.do(t, http.MethodGet, "/api/depots/depot-north/activity?date=2025-03-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ActivityDTO{Incoming: 80, Outgoing: 30}, decodeBody[ActivityDTO](t, rec))
}

func TestGetReport_JSON(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "single-depot")

	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/report?range=today", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[ReportDTO](t, rec)

	assert.Equal(t, "2025-03-10", report.From)
	assert.Equal(t, "2025-03-10", report.To)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, 65, report.Rows[0].Opening)
	assert.Equal(t, 12, report.Rows[0].Incoming)
	assert.Equal(t, 77, report.Rows[0].Closing)
	assert.Equal(t, "Total", report.Totals.CategoryName)
	assert.Equal(t, 142, report.Totals.Closing)
}

func TestGetReport_CSV(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "single-depot")

	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/report?range=today&format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report-2025-03-10-to-2025-03-10.csv"`, rec.Header().Get("Content-Disposition"))

	want := strings.Join([]string{
		"CrateFlow Pro Report",
		"Depot: North Depot",
		"Period: 2025-03-10 to 2025-03-10",
		"",
		"Crate Type,Opening,Incoming,Outgoing,Trans In,Trans Out,Closing",
		"Small Crate,65,12,0,0,0,77",
		"Large Crate,65,0,0,0,0,65",
		"Pallet Box,0,0,0,0,0,0",
		"",
		"Total,130,12,0,0,0,142",
		"",
	}, "\n")
	assert.Equal(t, want, rec.Body.String())
}

func TestGetReport_Errors(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "single-depot")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"unknown preset", "?range=fortnight", http.StatusBadRequest},
		{"custom without bounds", "?range=custom", http.StatusBadRequest},
		{"reversed custom", "?range=custom&from=2025-03-09&to=2025-03-01", http.StatusBadRequest},
		{"bad from", "?range=custom&from=yesterday&to=2025-03-01", http.StatusBadRequest},
		{"valid custom", "?range=custom&from=2025-03-01&to=2025-03-09", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/depots/depot-north/report"+tt.query, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(t, http.MethodGet, "/api/depots/nowhere/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDashboard_LowStock(t *testing.T) {
	s := newTestServer(t)
	loadScenario(t, s, "low-stock")

	rec := s.do(t, http.MethodGet, "/api/depots/depot-north/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeBody[DashboardDTO](t, rec)

	require.Len(t, d.Balances, 3)
	assert.Equal(t, 300, d.Balances[0].Quantity)
	assert.False(t, d.Balances[0].LowStock)
	assert.Equal(t, 48, d.Balances[1].Quantity)
	assert.True(t, d.Balances[1].LowStock)

	// Oversold pallets floor to zero, the raw value stays visible
	assert.Equal(t, 0, d.Balances[2].Quantity)
	assert.Equal(t, -15, d.Balances[2].Raw)

	assert.Equal(t, 348, d.TotalCrates)
	assert.Equal(t, 2, d.LowStockCount)
	assert.Equal(t, ActivityDTO{Incoming: 3, Outgoing: 25}, d.Today)
	assert.False(t, d.HasClosingToday)
}
