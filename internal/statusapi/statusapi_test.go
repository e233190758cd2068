package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"uatsim/internal/ledger"
	"uatsim/internal/region"
	"uatsim/internal/uat"
)

type stubRegion struct{ id int }

func (r stubRegion) Eq(o region.Region) bool                      { return r == o }
func (r stubRegion) Hash() uint64                                 { return uint64(r.id) }
func (r stubRegion) AdjacentRegions() []region.Region             { return nil }
func (r stubRegion) Distance(region.Region) uint                  { return 0 }
func (r stubRegion) HeuristicDistance(region.Region) float64      { return 0 }
func (r stubRegion) ShortestPath(region.Region, int64) []region.Region { return nil }
func (r stubRegion) Turn(before, to region.Region) bool           { return false }
func (r stubRegion) Climb(to region.Region) bool                  { return false }

type stubAirspace struct{ n int }

func (a stubAirspace) Regions() []region.Region {
	out := make([]region.Region, a.n)
	for i := range out {
		out[i] = stubRegion{id: i}
	}
	return out
}

func TestServer_HandleStatusBeforeObserveReportsNotRunning(t *testing.T) {
	s := NewServer(0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["running"] != false {
		t.Fatalf("expected running=false before Observe, got %v", body)
	}
}

func TestServer_ObserveUpdatesStatus(t *testing.T) {
	s := NewServer(0, nil)
	s.Observe(7, stubAirspace{n: 3}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["tick"].(float64) != 7 || body["region_count"].(float64) != 3 {
		t.Fatalf("unexpected status body: %v", body)
	}
}

func TestServer_HandleTradesWithoutLedgerReturns503(t *testing.T) {
	s := NewServer(0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
	rec := httptest.NewRecorder()
	s.handleTrades(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestServer_HandleTradesReturnsLedgerContents(t *testing.T) {
	dir := t.TempDir()
	led, err := ledger.Open(filepath.Join(dir, "l.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	defer led.Close()

	led.RecordTrade(uat.TradeRecord{T: 1, Buyer: 2, Region: stubRegion{id: 1}, PermitTime: 3, Price: 9})

	s := NewServer(0, led)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
	rec := httptest.NewRecorder()
	s.handleTrades(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var trades []ledger.TradeSummary
	if err := json.NewDecoder(rec.Body).Decode(&trades); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(trades) != 1 || trades[0].BuyerID != 2 {
		t.Fatalf("unexpected trades: %+v", trades)
	}
}
