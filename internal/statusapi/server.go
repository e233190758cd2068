// Package statusapi provides the read-only HTTP API for observing a running
// simulation. Adapted from the teacher's internal/api package: the same
// ServeMux-plus-corsMiddleware wiring and writeJSON helper, trimmed to the
// GET-only, no-admin-token surface a spectator needs — this simulation has
// no POST-driven admin control plane to protect.
package statusapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"uatsim/internal/ledger"
	"uatsim/internal/region"
	"uatsim/internal/uat"
)

// Server serves simulation status and trade history over HTTP.
type Server struct {
	Port   int
	Ledger *ledger.Ledger

	mu     sync.Mutex
	latest statusSnapshot

	trades *tradeRateLimiter
}

type statusSnapshot struct {
	Tick        uint64 `json:"tick"`
	RegionCount int    `json:"region_count"`
	set         bool
}

// NewServer creates a status server. Call Observe once per tick from
// SimulationOpts.StatusCallback to keep /api/v1/status current.
func NewServer(port int, led *ledger.Ledger) *Server {
	return &Server{Port: port, Ledger: led, trades: newTradeRateLimiter(60)}
}

// Observe records the latest tick and airspace size. It is safe to pass
// directly as a uat.SimulationOpts.StatusCallback.
func (s *Server) Observe(t uint64, air region.Airspace, _ uat.ReadOnlyBook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = statusSnapshot{Tick: t, RegionCount: len(air.Regions()), set: true}
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/trades", s.handleTrades)
	mux.HandleFunc("/api/v1/book/", s.handleBookHistory)

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("status API starting", "addr", addr)

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("status API server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed dashboard origins. Set
// CORS_ORIGINS to a comma-separated list of allowed origins; localhost dev
// servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	snap := s.latest
	s.mu.Unlock()

	if !snap.set {
		writeJSON(w, map[string]any{"running": false})
		return
	}
	writeJSON(w, map[string]any{
		"running":      true,
		"tick":         snap.Tick,
		"region_count": snap.RegionCount,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if ok, retryAfter := s.trades.allow(requesterIP(r)); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if s.Ledger == nil {
		http.Error(w, "ledger not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	trades, err := s.Ledger.RecentTrades(limit)
	if err != nil {
		slog.Error("trade history query failed", "error", err)
		http.Error(w, "trade history unavailable", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []ledger.TradeSummary{}
	}
	writeJSON(w, trades)
}

// handleBookHistory serves GET /api/v1/book/{regionHash}/{permitTick} —
// the resolved trade history for one permit.
func (s *Server) handleBookHistory(w http.ResponseWriter, r *http.Request) {
	if s.Ledger == nil {
		http.Error(w, "ledger not available", http.StatusServiceUnavailable)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/book/"), "/")
	if len(parts) != 2 {
		http.Error(w, "expected /api/v1/book/{region_hash}/{permit_tick}", http.StatusBadRequest)
		return
	}
	regionHash, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid region hash", http.StatusBadRequest)
		return
	}
	permitTick, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		http.Error(w, "invalid permit tick", http.StatusBadRequest)
		return
	}

	trades, err := s.Ledger.TradesForRegion(regionHash, permitTick)
	if err != nil {
		slog.Error("permit history query failed", "error", err)
		http.Error(w, "permit history unavailable", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []ledger.TradeSummary{}
	}
	writeJSON(w, trades)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// tradeRateLimiter caps how often one IP may query trade history. Only the
// /api/v1/trades route is bounded by it; status and book-history requests
// are not rate limited, although book-history also queries the ledger.
type tradeRateLimiter struct {
	mu        sync.Mutex
	perIP     map[string]*tradeBucket
	perMinute int
}

type tradeBucket struct {
	remaining int
	resetAt   time.Time
}

func newTradeRateLimiter(perMinute int) *tradeRateLimiter {
	rl := &tradeRateLimiter{perIP: make(map[string]*tradeBucket), perMinute: perMinute}
	go rl.evictStale()
	return rl
}

// allow reports whether ip may make another trade-history request now, and
// if not, how long until its window resets.
func (rl *tradeRateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.perIP[ip]
	if !ok || now.After(b.resetAt) {
		rl.perIP[ip] = &tradeBucket{remaining: rl.perMinute - 1, resetAt: now.Add(time.Minute)}
		return true, 0
	}
	if b.remaining > 0 {
		b.remaining--
		return true, 0
	}
	return false, b.resetAt.Sub(now)
}

func (rl *tradeRateLimiter) evictStale() {
	for {
		time.Sleep(time.Hour)
		rl.mu.Lock()
		now := time.Now()
		for ip, b := range rl.perIP {
			if now.After(b.resetAt.Add(time.Hour)) {
				delete(rl.perIP, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// requesterIP extracts the caller's address for rate-limiting purposes,
// preferring X-Forwarded-For when the status API sits behind a proxy.
func requesterIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return xff[:i]
		}
		return xff
	}
	if i := strings.LastIndexByte(r.RemoteAddr, ':'); i >= 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}
