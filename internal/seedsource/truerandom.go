// TrueRandom sources per-call seeds from random.org's integer-generation
// endpoint, pooling a batch per refill and falling back to crypto/rand when
// the service is unreachable or no API key is configured. Adapted from the
// teacher's internal/entropy.Client (same pool-refill-fallback shape), but
// asks random.org for integers in [-1e9, 1e9] instead of decimal fractions
// and rescales each one across the int64 range (see rescaleSeed) — a seed
// source has no use for a [0,1) float.
//
// Using TrueRandom breaks the determinism a caller gets from Deterministic:
// two runs seeded identically will not produce identical trade sequences.
// It exists only because spec section 5 permits swapping the generator as
// the sole supported nondeterminism knob; pass it via
// uat.SimulationOpts.Seeds deliberately, never as a default.
package seedsource

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

const seedPoolRefillSize = 100

// TrueRandom provides seeds drawn from random.org, or crypto/rand when the
// service is unreachable or no API key is configured.
type TrueRandom struct {
	apiKey string
	client *http.Client

	mu   sync.Mutex
	pool []int64
}

// NewTrueRandom creates a random.org-backed seed source. An empty apiKey is
// legal: every call falls back to crypto/rand.
func NewTrueRandom(apiKey string) *TrueRandom {
	return &TrueRandom{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Next returns the next seed.
func (t *TrueRandom) Next() int64 {
	if t.apiKey == "" {
		return cryptoRandSeed()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pool) == 0 {
		t.refill()
	}
	if len(t.pool) == 0 {
		return cryptoRandSeed()
	}

	seed := t.pool[0]
	t.pool = t.pool[1:]
	return seed
}

// refill requests a fresh batch of integers from random.org.
// random.org's generateIntegers only spans [-1e9, 1e9], so each value is
// rescaled across the full int64 range by rescaleSeed below.
func (t *TrueRandom) refill() {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey":      t.apiKey,
			"n":           seedPoolRefillSize,
			"min":         -1000000000,
			"max":         1000000000,
			"replacement": true,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return
	}

	resp, err := t.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return
	}
	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return
	}

	for _, v := range result.Result.Random.Data {
		t.pool = append(t.pool, rescaleSeed(v))
	}
	slog.Debug("random.org seed pool refilled", "count", len(result.Result.Random.Data))
}

// rescaleSeed spreads a value drawn from [-1e9, 1e9] across the full int64
// range so pooled and crypto/rand-fallback seeds are drawn from comparable
// spreads.
func rescaleSeed(v int64) int64 {
	const scale = math.MaxInt64 / 1_000_000_000
	return v * scale
}

// cryptoRandSeed generates a seed using crypto/rand as a fallback when
// random.org is unavailable or disabled.
func cryptoRandSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}
