// Package ledger persists trade history to SQLite, adapted from the
// teacher's internal/persistence package: same sqlx-over-modernc.org/sqlite
// connection setup and migrate-then-insert shape, retargeted from
// agent/settlement snapshots to an append-only trade log keyed by permit.
package ledger

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"uatsim/internal/uat"
)

// Ledger wraps a SQLite connection for trade persistence.
type Ledger struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at path and runs migrations.
func Open(path string) (*Ledger, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l := &Ledger{conn: conn}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

// Close closes the underlying connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		resolved_tick INTEGER NOT NULL,
		permit_tick INTEGER NOT NULL,
		region_hash INTEGER NOT NULL,
		seller_id INTEGER,
		buyer_id INTEGER NOT NULL,
		price REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_resolved_tick ON trades(resolved_tick);
	CREATE INDEX IF NOT EXISTS idx_trades_region ON trades(region_hash, permit_tick);
	`
	_, err := l.conn.Exec(schema)
	return err
}

// RecordTrade persists one resolved trade. It matches the uat.TradeCallback
// signature, so it can be wired directly into SimulationOpts.TradeCallback.
func (l *Ledger) RecordTrade(rec uat.TradeRecord) {
	var seller *int64
	if rec.Seller != nil {
		v := int64(*rec.Seller)
		seller = &v
	}
	_, err := l.conn.Exec(
		`INSERT INTO trades (resolved_tick, permit_tick, region_hash, seller_id, buyer_id, price)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.T, rec.PermitTime, int64(rec.Region.Hash()), seller, int64(rec.Buyer), float64(rec.Price),
	)
	if err != nil {
		slog.Error("ledger: record trade failed", "error", err, "tick", rec.T)
	}
}

// TradeSummary is a persisted trade, read back for the status API.
type TradeSummary struct {
	ResolvedTick int64   `db:"resolved_tick" json:"resolved_tick"`
	PermitTick   int64   `db:"permit_tick" json:"permit_tick"`
	RegionHash   int64   `db:"region_hash" json:"region_hash"`
	SellerID     *int64  `db:"seller_id" json:"seller_id,omitempty"`
	BuyerID      int64   `db:"buyer_id" json:"buyer_id"`
	Price        float64 `db:"price" json:"price"`
}

// RecentTrades returns the most recently resolved trades, newest first.
func (l *Ledger) RecentTrades(limit int) ([]TradeSummary, error) {
	var rows []TradeSummary
	err := l.conn.Select(&rows,
		"SELECT resolved_tick, permit_tick, region_hash, seller_id, buyer_id, price FROM trades ORDER BY id DESC LIMIT ?",
		limit,
	)
	return rows, err
}

// TradesForRegion returns every persisted trade for a given region hash and
// permit tick, oldest first — used by the status API's per-permit history
// endpoint.
func (l *Ledger) TradesForRegion(regionHash uint64, permitTick uint64) ([]TradeSummary, error) {
	var rows []TradeSummary
	err := l.conn.Select(&rows,
		"SELECT resolved_tick, permit_tick, region_hash, seller_id, buyer_id, price FROM trades WHERE region_hash = ? AND permit_tick = ? ORDER BY id ASC",
		int64(regionHash), int64(permitTick),
	)
	return rows, err
}

// SaveMeta stores a key-value pair, e.g. the last tick simulated.
func (l *Ledger) SaveMeta(key, value string) error {
	_, err := l.conn.Exec(
		"INSERT OR REPLACE INTO ledger_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (l *Ledger) GetMeta(key string) (string, error) {
	var value string
	err := l.conn.Get(&value, "SELECT value FROM ledger_meta WHERE key = ?", key)
	return value, err
}
