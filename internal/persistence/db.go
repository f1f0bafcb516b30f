// Package persistence stores run telemetry: a SQLite run database and a
// compressed JSONL tick log. Both implement engine.Sink.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/engine"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/scenario"
)

// DB wraps a SQLite connection for run telemetry. Reports handed to Record
// are queued and written by a single goroutine.
type DB struct {
	conn *sqlx.DB

	// mu guards closed and the send on ch against Close.
	mu     sync.RWMutex
	ch     chan *engine.TickReport
	closed bool
	wg     sync.WaitGroup
	once   sync.Once

	dropped atomic.Uint64
	written atomic.Uint64
}

// DefaultQueueSize is the report buffer used by Open.
const DefaultQueueSize = 1024

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	return OpenWithQueue(path, DefaultQueueSize)
}

// OpenWithQueue is Open with an explicit report queue size.
func OpenWithQueue(path string, queue int) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("open db: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, ch: make(chan *engine.TickReport, max(queue, 1))}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.loop()
	}()
	return db, nil
}

// Close drains the queue and closes the database connection.
func (db *DB) Close() error {
	var err error
	db.once.Do(func() {
		db.mu.Lock()
		db.closed = true
		close(db.ch)
		db.mu.Unlock()
		db.wg.Wait()
		err = db.conn.Close()
	})
	return err
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		grid_size INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		regime TEXT NOT NULL,
		config_json TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_snapshots (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		inv_a INTEGER NOT NULL,
		inv_b INTEGER NOT NULL,
		inv_m INTEGER NOT NULL,
		utility REAL NOT NULL,
		utility_kind TEXT NOT NULL,
		paired_with INTEGER,
		decision TEXT NOT NULL,
		quotes_json TEXT NOT NULL,
		PRIMARY KEY (run_id, tick, agent_id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		seller_id INTEGER NOT NULL,
		buyer_id INTEGER NOT NULL,
		pair TEXT NOT NULL,
		d_given INTEGER NOT NULL,
		d_paid INTEGER NOT NULL,
		price REAL NOT NULL,
		ask REAL NOT NULL,
		bid REAL NOT NULL,
		seller_du REAL NOT NULL,
		buyer_du REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		partner INTEGER,
		target_x INTEGER,
		target_y INTEGER,
		candidates INTEGER NOT NULL,
		top_surplus REAL NOT NULL,
		PRIMARY KEY (run_id, tick, agent_id)
	);

	CREATE TABLE IF NOT EXISTS pairing_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		agent_a INTEGER NOT NULL,
		agent_b INTEGER NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_snapshots (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, x, y)
	);

	CREATE TABLE IF NOT EXISTS ticks (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		mode TEXT NOT NULL,
		trades INTEGER NOT NULL,
		harvests INTEGER NOT NULL,
		digest TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_run_tick ON trades(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_pairing_run_tick ON pairing_events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun registers a new run and returns its id. Reports recorded later
// should carry this id.
func (db *DB) BeginRun(sc scenario.Scenario, seed int64) (string, error) {
	id := uuid.NewString()
	cfg, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("encode scenario: %w", err)
	}
	_, err = db.conn.Exec(`INSERT INTO runs
		(id, scenario, seed, grid_size, agents, regime, config_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sc.Name, seed, sc.GridSize, sc.Agents, string(sc.Params.ExchangeRegime),
		string(cfg), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Record queues a report for writing. It never blocks: when the queue is
// full the report is dropped and counted.
func (db *DB) Record(r *engine.TickReport) {
	if db == nil || r == nil {
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return
	}
	select {
	case db.ch <- r:
	default:
		if n := db.dropped.Add(1); n == 1 || n%100 == 0 {
			slog.Warn("telemetry queue full, dropping reports", "tick", r.Tick, "dropped", n)
		}
	}
}

// Dropped returns how many reports were discarded because the queue was full.
func (db *DB) Dropped() uint64 { return db.dropped.Load() }

// Written returns how many reports have been committed.
func (db *DB) Written() uint64 { return db.written.Load() }

func (db *DB) loop() {
	for r := range db.ch {
		if err := db.writeReport(r); err != nil {
			slog.Error("write tick report", "run", r.RunID, "tick", r.Tick, "error", err)
			continue
		}
		db.written.Add(1)
	}
}

func (db *DB) writeReport(r *engine.TickReport) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO ticks (run_id, tick, mode, trades, harvests, digest)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Tick, string(r.Mode), len(r.Trades), len(r.Harvests), r.Digest,
	); err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}

	agentStmt, err := tx.Preparex(`INSERT OR REPLACE INTO agent_snapshots
		(run_id, tick, agent_id, x, y, inv_a, inv_b, inv_m, utility, utility_kind,
		 paired_with, decision, quotes_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer agentStmt.Close()
	for _, a := range r.Agents {
		quotes, _ := json.Marshal(a.Quotes)
		if _, err := agentStmt.Exec(
			r.RunID, r.Tick, a.ID, a.Pos.X, a.Pos.Y,
			a.Inventory["A"], a.Inventory["B"], a.Inventory["M"],
			a.Utility, a.UtilityKind, a.PairedWith, a.Decision, string(quotes),
		); err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	for _, t := range r.Trades {
		if _, err := tx.Exec(`INSERT INTO trades
			(run_id, tick, seller_id, buyer_id, pair, d_given, d_paid, price, ask, bid, seller_du, buyer_du)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, t.Tick, t.SellerID, t.BuyerID, t.Pair, t.DGiven, t.DPaid,
			t.Price, t.Ask, t.Bid, t.SellerDU, t.BuyerDU,
		); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	for _, d := range r.Decisions {
		var tgtX, tgtY *int
		if d.Target != nil {
			x, y := d.Target.X, d.Target.Y
			tgtX, tgtY = &x, &y
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO decisions
			(run_id, tick, agent_id, kind, partner, target_x, target_y, candidates, top_surplus)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, d.Tick, d.AgentID, d.Kind, d.Partner, tgtX, tgtY, d.Candidates, d.TopSurplus,
		); err != nil {
			return fmt.Errorf("insert decision: %w", err)
		}
	}

	for _, p := range r.Pairings {
		if _, err := tx.Exec(`INSERT INTO pairing_events (run_id, tick, kind, agent_a, agent_b, reason)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, p.Tick, p.Kind, p.A, p.B, p.Reason,
		); err != nil {
			return fmt.Errorf("insert pairing event: %w", err)
		}
	}

	for _, c := range r.Resources {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO resource_snapshots (run_id, tick, x, y, type, amount)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Tick, c.Pos.X, c.Pos.Y, c.Type, c.Amount,
		); err != nil {
			return fmt.Errorf("insert resource: %w", err)
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair for a run.
func (db *DB) SaveMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	return err
}

// GetMeta retrieves a run metadata value.
func (db *DB) GetMeta(runID, key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key)
	return value, err
}
