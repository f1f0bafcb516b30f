package persistence

import "fmt"

// RunRow is one registered run.
type RunRow struct {
	ID         string `db:"id" json:"id"`
	Scenario   string `db:"scenario" json:"scenario"`
	Seed       int64  `db:"seed" json:"seed"`
	GridSize   int    `db:"grid_size" json:"grid_size"`
	Agents     int    `db:"agents" json:"agents"`
	Regime     string `db:"regime" json:"regime"`
	ConfigJSON string `db:"config_json" json:"-"`
	StartedAt  string `db:"started_at" json:"started_at"`
}

// TradeRow is a persisted trade.
type TradeRow struct {
	Tick     uint64  `db:"tick" json:"tick"`
	SellerID int     `db:"seller_id" json:"seller_id"`
	BuyerID  int     `db:"buyer_id" json:"buyer_id"`
	Pair     string  `db:"pair" json:"pair"`
	DGiven   int     `db:"d_given" json:"d_given"`
	DPaid    int     `db:"d_paid" json:"d_paid"`
	Price    float64 `db:"price" json:"price"`
	SellerDU float64 `db:"seller_du" json:"seller_du"`
	BuyerDU  float64 `db:"buyer_du" json:"buyer_du"`
}

// PairingRow is a persisted pair or unpair event.
type PairingRow struct {
	Tick   uint64 `db:"tick" json:"tick"`
	Kind   string `db:"kind" json:"kind"`
	A      int    `db:"agent_a" json:"a"`
	B      int    `db:"agent_b" json:"b"`
	Reason string `db:"reason" json:"reason"`
}

// AgentRow is one agent at one tick.
type AgentRow struct {
	Tick       uint64  `db:"tick" json:"tick"`
	AgentID    int     `db:"agent_id" json:"agent_id"`
	X          int     `db:"x" json:"x"`
	Y          int     `db:"y" json:"y"`
	A          int     `db:"inv_a" json:"A"`
	B          int     `db:"inv_b" json:"B"`
	M          int     `db:"inv_m" json:"M"`
	Utility    float64 `db:"utility" json:"utility"`
	PairedWith *int    `db:"paired_with" json:"paired_with,omitempty"`
	Decision   string  `db:"decision" json:"decision"`
}

// TickRow summarizes one persisted tick.
type TickRow struct {
	Tick     uint64 `db:"tick" json:"tick"`
	Mode     string `db:"mode" json:"mode"`
	Trades   int    `db:"trades" json:"trades"`
	Harvests int    `db:"harvests" json:"harvests"`
	Digest   string `db:"digest" json:"digest"`
}

// Runs returns every run, newest first.
func (db *DB) Runs() ([]RunRow, error) {
	var rows []RunRow
	err := db.conn.Select(&rows, "SELECT * FROM runs ORDER BY started_at DESC, id")
	return rows, err
}

// Run returns a single run by id.
func (db *DB) Run(id string) (RunRow, error) {
	var row RunRow
	if err := db.conn.Get(&row, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return row, fmt.Errorf("run %s: %w", id, err)
	}
	return row, nil
}

// RecentTrades returns the most recent trades of a run, newest first.
func (db *DB) RecentTrades(runID string, limit int) ([]TradeRow, error) {
	var rows []TradeRow
	err := db.conn.Select(&rows,
		`SELECT tick, seller_id, buyer_id, pair, d_given, d_paid, price, seller_du, buyer_du
		 FROM trades WHERE run_id = ? ORDER BY id DESC LIMIT ?`,
		runID, limit,
	)
	return rows, err
}

// PairingEvents returns a run's pairing events in the order they happened.
func (db *DB) PairingEvents(runID string) ([]PairingRow, error) {
	var rows []PairingRow
	err := db.conn.Select(&rows,
		"SELECT tick, kind, agent_a, agent_b, reason FROM pairing_events WHERE run_id = ? ORDER BY id",
		runID,
	)
	return rows, err
}

// AgentHistory returns one agent's snapshots across a run in tick order.
func (db *DB) AgentHistory(runID string, agentID int) ([]AgentRow, error) {
	var rows []AgentRow
	err := db.conn.Select(&rows,
		`SELECT tick, agent_id, x, y, inv_a, inv_b, inv_m, utility, paired_with, decision
		 FROM agent_snapshots WHERE run_id = ? AND agent_id = ? ORDER BY tick`,
		runID, agentID,
	)
	return rows, err
}

// Ticks returns the per-tick summaries of a run in order.
func (db *DB) Ticks(runID string) ([]TickRow, error) {
	var rows []TickRow
	err := db.conn.Select(&rows,
		"SELECT tick, mode, trades, harvests, digest FROM ticks WHERE run_id = ? ORDER BY tick",
		runID,
	)
	return rows, err
}
