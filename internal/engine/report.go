package engine

import (
	"log/slog"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// Pairing event kinds and reason codes.
const (
	EventPair   = "pair"
	EventUnpair = "unpair"

	ReasonMutualConsent   = "mutual_consent"
	ReasonGreedyFallback  = "greedy_fallback"
	ReasonTradeFailed     = "trade_failed"
	ReasonModeChange      = "mode_change"
	ReasonIntegrityRepair = "integrity_repair"
)

// TickReport is the read-only telemetry of one tick. It holds values only,
// never pointers into simulation state.
type TickReport struct {
	RunID     string             `json:"run_id,omitempty"`
	Tick      uint64             `json:"tick"`
	Mode      Mode               `json:"mode"`
	Agents    []AgentSnapshot    `json:"agents"`
	Trades    []TradeRecord      `json:"trades"`
	Harvests  []HarvestRecord    `json:"harvests"`
	Decisions []DecisionRecord   `json:"decisions"`
	Pairings  []PairingEvent     `json:"pairings"`
	Resources []ResourceSnapshot `json:"resources"`
	Regrown   int                `json:"regrown"`
	Digest    string             `json:"digest"`
}

// AgentSnapshot is the per-agent view exported after each tick.
type AgentSnapshot struct {
	ID           int                `json:"id"`
	Pos          world.Position     `json:"pos"`
	Inventory    map[string]int     `json:"inventory"`
	Utility      float64            `json:"utility"`
	UtilityKind  string             `json:"utility_kind"`
	Quotes       map[string]float64 `json:"quotes"`
	PairedWith   *int               `json:"paired_with,omitempty"`
	ForageTarget *world.Position    `json:"forage_target,omitempty"`
	Decision     string             `json:"decision"`
}

// TradeRecord describes one executed compensating block.
type TradeRecord struct {
	Tick      uint64  `json:"tick"`
	SellerID  int     `json:"seller_id"`
	BuyerID   int     `json:"buyer_id"`
	Pair      string  `json:"pair"`
	GivenGood string  `json:"given_good"`
	PaidGood  string  `json:"paid_good"`
	DGiven    int     `json:"d_given"`
	DPaid     int     `json:"d_paid"`
	Price     float64 `json:"price"`
	Ask       float64 `json:"ask"`
	Bid       float64 `json:"bid"`
	SellerDU  float64 `json:"seller_du"`
	BuyerDU   float64 `json:"buyer_du"`
}

// HarvestRecord describes one forage action.
type HarvestRecord struct {
	Tick    uint64         `json:"tick"`
	AgentID int            `json:"agent_id"`
	Pos     world.Position `json:"pos"`
	Good    string         `json:"good"`
	Amount  int            `json:"amount"`
}

// DecisionRecord is one agent's decision-pass outcome.
type DecisionRecord struct {
	Tick        uint64          `json:"tick"`
	AgentID     int             `json:"agent_id"`
	Kind        string          `json:"kind"`
	Partner     *int            `json:"partner,omitempty"`
	Target      *world.Position `json:"target,omitempty"`
	Candidates  int             `json:"candidates"`
	TopSurplus  float64         `json:"top_surplus"`
	ForageScore float64         `json:"forage_score"`
}

// PairingEvent records a pair or unpair with its reason.
type PairingEvent struct {
	Tick   uint64 `json:"tick"`
	Kind   string `json:"kind"`
	A      int    `json:"a"`
	B      int    `json:"b"`
	Reason string `json:"reason"`
}

// ResourceSnapshot is the state of one seeded cell.
type ResourceSnapshot struct {
	Pos      world.Position `json:"pos"`
	Type     string         `json:"type"`
	Amount   int            `json:"amount"`
	Original int            `json:"original"`
}

// Sink consumes tick reports. Record must not block the simulation and must
// not retain the report for mutation.
type Sink interface {
	Record(r *TickReport)
}

// MultiSink fans a report out to every sink in order.
type MultiSink []Sink

// Record forwards r to each non-nil sink.
func (m MultiSink) Record(r *TickReport) {
	for _, s := range m {
		if s != nil {
			s.Record(r)
		}
	}
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r *TickReport)

// Record calls f(r).
func (f SinkFunc) Record(r *TickReport) { f(r) }

// LogSink writes a one-line summary per tick at debug level.
type LogSink struct {
	Logger *slog.Logger
}

// Record logs a summary of r at debug level.
func (l LogSink) Record(r *TickReport) {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.Debug("tick",
		"tick", r.Tick,
		"mode", r.Mode,
		"trades", len(r.Trades),
		"harvests", len(r.Harvests),
		"pairings", len(r.Pairings),
		"regrown", r.Regrown,
	)
}

func snapshotAgent(a *agents.Agent) AgentSnapshot {
	snap := AgentSnapshot{
		ID:          int(a.ID),
		Pos:         a.Pos,
		Inventory:   a.Inventory.Map(),
		Utility:     a.Utility(),
		UtilityKind: a.Prefs.Utility.Kind.String(),
		Quotes:      a.Quotes.Keys(),
		Decision:    a.Decision.String(),
	}
	if p, ok := a.Partner(); ok {
		id := int(p)
		snap.PairedWith = &id
	}
	if a.ForageTarget != nil {
		t := *a.ForageTarget
		snap.ForageTarget = &t
	}
	return snap
}

func snapshotResources(g *world.Grid) []ResourceSnapshot {
	var out []ResourceSnapshot
	for _, c := range g.Cells() {
		if c.Resource.Type == world.ResourceNone {
			continue
		}
		out = append(out, ResourceSnapshot{
			Pos:      c.Pos,
			Type:     c.Resource.Type.String(),
			Amount:   c.Resource.Amount,
			Original: c.Resource.Original,
		})
	}
	return out
}
