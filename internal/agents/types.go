// Package agents provides the agent record, spawning from a scenario, and
// the per-agent movement and ranking rules.
package agents

import (
	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// AgentID is a unique identifier for an agent. Ids are dense, start at 0 and
// define every processing order in the simulation.
type AgentID int

// Agent is one trader on the grid.
type Agent struct {
	ID AgentID `json:"id"`

	// Location
	Pos          world.Position `json:"pos"`
	VisionRadius int            `json:"vision_radius"`
	MoveBudget   int            `json:"move_budget"`

	// Economic
	Inventory economy.Inventory   `json:"inventory"`
	Prefs     economy.Preferences `json:"prefs"`     // Immutable after spawn
	MixIndex  int                 `json:"mix_index"` // Which scenario utility produced Prefs
	Quotes    economy.Quotes      `json:"quotes"`    // Only refreshed in housekeeping

	// Commitments
	Target          *world.Position    `json:"target,omitempty"`
	TargetAgent     *AgentID           `json:"target_agent,omitempty"`
	PairedWith      *AgentID           `json:"paired_with,omitempty"`
	ForageTarget    *world.Position    `json:"forage_target,omitempty"`
	ForageCommitted bool               `json:"forage_committed"`
	Cooldowns       map[AgentID]uint64 `json:"cooldowns,omitempty"` // Partner → tick the cooldown ends

	InventoryChanged bool `json:"-"`

	// Scratch, cleared at the start of every decision pass.
	Preferences []Preference `json:"-"`
	Decision    DecisionKind `json:"-"`
}

// Trader returns the economy view of a.
func (a *Agent) Trader() economy.Trader {
	return economy.Trader{ID: int(a.ID), Prefs: a.Prefs, Inventory: a.Inventory, Quotes: a.Quotes}
}

// Utility returns the agent's total utility at its current inventory.
func (a *Agent) Utility() float64 {
	return a.Prefs.Total(a.Inventory)
}

// RefreshQuotes recomputes quotes from the current inventory.
func (a *Agent) RefreshQuotes(spread, eps float64) {
	a.Quotes = economy.ComputeQuotes(a.Prefs, a.Inventory, spread, eps)
	a.InventoryChanged = false
}

// IsPaired reports whether a has a trading partner.
func (a *Agent) IsPaired() bool { return a.PairedWith != nil }

// Partner returns the paired partner id, if any.
func (a *Agent) Partner() (AgentID, bool) {
	if a.PairedWith == nil {
		return 0, false
	}
	return *a.PairedWith, true
}

// PairWith commits a to partner and drops any movement target.
func (a *Agent) PairWith(partner AgentID) {
	p := partner
	a.PairedWith = &p
	a.TargetAgent = &p
	a.Target = nil
}

// Unpair clears the pairing and the trade target.
func (a *Agent) Unpair() {
	a.PairedWith = nil
	a.TargetAgent = nil
	a.Target = nil
}

// InCooldown reports whether a refuses to consider partner at tick.
func (a *Agent) InCooldown(partner AgentID, tick uint64) bool {
	until, ok := a.Cooldowns[partner]
	return ok && tick < until
}

// SetCooldown blocks partner until the given tick.
func (a *Agent) SetCooldown(partner AgentID, until uint64) {
	if a.Cooldowns == nil {
		a.Cooldowns = make(map[AgentID]uint64)
	}
	a.Cooldowns[partner] = until
}

// ExpireCooldowns drops cooldowns that have ended by tick.
func (a *Agent) ExpireCooldowns(tick uint64) int {
	n := 0
	for partner, until := range a.Cooldowns {
		if tick >= until {
			delete(a.Cooldowns, partner)
			n++
		}
	}
	return n
}

// ClearCooldowns forgets every cooldown.
func (a *Agent) ClearCooldowns() {
	a.Cooldowns = nil
}

// CommitForage sets a forage target and commits to it.
func (a *Agent) CommitForage(p world.Position) {
	t := p
	a.ForageTarget = &t
	a.ForageCommitted = true
	a.Target = &t
}

// ClearForage drops the forage target and commitment.
func (a *Agent) ClearForage() {
	a.ForageTarget = nil
	a.ForageCommitted = false
	if a.TargetAgent == nil {
		a.Target = nil
	}
}

// ResetScratch clears the per-tick fields.
func (a *Agent) ResetScratch() {
	a.Preferences = a.Preferences[:0]
	a.Decision = DecisionIdle
}
