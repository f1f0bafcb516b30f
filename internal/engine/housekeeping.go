package engine

import "fmt"

// housekeeping refreshes quotes for changed inventories, expires cooldowns
// and checks the pairing and inventory invariants. Quotes change nowhere
// else, so every earlier phase of the tick saw the same prices.
func (s *Simulation) housekeeping() error {
	for _, a := range s.Agents {
		if a.InventoryChanged {
			a.RefreshQuotes(s.Params.Spread, s.Params.Epsilon)
		}
		a.ExpireCooldowns(s.Tick)
	}

	for _, a := range s.Agents {
		if !a.Inventory.NonNegative() {
			return &InvariantViolation{
				Tick:    s.Tick,
				AgentID: int(a.ID),
				Kind:    "negative_inventory",
				Detail:  fmt.Sprintf("inventory %v", a.Inventory.Map()),
			}
		}
	}
	return s.checkPairings()
}

// checkPairings verifies every pairing is symmetric. Asymmetries are
// repaired and reported, or fail the tick under strict integrity.
func (s *Simulation) checkPairings() error {
	for _, a := range s.Agents {
		p, ok := a.Partner()
		if !ok {
			continue
		}
		b := s.AgentIndex[p]
		if b != nil && b.ID != a.ID {
			if back, ok := b.Partner(); ok && back == a.ID {
				continue
			}
		}

		detail := fmt.Sprintf("agent %d paired with %d which does not point back", a.ID, p)
		if s.Params.StrictIntegrity {
			return &InvariantViolation{Tick: s.Tick, AgentID: int(a.ID), Kind: "asymmetric_pairing", Detail: detail}
		}
		s.log.Warn("repairing asymmetric pairing", "tick", s.Tick, "agent", a.ID, "partner", p)
		a.Unpair()
		s.recordPairing(EventUnpair, a.ID, p, ReasonIntegrityRepair)
	}
	return nil
}
