package engine

import "fmt"

// InvariantViolation reports a state that correct phases can never produce.
// Stepping stops when one is returned.
type InvariantViolation struct {
	Tick    uint64
	AgentID int
	Kind    string // "negative_inventory", "asymmetric_pairing", ...
	Detail  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation at tick %d (agent %d): %s: %s", e.Tick, e.AgentID, e.Kind, e.Detail)
}
