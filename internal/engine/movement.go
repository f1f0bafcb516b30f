package engine

import (
	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// move computes every agent's step from positions at the start of the phase,
// then applies all steps at once.
func (s *Simulation) move() {
	start := make([]world.Position, len(s.Agents))
	for i, a := range s.Agents {
		start[i] = a.Pos
	}

	next := make([]world.Position, len(s.Agents))
	for i, a := range s.Agents {
		next[i] = s.Grid.Clamp(s.stepFor(a, start))
	}

	for i, a := range s.Agents {
		if next[i] != a.Pos {
			a.Pos = next[i]
			s.Index.Update(int(a.ID), a.Pos)
		}
	}
}

func (s *Simulation) stepFor(a *agents.Agent, start []world.Position) world.Position {
	from := start[a.ID]
	if partner, ok := a.Partner(); ok {
		to := start[partner]
		if world.ManhattanDistance(from, to) <= s.Params.InteractionRadius {
			return from
		}
		if agents.DiagonalDeadlock(from, to) {
			// Higher id yields; the lower id closes one axis.
			if a.ID > partner {
				return from
			}
			return agents.NextStep(from, to, 1)
		}
		return agents.NextStep(from, agents.Midpoint(from, to), a.MoveBudget)
	}
	if a.ForageCommitted && a.ForageTarget != nil {
		return agents.NextStep(from, *a.ForageTarget, a.MoveBudget)
	}
	return from
}
