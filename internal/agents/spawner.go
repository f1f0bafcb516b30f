package agents

import (
	"fmt"
	"math/rand"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/scenario"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// Spawner creates the initial population. It draws from the run's shared
// generator so that the draw order is part of the run's determinism.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates an agent spawner over rng.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{rng: rng}
}

// Spawn creates sc.Agents agents with ids 0..n-1. Draws happen in a fixed
// order: all positions first, then per agent (ascending id) inventories A, B,
// M and the utility mix entry.
func (s *Spawner) Spawn(sc scenario.Scenario) ([]*Agent, error) {
	utils := make([]economy.Utility, len(sc.Utilities.Mix))
	for i, m := range sc.Utilities.Mix {
		u, err := m.Build()
		if err != nil {
			return nil, fmt.Errorf("utility mix entry %d: %w", i, err)
		}
		utils[i] = u
	}

	positions := s.positions(sc)
	inv := sc.InitialInventories
	p := sc.Params

	out := make([]*Agent, 0, sc.Agents)
	for i := 0; i < sc.Agents; i++ {
		a := &Agent{
			ID:           s.nextID,
			Pos:          positions[i],
			VisionRadius: p.VisionRadius,
			MoveBudget:   p.MoveBudgetPerTick,
			Inventory: economy.NewInventory(
				inv.A.Sample(s.rng, i),
				inv.B.Sample(s.rng, i),
				inv.M.Sample(s.rng, i),
			),
		}
		a.MixIndex = s.pickUtility(sc.Utilities.Mix)
		a.Prefs = economy.Preferences{Utility: utils[a.MixIndex], Lambda: p.LambdaMoney}
		if err := a.Prefs.Utility.ValidateEndowment(a.Inventory.A(), a.Inventory.B()); err != nil {
			return nil, fmt.Errorf("agent %d: %w", a.ID, err)
		}
		a.RefreshQuotes(p.Spread, p.Epsilon)
		out = append(out, a)
		s.nextID++
	}
	return out, nil
}

// positions returns explicit positions or a collision-free uniform sample.
func (s *Spawner) positions(sc scenario.Scenario) []world.Position {
	out := make([]world.Position, sc.Agents)
	if len(sc.Positions) > 0 {
		for i, p := range sc.Positions {
			out[i] = world.Position{X: p[0], Y: p[1]}
		}
		return out
	}
	n := sc.GridSize
	perm := s.rng.Perm(n * n)
	for i := range out {
		out[i] = world.Position{X: perm[i] % n, Y: perm[i] / n}
	}
	return out
}

// pickUtility draws a mix index with probability proportional to weight.
func (s *Spawner) pickUtility(mix []scenario.UtilitySpec) int {
	total := 0.0
	for _, m := range mix {
		total += m.Weight
	}
	r := s.rng.Float64() * total
	for i, m := range mix {
		r -= m.Weight
		if r < 0 {
			return i
		}
	}
	return len(mix) - 1
}
