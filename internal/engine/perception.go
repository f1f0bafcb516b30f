package engine

import (
	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// NeighborView is what an agent sees of another agent at the start of a tick.
type NeighborView struct {
	ID       agents.AgentID
	Pos      world.Position
	Distance int
	Trader   economy.Trader
	Paired   bool
	Foraging bool // Committed to a forage target at tick start
}

// ResourceView is a visible stocked cell.
type ResourceView struct {
	Pos      world.Position
	Type     world.ResourceType
	Amount   int
	Distance int
}

// Perception is one agent's frozen view of its surroundings.
type Perception struct {
	Neighbors []NeighborView // ascending id
	Resources []ResourceView // row-major
}

// perceive snapshots every agent's view before any decision mutates state.
// Indexed by agent id.
func (s *Simulation) perceive() []Perception {
	out := make([]Perception, len(s.Agents))
	for _, a := range s.Agents {
		var p Perception
		for _, id := range s.Index.QueryRadius(a.Pos, a.VisionRadius) {
			if id == int(a.ID) {
				continue
			}
			n := s.Agents[id]
			p.Neighbors = append(p.Neighbors, NeighborView{
				ID:       n.ID,
				Pos:      n.Pos,
				Distance: world.ManhattanDistance(a.Pos, n.Pos),
				Trader:   n.Trader(),
				Paired:   n.IsPaired(),
				Foraging: n.ForageCommitted,
			})
		}
		for _, c := range s.Grid.ResourceCellsWithinRadius(a.Pos, a.VisionRadius) {
			p.Resources = append(p.Resources, ResourceView{
				Pos:      c.Pos,
				Type:     c.Resource.Type,
				Amount:   c.Resource.Amount,
				Distance: world.ManhattanDistance(a.Pos, c.Pos),
			})
		}
		out[a.ID] = p
	}
	return out
}
