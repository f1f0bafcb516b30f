package engine

import (
	"testing"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// sharedCellSim puts two identical agents on one stocked cell.
func sharedCellSim(t *testing.T, single bool) (*Simulation, world.Position) {
	t.Helper()
	sc := lineScenario(t, 2, 3)
	sc.Params.EnforceSingleHarvester = single
	s := mustSim(t, sc, 1)

	cell := world.Position{X: 2, Y: 0}
	s.Grid.Cell(cell).Resource = world.Resource{Type: world.ResourceA, Amount: 5, Original: 5}
	s.Agents[1].Pos = cell
	s.Index.Update(1, cell)
	return s, cell
}

func TestForage_SingleHarvesterPerCell(t *testing.T) {
	s, cell := sharedCellSim(t, true)

	r := mustStep(t, s)
	if len(r.Harvests) != 1 || r.Harvests[0].AgentID != 0 {
		t.Fatalf("harvests = %+v, want only agent 0", r.Harvests)
	}
	if got := s.Agents[0].Inventory.A(); got != 6 {
		t.Fatalf("agent 0 A = %d, want 6", got)
	}
	if got := s.Agents[1].Inventory.A(); got != 5 {
		t.Fatalf("agent 1 A = %d, want 5", got)
	}
	if s.Agents[1].Pos != cell {
		t.Fatalf("agent 1 moved to %v", s.Agents[1].Pos)
	}
	if got := s.Grid.Cell(cell).Resource.Amount; got != 4 {
		t.Fatalf("cell amount = %d, want 4", got)
	}
}

func TestForage_SharedCellWithoutEnforcement(t *testing.T) {
	s, cell := sharedCellSim(t, false)

	r := mustStep(t, s)
	if len(r.Harvests) != 2 || r.Harvests[0].AgentID != 0 || r.Harvests[1].AgentID != 1 {
		t.Fatalf("harvests = %+v, want agents 0 then 1", r.Harvests)
	}
	if got := s.Grid.Cell(cell).Resource.Amount; got != 3 {
		t.Fatalf("cell amount = %d, want 3", got)
	}
}
