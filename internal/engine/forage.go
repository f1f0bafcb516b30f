package engine

import "github.com/cmfunderburk/vmt-dev-sub000/internal/world"

// forage lets every unpaired agent standing on a stocked cell harvest, in id
// order. With single-harvester enforcement only the first agent on a cell
// harvests this tick.
func (s *Simulation) forage() {
	harvested := make(map[world.Position]bool)
	for _, a := range s.Agents {
		if a.IsPaired() {
			continue
		}
		c := s.Grid.Cell(a.Pos)
		if c == nil || !c.Stocked() {
			continue
		}
		if s.Params.EnforceSingleHarvester && harvested[a.Pos] {
			continue
		}
		typ := c.Resource.Type
		took := s.Grid.Harvest(a.Pos, s.Params.ForageRate, s.Tick)
		if took == 0 {
			continue
		}
		harvested[a.Pos] = true

		a.Inventory = a.Inventory.Moved(typ.Good(), took)
		a.InventoryChanged = true
		s.releaseClaim(a)
		a.ClearForage()
		a.ClearCooldowns()

		s.report.Harvests = append(s.report.Harvests, HarvestRecord{
			Tick:    s.Tick,
			AgentID: int(a.ID),
			Pos:     a.Pos,
			Good:    typ.Good().String(),
			Amount:  took,
		})
	}
}
