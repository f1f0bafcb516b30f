package world

import (
	"math/rand"
	"testing"
)

func TestCellsWithinRadius_RowMajorAndBounded(t *testing.T) {
	g := NewGrid(5)
	cells := g.CellsWithinRadius(Position{X: 0, Y: 0}, 2)
	if len(cells) != 6 {
		t.Fatalf("len=%d want 6", len(cells))
	}
	for i := 1; i < len(cells); i++ {
		if !cells[i-1].Pos.Less(cells[i].Pos) {
			t.Fatalf("not row-major at %d: %v then %v", i, cells[i-1].Pos, cells[i].Pos)
		}
	}
	for _, c := range cells {
		if ManhattanDistance(c.Pos, Position{}) > 2 {
			t.Fatalf("cell %v outside radius", c.Pos)
		}
	}
	if got := len(g.CellsWithinRadius(Position{X: 2, Y: 2}, 1)); got != 5 {
		t.Fatalf("interior radius-1 diamond len=%d want 5", got)
	}
}

func TestSeedResources_Deterministic(t *testing.T) {
	seed := func() *Grid {
		g := NewGrid(12)
		g.SeedResources(rand.New(rand.NewSource(7)), 0.3, 4)
		return g
	}
	a, b := seed(), seed()
	stocked := 0
	for i := range a.Cells() {
		ca, cb := a.Cells()[i], b.Cells()[i]
		if ca != cb {
			t.Fatalf("cell %v differs: %+v vs %+v", ca.Pos, ca.Resource, cb.Resource)
		}
		if ca.Stocked() {
			stocked++
			if ca.Resource.Original != 4 || ca.Resource.Amount != 4 {
				t.Fatalf("cell %v: amount/original not recorded: %+v", ca.Pos, ca.Resource)
			}
		}
	}
	if stocked == 0 {
		t.Fatalf("expected some stocked cells")
	}
}

func TestSeedClustered_Deterministic(t *testing.T) {
	cfg := ClusterConfig{Seed: 99, Density: 0.4, Amount: 3, Scale: 0.2}
	a, b := NewGrid(20), NewGrid(20)
	na, nb := a.SeedClustered(cfg), b.SeedClustered(cfg)
	if na != nb {
		t.Fatalf("stocked counts differ: %d vs %d", na, nb)
	}
	for i := range a.Cells() {
		if a.Cells()[i] != b.Cells()[i] {
			t.Fatalf("cell %d differs", i)
		}
	}
}

func TestHarvestAndRegenerate(t *testing.T) {
	g := NewGrid(3)
	p := Position{X: 1, Y: 1}
	c := g.Cell(p)
	c.Resource = Resource{Type: ResourceA, Amount: 3, Original: 3}

	if got := g.Harvest(p, 2, 5); got != 2 {
		t.Fatalf("harvest took %d want 2", got)
	}
	if got := g.Harvest(p, 2, 6); got != 1 {
		t.Fatalf("second harvest took %d want 1", got)
	}
	if c.Stocked() || g.ActiveCount() != 1 {
		t.Fatalf("cell should be empty and active: %+v active=%d", c.Resource, g.ActiveCount())
	}

	// Cooldown of 3 from tick 6: no growth before tick 9.
	if n := g.Regenerate(8, 1, 3); n != 0 || c.Resource.Amount != 0 {
		t.Fatalf("grew during cooldown: n=%d amount=%d", n, c.Resource.Amount)
	}
	for tick := uint64(9); tick <= 11; tick++ {
		g.Regenerate(tick, 1, 3)
	}
	if c.Resource.Amount != 3 {
		t.Fatalf("amount=%d want 3", c.Resource.Amount)
	}
	if g.ActiveCount() != 0 {
		t.Fatalf("full cell should leave the active set")
	}
	g.Regenerate(12, 1, 3)
	if c.Resource.Amount != 3 {
		t.Fatalf("regrowth exceeded original: %d", c.Resource.Amount)
	}
}

func TestRegenerate_ZeroGrowthDropsCells(t *testing.T) {
	g := NewGrid(2)
	p := Position{X: 0, Y: 1}
	g.Cell(p).Resource = Resource{Type: ResourceB, Amount: 1, Original: 2}
	g.Harvest(p, 1, 1)
	g.Regenerate(10, 0, 0)
	if g.ActiveCount() != 0 {
		t.Fatalf("zero growth should empty the active set")
	}
}

func TestHarvest_OutOfBoundsOrEmpty(t *testing.T) {
	g := NewGrid(2)
	if g.Harvest(Position{X: 5, Y: 5}, 1, 1) != 0 || g.Harvest(Position{}, 1, 1) != 0 {
		t.Fatalf("harvest from nothing should take nothing")
	}
	if g.ActiveCount() != 0 {
		t.Fatalf("empty harvest must not mark cells")
	}
}
