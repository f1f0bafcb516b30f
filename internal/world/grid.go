// Package world provides the square resource grid and the spatial index
// used for neighbor queries.
package world

import (
	"fmt"
	"sort"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
)

// Position is a cell coordinate on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Less orders positions row-major: by y, then x.
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// ManhattanDistance returns |dx| + |dy|.
func ManhattanDistance(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// ResourceType enumerates what a cell can yield.
type ResourceType uint8

const (
	ResourceNone ResourceType = iota
	ResourceA                 // Yields good A
	ResourceB                 // Yields good B
)

// Good returns the economy good a resource yields.
func (r ResourceType) Good() economy.GoodType {
	if r == ResourceB {
		return economy.GoodB
	}
	return economy.GoodA
}

func (r ResourceType) String() string {
	switch r {
	case ResourceA:
		return "A"
	case ResourceB:
		return "B"
	default:
		return ""
	}
}

// Resource is the stock held by one cell.
type Resource struct {
	Type          ResourceType `json:"type"`
	Amount        int          `json:"amount"`
	Original      int          `json:"original"` // Seeded amount; regeneration cap
	LastHarvested uint64       `json:"last_harvested"`
	Harvested     bool         `json:"harvested"` // Harvested at least once
}

// Cell is a single grid square.
type Cell struct {
	Pos      Position `json:"pos"`
	Resource Resource `json:"resource"`
}

// Stocked reports whether the cell currently has anything to harvest.
func (c *Cell) Stocked() bool {
	return c.Resource.Type != ResourceNone && c.Resource.Amount > 0
}

// Grid is an N×N field of cells plus the set of cells awaiting regrowth.
type Grid struct {
	N      int
	cells  []Cell
	active map[Position]struct{}
}

// NewGrid allocates n² empty cells.
func NewGrid(n int) *Grid {
	g := &Grid{
		N:      n,
		cells:  make([]Cell, n*n),
		active: make(map[Position]struct{}),
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			g.cells[y*n+x].Pos = Position{X: x, Y: y}
		}
	}
	return g
}

// InBounds returns true if p lies on the grid.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.N && p.Y < g.N
}

// Clamp moves p onto the nearest in-bounds cell.
func (g *Grid) Clamp(p Position) Position {
	p.X = clamp(p.X, 0, g.N-1)
	p.Y = clamp(p.Y, 0, g.N-1)
	return p
}

// Cell returns the cell at p, or nil if out of bounds.
func (g *Grid) Cell(p Position) *Cell {
	if !g.InBounds(p) {
		return nil
	}
	return &g.cells[p.Y*g.N+p.X]
}

// Cells returns every cell in row-major order. The slice aliases grid state.
func (g *Grid) Cells() []Cell {
	return g.cells
}

// CellsWithinRadius returns cells within Manhattan distance r of center, in
// row-major order.
func (g *Grid) CellsWithinRadius(center Position, r int) []*Cell {
	var out []*Cell
	for y := max(0, center.Y-r); y <= min(g.N-1, center.Y+r); y++ {
		rem := r - abs(y-center.Y)
		for x := max(0, center.X-rem); x <= min(g.N-1, center.X+rem); x++ {
			out = append(out, &g.cells[y*g.N+x])
		}
	}
	return out
}

// ResourceCellsWithinRadius is CellsWithinRadius restricted to stocked cells.
func (g *Grid) ResourceCellsWithinRadius(center Position, r int) []*Cell {
	var out []*Cell
	for _, c := range g.CellsWithinRadius(center, r) {
		if c.Stocked() {
			out = append(out, c)
		}
	}
	return out
}

// Harvest removes up to rate units from the cell at p and records the tick.
// Returns the amount taken.
func (g *Grid) Harvest(p Position, rate int, tick uint64) int {
	c := g.Cell(p)
	if c == nil || !c.Stocked() || rate <= 0 {
		return 0
	}
	take := min(rate, c.Resource.Amount)
	c.Resource.Amount -= take
	c.Resource.LastHarvested = tick
	c.Resource.Harvested = true
	g.active[p] = struct{}{}
	return take
}

// Regenerate grows every cell in the active set whose last harvest is at
// least cooldown ticks old by growth units, capped at its original amount.
// Cells that reach the cap, or that can never grow, leave the set. Cells are
// visited in row-major order. Returns the number of cells that grew.
func (g *Grid) Regenerate(tick uint64, growth, cooldown int) int {
	grown := 0
	for _, p := range g.ActivePositions() {
		c := &g.cells[p.Y*g.N+p.X]
		res := &c.Resource
		if growth <= 0 || res.Amount >= res.Original {
			delete(g.active, p)
			continue
		}
		if tick < res.LastHarvested+uint64(cooldown) {
			continue
		}
		res.Amount = min(res.Amount+growth, res.Original)
		grown++
		if res.Amount >= res.Original {
			delete(g.active, p)
		}
	}
	return grown
}

// ActivePositions returns the cells pending regeneration, row-major.
func (g *Grid) ActivePositions() []Position {
	out := make([]Position, 0, len(g.active))
	for p := range g.active {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ActiveCount returns the size of the regeneration set.
func (g *Grid) ActiveCount() int {
	return len(g.active)
}

// Stock returns the total amount of A and B currently on the grid.
func (g *Grid) Stock() (a, b int) {
	for i := range g.cells {
		res := g.cells[i].Resource
		switch res.Type {
		case ResourceA:
			a += res.Amount
		case ResourceB:
			b += res.Amount
		}
	}
	return a, b
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	a, b := g.Stock()
	return fmt.Sprintf("Grid(n=%d, A=%d, B=%d, regenerating=%d)", g.N, a, b, len(g.active))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
