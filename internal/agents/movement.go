package agents

import "github.com/cmfunderburk/vmt-dev-sub000/internal/world"

// NextStep moves from toward to by at most budget unit steps, closing the x
// gap before the y gap.
func NextStep(from, to world.Position, budget int) world.Position {
	p := from
	for budget > 0 && p != to {
		switch {
		case p.X < to.X:
			p.X++
		case p.X > to.X:
			p.X--
		case p.Y < to.Y:
			p.Y++
		default:
			p.Y--
		}
		budget--
	}
	return p
}

// Midpoint returns the cell halfway between a and b, rounding toward the
// negative direction on both axes.
func Midpoint(a, b world.Position) world.Position {
	return world.Position{X: floorHalf(a.X + b.X), Y: floorHalf(a.Y + b.Y)}
}

// DiagonalDeadlock reports whether a and b are diagonal neighbors. Two
// agents both heading for the midpoint from there would swap forever.
func DiagonalDeadlock(a, b world.Position) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return (dx == 1 || dx == -1) && (dy == 1 || dy == -1)
}

func floorHalf(v int) int {
	if v < 0 {
		return (v - 1) / 2
	}
	return v / 2
}
