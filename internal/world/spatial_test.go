package world

import (
	"math/rand"
	"sort"
	"testing"
)

func TestSpatialIndex_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	idx := NewSpatialIndex(4)
	pos := make(map[int]Position)
	for id := 0; id < 60; id++ {
		p := Position{X: rng.Intn(25), Y: rng.Intn(25)}
		pos[id] = p
		idx.Insert(id, p)
	}
	// Move a few agents across bucket boundaries.
	for id := 0; id < 60; id += 7 {
		p := Position{X: rng.Intn(25), Y: rng.Intn(25)}
		pos[id] = p
		idx.Update(id, p)
	}
	idx.Remove(5)
	delete(pos, 5)

	for _, center := range []Position{{0, 0}, {12, 12}, {24, 3}, {7, 19}} {
		for _, r := range []int{0, 1, 3, 6, 30} {
			var want []int
			for id, p := range pos {
				if ManhattanDistance(center, p) <= r {
					want = append(want, id)
				}
			}
			sort.Ints(want)
			got := idx.QueryRadius(center, r)
			if len(got) != len(want) {
				t.Fatalf("center %v r=%d: got %v want %v", center, r, got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("center %v r=%d: got %v want %v", center, r, got, want)
				}
			}
		}
	}
	if idx.Len() != 59 {
		t.Fatalf("len=%d want 59", idx.Len())
	}
	if _, ok := idx.Position(5); ok {
		t.Fatalf("removed id still indexed")
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{{7, 3, 2}, {-1, 3, -1}, {-3, 3, -1}, {-4, 3, -2}, {0, 5, 0}}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.want {
			t.Fatalf("floorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}
