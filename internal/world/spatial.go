package world

import "sort"

// SpatialIndex buckets agent positions into square buckets so radius queries
// touch only nearby buckets. It answers "who is near" and is never a source
// of iteration order: query results are always sorted by id.
type SpatialIndex struct {
	bucketSize int
	buckets    map[Position]map[int]struct{}
	positions  map[int]Position
}

// NewSpatialIndex creates an index with the given bucket side length.
// Sizes below 1 are treated as 1.
func NewSpatialIndex(bucketSize int) *SpatialIndex {
	if bucketSize < 1 {
		bucketSize = 1
	}
	return &SpatialIndex{
		bucketSize: bucketSize,
		buckets:    make(map[Position]map[int]struct{}),
		positions:  make(map[int]Position),
	}
}

func (s *SpatialIndex) bucketOf(p Position) Position {
	return Position{X: floorDiv(p.X, s.bucketSize), Y: floorDiv(p.Y, s.bucketSize)}
}

// Insert adds id at p. Inserting an existing id moves it.
func (s *SpatialIndex) Insert(id int, p Position) {
	if _, ok := s.positions[id]; ok {
		s.Remove(id)
	}
	b := s.bucketOf(p)
	set := s.buckets[b]
	if set == nil {
		set = make(map[int]struct{})
		s.buckets[b] = set
	}
	set[id] = struct{}{}
	s.positions[id] = p
}

// Remove deletes id from the index. Unknown ids are ignored.
func (s *SpatialIndex) Remove(id int) {
	p, ok := s.positions[id]
	if !ok {
		return
	}
	b := s.bucketOf(p)
	delete(s.buckets[b], id)
	if len(s.buckets[b]) == 0 {
		delete(s.buckets, b)
	}
	delete(s.positions, id)
}

// Update moves id to p, changing buckets only when needed.
func (s *SpatialIndex) Update(id int, p Position) {
	old, ok := s.positions[id]
	if ok && s.bucketOf(old) == s.bucketOf(p) {
		s.positions[id] = p
		return
	}
	s.Insert(id, p)
}

// Position returns the indexed position of id.
func (s *SpatialIndex) Position(id int) (Position, bool) {
	p, ok := s.positions[id]
	return p, ok
}

// Len returns the number of indexed ids.
func (s *SpatialIndex) Len() int {
	return len(s.positions)
}

// QueryRadius returns ids within Manhattan distance r of center, sorted
// ascending.
func (s *SpatialIndex) QueryRadius(center Position, r int) []int {
	lo := s.bucketOf(Position{X: center.X - r, Y: center.Y - r})
	hi := s.bucketOf(Position{X: center.X + r, Y: center.Y + r})

	var out []int
	for by := lo.Y; by <= hi.Y; by++ {
		for bx := lo.X; bx <= hi.X; bx++ {
			for id := range s.buckets[Position{X: bx, Y: by}] {
				if ManhattanDistance(center, s.positions[id]) <= r {
					out = append(out, id)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
