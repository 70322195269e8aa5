// README: In-memory geo index (bounding-box pre-filter, exact haversine, partial sort).
package geo

import (
	"container/heap"
	"context"
	"sync"

	"farmhaul/internal/types"
)

// MemoryIndex keeps one shard per kind so vehicle and request traffic do not
// contend with each other.
type MemoryIndex struct {
	shards map[Kind]*shard
}

type shard struct {
	mu     sync.RWMutex
	points map[types.ID]types.Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{shards: map[Kind]*shard{
		KindVehicle: {points: make(map[types.ID]types.Point)},
		KindRequest: {points: make(map[types.ID]types.Point)},
	}}
}

func (x *MemoryIndex) shard(kind Kind) (*shard, error) {
	s, ok := x.shards[kind]
	if !ok {
		return nil, ErrInvalidKind
	}
	return s, nil
}

func (x *MemoryIndex) Upsert(_ context.Context, kind Kind, id types.ID, p types.Point) error {
	if err := ValidatePoint(p); err != nil {
		return err
	}
	s, err := x.shard(kind)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.points[id] = p
	s.mu.Unlock()
	return nil
}

func (x *MemoryIndex) Remove(_ context.Context, kind Kind, id types.ID) error {
	s, err := x.shard(kind)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.points, id)
	s.mu.Unlock()
	return nil
}

// Nearby scans the shard, drops points outside the bounding box, computes the
// exact distance for the rest and keeps the limit closest ones.
func (x *MemoryIndex) Nearby(_ context.Context, kind Kind, center types.Point, radiusKm float64, limit int) ([]Match, error) {
	if err := validateQuery(kind, center, radiusKm, limit); err != nil {
		return nil, err
	}
	s, err := x.shard(kind)
	if err != nil {
		return nil, err
	}

	box := boundingBox(center, radiusKm)
	sel := newSelector(limit)

	s.mu.RLock()
	for id, p := range s.points {
		if !box.contains(p) {
			continue
		}
		d := DistanceKm(center, p)
		if d > radiusKm {
			continue
		}
		sel.offer(Match{ID: id, Kind: kind, Position: p, DistanceKm: d})
	}
	s.mu.RUnlock()

	return sel.sorted(), nil
}

// selector keeps the n nearest matches seen so far in a max-heap keyed by
// distance, so the farthest candidate is evicted first.
type selector struct {
	n    int
	heap matchHeap
}

func newSelector(n int) *selector {
	return &selector{n: n, heap: make(matchHeap, 0, n)}
}

func (s *selector) offer(m Match) {
	if len(s.heap) < s.n {
		heap.Push(&s.heap, m)
		return
	}
	if closer(m, s.heap[0]) {
		s.heap[0] = m
		heap.Fix(&s.heap, 0)
	}
}

func (s *selector) sorted() []Match {
	out := make([]Match, len(s.heap))
	copy(out, s.heap)
	sortByDistance(out)
	return out
}

// closer orders by distance, then id so equal distances sort deterministically.
func closer(a, b Match) bool {
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	return a.ID < b.ID
}

type matchHeap []Match

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(v any)        { *h = append(*h, v.(Match)) }
func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// sortByDistance performs an insertion sort (fine for small N; the selector
// never holds more than limit items).
func sortByDistance(items []Match) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && closer(key, items[j]) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
