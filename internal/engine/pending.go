package engine

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/piwi3910/RoiPair/internal/model"
)

// indexTolerance pads centroid and container rectangles so that points on a
// bounding-box edge still intersect in the R-tree.
const indexTolerance = 1e-6

// centroidEntry is the R-tree record for one pending region's centroid.
type centroidEntry struct {
	slot int
	rect rtreego.Rect
}

func (e *centroidEntry) Bounds() rtreego.Rect {
	return e.rect
}

// pendingSet is the shrinking working collection of regions not yet assigned
// a role. Slots are positions in pending order (identifier order); a slot
// leaves the set exactly once.
type pendingSet struct {
	regions []model.Region
	live    []bool
	size    int

	// byArea lists slots by descending area, ties in pending order. cursor
	// skips slots that have already left the set.
	byArea []int
	cursor int

	entries []*centroidEntry
	index   *rtreego.Rtree
}

func newPendingSet(regions []model.Region) *pendingSet {
	s := &pendingSet{
		regions: regions,
		live:    make([]bool, len(regions)),
		size:    len(regions),
		byArea:  make([]int, len(regions)),
		entries: make([]*centroidEntry, len(regions)),
		index:   rtreego.NewTree(2, 25, 50),
	}
	for i, r := range regions {
		s.live[i] = true
		s.byArea[i] = i
		e := &centroidEntry{
			slot: i,
			rect: rtreego.Point{r.Centroid.X, r.Centroid.Y}.ToRect(indexTolerance),
		}
		s.entries[i] = e
		s.index.Insert(e)
	}
	sort.SliceStable(s.byArea, func(a, b int) bool {
		return regions[s.byArea[a]].Area > regions[s.byArea[b]].Area
	})
	return s
}

// Len returns the number of regions still pending.
func (s *pendingSet) Len() int {
	return s.size
}

// popLargest removes and returns the pending slot with the largest area.
// It must not be called on an empty set.
func (s *pendingSet) popLargest() int {
	for !s.live[s.byArea[s.cursor]] {
		s.cursor++
	}
	slot := s.byArea[s.cursor]
	s.remove(slot)
	return slot
}

// popFirstInside removes and returns the earliest pending slot, in pending
// order, whose centroid lies inside outline.
func (s *pendingSet) popFirstInside(outline model.Outline) (int, bool) {
	candidates, ok := s.candidates(outline)
	best := -1
	for _, slot := range candidates {
		if !s.live[slot] || (best != -1 && slot > best) {
			continue
		}
		if outline.Contains(s.regions[slot].Centroid) {
			best = slot
			if !ok {
				// Linear candidates arrive in pending order.
				break
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	s.remove(best)
	return best, true
}

// candidates returns the slots whose centroid falls in outline's bounding
// box. The boolean is false when the index could not be queried and every
// slot is returned in pending order instead.
func (s *pendingSet) candidates(outline model.Outline) ([]int, bool) {
	min, max := outline.BoundingBox()
	rect, err := rtreego.NewRect(
		rtreego.Point{min.X - indexTolerance, min.Y - indexTolerance},
		[]float64{max.X - min.X + 2*indexTolerance, max.Y - min.Y + 2*indexTolerance},
	)
	if err != nil {
		all := make([]int, len(s.regions))
		for i := range all {
			all[i] = i
		}
		return all, false
	}

	hits := s.index.SearchIntersect(rect)
	slots := make([]int, 0, len(hits))
	for _, h := range hits {
		slots = append(slots, h.(*centroidEntry).slot)
	}
	return slots, true
}

func (s *pendingSet) remove(slot int) {
	s.live[slot] = false
	s.size--
	s.index.Delete(s.entries[slot])
}
