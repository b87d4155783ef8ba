package model

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Point2D represents a 2D coordinate in image pixels.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point2D) orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Outline represents a closed polygon as a sequence of 2D points.
// The outline is implicitly closed: the last point connects back to the first.
type Outline []Point2D

// BoundingBox returns the min and max corners of the outline.
func (o Outline) BoundingBox() (min, max Point2D) {
	if len(o) == 0 {
		return Point2D{}, Point2D{}
	}
	min = Point2D{X: o[0].X, Y: o[0].Y}
	max = Point2D{X: o[0].X, Y: o[0].Y}
	for _, p := range o[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max
}

// Translate shifts all points by dx, dy.
func (o Outline) Translate(dx, dy float64) Outline {
	result := make(Outline, len(o))
	for i, p := range o {
		result[i] = Point2D{X: p.X + dx, Y: p.Y + dy}
	}
	return result
}

// Polygon converts the outline into a single-ring orb polygon with an
// explicitly closed ring.
func (o Outline) Polygon() orb.Polygon {
	if len(o) == 0 {
		return orb.Polygon{}
	}
	ring := make(orb.Ring, 0, len(o)+1)
	for _, p := range o {
		ring = append(ring, p.orb())
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}

// Area returns the absolute polygon area.
func (o Outline) Area() float64 {
	if len(o) < 3 {
		return 0
	}
	return planar.Area(o.Polygon())
}

// Centroid returns the area-weighted centroid of the polygon.
func (o Outline) Centroid() Point2D {
	if len(o) == 0 {
		return Point2D{}
	}
	c, _ := planar.CentroidArea(o.Polygon())
	return Point2D{X: c[0], Y: c[1]}
}

// Contains reports whether p lies inside the outline. Points on the
// boundary count as inside.
func (o Outline) Contains(p Point2D) bool {
	if len(o) < 3 {
		return false
	}
	return planar.PolygonContains(o.Polygon(), p.orb())
}

// Region is one ROI file decoded into a polygon, with its derived area and
// centroid. Regions are immutable once built.
type Region struct {
	ID       string  `json:"id"`   // file base name, unique within a run
	Path     string  `json:"path"` // source file
	Outline  Outline `json:"outline"`
	Area     float64 `json:"area"`
	Centroid Point2D `json:"centroid"`
}

// NewRegion builds a Region and derives its area and centroid from outline.
func NewRegion(id, path string, outline Outline) Region {
	return Region{
		ID:       id,
		Path:     path,
		Outline:  outline,
		Area:     outline.Area(),
		Centroid: outline.Centroid(),
	}
}

// Pair links a whole-cell region to the nucleus region whose centroid it
// contains.
type Pair struct {
	Container Region `json:"container"`
	Contained Region `json:"contained"`
}

// PairingResult holds the engine output.
type PairingResult struct {
	Pairs    []Pair   `json:"pairs"`    // in formation order, container area non-increasing
	Unpaired []Region `json:"unpaired"` // containers that found no centroid inside them
}

// RegionCount returns the number of regions accounted for by the result.
func (r PairingResult) RegionCount() int {
	return 2*len(r.Pairs) + len(r.Unpaired)
}
