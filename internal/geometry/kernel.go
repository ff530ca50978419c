package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Kernel builds boundary curves and solids. The classifier only decides
// which points, which start/height and which inner curves to pass.
type Kernel interface {
	// Curve builds a boundary curve from ordered points (at least 2)
	Curve(points []orb.Point) (orb.LineString, bool)
	IsClosed(c orb.LineString) bool
	// Contains reports whether closed curve inner lies inside closed curve outer
	Contains(outer, inner orb.LineString) bool
	Extrude(outer orb.LineString, inners []orb.LineString, start, height float64, capped bool) (*Solid, bool)
}

// Solid is a vertical extrusion of a footprint with optional holes
type Solid struct {
	Outer  orb.Ring
	Inner  []orb.Ring
	Start  float64
	Height float64
	Capped bool
}

// Top returns the elevation of the top face
func (s *Solid) Top() float64 {
	return s.Start + s.Height
}

// Footprint returns the solid's cross-section as a polygon
func (s *Solid) Footprint() orb.Polygon {
	poly := make(orb.Polygon, 0, 1+len(s.Inner))
	poly = append(poly, s.Outer)
	poly = append(poly, s.Inner...)
	return poly
}

// PlanarKernel is a Kernel working on polylines in the XY plane
type PlanarKernel struct{}

// Curve returns a degree-1 curve through the points
func (PlanarKernel) Curve(points []orb.Point) (orb.LineString, bool) {
	if len(points) < 2 {
		return nil, false
	}
	ls := make(orb.LineString, len(points))
	copy(ls, points)
	return ls, true
}

// IsClosed reports whether the curve ends where it starts and encloses an area
func (PlanarKernel) IsClosed(c orb.LineString) bool {
	return len(c) >= 4 && c[0].Equal(c[len(c)-1])
}

// Contains reports whether inner lies inside or on outer: every vertex and
// edge midpoint of inner is inside, and no inner edge crosses an outer edge.
func (k PlanarKernel) Contains(outer, inner orb.LineString) bool {
	if !k.IsClosed(outer) || !k.IsClosed(inner) {
		return false
	}
	ring := orb.Ring(outer)
	if !ring.Bound().Contains(inner.Bound().Min) || !ring.Bound().Contains(inner.Bound().Max) {
		return false
	}
	for _, p := range inner {
		if !planar.RingContains(ring, p) {
			return false
		}
	}
	for i := 1; i < len(inner); i++ {
		a, b := inner[i-1], inner[i]
		if !planar.RingContains(ring, orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}) {
			return false
		}
		for j := 1; j < len(outer); j++ {
			if segmentsCross(a, b, outer[j-1], outer[j]) {
				return false
			}
		}
	}
	return true
}

// segmentsCross reports whether segments ab and cd intersect at a single
// point interior to both
func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := orientation(c, d, a)
	d2 := orientation(c, d, b)
	d3 := orientation(a, b, c)
	d4 := orientation(a, b, d)
	return d1*d2 < 0 && d3*d4 < 0
}

// orientation is the sign of the cross product (b-a) x (c-a)
func orientation(a, b, c orb.Point) float64 {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Extrude builds a solid from start to start+height. Outer rings are
// wound counter-clockwise and holes clockwise. A zero height yields nothing.
func (k PlanarKernel) Extrude(outer orb.LineString, inners []orb.LineString, start, height float64, capped bool) (*Solid, bool) {
	if height == 0 || !k.IsClosed(outer) {
		return nil, false
	}

	solid := &Solid{
		Outer:  wind(orb.Ring(outer), orb.CCW),
		Start:  start,
		Height: height,
		Capped: capped,
	}
	for _, in := range inners {
		solid.Inner = append(solid.Inner, wind(orb.Ring(in), orb.CW))
	}
	return solid, true
}

// wind returns a copy of r with the requested orientation
func wind(r orb.Ring, o orb.Orientation) orb.Ring {
	out := make(orb.Ring, len(r))
	if r.Orientation() == o || r.Orientation() == 0 {
		copy(out, r)
		return out
	}
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}
