// Package index provides an R-tree over projected footprints, used to keep
// only the extrusions and outlines that intersect a bounding box.
package index

import (
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/wegman-software/osm3d-go/internal/proj"
)

// R-tree node fan-out
const (
	minChildren = 25
	maxChildren = 50
)

// epsilon is the minimum side length of an indexed rectangle in meters.
// rtreego rejects zero-length sides.
const epsilon = 0.01

type item[T any] struct {
	seq   int
	rect  rtreego.Rect
	value T
}

// Bounds implements rtreego.Spatial
func (it *item[T]) Bounds() rtreego.Rect {
	return it.rect
}

// Index is a 2D R-tree keyed by bounds in projected meters
type Index[T any] struct {
	tree *rtreego.Rtree
	seq  int
}

// New creates an empty index
func New[T any]() *Index[T] {
	return &Index[T]{tree: rtreego.NewTree(2, minChildren, maxChildren)}
}

// Insert adds v covering bound
func (ix *Index[T]) Insert(bound orb.Bound, v T) {
	ix.tree.Insert(&item[T]{seq: ix.seq, rect: rect(bound), value: v})
	ix.seq++
}

// Len returns the number of indexed values
func (ix *Index[T]) Len() int {
	return ix.tree.Size()
}

// Search returns every value whose bound intersects b, in insertion order
func (ix *Index[T]) Search(b orb.Bound) []T {
	found := ix.tree.SearchIntersect(rect(b))

	items := make([]*item[T], 0, len(found))
	for _, s := range found {
		items = append(items, s.(*item[T]))
	}
	slices.SortFunc(items, func(a, b *item[T]) int { return a.seq - b.seq })

	values := make([]T, len(items))
	for i, it := range items {
		values[i] = it.value
	}
	return values
}

// SearchDegrees converts a WGS84 box to projected meters and searches it
func (ix *Index[T]) SearchDegrees(minLon, minLat, maxLon, maxLat float64) []T {
	return ix.Search(DegreesBound(minLon, minLat, maxLon, maxLat))
}

// DegreesBound returns the projected bound of a WGS84 box
func DegreesBound(minLon, minLat, maxLon, maxLat float64) orb.Bound {
	minX, minY := proj.DegreesToMeters(minLat, minLon)
	maxX, maxY := proj.DegreesToMeters(maxLat, maxLon)
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}

func rect(b orb.Bound) rtreego.Rect {
	lengths := []float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]}
	for i := range lengths {
		if lengths[i] < epsilon {
			lengths[i] = epsilon
		}
	}
	r, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)
	return r
}
