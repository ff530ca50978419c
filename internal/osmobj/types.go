// Package osmobj holds the resolved, deduplicated object graph built from
// the raw parser tables.
package osmobj

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/wegman-software/osm3d-go/internal/middle"
)

// Member roles used for multipolygon classification
const (
	RoleInner = "inner"
	RoleOuter = "outer"
)

// Node is a resolved node. Point is the projected position in meters
// (z is always 0) and is set by the geometry classifier.
type Node struct {
	ID         osm.NodeID
	Lat        float64
	Lon        float64
	Attributes *middle.Attributes
	Tags       map[string]string
	Point      orb.Point
}

// Way is a resolved way. A way owned by a relation carries the member role;
// a standalone way carries its own Buckets.
type Way struct {
	ID         osm.WayID
	NodeRefs   []osm.NodeID
	Attributes *middle.Attributes
	Tags       map[string]string
	Role       string

	// GeomAttr holds the recognised height/level/roof tags, merged with the
	// owning relation's tags. Filled by the classifier.
	GeomAttr map[string]string
	Buckets  *Buckets
}

// IsInner reports whether the way is an inner boundary. Every other role,
// including none, counts as outer.
func (w *Way) IsInner() bool {
	return w.Role == RoleInner
}

// Relation is a resolved top-level relation. Members contains only node and
// way members; nested relations have been expanded into it.
type Relation struct {
	ID         osm.RelationID
	Members    []middle.RelationMember
	Attributes *middle.Attributes
	Tags       map[string]string
	Ways       []*Way
	Nodes      []*Node
	Buckets    Buckets
}

// MultiPolygon is a classification bucket split into outer and inner ways
type MultiPolygon struct {
	Outer []*Way
	Inner []*Way
}

// Add appends w to the inner or outer list according to its role
func (mp *MultiPolygon) Add(w *Way) {
	if w.IsInner() {
		mp.Inner = append(mp.Inner, w)
	} else {
		mp.Outer = append(mp.Outer, w)
	}
}

// Empty reports whether the bucket holds no ways
func (mp *MultiPolygon) Empty() bool {
	return len(mp.Outer) == 0 && len(mp.Inner) == 0
}

// Bucket names
const (
	BucketBuildings2D = "buildings2d"
	BucketBuildings3D = "buildings3d"
	BucketObjects2D   = "objects2d"
	BucketObjects3D   = "objects3d"
)

// Buckets groups ways by building/object and 2D/3D
type Buckets struct {
	Buildings2D MultiPolygon // buildings without height information
	Buildings3D MultiPolygon
	Objects2D   MultiPolygon // everything else without height information
	Objects3D   MultiPolygon // e.g. fountains, walls
}

// Select returns the bucket for the given classification
func (b *Buckets) Select(building, threeD bool) *MultiPolygon {
	switch {
	case building && threeD:
		return &b.Buildings3D
	case building:
		return &b.Buildings2D
	case threeD:
		return &b.Objects3D
	default:
		return &b.Objects2D
	}
}

// Each calls fn for every bucket in a fixed order
func (b *Buckets) Each(fn func(name string, mp *MultiPolygon)) {
	fn(BucketBuildings2D, &b.Buildings2D)
	fn(BucketBuildings3D, &b.Buildings3D)
	fn(BucketObjects2D, &b.Objects2D)
	fn(BucketObjects3D, &b.Objects3D)
}
