package middle

import (
	"fmt"

	"github.com/paulmach/osm"
)

// Tables is the id-keyed arena filled by the parser. Entities are written
// once during the parse and treated as read-only afterwards.
type Tables struct {
	Bounds    osm.Bounds
	Nodes     map[osm.NodeID]*RawNode
	Ways      map[osm.WayID]*RawWay
	Relations map[osm.RelationID]*RawRelation
}

// NewTables creates empty tables
func NewTables() *Tables {
	return &Tables{
		Nodes:     make(map[osm.NodeID]*RawNode),
		Ways:      make(map[osm.WayID]*RawWay),
		Relations: make(map[osm.RelationID]*RawRelation),
	}
}

// Reset discards every entity. Bounds are kept.
func (t *Tables) Reset() {
	t.Nodes = make(map[osm.NodeID]*RawNode)
	t.Ways = make(map[osm.WayID]*RawWay)
	t.Relations = make(map[osm.RelationID]*RawRelation)
}

// Stats holds table sizes
type Stats struct {
	Nodes     int
	Ways      int
	Relations int
}

// Stats returns the number of entities per table
func (t *Tables) Stats() Stats {
	return Stats{
		Nodes:     len(t.Nodes),
		Ways:      len(t.Ways),
		Relations: len(t.Relations),
	}
}

// FormatBounds formats bounds like "Bounds(minlat=..., minlon=..., maxlat=..., maxlon=...)"
func FormatBounds(b osm.Bounds) string {
	return fmt.Sprintf("Bounds(minlat=%g, minlon=%g, maxlat=%g, maxlon=%g)", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}
