// Package export writes extrusions and outlines to GeoJSON and PostGIS.
package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/wegman-software/osm3d-go/internal/geometry"
	"github.com/wegman-software/osm3d-go/internal/osmobj"
	"github.com/wegman-software/osm3d-go/internal/proj"
)

// BucketNodes names the flat features built from standalone nodes
const BucketNodes = "nodes"

// Feature is one exported shape in the output projection. Exactly one of
// Footprint, Line and Point is used: Footprint for extrusions and closed
// outlines, Line for open outlines and Point for nodes.
type Feature struct {
	OsmType   osm.Type
	OsmID     int64
	WayID     osm.WayID
	Bucket    string
	Tags      map[string]string
	Footprint orb.Polygon
	Line      orb.LineString
	Point     orb.Point

	// Start and Height are 0 for flat outlines
	Start    float64
	Height   float64
	Extruded bool
}

// ID returns a stable feature identifier such as "relation/42/7"
func (f *Feature) ID() string {
	return fmt.Sprintf("%s/%d/%d", f.OsmType, f.OsmID, f.WayID)
}

// Geometry returns the shape that is exported
func (f *Feature) Geometry() orb.Geometry {
	switch {
	case f.Footprint != nil:
		return f.Footprint
	case f.Line != nil:
		return f.Line
	default:
		return f.Point
	}
}

// Top returns the elevation of the top face
func (f *Feature) Top() float64 {
	return f.Start + f.Height
}

// FromExtrusion converts an extrusion to the projection of t
func FromExtrusion(e geometry.Extrusion, t *proj.Transformer) Feature {
	footprint := make(orb.Polygon, 0, 1+len(e.Solid.Inner))
	footprint = append(footprint, t.TransformRing(e.Solid.Outer))
	for _, in := range e.Solid.Inner {
		footprint = append(footprint, t.TransformRing(in))
	}
	return Feature{
		OsmType:   e.OsmType,
		OsmID:     e.OsmID,
		WayID:     e.WayID,
		Bucket:    e.Bucket,
		Tags:      e.Tags,
		Footprint: footprint,
		Start:     e.Solid.Start,
		Height:    e.Solid.Height,
		Extruded:  true,
	}
}

// FromOutline converts a flat outline to the projection of t
func FromOutline(o geometry.Outline, t *proj.Transformer) Feature {
	f := Feature{
		OsmType: o.OsmType,
		OsmID:   o.OsmID,
		WayID:   o.WayID,
		Bucket:  o.Bucket,
		Tags:    o.Tags,
	}
	if o.Ring != nil {
		f.Footprint = orb.Polygon{t.TransformRing(o.Ring)}
	} else {
		f.Line = t.TransformLineString(o.Line)
	}
	return f
}

// FromNode converts a projected standalone node to the projection of t
func FromNode(n *osmobj.Node, t *proj.Transformer) Feature {
	return Feature{
		OsmType: osm.TypeNode,
		OsmID:   int64(n.ID),
		Bucket:  BucketNodes,
		Tags:    n.Tags,
		Point:   t.Transform(n.Point),
	}
}
