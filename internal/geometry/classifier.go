// Package geometry decides how resolved ways and relations are rendered:
// building or object, flat or extruded, inner or outer boundary, and the
// extrusion start and height handed to the geometry kernel.
package geometry

import (
	"maps"
	"strings"

	"github.com/wegman-software/osm3d-go/internal/osmobj"
	"github.com/wegman-software/osm3d-go/internal/proj"
	"github.com/wegman-software/osm3d-go/internal/units"
)

// DefaultFloorHeight is the floor-to-floor height used to turn levels into meters
const DefaultFloorHeight = 3.8

// Geometry attribute keys
const (
	KeyHeight     = "height"
	KeyMinHeight  = "min_height"
	KeyLevels     = "levels"
	KeyMinLevel   = "min_level"
	KeyRoofHeight = "roof:height"
	KeyRoofShape  = "roof:shape"

	buildingPrefix = "building:"
	buildingWord   = "building"
)

var (
	levelKeys = []string{KeyHeight, KeyMinHeight, KeyLevels, KeyMinLevel}
	roofKeys  = []string{KeyRoofHeight, KeyRoofShape}
)

// GeometryAttributes returns the height, level and roof tags of an entity.
// Values are copied verbatim; unit conversion happens in ExtrusionHeight.
func GeometryAttributes(tags map[string]string) map[string]string {
	attr := make(map[string]string)
	for _, key := range levelKeys {
		if v := tags[key]; v != "" {
			attr[key] = v
		}
		if v := tags[buildingPrefix+key]; v != "" {
			attr[buildingPrefix+key] = v
		}
	}
	for _, key := range roofKeys {
		if v := tags[key]; v != "" {
			attr[key] = v
		}
	}
	return attr
}

// IsBuilding reports whether any key contains "building" or any value equals
// "building" across the given tag sets, e.g. building=yes or type=building.
func IsBuilding(tagSets ...map[string]string) bool {
	for _, tags := range tagSets {
		for k, v := range tags {
			if strings.Contains(k, buildingWord) || v == buildingWord {
				return true
			}
		}
	}
	return false
}

// Classifier computes derived rendering state for a resolved graph
type Classifier struct {
	FloorHeight float64
	Units       *units.Parser
}

// NewClassifier creates a classifier. A non-positive floor height selects
// DefaultFloorHeight; a nil unit parser converts without caching.
func NewClassifier(floorHeight float64, unitParser *units.Parser) *Classifier {
	if floorHeight <= 0 {
		floorHeight = DefaultFloorHeight
	}
	return &Classifier{FloorHeight: floorHeight, Units: unitParser}
}

// Classify projects nodes and sorts every way into its bucket. Buckets are
// rebuilt from scratch, so classifying the same graph twice is harmless.
func (c *Classifier) Classify(g *osmobj.Graph) {
	for _, n := range g.Nodes {
		projectNode(n)
	}

	for _, w := range g.Ways {
		w.GeomAttr = GeometryAttributes(w.Tags)
		if w.Buckets == nil {
			w.Buckets = &osmobj.Buckets{}
		} else {
			*w.Buckets = osmobj.Buckets{}
		}
		// standalone ways have no role and always count as outer
		mp := w.Buckets.Select(IsBuilding(w.Tags), len(w.GeomAttr) > 0)
		mp.Outer = append(mp.Outer, w)
	}

	for _, r := range g.Relations {
		r.Buckets = osmobj.Buckets{}
		relAttr := GeometryAttributes(r.Tags)

		for _, w := range r.Ways {
			attr := maps.Clone(relAttr)
			maps.Copy(attr, GeometryAttributes(w.Tags))
			w.GeomAttr = attr

			r.Buckets.Select(IsBuilding(w.Tags, r.Tags), len(attr) > 0).Add(w)
		}

		for _, n := range r.Nodes {
			projectNode(n)
		}
	}
}

func projectNode(n *osmobj.Node) {
	x, y := proj.DegreesToMeters(n.Lat, n.Lon)
	n.Point[0], n.Point[1] = x, y
}

// meters converts the attribute key, falling back to its building: variant.
// Missing values are 0.
func (c *Classifier) meters(attr map[string]string, key string) float64 {
	v := attr[key]
	if v == "" {
		v = attr[buildingPrefix+key]
	}
	if v == "" {
		return 0
	}
	return c.Units.Meters(v)
}

// ExtrusionHeight returns the extrusion start and height for a way's
// geometry attributes. A height of 0 means the way is not extruded.
func (c *Classifier) ExtrusionHeight(attr map[string]string) (start, height float64) {
	f2f := c.FloorHeight

	h := c.meters(attr, KeyHeight)
	minHeight := c.meters(attr, KeyMinHeight)
	levels := c.meters(attr, KeyLevels)
	minLevel := c.meters(attr, KeyMinLevel)

	var roofHeight float64
	if v := attr[KeyRoofHeight]; v != "" {
		roofHeight = c.Units.Meters(v)
	}

	switch {
	case h != 0 && minHeight != 0:
		if h-(minHeight+roofHeight) == 0 {
			h += roofHeight
		}
		return minHeight, h - minHeight - roofHeight
	case h != 0:
		return 0, h - roofHeight
	case levels != 0 && minLevel != 0 && minHeight != 0:
		return minHeight, levels*f2f - minLevel*f2f - roofHeight
	case levels != 0 && minLevel != 0:
		return minLevel * f2f, levels*f2f - minLevel*f2f - roofHeight
	case levels != 0:
		return 0, levels*f2f - roofHeight
	default:
		return 0, 0
	}
}
