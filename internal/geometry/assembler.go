package geometry

import (
	"maps"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osm3d-go/internal/logger"
	"github.com/wegman-software/osm3d-go/internal/osmobj"
)

// Extrusion is a solid built from one bucket of a way or relation
type Extrusion struct {
	OsmType osm.Type // osm.TypeWay for standalone ways, osm.TypeRelation otherwise
	OsmID   int64
	WayID   osm.WayID // the outer way the extrusion was computed from
	Bucket  string
	Tags    map[string]string
	Solid   *Solid
}

// Outline is a non-extruded way of a 2D bucket. Closed ways carry Ring,
// open ways carry Line.
type Outline struct {
	OsmType osm.Type
	OsmID   int64
	WayID   osm.WayID
	Bucket  string
	Inner   bool
	Tags    map[string]string
	Ring    orb.Ring
	Line    orb.LineString
}

// Bound returns the bound of the ring or line
func (o *Outline) Bound() orb.Bound {
	if o.Ring != nil {
		return o.Ring.Bound()
	}
	return o.Line.Bound()
}

// AssemblyStats counts what the assembler produced and skipped
type AssemblyStats struct {
	Extrusions  int
	OpenCurves  int // ways whose boundary is not closed
	MultiOuter  int // buckets with several outer ways and inner ways (unsupported)
	ZeroHeight  int // closed ways without extrusion height
	HolesUsed   int
	HolesDenied int // inner ways not closed or not inside the outer way
}

// Assembler turns classified buckets into kernel solids
type Assembler struct {
	Graph      *osmobj.Graph
	Kernel     Kernel
	Classifier *Classifier
	stats      AssemblyStats
}

// NewAssembler creates an assembler. A nil kernel selects PlanarKernel.
func NewAssembler(g *osmobj.Graph, k Kernel, c *Classifier) *Assembler {
	if k == nil {
		k = PlanarKernel{}
	}
	return &Assembler{Graph: g, Kernel: k, Classifier: c}
}

// Stats returns assembly statistics
func (a *Assembler) Stats() AssemblyStats {
	return a.stats
}

// curve builds the boundary curve of a way
func (a *Assembler) curve(w *osmobj.Way) (orb.LineString, bool) {
	points := a.Graph.WayPoints(w)
	if points == nil {
		return nil, false
	}
	return a.Kernel.Curve(points)
}

// Built is a solid together with the way that defined its height
type Built struct {
	Way   *osmobj.Way
	Solid *Solid
}

// Extrusions builds the solids of one bucket.
//
// With both outer and inner ways only a single outer way is supported: its
// closed curve is extruded with every closed inner curve inside it as a hole.
// Several outer ways with inner ways produce nothing. Otherwise every closed
// way is extruded on its own.
func (a *Assembler) Extrusions(mp *osmobj.MultiPolygon) []Built {
	var built []Built

	if len(mp.Outer) > 0 && len(mp.Inner) > 0 {
		if len(mp.Outer) != 1 {
			a.stats.MultiOuter++
			logger.Get().Debug("Multiple outer ways with inner ways are not supported",
				zap.Int("outer", len(mp.Outer)), zap.Int("inner", len(mp.Inner)))
			return nil
		}

		way := mp.Outer[0]
		outer, ok := a.curve(way)
		if !ok || !a.Kernel.IsClosed(outer) {
			a.stats.OpenCurves++
			return nil
		}

		var holes []orb.LineString
		for _, w := range mp.Inner {
			c, ok := a.curve(w)
			if ok && a.Kernel.IsClosed(c) && a.Kernel.Contains(outer, c) {
				holes = append(holes, c)
				a.stats.HolesUsed++
			} else {
				a.stats.HolesDenied++
			}
		}

		if solid, ok := a.extrude(way, outer, holes); ok {
			built = append(built, Built{Way: way, Solid: solid})
		}
		return built
	}

	for _, ways := range [][]*osmobj.Way{mp.Outer, mp.Inner} {
		for _, way := range ways {
			c, ok := a.curve(way)
			if !ok || !a.Kernel.IsClosed(c) {
				a.stats.OpenCurves++
				continue
			}
			if solid, ok := a.extrude(way, c, nil); ok {
				built = append(built, Built{Way: way, Solid: solid})
			}
		}
	}
	return built
}

func (a *Assembler) extrude(way *osmobj.Way, outer orb.LineString, holes []orb.LineString) (*Solid, bool) {
	start, height := a.Classifier.ExtrusionHeight(way.GeomAttr)
	if height == 0 {
		a.stats.ZeroHeight++
		return nil, false
	}
	solid, ok := a.Kernel.Extrude(outer, holes, start, height, true)
	if ok {
		a.stats.Extrusions++
	}
	return solid, ok
}

// All extrudes every bucket of every standalone way and relation
func (a *Assembler) All() []Extrusion {
	var out []Extrusion

	for _, w := range a.Graph.Ways {
		if w.Buckets == nil {
			continue
		}
		w.Buckets.Each(func(name string, mp *osmobj.MultiPolygon) {
			for _, b := range a.Extrusions(mp) {
				out = append(out, Extrusion{
					OsmType: osm.TypeWay,
					OsmID:   int64(w.ID),
					WayID:   b.Way.ID,
					Bucket:  name,
					Tags:    w.Tags,
					Solid:   b.Solid,
				})
			}
		})
	}

	for _, r := range a.Graph.Relations {
		r.Buckets.Each(func(name string, mp *osmobj.MultiPolygon) {
			for _, b := range a.Extrusions(mp) {
				out = append(out, Extrusion{
					OsmType: osm.TypeRelation,
					OsmID:   int64(r.ID),
					WayID:   b.Way.ID,
					Bucket:  name,
					Tags:    mergeTags(r.Tags, b.Way.Tags),
					Solid:   b.Solid,
				})
			}
		})
	}

	return out
}

// Outlines returns the ways of the 2D buckets: closed ways as rings and open
// ways as lines
func (a *Assembler) Outlines() []Outline {
	var out []Outline

	collect := func(osmType osm.Type, id int64, tags map[string]string, b *osmobj.Buckets) {
		for _, bucket := range []struct {
			name string
			mp   *osmobj.MultiPolygon
		}{
			{osmobj.BucketBuildings2D, &b.Buildings2D},
			{osmobj.BucketObjects2D, &b.Objects2D},
		} {
			for _, w := range append(append([]*osmobj.Way{}, bucket.mp.Outer...), bucket.mp.Inner...) {
				c, ok := a.curve(w)
				if !ok {
					continue
				}
				o := Outline{
					OsmType: osmType,
					OsmID:   id,
					WayID:   w.ID,
					Bucket:  bucket.name,
					Inner:   w.IsInner(),
					Tags:    mergeTags(tags, w.Tags),
				}
				if a.Kernel.IsClosed(c) {
					o.Ring = orb.Ring(c)
				} else {
					o.Line = c
				}
				out = append(out, o)
			}
		}
	}

	for _, w := range a.Graph.Ways {
		if w.Buckets != nil {
			collect(osm.TypeWay, int64(w.ID), nil, w.Buckets)
		}
	}
	for _, r := range a.Graph.Relations {
		collect(osm.TypeRelation, int64(r.ID), r.Tags, &r.Buckets)
	}
	return out
}

// mergeTags returns base overlaid with over; neither input is modified
func mergeTags(base, over map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(over))
	maps.Copy(merged, base)
	maps.Copy(merged, over)
	return merged
}
