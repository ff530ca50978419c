package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/wegman-software/osm3d-go/internal/middle"
	"github.com/wegman-software/osm3d-go/internal/osmobj"
)

func assemble(t *testing.T, tables *middle.Tables) (*Assembler, []Extrusion) {
	t.Helper()
	g := osmobj.Resolve(tables)
	c := NewClassifier(DefaultFloorHeight, nil)
	c.Classify(g)
	a := NewAssembler(g, nil, c)
	return a, a.All()
}

func multipolygon(id osm.RelationID, tags map[string]string, outer, inner []osm.WayID) *middle.RawRelation {
	rel := &middle.RawRelation{ID: id, Tags: tags}
	for _, w := range outer {
		rel.Members = append(rel.Members, middle.RelationMember{Type: osm.TypeWay, Ref: int64(w), Role: "outer"})
	}
	for _, w := range inner {
		rel.Members = append(rel.Members, middle.RelationMember{Type: osm.TypeWay, Ref: int64(w), Role: "inner"})
	}
	return rel
}

func TestAssembleRelationWithHole(t *testing.T) {
	tables := testTables()
	tables.Ways[10].Tags["name"] = "Courtyard block"
	tables.Relations[100] = multipolygon(100,
		map[string]string{"type": "multipolygon", "building": "yes", "height": "10", "min_height": "2"},
		[]osm.WayID{10}, []osm.WayID{11})

	a, ext := assemble(t, tables)

	var rel []Extrusion
	for _, e := range ext {
		if e.OsmType == osm.TypeRelation {
			rel = append(rel, e)
		}
	}
	if len(rel) != 1 {
		t.Fatalf("relation extrusions = %d, want 1", len(rel))
	}

	e := rel[0]
	if e.OsmID != 100 || e.WayID != 10 || e.Bucket != osmobj.BucketBuildings3D {
		t.Errorf("extrusion = %+v", e)
	}
	if e.Solid.Start != 2 || e.Solid.Height != 8 {
		t.Errorf("start, height = %f, %f", e.Solid.Start, e.Solid.Height)
	}
	if len(e.Solid.Inner) != 1 {
		t.Fatalf("holes = %d, want 1", len(e.Solid.Inner))
	}
	if e.Solid.Outer.Orientation() != orb.CCW || e.Solid.Inner[0].Orientation() != orb.CW {
		t.Error("unexpected ring orientation")
	}
	if e.Tags["name"] != "Courtyard block" || e.Tags["building"] != "yes" {
		t.Errorf("tags = %v", e.Tags)
	}

	if s := a.Stats(); s.HolesUsed != 1 || s.HolesDenied != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestAssembleHoleOutsideOuter(t *testing.T) {
	tables := testTables()
	tables.Relations[100] = multipolygon(100,
		map[string]string{"building": "yes", "height": "10"},
		[]osm.WayID{12}, []osm.WayID{11})

	a, ext := assemble(t, tables)
	if len(ext) != 1 || len(ext[0].Solid.Inner) != 0 {
		t.Fatalf("extrusions = %+v", ext)
	}
	if s := a.Stats(); s.HolesDenied != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestAssembleMultipleOuterWithInner(t *testing.T) {
	tables := testTables()
	tables.Relations[100] = multipolygon(100,
		map[string]string{"building": "yes", "height": "10"},
		[]osm.WayID{10, 12}, []osm.WayID{11})

	a, ext := assemble(t, tables)
	if len(ext) != 0 {
		t.Errorf("extrusions = %d, want 0", len(ext))
	}
	if s := a.Stats(); s.MultiOuter != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestAssembleOuterWaysOnly(t *testing.T) {
	tables := testTables()
	tables.Ways[12].Tags["height"] = "25"
	tables.Relations[100] = multipolygon(100,
		map[string]string{"building": "yes", "height": "10"},
		[]osm.WayID{10, 12}, nil)

	_, ext := assemble(t, tables)
	if len(ext) != 2 {
		t.Fatalf("extrusions = %d, want 2", len(ext))
	}
	heights := map[osm.WayID]float64{}
	for _, e := range ext {
		heights[e.WayID] = e.Solid.Height
	}
	if heights[10] != 10 || heights[12] != 25 {
		t.Errorf("heights = %v", heights)
	}
}

func TestAssembleStandaloneWays(t *testing.T) {
	tables := testTables()
	tables.Ways[10].Tags["building"] = "yes"
	tables.Ways[12].Tags["building"] = "yes"
	tables.Ways[12].Tags["height"] = "5"
	tables.Ways[13].Tags["barrier"] = "wall"
	tables.Ways[13].Tags["height"] = "2"

	a, ext := assemble(t, tables)
	if len(ext) != 1 {
		t.Fatalf("extrusions = %d, want 1", len(ext))
	}
	e := ext[0]
	if e.OsmType != osm.TypeWay || e.OsmID != 12 || e.WayID != 12 || e.Solid.Height != 5 {
		t.Errorf("extrusion = %+v", e)
	}

	s := a.Stats()
	if s.Extrusions != 1 || s.OpenCurves != 1 || s.ZeroHeight != 2 {
		t.Errorf("stats = %+v", s)
	}

	outlines := a.Outlines()
	if len(outlines) != 2 {
		t.Fatalf("outlines = %d, want 2", len(outlines))
	}
	buckets := map[osm.WayID]string{}
	for _, o := range outlines {
		buckets[o.WayID] = o.Bucket
	}
	if buckets[10] != osmobj.BucketBuildings2D || buckets[11] != osmobj.BucketObjects2D {
		t.Errorf("outline buckets = %v", buckets)
	}
}

func TestAssembleOpenOutline(t *testing.T) {
	tables := testTables()
	tables.Ways[13].Tags["barrier"] = "fence"

	a, ext := assemble(t, tables)
	if len(ext) != 0 {
		t.Fatalf("extrusions = %d, want 0", len(ext))
	}

	var line *Outline
	outlines := a.Outlines()
	for i := range outlines {
		if outlines[i].WayID == 13 {
			line = &outlines[i]
		}
	}
	if line == nil {
		t.Fatalf("no outline for open way 13 in %+v", outlines)
	}
	if line.Ring != nil || len(line.Line) != 2 || line.Bucket != osmobj.BucketObjects2D {
		t.Errorf("outline = %+v", line)
	}
	if b := line.Bound(); b.Min[0] >= b.Max[0] || b.Min[1] >= b.Max[1] {
		t.Errorf("bound = %v", b)
	}
}

func TestAssembleStartEqualsHeight(t *testing.T) {
	tables := testTables()
	tables.Ways[12].Tags["building"] = "yes"
	tables.Ways[12].Tags["height"] = "10"
	tables.Ways[12].Tags["min_height"] = "5"

	_, ext := assemble(t, tables)
	if len(ext) != 1 {
		t.Fatalf("extrusions = %d, want 1", len(ext))
	}
	if s := ext[0].Solid; s.Start != 5 || s.Height != 5 || s.Top() != 10 {
		t.Errorf("solid = %+v", s)
	}
}
