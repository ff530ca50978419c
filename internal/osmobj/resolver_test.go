package osmobj

import (
	"math"
	"testing"

	"github.com/paulmach/osm"

	"github.com/wegman-software/osm3d-go/internal/middle"
	"github.com/wegman-software/osm3d-go/internal/proj"
)

// tablesWithNodes returns tables with nodes 1..n on a diagonal
func tablesWithNodes(n int) *middle.Tables {
	t := middle.NewTables()
	for i := 1; i <= n; i++ {
		t.Nodes[osm.NodeID(i)] = &middle.RawNode{
			ID:   osm.NodeID(i),
			Lat:  43.7 + float64(i)*0.001,
			Lon:  7.4 + float64(i)*0.001,
			Tags: map[string]string{},
		}
	}
	return t
}

func addWay(t *middle.Tables, id osm.WayID, refs ...osm.NodeID) *middle.RawWay {
	w := &middle.RawWay{ID: id, Nodes: refs, Tags: map[string]string{}}
	t.Ways[id] = w
	return w
}

func addRelation(t *middle.Tables, id osm.RelationID, members ...middle.RelationMember) *middle.RawRelation {
	r := &middle.RawRelation{ID: id, Members: members, Tags: map[string]string{}}
	t.Relations[id] = r
	return r
}

func way(ref int64, role string) middle.RelationMember {
	return middle.RelationMember{Type: osm.TypeWay, Ref: ref, Role: role}
}

func node(ref int64) middle.RelationMember {
	return middle.RelationMember{Type: osm.TypeNode, Ref: ref}
}

func rel(ref int64) middle.RelationMember {
	return middle.RelationMember{Type: osm.TypeRelation, Ref: ref}
}

func wayIDs(ways []*Way) []osm.WayID {
	ids := make([]osm.WayID, len(ways))
	for i, w := range ways {
		ids[i] = w.ID
	}
	return ids
}

func nodeIDs(nodes []*Node) []osm.NodeID {
	ids := make([]osm.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestResolveDeduplicates(t *testing.T) {
	tables := tablesWithNodes(8)
	addWay(tables, 10, 1, 2, 3, 1)
	addWay(tables, 11, 4, 5, 6, 4)
	addWay(tables, 12, 7) // single node ref
	addRelation(tables, 100, way(10, "outer"), node(8))

	g := Resolve(tables)

	if len(g.Relations) != 1 || g.Relations[0].ID != 100 {
		t.Fatalf("relations = %+v", g.Relations)
	}
	r := g.Relations[0]
	if got := wayIDs(r.Ways); len(got) != 1 || got[0] != 10 {
		t.Errorf("relation ways = %v", got)
	}
	if got := nodeIDs(r.Nodes); len(got) != 1 || got[0] != 8 {
		t.Errorf("relation nodes = %v", got)
	}

	// way 10 belongs to the relation, way 12 is degenerate
	if got := wayIDs(g.Ways); len(got) != 1 || got[0] != 11 {
		t.Errorf("standalone ways = %v", got)
	}
	if g.Ways[0].Buckets == nil {
		t.Error("standalone way should carry buckets")
	}

	// nodes 1-3 via relation way, 4-6 via standalone way, 7 via dropped way, 8 via relation
	if len(g.Nodes) != 0 {
		t.Errorf("standalone nodes = %v", nodeIDs(g.Nodes))
	}
	if g.Stats.DroppedWays != 1 {
		t.Errorf("DroppedWays = %d", g.Stats.DroppedWays)
	}
}

func TestResolveStandaloneNodes(t *testing.T) {
	tables := tablesWithNodes(3)
	tables.Nodes[4] = &middle.RawNode{ID: 4} // unset location
	tables.Nodes[5] = &middle.RawNode{ID: 5, Lat: 0, Lon: 9}
	addWay(tables, 10, 1, 2)

	g := Resolve(tables)
	if got := nodeIDs(g.Nodes); len(got) != 1 || got[0] != 3 {
		t.Errorf("standalone nodes = %v", got)
	}
	if g.Stats.DroppedNodes != 2 {
		t.Errorf("DroppedNodes = %d", g.Stats.DroppedNodes)
	}
}

func TestResolveNestedRelations(t *testing.T) {
	tables := tablesWithNodes(9)
	addWay(tables, 10, 1, 2, 3, 1)
	addWay(tables, 11, 4, 5, 6, 4)
	addWay(tables, 12, 7, 8, 9, 7)
	addRelation(tables, 100, way(10, "outer"), rel(200))
	addRelation(tables, 200, way(11, "inner"), rel(300))
	addRelation(tables, 300, way(12, ""))

	g := Resolve(tables)

	if len(g.Relations) != 1 || g.Relations[0].ID != 100 {
		t.Fatalf("relations = %d, want only the parent", len(g.Relations))
	}
	r := g.Relations[0]
	got := wayIDs(r.Ways)
	want := []osm.WayID{10, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("ways = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ways = %v, want %v", got, want)
		}
	}
	for _, m := range r.Members {
		if m.Type == osm.TypeRelation {
			t.Errorf("relation member %d retained", m.Ref)
		}
	}
	if r.Ways[1].Role != RoleInner || r.Ways[2].Role != RoleOuter {
		t.Errorf("roles = %q, %q", r.Ways[1].Role, r.Ways[2].Role)
	}
	if len(g.Ways) != 0 {
		t.Errorf("standalone ways = %v", wayIDs(g.Ways))
	}
	if g.Stats.AbsorbedRelations != 2 {
		t.Errorf("AbsorbedRelations = %d", g.Stats.AbsorbedRelations)
	}
}

func TestResolveCycles(t *testing.T) {
	tables := tablesWithNodes(6)
	addWay(tables, 10, 1, 2, 3, 1)
	addWay(tables, 11, 4, 5, 6, 4)
	addRelation(tables, 100, way(10, "outer"), rel(200))
	addRelation(tables, 200, way(11, "inner"), rel(100), rel(200))
	addRelation(tables, 300, rel(300))

	g := Resolve(tables)

	// every relation in the cycle is absorbed by another one
	if len(g.Relations) != 0 {
		t.Errorf("relations = %d, want 0", len(g.Relations))
	}
	// ways consumed by absorbed relations are not standalone either
	if len(g.Ways) != 0 {
		t.Errorf("standalone ways = %v", wayIDs(g.Ways))
	}
	if g.Stats.RevisitedRelations == 0 {
		t.Error("expected revisited relations to be counted")
	}
	if g.Stats.EmptyRelations != 1 {
		t.Errorf("EmptyRelations = %d, want 1 (relation 300)", g.Stats.EmptyRelations)
	}
}

func TestExpandVisitsOnce(t *testing.T) {
	tables := tablesWithNodes(3)
	addWay(tables, 10, 1, 2, 3)
	root := addRelation(tables, 1, rel(2), rel(3), way(10, ""))
	addRelation(tables, 2, rel(3), rel(1), way(10, ""))
	addRelation(tables, 3, rel(1), rel(2), way(10, ""))

	r := &resolver{tables: tables, absorbed: map[osm.RelationID]bool{}}
	members := r.expand(root)

	// one way member per distinct relation
	if len(members) != 3 {
		t.Errorf("members = %d, want 3", len(members))
	}
}

func TestResolveDanglingReferences(t *testing.T) {
	tables := tablesWithNodes(3)
	addWay(tables, 10, 1, 2, 3, 99)
	addRelation(tables, 100,
		way(10, "outer"),
		way(404, "outer"),
		node(405),
		rel(406),
		middle.RelationMember{Type: "area", Ref: 1},
	)
	addRelation(tables, 101, way(407, "outer"))

	g := Resolve(tables)

	if len(g.Relations) != 1 {
		t.Fatalf("relations = %d", len(g.Relations))
	}
	if len(g.Relations[0].Ways) != 1 || len(g.Relations[0].Nodes) != 0 {
		t.Errorf("relation = %+v", g.Relations[0])
	}
	s := g.Stats
	if s.DanglingWays != 2 || s.DanglingNodes != 1 || s.DanglingRelations != 1 || s.UnknownMembers != 1 || s.EmptyRelations != 1 {
		t.Errorf("stats = %+v", s)
	}

	// dangling node 99 is skipped in the geometry
	points := g.WayPoints(g.Relations[0].Ways[0])
	if len(points) != 3 {
		t.Errorf("points = %d, want 3", len(points))
	}
}

func TestResolveCopiesEntities(t *testing.T) {
	tables := tablesWithNodes(4)
	raw := addWay(tables, 10, 1, 2, 3, 1)
	raw.Tags["building"] = "yes"
	addRelation(tables, 100, way(10, "outer"))
	addRelation(tables, 101, way(10, "inner"))

	g := Resolve(tables)
	if len(g.Relations) != 2 {
		t.Fatalf("relations = %d", len(g.Relations))
	}
	a, b := g.Relations[0].Ways[0], g.Relations[1].Ways[0]
	if a == b {
		t.Fatal("ways shared between relations must be independent copies")
	}
	if a.Role != RoleOuter || b.Role != RoleInner {
		t.Errorf("roles = %q, %q", a.Role, b.Role)
	}

	a.Tags["building"] = "no"
	a.NodeRefs[0] = 4
	if raw.Tags["building"] != "yes" || raw.Nodes[0] != 1 {
		t.Error("raw tables must not be modified through resolved entities")
	}
}

func TestResolveDeterministicOrder(t *testing.T) {
	tables := tablesWithNodes(20)
	for i := 20; i >= 11; i-- {
		addWay(tables, osm.WayID(i), 1, 2)
	}
	g := Resolve(tables)
	for i := 1; i < len(g.Ways); i++ {
		if g.Ways[i-1].ID >= g.Ways[i].ID {
			t.Fatalf("ways not sorted: %v", wayIDs(g.Ways))
		}
	}
	for i := 1; i < len(g.Nodes); i++ {
		if g.Nodes[i-1].ID >= g.Nodes[i].ID {
			t.Fatalf("nodes not sorted: %v", nodeIDs(g.Nodes))
		}
	}
}

func TestNodePoint(t *testing.T) {
	tables := tablesWithNodes(1)
	g := Resolve(tables)

	p, ok := g.NodePoint(1)
	if !ok {
		t.Fatal("expected node 1")
	}
	x, y := proj.DegreesToMeters(43.701, 7.401)
	if math.Abs(p[0]-x) > 1e-6 || math.Abs(p[1]-y) > 1e-6 {
		t.Errorf("NodePoint = %v, want [%f %f]", p, x, y)
	}
	if _, ok := g.NodePoint(2); ok {
		t.Error("unknown node should not resolve")
	}
	if g.WayPoints(&Way{NodeRefs: []osm.NodeID{1, 2}}) != nil {
		t.Error("way with a single resolvable node should have no points")
	}
}

func TestBuckets(t *testing.T) {
	var b Buckets
	b.Select(true, false).Add(&Way{ID: 1, Role: RoleOuter})
	b.Select(true, true).Add(&Way{ID: 2, Role: RoleInner})
	b.Select(false, true).Add(&Way{ID: 3, Role: "part"})
	b.Select(false, false).Add(&Way{ID: 4})

	if len(b.Buildings2D.Outer) != 1 || len(b.Buildings3D.Inner) != 1 || len(b.Objects3D.Outer) != 1 || len(b.Objects2D.Outer) != 1 {
		t.Errorf("buckets = %+v", b)
	}

	var names []string
	b.Each(func(name string, mp *MultiPolygon) {
		if mp.Empty() {
			t.Errorf("bucket %s should not be empty", name)
		}
		names = append(names, name)
	})
	if len(names) != 4 || names[0] != BucketBuildings2D || names[3] != BucketObjects3D {
		t.Errorf("names = %v", names)
	}
}
