package osmobj

import (
	"maps"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osm3d-go/internal/logger"
	"github.com/wegman-software/osm3d-go/internal/middle"
	"github.com/wegman-software/osm3d-go/internal/proj"
)

// Stats counts the content anomalies the resolver recovered from.
// None of them are errors: the reference is dropped and resolution continues.
type Stats struct {
	DanglingNodes      int // node member or way node ref not in the document
	DanglingWays       int
	DanglingRelations  int
	UnknownMembers     int // member type other than node/way/relation
	RevisitedRelations int // relation reached again during expansion (cycle or diamond)
	AbsorbedRelations  int // relations folded into a parent
	EmptyRelations     int // relations without any resolvable node or way
	DroppedWays        int // standalone ways with fewer than 2 node refs
	DroppedNodes       int // standalone nodes without a location
}

// Graph is the resolved object graph of one document
type Graph struct {
	Bounds    osm.Bounds
	Relations []*Relation
	Ways      []*Way // standalone ways
	Nodes     []*Node
	Stats     Stats

	locations map[osm.NodeID]orb.Point // lon, lat of every parsed node
}

// NodePoint returns the projected position of any parsed node
func (g *Graph) NodePoint(id osm.NodeID) (orb.Point, bool) {
	loc, ok := g.locations[id]
	if !ok {
		return orb.Point{}, false
	}
	x, y := proj.DegreesToMeters(loc.Lat(), loc.Lon())
	return orb.Point{x, y}, true
}

// WayPoints returns the projected boundary of w in node order. Unknown nodes
// are skipped; nil is returned when fewer than 2 points remain.
func (g *Graph) WayPoints(w *Way) []orb.Point {
	points := make([]orb.Point, 0, len(w.NodeRefs))
	for _, ref := range w.NodeRefs {
		if p, ok := g.NodePoint(ref); ok {
			points = append(points, p)
		}
	}
	if len(points) < 2 {
		return nil
	}
	return points
}

type resolver struct {
	tables    *middle.Tables
	absorbed  map[osm.RelationID]bool
	usedWays  map[osm.WayID]bool
	usedNodes map[osm.NodeID]bool
	stats     Stats
}

// Resolve builds the deduplicated graph from raw tables. Relations own their
// member ways and nodes; standalone ways and nodes exclude anything owned.
// The tables are not modified.
func Resolve(t *middle.Tables) *Graph {
	r := &resolver{
		tables:    t,
		absorbed:  make(map[osm.RelationID]bool),
		usedWays:  make(map[osm.WayID]bool),
		usedNodes: make(map[osm.NodeID]bool),
	}

	g := &Graph{
		Bounds:    t.Bounds,
		locations: make(map[osm.NodeID]orb.Point, len(t.Nodes)),
	}
	for id, n := range t.Nodes {
		g.locations[id] = orb.Point{n.Lon, n.Lat}
	}

	g.Relations = r.relations()
	g.Ways = r.ways()
	g.Nodes = r.nodes()
	g.Stats = r.stats

	logger.Get().Debug("Resolved relations",
		zap.Int("relations", len(g.Relations)),
		zap.Int("ways", len(g.Ways)),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("absorbed_relations", r.stats.AbsorbedRelations),
		zap.Int("dangling_nodes", r.stats.DanglingNodes),
		zap.Int("dangling_ways", r.stats.DanglingWays),
		zap.Int("dangling_relations", r.stats.DanglingRelations),
	)

	return g
}

// expand walks the relation reference graph breadth-first from root and
// returns its node/way members in traversal order. Each relation is expanded
// at most once, which also breaks cycles.
func (r *resolver) expand(root *middle.RawRelation) []middle.RelationMember {
	log := logger.Get()
	visited := make(map[osm.RelationID]bool)
	queue := []*middle.RawRelation{root}
	var members []middle.RelationMember

	for len(queue) > 0 {
		rel := queue[0]
		queue = queue[1:]

		if visited[rel.ID] {
			r.stats.RevisitedRelations++
			log.Debug("Relation already expanded, skipping", zap.Int64("root", int64(root.ID)), zap.Int64("relation", int64(rel.ID)))
			continue
		}
		visited[rel.ID] = true

		for _, m := range rel.Members {
			if m.Type != osm.TypeRelation {
				members = append(members, m)
				continue
			}
			child, ok := r.tables.Relations[osm.RelationID(m.Ref)]
			if !ok {
				r.stats.DanglingRelations++
				log.Debug("Relation member not found", zap.Int64("relation", int64(rel.ID)), zap.Int64("ref", m.Ref))
				continue
			}
			r.absorbed[child.ID] = true
			queue = append(queue, child)
		}
	}

	return members
}

func (r *resolver) relations() []*Relation {
	log := logger.Get()
	ids := slices.Sorted(maps.Keys(r.tables.Relations))

	var retained []*Relation
	for _, id := range ids {
		raw := r.tables.Relations[id]
		rel := &Relation{
			ID:         raw.ID,
			Members:    r.expand(raw),
			Attributes: raw.Attributes,
			Tags:       maps.Clone(raw.Tags),
		}

		for _, m := range rel.Members {
			switch m.Type {
			case osm.TypeNode:
				nodeID := osm.NodeID(m.Ref)
				r.usedNodes[nodeID] = true
				node, ok := r.tables.Nodes[nodeID]
				if !ok {
					r.stats.DanglingNodes++
					log.Debug("Node member not found", zap.Int64("relation", int64(id)), zap.Int64("node", m.Ref))
					continue
				}
				rel.Nodes = append(rel.Nodes, newNode(node))

			case osm.TypeWay:
				wayID := osm.WayID(m.Ref)
				r.usedWays[wayID] = true
				way, ok := r.tables.Ways[wayID]
				if !ok {
					r.stats.DanglingWays++
					log.Debug("Way member not found", zap.Int64("relation", int64(id)), zap.Int64("way", m.Ref))
					continue
				}
				// the way's nodes are consumed by its geometry
				for _, ref := range way.Nodes {
					r.usedNodes[ref] = true
				}
				rel.Ways = append(rel.Ways, newWay(way, m.Role))

			default:
				r.stats.UnknownMembers++
				log.Debug("Unknown member type", zap.Int64("relation", int64(id)), zap.String("type", string(m.Type)))
			}
		}

		if len(rel.Nodes) == 0 && len(rel.Ways) == 0 {
			r.stats.EmptyRelations++
			continue
		}
		retained = append(retained, rel)
	}

	// relations nested inside another relation are already part of it
	r.stats.AbsorbedRelations = len(r.absorbed)
	relations := make([]*Relation, 0, len(retained))
	for _, rel := range retained {
		if !r.absorbed[rel.ID] {
			relations = append(relations, rel)
		}
	}
	return relations
}

func (r *resolver) ways() []*Way {
	ids := slices.Sorted(maps.Keys(r.tables.Ways))

	var ways []*Way
	for _, id := range ids {
		if r.usedWays[id] {
			continue
		}
		raw := r.tables.Ways[id]
		for _, ref := range raw.Nodes {
			r.usedNodes[ref] = true
		}
		// at least a line
		if len(raw.Nodes) < 2 {
			r.stats.DroppedWays++
			continue
		}
		w := newWay(raw, "")
		w.Buckets = &Buckets{}
		ways = append(ways, w)
	}
	return ways
}

func (r *resolver) nodes() []*Node {
	ids := slices.Sorted(maps.Keys(r.tables.Nodes))

	var nodes []*Node
	for _, id := range ids {
		if r.usedNodes[id] {
			continue
		}
		raw := r.tables.Nodes[id]
		if !raw.HasLocation() {
			r.stats.DroppedNodes++
			continue
		}
		nodes = append(nodes, newNode(raw))
	}
	return nodes
}

func newNode(raw *middle.RawNode) *Node {
	return &Node{
		ID:         raw.ID,
		Lat:        raw.Lat,
		Lon:        raw.Lon,
		Attributes: raw.Attributes,
		Tags:       maps.Clone(raw.Tags),
	}
}

func newWay(raw *middle.RawWay, role string) *Way {
	if role == "" {
		role = RoleOuter
	}
	return &Way{
		ID:         raw.ID,
		NodeRefs:   slices.Clone(raw.Nodes),
		Attributes: raw.Attributes,
		Tags:       maps.Clone(raw.Tags),
		Role:       role,
	}
}
