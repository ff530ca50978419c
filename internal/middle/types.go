package middle

import (
	"github.com/paulmach/osm"
)

// Attributes holds the optional metadata attributes shared by nodes, ways
// and relations. A nil field was not requested or not present.
type Attributes struct {
	Visible   *string
	Version   *string
	Changeset *string
	Timestamp *string
	User      *string
	UID       *string
}

// RawNode represents an OSM node as read from the document
type RawNode struct {
	ID         osm.NodeID
	Lat        float64
	Lon        float64
	Attributes *Attributes
	Tags       map[string]string
}

// HasLocation reports whether both coordinates are set.
// A zero latitude or longitude counts as unset.
func (n *RawNode) HasLocation() bool {
	return n.Lat != 0 && n.Lon != 0
}

// RawWay represents an OSM way as read from the document
type RawWay struct {
	ID         osm.WayID
	Nodes      []osm.NodeID // ordered; the boundary path
	Attributes *Attributes
	Tags       map[string]string
}

// RelationMember represents a member of an OSM relation
type RelationMember struct {
	Type osm.Type // osm.TypeNode, osm.TypeWay or osm.TypeRelation; other values are kept verbatim
	Ref  int64
	Role string
}

// RawRelation represents an OSM relation as read from the document
type RawRelation struct {
	ID         osm.RelationID
	Members    []RelationMember // ordered
	Attributes *Attributes
	Tags       map[string]string
}
