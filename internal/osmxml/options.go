package osmxml

// Options selects which entity kinds, child elements and metadata
// attributes the parser materialises. Disabled data is still consumed from
// the stream so that positions stay correct.
type Options struct {
	LoadNodes     bool `yaml:"load_nodes"`
	LoadWays      bool `yaml:"load_ways"`
	LoadRelations bool `yaml:"load_relations"`

	// Child elements: <tag> for nodes, <nd>/<tag> for ways, <member>/<tag> for relations
	LoadNodeSubtree     bool `yaml:"load_node_subtree"`
	LoadWaySubtree      bool `yaml:"load_way_subtree"`
	LoadRelationSubtree bool `yaml:"load_relation_subtree"`

	// LoadAdditionalAttr gates the six per-attribute switches below
	LoadAdditionalAttr bool `yaml:"load_additional_attr"`
	LoadVisibleAttr    bool `yaml:"load_visible_attr"`
	LoadVersionAttr    bool `yaml:"load_version_attr"`
	LoadChangesetAttr  bool `yaml:"load_changeset_attr"`
	LoadTimestampAttr  bool `yaml:"load_timestamp_attr"`
	LoadUserAttr       bool `yaml:"load_user_attr"`
	LoadUIDAttr        bool `yaml:"load_uid_attr"`
}

// DefaultOptions loads every entity with its children and no metadata
func DefaultOptions() Options {
	return Options{
		LoadNodes:           true,
		LoadWays:            true,
		LoadRelations:       true,
		LoadNodeSubtree:     true,
		LoadWaySubtree:      true,
		LoadRelationSubtree: true,
	}
}

// AllAttributes returns a copy of o with every metadata attribute enabled
func (o Options) AllAttributes() Options {
	o.LoadAdditionalAttr = true
	o.LoadVisibleAttr = true
	o.LoadVersionAttr = true
	o.LoadChangesetAttr = true
	o.LoadTimestampAttr = true
	o.LoadUserAttr = true
	o.LoadUIDAttr = true
	return o
}
