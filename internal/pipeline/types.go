package pipeline

import (
	"time"

	"github.com/wegman-software/osm3d-go/internal/geometry"
	"github.com/wegman-software/osm3d-go/internal/middle"
	"github.com/wegman-software/osm3d-go/internal/osmobj"
	"github.com/wegman-software/osm3d-go/internal/osmxml"
)

// Pipeline stage names, used to label metrics
const (
	StageParse    = "parse"
	StageResolve  = "resolve"
	StageClassify = "classify"
	StageAssemble = "assemble"
	StageExport   = "export"
)

// LoadResult is the outcome of parsing and resolving a document
type LoadResult struct {
	Graph   *osmobj.Graph // nil when the document is invalid or the load aborted
	Parse   osmxml.Stats
	Tables  middle.Stats
	Valid   bool
	Aborted bool
}

// Stats holds combined statistics of a run
type Stats struct {
	Parse    osmxml.Stats
	Tables   middle.Stats
	Resolve  osmobj.Stats
	Assembly geometry.AssemblyStats

	Relations int // resolved top-level relations
	Ways      int // standalone ways
	Nodes     int // standalone nodes

	Features    int // exported features
	Filtered    int // dropped by the style filter
	OutsideBBox int // dropped by the bounding box
	RowsLoaded  int64

	Valid    bool
	Aborted  bool
	Duration time.Duration
}
