// Package pipeline runs a load end to end: parse, resolve, classify,
// assemble and export.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osm3d-go/internal/config"
	"github.com/wegman-software/osm3d-go/internal/export"
	"github.com/wegman-software/osm3d-go/internal/geometry"
	"github.com/wegman-software/osm3d-go/internal/index"
	"github.com/wegman-software/osm3d-go/internal/logger"
	"github.com/wegman-software/osm3d-go/internal/metrics"
	"github.com/wegman-software/osm3d-go/internal/middle"
	"github.com/wegman-software/osm3d-go/internal/osmobj"
	"github.com/wegman-software/osm3d-go/internal/osmxml"
	"github.com/wegman-software/osm3d-go/internal/proj"
	"github.com/wegman-software/osm3d-go/internal/style"
	"github.com/wegman-software/osm3d-go/internal/units"
)

// Coordinator orchestrates a load
type Coordinator struct {
	cfg       *config.Config
	filters   *style.Filters
	units     *units.Parser
	collector *metrics.Collector
}

// NewCoordinator creates a coordinator for a validated configuration
func NewCoordinator(cfg *config.Config) (*Coordinator, error) {
	styleCfg := style.DefaultConfig()
	if cfg.StyleFile != "" {
		var err error
		styleCfg, err = style.LoadConfig(cfg.StyleFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load style: %w", err)
		}
	}

	unitParser, err := units.NewParser(cfg.UnitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit parser: %w", err)
	}

	return &Coordinator{
		cfg:       cfg,
		filters:   style.NewFilters(styleCfg),
		units:     unitParser,
		collector: metrics.NewCollector(cfg.MetricsInterval, logger.Get()),
	}, nil
}

func (c *Coordinator) stage(name string) {
	c.collector.SetStage(name)
	logger.Get().Debug("Stage started", zap.String("stage", name))
}

// Load parses the input file and resolves it into an object graph
func (c *Coordinator) Load(ctx context.Context) (*LoadResult, error) {
	log := logger.Get()

	c.stage(StageParse)
	progress := NewProgressLogger("Parsing OSM XML", DefaultProgressStep, log)
	parser := osmxml.NewParser(c.cfg.Parser, progress)
	res, err := parser.ParseFile(ctx, c.cfg.InputFile)
	if err != nil {
		return nil, err
	}

	out := &LoadResult{
		Parse:   parser.Stats(),
		Tables:  res.Tables.Stats(),
		Valid:   res.Valid,
		Aborted: res.Aborted,
	}
	if !res.Valid || res.Aborted {
		return out, nil
	}

	log.Info("Parsed OSM document",
		zap.String("bounds", middle.FormatBounds(res.Tables.Bounds)),
		zap.Int("nodes", out.Tables.Nodes),
		zap.Int("ways", out.Tables.Ways),
		zap.Int("relations", out.Tables.Relations),
		zap.String("read", FormatBytes(out.Parse.BytesRead)),
	)

	c.stage(StageResolve)
	out.Graph = osmobj.Resolve(res.Tables)
	log.Info("Resolved object graph",
		zap.Int("relations", len(out.Graph.Relations)),
		zap.Int("ways", len(out.Graph.Ways)),
		zap.Int("nodes", len(out.Graph.Nodes)),
	)
	return out, nil
}

// Run executes the full load. The metrics collector runs alongside and stops
// when the load returns.
func (c *Coordinator) Run(ctx context.Context) (*Stats, error) {
	log := logger.Get()

	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	defer cancelMetrics()

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.MetricsInterval > 0 {
		log.Info("System metrics collection started", zap.Duration("interval", c.cfg.MetricsInterval))
		g.Go(func() error {
			return c.collector.Run(metricsCtx)
		})
	}

	var stats *Stats
	g.Go(func() error {
		defer cancelMetrics()
		var err error
		stats, err = c.run(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Coordinator) run(ctx context.Context) (*Stats, error) {
	log := logger.Get()
	start := time.Now()

	loaded, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Parse:   loaded.Parse,
		Tables:  loaded.Tables,
		Valid:   loaded.Valid,
		Aborted: loaded.Aborted,
	}
	if loaded.Graph == nil {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	g := loaded.Graph
	stats.Resolve = g.Stats
	stats.Relations, stats.Ways, stats.Nodes = len(g.Relations), len(g.Ways), len(g.Nodes)

	features, err := c.Build(g, stats)
	if err != nil {
		return nil, err
	}
	stats.Features = len(features)

	c.stage(StageExport)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.cfg.OutputFile != "" {
		if err := export.WriteGeoJSONFile(c.cfg.OutputFile, features, false); err != nil {
			return nil, err
		}
		log.Info("GeoJSON written", zap.String("file", c.cfg.OutputFile), zap.Int("features", len(features)))
	}
	if c.cfg.PostGIS {
		loader, err := export.NewLoader(ctx, c.cfg)
		if err != nil {
			return nil, err
		}
		defer loader.Close()
		if stats.RowsLoaded, err = loader.Load(ctx, features); err != nil {
			return nil, err
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// Build classifies and assembles the graph and returns the exported
// features in the configured projection. Counters are added to stats.
func (c *Coordinator) Build(g *osmobj.Graph, stats *Stats) ([]export.Feature, error) {
	log := logger.Get()

	transformer, err := proj.NewTransformer(c.cfg.Projection)
	if err != nil {
		return nil, err
	}

	c.stage(StageClassify)
	classifier := geometry.NewClassifier(c.cfg.FloorHeight, c.units)
	classifier.Classify(g)

	c.stage(StageAssemble)
	assembler := geometry.NewAssembler(g, nil, classifier)
	extrusions := assembler.All()
	var outlines []geometry.Outline
	var nodes []*osmobj.Node
	if c.cfg.Include2D {
		outlines = assembler.Outlines()
		nodes = taggedNodes(g.Nodes)
	}
	stats.Assembly = assembler.Stats()

	if box := c.cfg.BBox; box != nil && box.IsSet {
		before := len(extrusions) + len(outlines) + len(nodes)
		extrusions = within(extrusions, func(e geometry.Extrusion) orb.Bound { return e.Solid.Outer.Bound() }, box)
		outlines = within(outlines, func(o geometry.Outline) orb.Bound { return o.Bound() }, box)
		nodes = slices.DeleteFunc(nodes, func(n *osmobj.Node) bool { return !box.Contains(n.Lat, n.Lon) })
		stats.OutsideBBox = before - len(extrusions) - len(outlines) - len(nodes)
	}

	features := make([]export.Feature, 0, len(extrusions)+len(outlines)+len(nodes))
	for _, e := range extrusions {
		if f := c.filters.For(e.Bucket); f.HasFilter() && !f.MatchHeight(e.Tags, e.Solid.Height) {
			stats.Filtered++
			continue
		}
		features = append(features, export.FromExtrusion(e, transformer))
	}
	for _, o := range outlines {
		if f := c.filters.For(o.Bucket); f.HasFilter() && !f.Match(o.Tags) {
			stats.Filtered++
			continue
		}
		features = append(features, export.FromOutline(o, transformer))
	}
	nodeFilter := c.filters.For(export.BucketNodes)
	for _, n := range nodes {
		if nodeFilter.HasFilter() && !nodeFilter.Match(n.Tags) {
			stats.Filtered++
			continue
		}
		features = append(features, export.FromNode(n, transformer))
	}

	log.Info("Assembled features",
		zap.Int("extrusions", stats.Assembly.Extrusions),
		zap.Int("outlines", len(outlines)),
		zap.Int("nodes", len(nodes)),
		zap.Int("features", len(features)),
		zap.Int("open_curves", stats.Assembly.OpenCurves),
		zap.Int("multi_outer", stats.Assembly.MultiOuter),
		zap.Int("filtered", stats.Filtered),
		zap.Int("outside_bbox", stats.OutsideBBox),
		zap.Int("cached_units", c.units.Len()),
	)
	return features, nil
}

// taggedNodes returns the nodes that carry tags
func taggedNodes(nodes []*osmobj.Node) []*osmobj.Node {
	var out []*osmobj.Node
	for _, n := range nodes {
		if len(n.Tags) > 0 {
			out = append(out, n)
		}
	}
	return out
}

// within keeps the items whose projected bound intersects box
func within[T any](items []T, bound func(T) orb.Bound, box *config.BBox) []T {
	if len(items) == 0 {
		return items
	}
	ix := index.New[int]()
	for i, it := range items {
		ix.Insert(bound(it), i)
	}
	hits := ix.SearchDegrees(box.MinLon, box.MinLat, box.MaxLon, box.MaxLat)
	logger.Get().Debug("Bounding box filter",
		zap.Int("indexed", ix.Len()),
		zap.Int("kept", len(hits)),
	)
	kept := make([]T, 0, len(hits))
	for _, i := range hits {
		kept = append(kept, items[i])
	}
	return kept
}
