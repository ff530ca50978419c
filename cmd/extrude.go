package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osm3d-go/internal/logger"
	"github.com/wegman-software/osm3d-go/internal/pipeline"
	"github.com/wegman-software/osm3d-go/internal/proj"
)

var projectionStr string

var extrudeCmd = &cobra.Command{
	Use:   "extrude <input.osm[.gz]>",
	Short: "Run the full pipeline (parse → resolve → classify → extrude → export)",
	Long: `Extrude buildings and objects of an OSM XML document.

Ways and multipolygon relations are sorted into building/object and 2D/3D
buckets. Every 3D bucket is extruded from min_height (or min_level) to its
height (or levels times the floor height) less the roof height. Solids are
written as a GeoJSON FeatureCollection of footprints with height properties
and optionally loaded into PostGIS.`,
	Args: cobra.ExactArgs(1),
	Run:  runExtrude,
}

func init() {
	rootCmd.AddCommand(extrudeCmd)

	flags := extrudeCmd.Flags()
	flags.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, `GeoJSON output file ("-" for stdout, "" to disable)`)
	flags.VarP(cfg.BBox, "bbox", "b", "Bounding box filter: minlon,minlat,maxlon,maxlat")
	flags.StringVarP(&projectionStr, "projection", "E", "", "Output projection SRID (3857 or 4326)")
	flags.Float64Var(&cfg.FloorHeight, "floor-height", cfg.FloorHeight, "Floor-to-floor height in meters for level tags")
	flags.IntVar(&cfg.UnitCacheSize, "unit-cache", cfg.UnitCacheSize, "Number of memoised length values")
	flags.BoolVar(&cfg.Include2D, "include-2d", cfg.Include2D, "Also export flat 2D ways and tagged nodes")
	flags.StringVarP(&cfg.StyleFile, "style", "S", cfg.StyleFile, "Style YAML file for tag filtering")

	flags.BoolVar(&cfg.PostGIS, "postgis", cfg.PostGIS, "Load extrusions into PostGIS")
	flags.StringVar(&cfg.DBTable, "db-table", cfg.DBTable, "PostGIS output table")
	flags.BoolVar(&cfg.CreateIndexes, "create-indexes", cfg.CreateIndexes, "Create spatial indexes after loading")
	flags.BoolVar(&cfg.DropExisting, "drop-existing", cfg.DropExisting, "Drop the output table before loading")
}

func runExtrude(cmd *cobra.Command, args []string) {
	cfg.InputFile = args[0]
	log := logger.Get()

	if projectionStr != "" {
		srid, err := proj.ParseSRID(projectionStr)
		if err != nil {
			exitWithError("invalid projection", err)
		}
		cfg.Projection = srid
	}
	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	log.Info("Starting extrusion",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputFile),
		zap.Int("projection", cfg.Projection),
		zap.Float64("floor_height", cfg.FloorHeight),
		zap.String("bbox", cfg.BBox.String()),
		zap.Bool("postgis", cfg.PostGIS),
	)

	ctx, stop := signalContext()
	defer stop()

	coord, err := pipeline.NewCoordinator(cfg)
	if err != nil {
		exitWithError("failed to create pipeline", err)
	}

	stats, err := coord.Run(ctx)
	if err != nil {
		exitWithError("extrusion failed", err)
	}

	switch {
	case !stats.Valid:
		exitWithError("not an OSM document", nil)
	case stats.Aborted:
		log.Warn("Extrusion aborted", zap.String("read", pipeline.FormatBytes(stats.Parse.BytesRead)))
		return
	}

	log.Info("Extrusion complete",
		zap.Duration("duration", stats.Duration.Round(time.Millisecond)),
		zap.Int("relations", stats.Relations),
		zap.Int("ways", stats.Ways),
		zap.Int("extrusions", stats.Assembly.Extrusions),
		zap.Int("features", stats.Features),
		zap.Int("holes", stats.Assembly.HolesUsed),
		zap.Int("holes_denied", stats.Assembly.HolesDenied),
		zap.Int("zero_height", stats.Assembly.ZeroHeight),
		zap.Int64("rows_loaded", stats.RowsLoaded),
	)
}
