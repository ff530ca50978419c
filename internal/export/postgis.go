package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osm3d-go/internal/config"
	"github.com/wegman-software/osm3d-go/internal/logger"
	"github.com/wegman-software/osm3d-go/internal/wkb"
)

// loadTempTable receives the COPY before geometries are decoded
const loadTempTable = "osm3d_load_tmp"

var copyColumns = []string{"osm_type", "osm_id", "way_id", "bucket", "tags", "ext_start", "ext_height", "footprint_wkb", "solid_wkb"}

// Loader loads features into a PostGIS table
type Loader struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

// NewLoader connects to PostgreSQL
func NewLoader(ctx context.Context, cfg *config.Config) (*Loader, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Loader{cfg: cfg, pool: pool}, nil
}

// Close closes connections
func (l *Loader) Close() {
	l.pool.Close()
}

// Load replaces the table content with features and returns the row count
func (l *Loader) Load(ctx context.Context, features []Feature) (int64, error) {
	log := logger.Get()
	table := l.cfg.QualifiedTable()

	if _, err := l.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return 0, fmt.Errorf("failed to create PostGIS extension: %w", err)
	}
	if l.cfg.DBSchema != "public" {
		if _, err := l.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", l.cfg.DBSchema)); err != nil {
			return 0, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	rows, err := Rows(features, l.cfg.Projection)
	if err != nil {
		return 0, err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if l.cfg.DropExisting {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return 0, fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, CreateTableSQL(table, l.cfg.Projection)); err != nil {
		return 0, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", table)); err != nil {
		return 0, fmt.Errorf("failed to truncate table: %w", err)
	}

	if _, err := tx.Exec(ctx, createTempTableSQL); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{loadTempTable}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}

	if _, err := tx.Exec(ctx, InsertSQL(table)); err != nil {
		return 0, fmt.Errorf("failed to insert from temp table: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	log.Info("Table loaded", zap.String("table", table), zap.Int64("rows", copied))

	if l.cfg.CreateIndexes {
		if err := l.createIndexes(ctx, table); err != nil {
			return copied, fmt.Errorf("failed to create indexes: %w", err)
		}
	}
	return copied, nil
}

func (l *Loader) createIndexes(ctx context.Context, table string) error {
	short := l.cfg.DBTable
	stmts := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_footprint_idx ON %s USING GIST (footprint)", short, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_osm_id_idx ON %s (osm_type, osm_id)", short, table),
		fmt.Sprintf("ANALYZE %s", table),
	}
	for _, stmt := range stmts {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateTableSQL returns the DDL of the output table
func CreateTableSQL(table string, srid int) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			osm_type TEXT NOT NULL,
			osm_id BIGINT NOT NULL,
			way_id BIGINT NOT NULL,
			bucket TEXT NOT NULL,
			tags JSONB,
			ext_start DOUBLE PRECISION,
			ext_height DOUBLE PRECISION,
			footprint GEOMETRY(Geometry, %d),
			solid GEOMETRY(PolyhedralSurfaceZ, %d)
		)
	`, table, srid, srid)
}

const createTempTableSQL = `
	DROP TABLE IF EXISTS ` + loadTempTable + `;
	CREATE TEMP TABLE ` + loadTempTable + ` (
		osm_type TEXT,
		osm_id BIGINT,
		way_id BIGINT,
		bucket TEXT,
		tags TEXT,
		ext_start DOUBLE PRECISION,
		ext_height DOUBLE PRECISION,
		footprint_wkb BYTEA,
		solid_wkb BYTEA
	) ON COMMIT DROP
`

// InsertSQL moves the copied rows into table, decoding EWKB
func InsertSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (osm_type, osm_id, way_id, bucket, tags, ext_start, ext_height, footprint, solid)
		SELECT
			osm_type, osm_id, way_id, bucket, tags::jsonb, ext_start, ext_height,
			ST_GeomFromEWKB(footprint_wkb),
			CASE WHEN solid_wkb IS NULL THEN NULL ELSE ST_GeomFromEWKB(solid_wkb) END
		FROM %s
		WHERE footprint_wkb IS NOT NULL
	`, table, loadTempTable)
}

// Rows converts features to COPY rows. Flat outlines and nodes have NULL
// extrusion columns and no solid. Features without a shape are dropped.
func Rows(features []Feature, srid int) ([][]any, error) {
	enc := wkb.NewEncoder(1024, srid)
	rows := make([][]any, 0, len(features))

	for i := range features {
		f := &features[i]

		tags, err := json.Marshal(f.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags of %s: %w", f.ID(), err)
		}

		footprint := clone(encodeShape(enc, f))
		if footprint == nil {
			continue
		}

		var start, height any
		var solid []byte
		if f.Extruded {
			start, height = f.Start, f.Height
			solid = clone(enc.EncodeExtrusion(f.Footprint, f.Start, f.Top()))
		}

		rows = append(rows, []any{
			string(f.OsmType), f.OsmID, int64(f.WayID), f.Bucket, string(tags),
			start, height, footprint, solid,
		})
	}
	return rows, nil
}

// encodeShape encodes the feature's geometry, or returns nil when it has
// none. Points are only taken from node features.
func encodeShape(enc *wkb.Encoder, f *Feature) []byte {
	switch g := f.Geometry().(type) {
	case orb.Polygon:
		return enc.EncodePolygon(g)
	case orb.LineString:
		if len(g) < 2 {
			return nil
		}
		return enc.EncodeLineString(g)
	case orb.Point:
		if f.OsmType != osm.TypeNode {
			return nil
		}
		return enc.EncodePoint(g)
	}
	return nil
}

// clone copies the encoder's reused buffer
func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
