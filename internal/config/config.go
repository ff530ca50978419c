// Package config holds the settings of a load: parser switches, classifier
// settings, output targets and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osm3d-go/internal/geometry"
	"github.com/wegman-software/osm3d-go/internal/osmxml"
	"github.com/wegman-software/osm3d-go/internal/proj"
	"github.com/wegman-software/osm3d-go/internal/units"
)

// StdoutFile selects standard output as the GeoJSON target
const StdoutFile = "-"

// BBox represents a geographic bounding box
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box
func (b *BBox) Contains(lat, lon float64) bool {
	if b == nil || !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// String formats the box the way ParseBBox reads it
func (b *BBox) String() string {
	if b == nil || !b.IsSet {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Set parses s into b; it makes *BBox usable as a pflag.Value
func (b *BBox) Set(s string) error {
	parsed, err := ParseBBox(s)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}

// Type implements pflag.Value
func (b *BBox) Type() string {
	return "bbox"
}

// UnmarshalYAML reads a bbox written as "minlon,minlat,maxlon,maxlat"
func (b *BBox) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("bbox must be a string: %w", err)
	}
	return b.Set(s)
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// Config holds the configuration of a load
type Config struct {
	// Input settings
	InputFile string         `yaml:"input"`
	Parser    osmxml.Options `yaml:"parser"`

	// Classifier settings
	FloorHeight   float64 `yaml:"floor_height"` // floor-to-floor height in meters
	UnitCacheSize int     `yaml:"unit_cache_size"`

	// Output settings
	BBox       *BBox  `yaml:"bbox"`       // Geographic bounding box filter
	Projection int    `yaml:"projection"` // Output SRID (3857 or 4326)
	OutputFile string `yaml:"output"`     // GeoJSON target, "-" for stdout, "" to disable
	Include2D  bool   `yaml:"include_2d"` // Also export closed 2D outlines
	StyleFile  string `yaml:"style"`      // Path to style YAML file for tag filtering

	// Database settings
	PostGIS       bool   `yaml:"postgis"`
	DBHost        string `yaml:"db_host"`
	DBPort        int    `yaml:"db_port"`
	DBName        string `yaml:"db_name"`
	DBUser        string `yaml:"db_user"`
	DBPassword    string `yaml:"db_password"`
	DBSchema      string `yaml:"db_schema"`
	DBTable       string `yaml:"db_table"`
	DropExisting  bool   `yaml:"drop_existing"`
	CreateIndexes bool   `yaml:"create_indexes"`

	// Logging and metrics
	Verbose         bool          `yaml:"verbose"`
	LogFile         string        `yaml:"log_file"`         // Path to log file (empty = no file logging)
	MetricsInterval time.Duration `yaml:"metrics_interval"` // Interval for system metrics logging, 0 disables
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Parser:          osmxml.DefaultOptions(),
		FloorHeight:     geometry.DefaultFloorHeight,
		UnitCacheSize:   units.DefaultCacheSize,
		BBox:            &BBox{},
		Projection:      proj.SRID3857,
		OutputFile:      StdoutFile,
		DBHost:          "localhost",
		DBPort:          5432,
		DBName:          "osm",
		DBUser:          "postgres",
		DBSchema:        "public",
		DBTable:         "osm3d_extrusions",
		CreateIndexes:   true,
		MetricsInterval: 30 * time.Second,
	}
}

// LoadFile overlays the YAML file at path onto c. Keys missing from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if c.BBox == nil {
		c.BBox = &BBox{}
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// QualifiedTable returns the schema-qualified output table name
func (c *Config) QualifiedTable() string {
	return c.DBSchema + "." + c.DBTable
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return errors.New("input file is required")
	}
	if c.FloorHeight <= 0 {
		return fmt.Errorf("floor height must be positive, got %f", c.FloorHeight)
	}
	if c.Projection != proj.SRID3857 && c.Projection != proj.SRID4326 {
		return fmt.Errorf("unsupported projection %d (use %d or %d)", c.Projection, proj.SRID3857, proj.SRID4326)
	}
	if c.MetricsInterval < 0 {
		return errors.New("metrics interval must not be negative")
	}
	if c.PostGIS && (c.DBSchema == "" || c.DBTable == "") {
		return errors.New("postgis output requires a schema and table name")
	}
	return nil
}
