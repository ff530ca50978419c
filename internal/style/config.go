// Package style filters exported features by their tags.
package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osm3d-go/internal/osmobj"
)

// Config represents the style configuration for filtering exported features
type Config struct {
	// Buildings applies to the buildings2d and buildings3d buckets
	Buildings *FilterConfig `yaml:"buildings,omitempty"`
	// Objects applies to the objects2d and objects3d buckets
	Objects *FilterConfig `yaml:"objects,omitempty"`
}

// FilterConfig defines filtering rules for one feature class
type FilterConfig struct {
	// Include lists tag keys and accepted values; an empty value list or "*"
	// accepts any value. Empty Include accepts everything.
	Include map[string][]string `yaml:"include,omitempty"`
	// Exclude is applied after Include with the same value rules
	Exclude map[string][]string `yaml:"exclude,omitempty"`
	// RequireAny lists keys of which at least one must be present
	RequireAny []string `yaml:"require_any,omitempty"`
	// MinHeight drops extrusions lower than this many meters
	MinHeight float64 `yaml:"min_height,omitempty"`
}

// LoadConfig loads a style configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse style YAML: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration that includes everything
func DefaultConfig() *Config {
	return &Config{}
}

// Filters picks the filter of a feature by its bucket
type Filters struct {
	Buildings *Filter
	Objects   *Filter
}

// NewFilters creates the per-class filters of cfg
func NewFilters(cfg *Config) *Filters {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Filters{
		Buildings: NewFilter(cfg.Buildings),
		Objects:   NewFilter(cfg.Objects),
	}
}

// For returns the filter responsible for bucket
func (fs *Filters) For(bucket string) *Filter {
	switch bucket {
	case osmobj.BucketBuildings2D, osmobj.BucketBuildings3D:
		return fs.Buildings
	default:
		return fs.Objects
	}
}

// Filter checks tags against one FilterConfig
type Filter struct {
	cfg *FilterConfig
}

// NewFilter creates a filter from configuration
func NewFilter(cfg *FilterConfig) *Filter {
	if cfg == nil {
		return &Filter{cfg: &FilterConfig{}}
	}
	return &Filter{cfg: cfg}
}

// Match checks if the given tags match the filter rules.
// Returns true if the feature should be included.
func (f *Filter) Match(tags map[string]string) bool {
	if f == nil || f.cfg == nil {
		return true
	}

	if len(f.cfg.RequireAny) > 0 && !hasAnyKey(tags, f.cfg.RequireAny) {
		return false
	}
	if len(f.cfg.Include) > 0 && !matchesAny(tags, f.cfg.Include) {
		return false
	}
	if len(f.cfg.Exclude) > 0 && matchesAny(tags, f.cfg.Exclude) {
		return false
	}
	return true
}

// MatchHeight checks tags and the extrusion height
func (f *Filter) MatchHeight(tags map[string]string, height float64) bool {
	if f != nil && f.cfg != nil && height < f.cfg.MinHeight {
		return false
	}
	return f.Match(tags)
}

// HasFilter returns true if filtering is enabled
func (f *Filter) HasFilter() bool {
	if f == nil || f.cfg == nil {
		return false
	}
	return len(f.cfg.Include) > 0 || len(f.cfg.Exclude) > 0 || len(f.cfg.RequireAny) > 0 || f.cfg.MinHeight > 0
}

func hasAnyKey(tags map[string]string, keys []string) bool {
	for _, key := range keys {
		if _, ok := tags[key]; ok {
			return true
		}
	}
	return false
}

// matchesAny reports whether any rule key is present with an accepted value
func matchesAny(tags map[string]string, rules map[string][]string) bool {
	for key, values := range rules {
		tagValue, ok := tags[key]
		if !ok {
			continue
		}
		if len(values) == 0 {
			return true
		}
		for _, v := range values {
			if v == tagValue || v == "*" {
				return true
			}
		}
	}
	return false
}
