package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb/geojson"
)

// Property keys of exported GeoJSON features
const (
	PropOsmType = "osm_type"
	PropOsmID   = "osm_id"
	PropWayID   = "way_id"
	PropBucket  = "bucket"
	PropStart   = "min_height"
	PropHeight  = "height"
	PropTop     = "top"
	PropTags    = "tags"
)

// FeatureCollection builds a GeoJSON collection of features
func FeatureCollection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range features {
		f := &features[i]
		gf := geojson.NewFeature(f.Geometry())
		gf.ID = f.ID()
		gf.Properties[PropOsmType] = string(f.OsmType)
		gf.Properties[PropOsmID] = f.OsmID
		gf.Properties[PropWayID] = int64(f.WayID)
		gf.Properties[PropBucket] = f.Bucket
		if f.Extruded {
			gf.Properties[PropStart] = f.Start
			gf.Properties[PropHeight] = f.Height
			gf.Properties[PropTop] = f.Top()
		}
		tags := make(map[string]string, len(f.Tags))
		for k, v := range f.Tags {
			tags[k] = v
		}
		gf.Properties[PropTags] = tags
		fc.Append(gf)
	}
	return fc
}

// WriteGeoJSON encodes features as one FeatureCollection
func WriteGeoJSON(w io.Writer, features []Feature, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "\t")
	}
	if err := enc.Encode(FeatureCollection(features)); err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return nil
}

// WriteGeoJSONFile writes features to path; "-" selects stdout
func WriteGeoJSONFile(path string, features []Feature, indent bool) (err error) {
	if path == "-" {
		return WriteGeoJSON(os.Stdout, features, indent)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	return WriteGeoJSON(f, features, indent)
}
