package proj

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// SRID constants for common projections
const (
	SRID4326 = 4326 // WGS84 (lat/lon)
	SRID3857 = 3857 // Web Mercator
)

// Spherical pseudo-Mercator constants
const (
	// EarthRadius is the sphere radius in meters
	EarthRadius = 6378137.0
	// MaxLatitude bounds the forward projection; tan() diverges at the poles
	MaxLatitude = 89.5
)

// LonToX converts a longitude in degrees to x in meters
func LonToX(lon float64) float64 {
	return lon * math.Pi / 180.0 * EarthRadius
}

// LatToY converts a latitude in degrees to y in meters
// y = R * ln(tan(π/4 + φ/2))
func LatToY(lat float64) float64 {
	if lat > MaxLatitude {
		lat = MaxLatitude
	} else if lat < -MaxLatitude {
		lat = -MaxLatitude
	}

	latRad := lat * math.Pi / 180.0
	return math.Log(math.Tan(math.Pi/4.0+latRad/2.0)) * EarthRadius
}

// XToLon converts x in meters back to a longitude in degrees
func XToLon(x float64) float64 {
	return x / EarthRadius * 180.0 / math.Pi
}

// YToLat converts y in meters back to a latitude in degrees
func YToLat(y float64) float64 {
	return (2.0*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2.0) * 180.0 / math.Pi
}

// DegreesToMeters projects a WGS84 position to pseudo-Mercator meters
func DegreesToMeters(lat, lon float64) (x, y float64) {
	return LonToX(lon), LatToY(lat)
}

// MetersToDegrees is the inverse of DegreesToMeters
func MetersToDegrees(x, y float64) (lat, lon float64) {
	return YToLat(y), XToLon(x)
}

// Transformer converts projected meters into the output projection
type Transformer struct {
	TargetSRID int
}

// NewTransformer creates a transformer from pseudo-Mercator meters to target SRID
func NewTransformer(targetSRID int) (*Transformer, error) {
	if targetSRID != SRID4326 && targetSRID != SRID3857 {
		return nil, fmt.Errorf("unsupported target SRID: %d (only 4326 and 3857 supported)", targetSRID)
	}
	return &Transformer{TargetSRID: targetSRID}, nil
}

// Transform converts a projected point to the target projection.
// For 4326 the result is (lon, lat).
func (t *Transformer) Transform(p orb.Point) orb.Point {
	if !t.NeedsTransform() {
		return p
	}
	lat, lon := MetersToDegrees(p[0], p[1])
	return orb.Point{lon, lat}
}

// TransformRing returns a transformed copy of the ring
func (t *Transformer) TransformRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = t.Transform(p)
	}
	return out
}

// TransformLineString returns a transformed copy of the line
func (t *Transformer) TransformLineString(ls orb.LineString) orb.LineString {
	return orb.LineString(t.TransformRing(orb.Ring(ls)))
}

// NeedsTransform returns true if transformation is required
func (t *Transformer) NeedsTransform() bool {
	return t.TargetSRID != SRID3857
}

// ParseSRID parses a projection string to SRID
// Accepts: "4326", "3857", "EPSG:4326", "EPSG:3857"
func ParseSRID(s string) (int, error) {
	switch s {
	case "4326", "EPSG:4326":
		return SRID4326, nil
	case "3857", "EPSG:3857":
		return SRID3857, nil
	default:
		return 0, fmt.Errorf("unsupported projection: %s (supported: 4326, 3857)", s)
	}
}
