package proj

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestRoundTrip(t *testing.T) {
	for lat := -89.5; lat <= 89.5; lat += 8.95 {
		for lon := -180.0; lon <= 180.0; lon += 22.5 {
			x, y := DegreesToMeters(lat, lon)
			gotLat, gotLon := MetersToDegrees(x, y)
			if math.Abs(gotLat-lat) > 1e-6 || math.Abs(gotLon-lon) > 1e-6 {
				t.Errorf("round trip (%f, %f) = (%f, %f)", lat, lon, gotLat, gotLon)
			}
		}
	}
}

func TestLatitudeClamp(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		clamped float64
	}{
		{"north pole", 90, 89.5},
		{"beyond south pole", -95, -89.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, want := LatToY(tt.lat), LatToY(tt.clamped); got != want {
				t.Errorf("LatToY(%f) = %f, want %f", tt.lat, got, want)
			}
			if math.IsInf(LatToY(tt.lat), 0) {
				t.Errorf("LatToY(%f) is infinite", tt.lat)
			}
		})
	}
}

func TestKnownValues(t *testing.T) {
	x, y := DegreesToMeters(0, 0)
	if x != 0 || math.Abs(y) > 1e-9 {
		t.Errorf("origin = (%f, %f), want (0, 0)", x, y)
	}

	x, _ = DegreesToMeters(0, 180)
	if math.Abs(x-20037508.342789244) > 1e-6 {
		t.Errorf("lon 180 x = %f", x)
	}
}

func TestTransformer(t *testing.T) {
	if _, err := NewTransformer(27700); err == nil {
		t.Fatal("expected error for unsupported SRID")
	}

	mercator, err := NewTransformer(SRID3857)
	if err != nil {
		t.Fatal(err)
	}
	p := orb.Point{1000, 2000}
	if mercator.NeedsTransform() || mercator.Transform(p) != p {
		t.Error("3857 transformer should pass points through")
	}

	wgs, err := NewTransformer(SRID4326)
	if err != nil {
		t.Fatal(err)
	}
	x, y := DegreesToMeters(43.7384, 7.4246)
	got := wgs.Transform(orb.Point{x, y})
	if math.Abs(got[0]-7.4246) > 1e-9 || math.Abs(got[1]-43.7384) > 1e-9 {
		t.Errorf("Transform = %v, want [7.4246 43.7384]", got)
	}

	ring := wgs.TransformRing(orb.Ring{{x, y}, {x, y}})
	if len(ring) != 2 || ring[0] != got {
		t.Errorf("TransformRing = %v", ring)
	}

	src := orb.LineString{{x, y}, {0, 0}}
	line := wgs.TransformLineString(src)
	if len(line) != 2 || line[0] != got || line[1] != (orb.Point{0, 0}) {
		t.Errorf("TransformLineString = %v", line)
	}
	if src[0] != (orb.Point{x, y}) {
		t.Error("TransformLineString must not modify its input")
	}
}

func TestParseSRID(t *testing.T) {
	for in, want := range map[string]int{"4326": 4326, "EPSG:3857": 3857} {
		got, err := ParseSRID(in)
		if err != nil || got != want {
			t.Errorf("ParseSRID(%q) = %d, %v", in, got, err)
		}
	}
	if _, err := ParseSRID("900913"); err == nil {
		t.Error("expected error")
	}
}
