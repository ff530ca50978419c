// Package wkb encodes footprints and extruded solids as PostGIS extended WKB.
package wkb

import (
	"encoding/binary"
	"math"

	"github.com/paulmach/orb"
)

// WKB type constants (ISO SQL/MM specification)
const (
	wkbPoint             = 1
	wkbLineString        = 2
	wkbPolygon           = 3
	wkbPolyhedralSurface = 15

	// EWKB flags (PostGIS extended WKB)
	wkbZFlag    = 0x80000000
	wkbSRIDFlag = 0x20000000
)

// Encoder encodes geometries to EWKB.
// Output is little-endian and carries the encoder's SRID.
type Encoder struct {
	buf  []byte
	srid uint32
}

// NewEncoder creates an encoder with a pre-allocated buffer
func NewEncoder(initialSize int, srid int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, initialSize),
		srid: uint32(srid),
	}
}

// SRID returns the encoder's SRID
func (e *Encoder) SRID() int {
	return int(e.srid)
}

// Reset clears the buffer for reuse
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The slice is reused by the next Encode call.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// EncodePoint encodes a point
func (e *Encoder) EncodePoint(p orb.Point) []byte {
	e.header(wkbPoint)
	e.appendPoint(p)
	return e.buf
}

// EncodeLineString encodes a linestring
func (e *Encoder) EncodeLineString(ls orb.LineString) []byte {
	e.header(wkbLineString)
	e.appendPoints(ls)
	return e.buf
}

// EncodePolygon encodes a polygon; poly[0] is the outer ring, the rest are holes.
// An empty polygon yields nil.
func (e *Encoder) EncodePolygon(poly orb.Polygon) []byte {
	if len(poly) == 0 {
		e.Reset()
		return nil
	}
	e.header(wkbPolygon)
	e.appendRings(poly)
	return e.buf
}

// EncodeExtrusion encodes the solid swept by footprint between bottom and top
// as a POLYHEDRALSURFACE Z: the bottom face, the top face and one quad wall
// per ring edge. The footprint is expected to be a closed outer ring
// (counter-clockwise) with clockwise holes.
func (e *Encoder) EncodeExtrusion(footprint orb.Polygon, bottom, top float64) []byte {
	if len(footprint) == 0 {
		e.Reset()
		return nil
	}

	faces := 2
	for _, ring := range footprint {
		if len(ring) > 1 {
			faces += len(ring) - 1
		}
	}

	e.header(wkbPolyhedralSurface | wkbZFlag)
	e.appendUint32(uint32(faces))

	// bottom faces down, so its rings run the other way
	e.facePolygon(len(footprint))
	for _, ring := range footprint {
		e.appendUint32(uint32(len(ring)))
		for i := len(ring) - 1; i >= 0; i-- {
			e.appendPointZ(ring[i], bottom)
		}
	}

	e.facePolygon(len(footprint))
	for _, ring := range footprint {
		e.appendUint32(uint32(len(ring)))
		for _, p := range ring {
			e.appendPointZ(p, top)
		}
	}

	for _, ring := range footprint {
		for i := 0; i+1 < len(ring); i++ {
			a, b := ring[i], ring[i+1]
			e.facePolygon(1)
			e.appendUint32(5)
			e.appendPointZ(a, bottom)
			e.appendPointZ(b, bottom)
			e.appendPointZ(b, top)
			e.appendPointZ(a, top)
			e.appendPointZ(a, bottom)
		}
	}

	return e.buf
}

// header resets the buffer and writes byte order, type with SRID flag and SRID
func (e *Encoder) header(geomType uint32) {
	e.Reset()
	e.buf = append(e.buf, 0x01)
	e.appendUint32(geomType | wkbSRIDFlag)
	e.appendUint32(e.srid)
}

// facePolygon starts an embedded POLYGON Z
func (e *Encoder) facePolygon(rings int) {
	e.buf = append(e.buf, 0x01)
	e.appendUint32(wkbPolygon | wkbZFlag)
	e.appendUint32(uint32(rings))
}

func (e *Encoder) appendRings(poly orb.Polygon) {
	e.appendUint32(uint32(len(poly)))
	for _, ring := range poly {
		e.appendPoints(ring)
	}
}

func (e *Encoder) appendPoints(points []orb.Point) {
	e.appendUint32(uint32(len(points)))
	for _, p := range points {
		e.appendPoint(p)
	}
}

func (e *Encoder) appendPoint(p orb.Point) {
	e.appendFloat64(p[0])
	e.appendFloat64(p[1])
}

func (e *Encoder) appendPointZ(p orb.Point, z float64) {
	e.appendPoint(p)
	e.appendFloat64(z)
}

func (e *Encoder) appendUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) appendFloat64(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}
