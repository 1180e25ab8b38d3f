// Package geo holds the geographic value types used by query terms.
package geo

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// AreaKind identifies which reference dataset a named area belongs to.
type AreaKind string

const (
	// AreaCountry is a political country boundary.
	AreaCountry AreaKind = "country"
	// AreaMarine is a marine region boundary.
	AreaMarine AreaKind = "marine"
	// AreaGeography is a physical geography boundary (continents, deserts, ranges).
	AreaGeography AreaKind = "geography"
)

// IsValid reports whether the kind is one of the three reference datasets.
func (k AreaKind) IsValid() bool {
	switch k {
	case AreaCountry, AreaMarine, AreaGeography:
		return true
	}
	return false
}

// Unit is a distance unit accepted on geo_point radii.
type Unit string

// Accepted radius units.
const (
	Miles         Unit = "mi"
	Yards         Unit = "yd"
	Feet          Unit = "ft"
	Inches        Unit = "in"
	Kilometres    Unit = "km"
	Metres        Unit = "m"
	Centimetres   Unit = "cm"
	Millimetres   Unit = "mm"
	NauticalMiles Unit = "nmi"
)

// metersPer maps each unit to its length in meters.
var metersPer = map[Unit]float64{
	Miles:         1609.344,
	Yards:         0.9144,
	Feet:          0.3048,
	Inches:        0.0254,
	Kilometres:    1000,
	Metres:        1,
	Centimetres:   0.01,
	Millimetres:   0.001,
	NauticalMiles: 1852,
}

// ParseUnit validates a radius unit string.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if _, ok := metersPer[u]; !ok {
		return "", fmt.Errorf("unknown radius unit %q", s)
	}
	return u, nil
}

// Meters converts a value in this unit to meters.
func (u Unit) Meters(v float64) float64 {
	return v * metersPer[u]
}

// Distance is a positive radius with its unit.
type Distance struct {
	value float64
	unit  Unit
}

// NewDistance validates and creates a Distance. The value must be positive;
// zero is rejected rather than silently treated as point-exact.
func NewDistance(value float64, unit Unit) (Distance, error) {
	if _, ok := metersPer[unit]; !ok {
		return Distance{}, fmt.Errorf("unknown radius unit %q", unit)
	}
	if value <= 0 {
		return Distance{}, fmt.Errorf("radius must be positive, got %v", value)
	}
	return Distance{value: value, unit: unit}, nil
}

// Value returns the radius magnitude in its original unit.
func (d Distance) Value() float64 { return d.value }

// Unit returns the radius unit.
func (d Distance) Unit() Unit { return d.unit }

// Meters returns the radius converted to meters.
func (d Distance) Meters() float64 { return d.unit.Meters(d.value) }

// Point is a WGS 84 coordinate.
type Point struct {
	lat float64
	lon float64
}

// NewPoint validates latitude and longitude ranges.
func NewPoint(lat, lon float64) (Point, error) {
	if lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("latitude must be between -90 and 90, got %v", lat)
	}
	if lon < -180 || lon > 180 {
		return Point{}, fmt.Errorf("longitude must be between -180 and 180, got %v", lon)
	}
	return Point{lat: lat, lon: lon}, nil
}

// Lat returns the latitude.
func (p Point) Lat() float64 { return p.lat }

// Lon returns the longitude.
func (p Point) Lon() float64 { return p.lon }

// NewMultiPolygon builds a geom.MultiPolygon from raw lon/lat coordinate
// triples: polygons -> rings -> [lon, lat] pairs. Each ring must have at least
// 4 coordinates and be closed (first == last). Holes are additional rings
// within a polygon. Self-intersection is not checked.
func NewMultiPolygon(polygons [][][][2]float64) (*geom.MultiPolygon, error) {
	if len(polygons) == 0 {
		return nil, fmt.Errorf("multipolygon requires at least one polygon")
	}
	coords := make([][][]geom.Coord, len(polygons))
	for i, polygon := range polygons {
		if len(polygon) == 0 {
			return nil, fmt.Errorf("polygon %d requires at least one ring", i)
		}
		rings := make([][]geom.Coord, len(polygon))
		for j, ring := range polygon {
			if len(ring) < 4 {
				return nil, fmt.Errorf("polygon %d ring %d has %d coordinates, need at least 4", i, j, len(ring))
			}
			first, last := ring[0], ring[len(ring)-1]
			if first != last {
				return nil, fmt.Errorf("polygon %d ring %d is not closed", i, j)
			}
			cs := make([]geom.Coord, len(ring))
			for k, pair := range ring {
				cs[k] = geom.Coord{pair[0], pair[1]}
			}
			rings[j] = cs
		}
		coords[i] = rings
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, fmt.Errorf("build multipolygon: %w", err)
	}
	return mp, nil
}
