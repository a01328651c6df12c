// Package geo provides great-circle distance and nearest-metro association for coordinates.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadiusMiles is the mean earth radius used for all mileage figures.
const EarthRadiusMiles = 3959.0

const metersPerMile = 1609.344

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

func (p Point) orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Valid reports whether the point lies within latitude/longitude bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceMiles returns the haversine distance between a and b in miles.
// The result is symmetric and zero for identical points.
func DistanceMiles(a, b Point) float64 {
	if a == b {
		return 0
	}
	// orb reports meters on its own radius; rescale the central angle.
	angle := orbgeo.DistanceHaversine(a.orb(), b.orb()) / orb.EarthRadius
	d := angle * EarthRadiusMiles
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	return d
}

// MetersToMiles converts a radius in meters to miles.
func MetersToMiles(m float64) float64 {
	return m / metersPerMile
}
