package geo

import "math"

// EarthRadiusMiles is the sphere radius used for great-circle distance,
// in statute miles.
const EarthRadiusMiles = 3958.7613

// milesPerDegree is the fixed 1° ≈ 69 mi approximation used for drawing
// a selection circle. The authoritative radius filter uses Distance.
const milesPerDegree = 69.0

// ShowAllRadiusMiles is the radius at or above which FilterByRadius stops
// applying a distance predicate and returns every locatable item.
const ShowAllRadiusMiles = 500.0

// Point is a (longitude, latitude) pair in decimal degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Finite reports whether both coordinates are finite numbers. Items with
// non-finite coordinates are excluded from all distance-based operations.
func (p Point) Finite() bool {
	return !math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0) &&
		!math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0)
}

// Located is anything with a geographic position.
type Located interface {
	Location() Point
}

// Distance returns the great-circle distance between a and b in miles,
// via the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

// MilesToDegrees converts a distance in miles to an approximate angular
// span in degrees, for sizing a map selection circle.
func MilesToDegrees(miles float64) float64 {
	return miles / milesPerDegree
}

// FilterByRadius returns the items within miles of center, preserving
// input order. A radius of ShowAllRadiusMiles or more disables the
// distance predicate and returns every item with finite coordinates.
func FilterByRadius[T Located](items []T, center Point, miles float64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		p := it.Location()
		if !p.Finite() {
			continue
		}
		if miles >= ShowAllRadiusMiles || Distance(center, p) <= miles {
			out = append(out, it)
		}
	}
	return out
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
