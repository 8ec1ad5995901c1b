package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the sphere radius used for every transfer distance.
// Changing it changes generated transfer times.
const EarthRadiusMeters = 6372797.560856

// Haversine returns the great-circle distance in meters between two lat/lon points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	lambda1 := toRad(lon1)
	lambda2 := toRad(lon2)

	sinDPhi := math.Sin((phi2 - phi1) / 2)
	sinDLambda := math.Sin((lambda2 - lambda1) / 2)

	a := sinDPhi*sinDPhi + math.Cos(phi1)*math.Cos(phi2)*sinDLambda*sinDLambda
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(a))
}

// Distance is Haversine for two orb points (lon, lat order).
func Distance(a, b orb.Point) float64 {
	return Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// ValidLatLon reports whether lat/lon are finite and within range.
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
