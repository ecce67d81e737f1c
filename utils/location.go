package utils

import (
	"math"
	"time"
)

// Location represents a geographical coordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const earthRadiusM = 6371000.0

// HaversineDistance calculates the great-circle distance between two points
// on a spherical earth. Returns distance in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// DistanceKm is HaversineDistance between two Locations, in kilometers.
func DistanceKm(a, b Location) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude) / 1000
}

// DistanceMeters is HaversineDistance between two Locations, in meters.
func DistanceMeters(a, b Location) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// PointToSegmentKm returns the shortest distance in kilometers from point p
// to the segment between a and b. Uses an equirectangular projection around
// the segment, which is accurate enough at service-zone scale.
func PointToSegmentKm(p, a, b Location) float64 {
	// project to a local flat plane (km per degree)
	latScale := 111.32
	lngScale := 111.32 * math.Cos(a.Latitude*math.Pi/180)

	px := (p.Longitude - a.Longitude) * lngScale
	py := (p.Latitude - a.Latitude) * latScale
	bx := (b.Longitude - a.Longitude) * lngScale
	by := (b.Latitude - a.Latitude) * latScale

	segLenSq := bx*bx + by*by
	if segLenSq == 0 {
		return math.Sqrt(px*px + py*py)
	}

	t := (px*bx + py*by) / segLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	dx := px - t*bx
	dy := py - t*by
	return math.Sqrt(dx*dx + dy*dy)
}

// PointInPolygon reports whether p lies inside the polygon described by
// vertices (ray casting). Vertices may be open or closed; a polygon with
// fewer than 3 vertices contains nothing.
func PointInPolygon(p Location, vertices []Location) bool {
	if len(vertices) < 3 {
		return false
	}

	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		vi := vertices[i]
		vj := vertices[j]
		if (vi.Latitude > p.Latitude) != (vj.Latitude > p.Latitude) {
			cross := (vj.Longitude-vi.Longitude)*(p.Latitude-vi.Latitude)/(vj.Latitude-vi.Latitude) + vi.Longitude
			if p.Longitude < cross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// IsLocationValid checks if the provided coordinates are valid
func IsLocationValid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// IsLocationRecent checks if the location was updated recently (within last 30 minutes)
func IsLocationRecent(lastUpdate *time.Time) bool {
	if lastUpdate == nil {
		return false
	}

	thirtyMinutesAgo := time.Now().Add(-30 * time.Minute)
	return lastUpdate.After(thirtyMinutesAgo)
}

// CalculateETA estimates a worker's time of arrival from straight-line
// distance and an assumed average speed in km/h.
func CalculateETA(workerLocation, requestLocation Location, averageSpeed float64) time.Duration {
	distance := DistanceKm(workerLocation, requestLocation)

	timeHours := distance / averageSpeed
	timeMinutes := int(timeHours * 60)

	return time.Duration(timeMinutes) * time.Minute
}
