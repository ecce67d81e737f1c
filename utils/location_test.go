package utils

import (
	"math"
	"testing"
)

func TestHaversineZero(t *testing.T) {
	if d := HaversineDistance(12.97, 77.59, 12.97, 77.59); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{12.9716, 77.5946, 13.0827, 80.2707},
		{0, 0, 0, 1},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{89.9, 10, -89.9, -170},
	}
	for _, p := range pairs {
		ab := HaversineDistance(p[0], p[1], p[2], p[3])
		ba := HaversineDistance(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-6 {
			t.Fatalf("asymmetric distance: %f vs %f for %v", ab, ba, p)
		}
	}
}

func TestHaversineOneDegreeAtEquator(t *testing.T) {
	// one degree of longitude at the equator is ~111.19 km
	d := HaversineDistance(0, 0, 0, 1)
	if d < 110000 || d > 112000 {
		t.Fatalf("expected ~111 km, got %f m", d)
	}
}

func TestDistanceKmMatchesMeters(t *testing.T) {
	a := Location{Latitude: 12.9716, Longitude: 77.5946}
	b := Location{Latitude: 12.9352, Longitude: 77.6245}
	if diff := math.Abs(DistanceKm(a, b)*1000 - DistanceMeters(a, b)); diff > 1e-6 {
		t.Fatalf("km/meter mismatch: %f", diff)
	}
}

func TestPointToSegmentKm(t *testing.T) {
	a := Location{Latitude: 0, Longitude: 0}
	b := Location{Latitude: 0, Longitude: 1}

	// point on the segment
	if d := PointToSegmentKm(Location{Latitude: 0, Longitude: 0.5}, a, b); d > 0.01 {
		t.Fatalf("expected ~0, got %f", d)
	}

	// point north of the midpoint, ~11.1 km off
	d := PointToSegmentKm(Location{Latitude: 0.1, Longitude: 0.5}, a, b)
	if d < 10 || d > 12.5 {
		t.Fatalf("expected ~11 km, got %f", d)
	}

	// point beyond the end clamps to the endpoint
	d = PointToSegmentKm(Location{Latitude: 0, Longitude: 2}, a, b)
	if d < 109 || d > 113 {
		t.Fatalf("expected ~111 km, got %f", d)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Location{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}

	if !PointInPolygon(Location{Latitude: 0.5, Longitude: 0.5}, square) {
		t.Fatal("center should be inside")
	}
	if PointInPolygon(Location{Latitude: 1.5, Longitude: 0.5}, square) {
		t.Fatal("point north of square should be outside")
	}
	if PointInPolygon(Location{Latitude: 0.5, Longitude: -0.1}, square) {
		t.Fatal("point west of square should be outside")
	}
	if PointInPolygon(Location{Latitude: 0.5, Longitude: 0.5}, square[:2]) {
		t.Fatal("degenerate polygon contains nothing")
	}
}

func TestIsLocationValid(t *testing.T) {
	if !IsLocationValid(12.97, 77.59) {
		t.Fatal("valid coordinate rejected")
	}
	if IsLocationValid(91, 0) || IsLocationValid(0, 181) || IsLocationValid(-91, 0) {
		t.Fatal("out-of-range coordinate accepted")
	}
}
