package geozone

import (
	"math"
	"testing"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

// metersToDegrees converts a north-south distance to degrees of latitude.
func metersToDegrees(m float64) float64 {
	return m / earthRadiusMeters * 180 / math.Pi
}

func mustZone(t *testing.T, p ZoneParams) domain.Zone {
	t.Helper()
	z, err := NewZone(p)
	if err != nil {
		t.Fatalf("NewZone(%s): %v", p.ID, err)
	}
	return z
}

func circleZone(t *testing.T, id string, lat, lon, radius float64, priority int) domain.Zone {
	t.Helper()
	return mustZone(t, ZoneParams{
		ID:               id,
		Shape:            domain.Circle{Center: domain.GeoPoint{Lat: lat, Lon: lon}, RadiusMeters: radius},
		Priority:         priority,
		ArrivalEnabled:   true,
		DepartureEnabled: true,
	})
}

func mustSnapshot(t *testing.T, zones ...domain.Zone) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot("acme", 1, zones)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

func pt(lat, lon float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: lat, Lon: lon}
}
