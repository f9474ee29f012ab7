package geozone

import (
	"math"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

// Contains reports whether p lies inside z. Boundaries are inclusive. A zone
// that fails validation, or an invalid point, is never contained.
func Contains(p domain.GeoPoint, z domain.Zone) bool {
	if !p.Valid() || checkShape(z.Shape) != nil {
		return false
	}

	switch s := z.Shape.(type) {
	case domain.Circle:
		return haversine(p.Lat, p.Lon, s.Center.Lat, s.Center.Lon) <= s.RadiusMeters+boundaryToleranceMeters
	case domain.Polygon:
		return polygonContains(p, s.Vertices)
	case domain.Corridor:
		return corridorContains(p, s.Path, s.RadiusMeters)
	default:
		return false
	}
}

func polygonContains(p domain.GeoPoint, vertices []domain.GeoPoint) bool {
	pv := unitVector(p)
	ring := make([]vec3, len(vertices))
	for i, v := range vertices {
		ring[i] = unitVector(v)
	}

	for i := range ring {
		if arcDistanceMeters(pv, ring[i], ring[(i+1)%len(ring)]) <= boundaryToleranceMeters {
			return true
		}
	}

	// A ring on the sphere bounds two regions. The interior is the one holding
	// the ring centre; the sign of the area measured from there gives the
	// ring's orientation, and p is inside when it winds the same way.
	ref := ringCenter(ring)
	var winding, area float64
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		winding += signedAngle(pv, a, b)
		area += signedTriangleArea(ref, a, b)
	}
	return winding*area > 0 && math.Abs(winding) > math.Pi
}

func corridorContains(p domain.GeoPoint, path []domain.GeoPoint, radius float64) bool {
	pv := unitVector(p)
	prev := unitVector(path[0])
	for _, next := range path[1:] {
		nv := unitVector(next)
		if arcDistanceMeters(pv, prev, nv) <= radius+boundaryToleranceMeters {
			return true
		}
		prev = nv
	}
	return false
}
