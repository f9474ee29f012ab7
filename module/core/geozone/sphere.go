package geozone

import (
	"math"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

const earthRadiusMeters = 6371000

// boundaryToleranceMeters absorbs float rounding so boundary points stay contained.
const boundaryToleranceMeters = 1e-3

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// vec3 is a point on the unit sphere in earth-centred coordinates.
type vec3 struct {
	x, y, z float64
}

func unitVector(p domain.GeoPoint) vec3 {
	lat, lon := toRad(p.Lat), toRad(p.Lon)
	return vec3{
		x: math.Cos(lat) * math.Cos(lon),
		y: math.Cos(lat) * math.Sin(lon),
		z: math.Sin(lat),
	}
}

func (v vec3) dot(o vec3) float64 {
	return v.x*o.x + v.y*o.y + v.z*o.z
}

func (v vec3) cross(o vec3) vec3 {
	return vec3{
		x: v.y*o.z - v.z*o.y,
		y: v.z*o.x - v.x*o.z,
		z: v.x*o.y - v.y*o.x,
	}
}

func (v vec3) sub(o vec3) vec3 {
	return vec3{x: v.x - o.x, y: v.y - o.y, z: v.z - o.z}
}

func (v vec3) scale(k float64) vec3 {
	return vec3{x: v.x * k, y: v.y * k, z: v.z * k}
}

func (v vec3) norm() float64 {
	return math.Sqrt(v.dot(v))
}

// angleBetween returns the central angle between two unit vectors in radians.
func angleBetween(a, b vec3) float64 {
	return math.Atan2(a.cross(b).norm(), a.dot(b))
}

// arcDistanceMeters returns the great-circle distance from p to the minor arc
// a-b, clamping to the nearer endpoint when p's projection falls outside it.
func arcDistanceMeters(p, a, b vec3) float64 {
	n := a.cross(b)
	nn := n.norm()
	if nn < 1e-15 {
		// Coincident (or antipodal) endpoints define no unique arc.
		return angleBetween(p, a) * earthRadiusMeters
	}
	n = n.scale(1 / nn)

	c := p.sub(n.scale(p.dot(n)))
	if c.norm() > 1e-15 && a.cross(c).dot(n) >= 0 && c.cross(b).dot(n) >= 0 {
		s := math.Min(math.Abs(p.dot(n)), 1)
		return math.Asin(s) * earthRadiusMeters
	}
	return math.Min(angleBetween(p, a), angleBetween(p, b)) * earthRadiusMeters
}

// signedAngle returns the angle at p turned from the direction of a to the
// direction of b, positive counter-clockwise when viewed from outside the sphere.
func signedAngle(p, a, b vec3) float64 {
	ta := a.sub(p.scale(a.dot(p)))
	tb := b.sub(p.scale(b.dot(p)))
	return math.Atan2(ta.cross(tb).dot(p), ta.dot(tb))
}

// signedTriangleArea returns the signed spherical excess of triangle a-b-c,
// positive when the vertices run counter-clockwise seen from outside.
func signedTriangleArea(a, b, c vec3) float64 {
	num := a.dot(b.cross(c))
	den := 1 + a.dot(b) + b.dot(c) + c.dot(a)
	return 2 * math.Atan2(num, den)
}

// ringCenter returns the normalised mean of the ring's vertices.
func ringCenter(ring []vec3) vec3 {
	var sum vec3
	for _, v := range ring {
		sum = vec3{x: sum.x + v.x, y: sum.y + v.y, z: sum.z + v.z}
	}
	n := sum.norm()
	if n < 1e-15 {
		return ring[0]
	}
	return sum.scale(1 / n)
}
