package domain

import "math"

type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether the point has finite coordinates within the WGS84 ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

type ShapeKind string

const (
	ShapeCircle   ShapeKind = "circle"
	ShapePolygon  ShapeKind = "polygon"
	ShapeCorridor ShapeKind = "corridor"
)

// Shape is implemented only by Circle, Polygon and Corridor.
type Shape interface {
	Kind() ShapeKind
	isShape()
}

type Circle struct {
	Center       GeoPoint
	RadiusMeters float64
}

// Polygon vertices form a closed ring; the last vertex connects back to the first.
type Polygon struct {
	Vertices []GeoPoint
}

// Corridor is the area within RadiusMeters of any segment of Path.
type Corridor struct {
	Path         []GeoPoint
	RadiusMeters float64
}

func (Circle) Kind() ShapeKind   { return ShapeCircle }
func (Polygon) Kind() ShapeKind  { return ShapePolygon }
func (Corridor) Kind() ShapeKind { return ShapeCorridor }

func (Circle) isShape()   {}
func (Polygon) isShape()  {}
func (Corridor) isShape() {}

// Zone is immutable once published; edits produce a new Zone in a new snapshot.
type Zone struct {
	ID                     string
	AccountID              string
	Shape                  Shape
	Priority               int
	ArrivalEnabled         bool
	DepartureEnabled       bool
	AutoNotify             bool
	ReverseGeocodeEligible bool
	SpeedLimit             *float64
	ClientUploadID         *int64
	Description            string
}

type ZoneDescription struct {
	ZoneID      string `json:"zone_id"`
	Description string `json:"description"`
}
