package geozone

import (
	"fmt"
	"math"
	"strings"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

const (
	MinRadiusMeters     = 5
	MaxRadiusMeters     = 20000
	MaxPolygonVertices  = 256
	MaxCorridorVertices = 128
)

type ZoneParams struct {
	ID                     string
	AccountID              string
	Shape                  domain.Shape
	Priority               int
	ArrivalEnabled         bool
	DepartureEnabled       bool
	AutoNotify             bool
	ReverseGeocodeEligible bool
	SpeedLimit             *float64
	ClientUploadID         *int64
	Description            string
}

// NewZone validates p and returns a Zone that owns copies of its vertex
// slices. On error the zone is the zero value.
func NewZone(p ZoneParams) (domain.Zone, error) {
	if strings.TrimSpace(p.ID) == "" {
		return domain.Zone{}, invalid(CodeInvalidAttribute, "id", "required")
	}
	if p.Priority < 0 {
		return domain.Zone{}, invalid(CodeInvalidAttribute, "priority", "must not be negative, got %d", p.Priority)
	}
	if p.SpeedLimit != nil && !(*p.SpeedLimit >= 0) {
		return domain.Zone{}, invalid(CodeInvalidAttribute, "speed_limit", "must not be negative")
	}
	if p.ClientUploadID != nil && *p.ClientUploadID <= 0 {
		return domain.Zone{}, invalid(CodeInvalidAttribute, "client_upload_id", "must be positive, got %d", *p.ClientUploadID)
	}
	if err := checkShape(p.Shape); err != nil {
		return domain.Zone{}, err
	}

	return domain.Zone{
		ID:                     p.ID,
		AccountID:              p.AccountID,
		Shape:                  copyShape(p.Shape),
		Priority:               p.Priority,
		ArrivalEnabled:         p.ArrivalEnabled,
		DepartureEnabled:       p.DepartureEnabled,
		AutoNotify:             p.AutoNotify,
		ReverseGeocodeEligible: p.ReverseGeocodeEligible,
		SpeedLimit:             copyPtr(p.SpeedLimit),
		ClientUploadID:         copyPtr(p.ClientUploadID),
		Description:            p.Description,
	}, nil
}

func checkShape(s domain.Shape) error {
	switch v := s.(type) {
	case domain.Circle:
		if err := checkPoint(v.Center, "center"); err != nil {
			return err
		}
		return checkRadius(v.RadiusMeters)
	case domain.Polygon:
		if len(v.Vertices) < 3 {
			return invalid(CodeTooFewVertices, "vertices", "polygon needs at least 3, got %d", len(v.Vertices))
		}
		if len(v.Vertices) > MaxPolygonVertices {
			return invalid(CodeTooManyVertices, "vertices", "polygon supports at most %d, got %d", MaxPolygonVertices, len(v.Vertices))
		}
		return checkPoints(v.Vertices, "vertices")
	case domain.Corridor:
		if len(v.Path) < 2 {
			return invalid(CodeTooFewVertices, "path", "corridor needs at least 2, got %d", len(v.Path))
		}
		if len(v.Path) > MaxCorridorVertices {
			return invalid(CodeTooManyVertices, "path", "corridor supports at most %d, got %d", MaxCorridorVertices, len(v.Path))
		}
		if err := checkPoints(v.Path, "path"); err != nil {
			return err
		}
		return checkRadius(v.RadiusMeters)
	case nil:
		return invalid(CodeInvalidAttribute, "shape", "required")
	default:
		return invalid(CodeInvalidAttribute, "shape", "unsupported shape %T", s)
	}
}

func checkRadius(r float64) error {
	if !(r >= MinRadiusMeters && r <= MaxRadiusMeters) {
		return invalid(CodeRadiusOutOfRange, "radius_meters", "must be within [%d, %d], got %v", MinRadiusMeters, MaxRadiusMeters, r)
	}
	return nil
}

func checkPoints(pts []domain.GeoPoint, field string) error {
	for i, p := range pts {
		if err := checkPoint(p, fmt.Sprintf("%s[%d]", field, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkPoint(p domain.GeoPoint, field string) error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return invalid(CodeInvalidCoordinate, field, "latitude %v outside [-90, 90]", p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return invalid(CodeInvalidCoordinate, field, "longitude %v outside [-180, 180]", p.Lon)
	}
	return nil
}

func copyShape(s domain.Shape) domain.Shape {
	switch v := s.(type) {
	case domain.Polygon:
		return domain.Polygon{Vertices: append([]domain.GeoPoint(nil), v.Vertices...)}
	case domain.Corridor:
		return domain.Corridor{Path: append([]domain.GeoPoint(nil), v.Path...), RadiusMeters: v.RadiusMeters}
	default:
		return s
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
