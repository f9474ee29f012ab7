package geozone

import (
	"errors"
	"math"
	"testing"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

func TestNewZone_NegativeRadius(t *testing.T) {
	_, err := NewZone(ZoneParams{
		ID:    "depot",
		Shape: domain.Circle{Center: pt(34, -118), RadiusMeters: -10},
	})
	if !errors.Is(err, ErrRadiusOutOfRange) {
		t.Fatalf("expected ErrRadiusOutOfRange, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Code != CodeRadiusOutOfRange {
		t.Errorf("expected code %s, got %s", CodeRadiusOutOfRange, verr.Code)
	}
}

func TestNewZone_Validation(t *testing.T) {
	square := []domain.GeoPoint{pt(0, 0), pt(0, 1), pt(1, 1), pt(1, 0)}
	negative := -1.0
	zeroUpload := int64(0)

	tooMany := make([]domain.GeoPoint, MaxPolygonVertices+1)
	for i := range tooMany {
		tooMany[i] = pt(float64(i%90), float64(i%180))
	}
	longPath := make([]domain.GeoPoint, MaxCorridorVertices+1)
	for i := range longPath {
		longPath[i] = pt(0, float64(i)*0.001)
	}

	tests := []struct {
		name    string
		params  ZoneParams
		wantErr error
	}{
		{"valid circle", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: 100}}, nil},
		{"valid polygon", ZoneParams{ID: "a", Shape: domain.Polygon{Vertices: square}}, nil},
		{"valid corridor", ZoneParams{ID: "a", Shape: domain.Corridor{Path: square[:2], RadiusMeters: 50}}, nil},
		{"radius at min", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: MinRadiusMeters}}, nil},
		{"radius at max", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: MaxRadiusMeters}}, nil},
		{"radius below min", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: MinRadiusMeters - 1}}, ErrRadiusOutOfRange},
		{"radius above max", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: MaxRadiusMeters + 1}}, ErrRadiusOutOfRange},
		{"radius NaN", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: math.NaN()}}, ErrRadiusOutOfRange},
		{"corridor radius", ZoneParams{ID: "a", Shape: domain.Corridor{Path: square[:2], RadiusMeters: 0}}, ErrRadiusOutOfRange},
		{"polygon two vertices", ZoneParams{ID: "a", Shape: domain.Polygon{Vertices: square[:2]}}, ErrTooFewVertices},
		{"corridor one vertex", ZoneParams{ID: "a", Shape: domain.Corridor{Path: square[:1], RadiusMeters: 50}}, ErrTooFewVertices},
		{"polygon too many", ZoneParams{ID: "a", Shape: domain.Polygon{Vertices: tooMany}}, ErrTooManyVertices},
		{"corridor too many", ZoneParams{ID: "a", Shape: domain.Corridor{Path: longPath, RadiusMeters: 50}}, ErrTooManyVertices},
		{"lat too high", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(91, 0), RadiusMeters: 100}}, ErrInvalidCoordinate},
		{"lon too low", ZoneParams{ID: "a", Shape: domain.Circle{Center: pt(0, -181), RadiusMeters: 100}}, ErrInvalidCoordinate},
		{"vertex NaN", ZoneParams{ID: "a", Shape: domain.Polygon{Vertices: []domain.GeoPoint{pt(0, 0), pt(math.NaN(), 1), pt(1, 1)}}}, ErrInvalidCoordinate},
		{"empty id", ZoneParams{Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: 100}}, ErrInvalidAttribute},
		{"negative priority", ZoneParams{ID: "a", Priority: -1, Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: 100}}, ErrInvalidAttribute},
		{"negative speed limit", ZoneParams{ID: "a", SpeedLimit: &negative, Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: 100}}, ErrInvalidAttribute},
		{"zero upload id", ZoneParams{ID: "a", ClientUploadID: &zeroUpload, Shape: domain.Circle{Center: pt(1, 1), RadiusMeters: 100}}, ErrInvalidAttribute},
		{"missing shape", ZoneParams{ID: "a"}, ErrInvalidAttribute},
		{"pointer shape", ZoneParams{ID: "a", Shape: &domain.Circle{Center: pt(1, 1), RadiusMeters: 100}}, ErrInvalidAttribute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := NewZone(tt.params)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if z.ID != tt.params.ID {
					t.Errorf("expected id %s, got %s", tt.params.ID, z.ID)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if z.Shape != nil {
				t.Errorf("expected zero zone on error, got %+v", z)
			}
		})
	}
}

func TestNewZone_CopiesInputs(t *testing.T) {
	vertices := []domain.GeoPoint{pt(0, 0), pt(0, 10), pt(10, 10), pt(10, 0)}
	limit := 60.0

	z, err := NewZone(ZoneParams{ID: "sq", Shape: domain.Polygon{Vertices: vertices}, SpeedLimit: &limit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vertices[0] = pt(50, 50)
	limit = 10

	poly := z.Shape.(domain.Polygon)
	if poly.Vertices[0] != pt(0, 0) {
		t.Errorf("expected zone vertices to be copied, got %v", poly.Vertices[0])
	}
	if *z.SpeedLimit != 60 {
		t.Errorf("expected speed limit 60, got %v", *z.SpeedLimit)
	}
}
