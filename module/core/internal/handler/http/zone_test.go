package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/geozone"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/database"
)

type mockZoneService struct {
	createFn func(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error)
	updateFn func(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error)
	deleteFn func(ctx context.Context, accountID, zoneID string) error
	getFn    func(accountID, zoneID string) (domain.Zone, error)
	listFn   func(accountID string) []domain.Zone
}

func (m *mockZoneService) Create(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
	return m.createFn(ctx, accountID, p)
}

func (m *mockZoneService) Update(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
	return m.updateFn(ctx, accountID, p)
}

func (m *mockZoneService) Delete(ctx context.Context, accountID, zoneID string) error {
	return m.deleteFn(ctx, accountID, zoneID)
}

func (m *mockZoneService) Get(accountID, zoneID string) (domain.Zone, error) {
	return m.getFn(accountID, zoneID)
}

func (m *mockZoneService) List(accountID string) []domain.Zone {
	return m.listFn(accountID)
}

type mockZoneLookup struct {
	matchFn    func(accountID string, p domain.GeoPoint) []domain.Zone
	describeFn func(accountID string, p domain.GeoPoint) (domain.ZoneDescription, bool)
}

func (m *mockZoneLookup) Match(accountID string, p domain.GeoPoint) []domain.Zone {
	return m.matchFn(accountID, p)
}

func (m *mockZoneLookup) Describe(accountID string, p domain.GeoPoint) (domain.ZoneDescription, bool) {
	return m.describeFn(accountID, p)
}

func setupZoneRouter(svc zoneService, lookup zoneLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewZoneHandler(svc, lookup).Register(r.Group(""))
	return r
}

func serveJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// createFromParams echoes the validated zone the way ZoneService does.
func createFromParams(_ context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
	p.AccountID = accountID
	return geozone.NewZone(p)
}

func TestCreateZone_Circle(t *testing.T) {
	var gotAccount string
	var gotParams geozone.ZoneParams
	svc := &mockZoneService{
		createFn: func(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
			gotAccount, gotParams = accountID, p
			return createFromParams(ctx, accountID, p)
		},
	}

	body := `{"zone_id":"depot","shape":"circle","center":{"latitude":-6.2,"longitude":106.8},"radius_meters":150,"priority":2,"arrival_enabled":true,"speed_limit":30}`
	w := serveJSON(setupZoneRouter(svc, nil), "POST", "/accounts/acme/zones", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotAccount != "acme" || gotParams.ID != "depot" || !gotParams.ArrivalEnabled {
		t.Fatalf("unexpected call %s %+v", gotAccount, gotParams)
	}
	circle, ok := gotParams.Shape.(domain.Circle)
	if !ok || circle.RadiusMeters != 150 || circle.Center.Lat != -6.2 {
		t.Fatalf("unexpected shape %+v", gotParams.Shape)
	}

	var resp zoneResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccountID != "acme" || resp.Shape != domain.ShapeCircle || resp.Center == nil || resp.RadiusMeters != 150 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.SpeedLimit == nil || *resp.SpeedLimit != 30 {
		t.Errorf("expected speed limit 30, got %v", resp.SpeedLimit)
	}
}

func TestCreateZone_BadRequests(t *testing.T) {
	bodies := map[string]string{
		"malformed json":   `{"zone_id":`,
		"unknown shape":    `{"zone_id":"z","shape":"hexagon"}`,
		"circle no center": `{"zone_id":"z","shape":"circle","radius_meters":50}`,
	}
	svc := &mockZoneService{
		createFn: func(context.Context, string, geozone.ZoneParams) (domain.Zone, error) {
			t.Error("service must not be called")
			return domain.Zone{}, nil
		},
	}
	r := setupZoneRouter(svc, nil)

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			if w := serveJSON(r, "POST", "/accounts/acme/zones", body); w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestCreateZone_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{
			name: "radius out of range",
			body: `{"zone_id":"z","shape":"circle","center":{"latitude":0,"longitude":0},"radius_meters":1}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "too few vertices",
			body: `{"zone_id":"z","shape":"polygon","vertices":[{"latitude":0,"longitude":0},{"latitude":1,"longitude":1}]}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "duplicate",
			body: `{"zone_id":"z","shape":"circle","center":{"latitude":0,"longitude":0},"radius_meters":50}`,
			err:  fmt.Errorf("insert zone: %w", database.ErrZoneExists),
			want: http.StatusConflict,
		},
		{
			name: "storage failure",
			body: `{"zone_id":"z","shape":"circle","center":{"latitude":0,"longitude":0},"radius_meters":50}`,
			err:  errors.New("connection refused"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockZoneService{
				createFn: func(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
					z, err := createFromParams(ctx, accountID, p)
					if err != nil {
						return z, err
					}
					return z, tt.err
				},
			}
			w := serveJSON(setupZoneRouter(svc, nil), "POST", "/accounts/acme/zones", tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateZone_ValidationBody(t *testing.T) {
	svc := &mockZoneService{createFn: createFromParams}
	body := `{"zone_id":"road","shape":"corridor","path":[{"latitude":0,"longitude":0},{"latitude":0,"longitude":1}],"radius_meters":50000}`

	w := serveJSON(setupZoneRouter(svc, nil), "POST", "/accounts/acme/zones", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["code"] != "RadiusOutOfRange" || resp["field"] != "radius_meters" {
		t.Fatalf("unexpected body %v", resp)
	}
}

func TestUpdateZone_UsesPathID(t *testing.T) {
	var gotID string
	svc := &mockZoneService{
		updateFn: func(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
			gotID = p.ID
			return createFromParams(ctx, accountID, p)
		},
	}

	body := `{"zone_id":"ignored","shape":"circle","center":{"latitude":0,"longitude":0},"radius_meters":50}`
	w := serveJSON(setupZoneRouter(svc, nil), "PUT", "/accounts/acme/zones/depot", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != "depot" {
		t.Fatalf("expected path id depot, got %q", gotID)
	}
}

func TestGetAndDeleteZone(t *testing.T) {
	depot, err := geozone.NewZone(geozone.ZoneParams{
		ID:        "depot",
		AccountID: "acme",
		Shape:     domain.Polygon{Vertices: []domain.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 0}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	svc := &mockZoneService{
		getFn: func(_, zoneID string) (domain.Zone, error) {
			if zoneID == "depot" {
				return depot, nil
			}
			return domain.Zone{}, database.ErrZoneNotFound
		},
		deleteFn: func(_ context.Context, _, zoneID string) error {
			if zoneID == "depot" {
				return nil
			}
			return fmt.Errorf("delete zone: %w", database.ErrZoneNotFound)
		},
		listFn: func(string) []domain.Zone {
			return []domain.Zone{depot}
		},
	}
	r := setupZoneRouter(svc, nil)

	w := serve(r, "GET", "/accounts/acme/zones/depot")
	var resp zoneResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Code != http.StatusOK || resp.Shape != domain.ShapePolygon || len(resp.Vertices) != 3 {
		t.Fatalf("unexpected response %d %+v", w.Code, resp)
	}

	if w := serve(r, "GET", "/accounts/acme/zones/ghost"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := serve(r, "DELETE", "/accounts/acme/zones/depot"); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := serve(r, "DELETE", "/accounts/acme/zones/ghost"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = serve(r, "GET", "/accounts/acme/zones")
	var list []zoneResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 || list[0].ZoneID != "depot" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestMatchZones(t *testing.T) {
	lookup := &mockZoneLookup{
		matchFn: func(accountID string, p domain.GeoPoint) []domain.Zone {
			if accountID != "acme" || p.Lat != 1.5 || p.Lon != -2.25 {
				t.Fatalf("unexpected lookup %s %+v", accountID, p)
			}
			return []domain.Zone{
				{ID: "gate", AccountID: "acme", Priority: 5, Shape: domain.Circle{RadiusMeters: 50}},
				{ID: "yard", AccountID: "acme", Priority: 1, Shape: domain.Circle{RadiusMeters: 500}},
			}
		},
	}
	r := setupZoneRouter(&mockZoneService{}, lookup)

	w := serve(r, "GET", "/accounts/acme/zones/match?lat=1.5&lon=-2.25")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp []zoneResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 || resp[0].ZoneID != "gate" {
		t.Fatalf("unexpected matches %+v", resp)
	}

	for _, path := range []string{
		"/accounts/acme/zones/match?lat=abc&lon=0",
		"/accounts/acme/zones/match?lat=0",
		"/accounts/acme/zones/match?lat=91&lon=0",
	} {
		if w := serve(r, "GET", path); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestDescribe(t *testing.T) {
	lookup := &mockZoneLookup{
		describeFn: func(_ string, p domain.GeoPoint) (domain.ZoneDescription, bool) {
			if p.Lat > 0 {
				return domain.ZoneDescription{ZoneID: "yard", Description: "North yard"}, true
			}
			return domain.ZoneDescription{}, false
		},
	}
	r := setupZoneRouter(&mockZoneService{}, lookup)

	w := serve(r, "GET", "/accounts/acme/describe?lat=1&lon=1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var desc domain.ZoneDescription
	if err := json.Unmarshal(w.Body.Bytes(), &desc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if desc.ZoneID != "yard" || desc.Description != "North yard" {
		t.Fatalf("unexpected description %+v", desc)
	}

	if w := serve(r, "GET", "/accounts/acme/describe?lat=-1&lon=1"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
