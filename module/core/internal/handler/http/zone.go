package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/geozone"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/database"
)

type zoneService interface {
	Create(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error)
	Update(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error)
	Delete(ctx context.Context, accountID, zoneID string) error
	Get(accountID, zoneID string) (domain.Zone, error)
	List(accountID string) []domain.Zone
}

type zoneLookup interface {
	Match(accountID string, p domain.GeoPoint) []domain.Zone
	Describe(accountID string, p domain.GeoPoint) (domain.ZoneDescription, bool)
}

type zoneRequest struct {
	ZoneID           string            `json:"zone_id"`
	Shape            domain.ShapeKind  `json:"shape"`
	Center           *domain.GeoPoint  `json:"center,omitempty"`
	Vertices         []domain.GeoPoint `json:"vertices,omitempty"`
	Path             []domain.GeoPoint `json:"path,omitempty"`
	RadiusMeters     float64           `json:"radius_meters,omitempty"`
	Priority         int               `json:"priority"`
	ArrivalEnabled   bool              `json:"arrival_enabled"`
	DepartureEnabled bool              `json:"departure_enabled"`
	AutoNotify       bool              `json:"auto_notify"`
	ReverseGeocode   bool              `json:"reverse_geocode"`
	SpeedLimit       *float64          `json:"speed_limit,omitempty"`
	ClientUploadID   *int64            `json:"client_upload_id,omitempty"`
	Description      string            `json:"description,omitempty"`
}

type zoneResponse struct {
	AccountID string `json:"account_id"`
	zoneRequest
}

type ZoneHandler struct {
	zoneSvc zoneService
	lookup  zoneLookup
}

func NewZoneHandler(zoneSvc zoneService, lookup zoneLookup) *ZoneHandler {
	return &ZoneHandler{zoneSvc: zoneSvc, lookup: lookup}
}

func (h *ZoneHandler) Register(r *gin.RouterGroup) {
	accounts := r.Group("/accounts/:account_id")
	accounts.GET("/zones", h.ListZones)
	accounts.POST("/zones", h.CreateZone)
	accounts.GET("/zones/match", h.MatchZones)
	accounts.GET("/zones/:zone_id", h.GetZone)
	accounts.PUT("/zones/:zone_id", h.UpdateZone)
	accounts.DELETE("/zones/:zone_id", h.DeleteZone)
	accounts.GET("/describe", h.Describe)
}

func (h *ZoneHandler) ListZones(c *gin.Context) {
	zones := h.zoneSvc.List(c.Param("account_id"))

	results := make([]zoneResponse, len(zones))
	for i, z := range zones {
		results[i] = toZoneResponse(z)
	}
	c.JSON(http.StatusOK, results)
}

func (h *ZoneHandler) GetZone(c *gin.Context) {
	z, err := h.zoneSvc.Get(c.Param("account_id"), c.Param("zone_id"))
	if err != nil {
		writeZoneError(c, err)
		return
	}
	c.JSON(http.StatusOK, toZoneResponse(z))
}

func (h *ZoneHandler) CreateZone(c *gin.Context) {
	var req zoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	params, err := req.params()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	z, err := h.zoneSvc.Create(c.Request.Context(), c.Param("account_id"), params)
	if err != nil {
		writeZoneError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toZoneResponse(z))
}

func (h *ZoneHandler) UpdateZone(c *gin.Context) {
	var req zoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.ZoneID = c.Param("zone_id")
	params, err := req.params()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	z, err := h.zoneSvc.Update(c.Request.Context(), c.Param("account_id"), params)
	if err != nil {
		writeZoneError(c, err)
		return
	}
	c.JSON(http.StatusOK, toZoneResponse(z))
}

func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	if err := h.zoneSvc.Delete(c.Request.Context(), c.Param("account_id"), c.Param("zone_id")); err != nil {
		writeZoneError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ZoneHandler) MatchZones(c *gin.Context) {
	p, ok := queryPoint(c)
	if !ok {
		return
	}

	zones := h.lookup.Match(c.Param("account_id"), p)
	results := make([]zoneResponse, len(zones))
	for i, z := range zones {
		results[i] = toZoneResponse(z)
	}
	c.JSON(http.StatusOK, results)
}

func (h *ZoneHandler) Describe(c *gin.Context) {
	p, ok := queryPoint(c)
	if !ok {
		return
	}

	desc, found := h.lookup.Describe(c.Param("account_id"), p)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no describing zone"})
		return
	}
	c.JSON(http.StatusOK, desc)
}

func queryPoint(c *gin.Context) (domain.GeoPoint, bool) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat parameter"})
		return domain.GeoPoint{}, false
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lon parameter"})
		return domain.GeoPoint{}, false
	}

	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return domain.GeoPoint{}, false
	}
	return p, true
}

func writeZoneError(c *gin.Context, err error) {
	var verr *geozone.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "code": verr.Code, "field": verr.Field})
	case errors.Is(err, database.ErrZoneNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "zone not found"})
	case errors.Is(err, database.ErrZoneExists):
		c.JSON(http.StatusConflict, gin.H{"error": "zone already exists"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (r zoneRequest) params() (geozone.ZoneParams, error) {
	p := geozone.ZoneParams{
		ID:                     r.ZoneID,
		Priority:               r.Priority,
		ArrivalEnabled:         r.ArrivalEnabled,
		DepartureEnabled:       r.DepartureEnabled,
		AutoNotify:             r.AutoNotify,
		ReverseGeocodeEligible: r.ReverseGeocode,
		SpeedLimit:             r.SpeedLimit,
		ClientUploadID:         r.ClientUploadID,
		Description:            r.Description,
	}
	switch r.Shape {
	case domain.ShapeCircle:
		if r.Center == nil {
			return p, errors.New("circle requires center")
		}
		p.Shape = domain.Circle{Center: *r.Center, RadiusMeters: r.RadiusMeters}
	case domain.ShapePolygon:
		p.Shape = domain.Polygon{Vertices: r.Vertices}
	case domain.ShapeCorridor:
		p.Shape = domain.Corridor{Path: r.Path, RadiusMeters: r.RadiusMeters}
	default:
		return p, fmt.Errorf("unknown shape %q", r.Shape)
	}
	return p, nil
}

func toZoneResponse(z domain.Zone) zoneResponse {
	resp := zoneResponse{
		AccountID: z.AccountID,
		zoneRequest: zoneRequest{
			ZoneID:           z.ID,
			Priority:         z.Priority,
			ArrivalEnabled:   z.ArrivalEnabled,
			DepartureEnabled: z.DepartureEnabled,
			AutoNotify:       z.AutoNotify,
			ReverseGeocode:   z.ReverseGeocodeEligible,
			SpeedLimit:       z.SpeedLimit,
			ClientUploadID:   z.ClientUploadID,
			Description:      z.Description,
		},
	}
	switch s := z.Shape.(type) {
	case domain.Circle:
		center := s.Center
		resp.Shape, resp.Center, resp.RadiusMeters = domain.ShapeCircle, &center, s.RadiusMeters
	case domain.Polygon:
		resp.Shape, resp.Vertices = domain.ShapePolygon, s.Vertices
	case domain.Corridor:
		resp.Shape, resp.Path, resp.RadiusMeters = domain.ShapeCorridor, s.Path, s.RadiusMeters
	}
	return resp
}
