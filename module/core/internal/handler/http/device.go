package http

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/internal/handler/subscriber"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/cache"
)

type locationService interface {
	GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error)
	GetAllDevices(ctx context.Context) ([]domain.Device, error)
}

type membershipService interface {
	CurrentZone(ctx context.Context, deviceID string) (*domain.ZoneMembership, error)
}

type deviceRetirer interface {
	Retire(ctx context.Context, deviceID string) error
}

// Coordinates are pointers because stored fixes may carry NaN, which JSON
// cannot encode.
type locationResponse struct {
	AccountID string   `json:"account_id"`
	DeviceID  string   `json:"device_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`
	Address   string   `json:"address,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type currentZoneResponse struct {
	DeviceID string `json:"device_id"`
	InZone   bool   `json:"in_zone"`
	ZoneID   string `json:"zone_id,omitempty"`
	Since    int64  `json:"since,omitempty"`
}

type DeviceHandler struct {
	locationSvc   locationService
	membershipSvc membershipService
	retirer       deviceRetirer
}

func NewDeviceHandler(locationSvc locationService, membershipSvc membershipService, retirer deviceRetirer) *DeviceHandler {
	return &DeviceHandler{locationSvc: locationSvc, membershipSvc: membershipSvc, retirer: retirer}
}

func (h *DeviceHandler) Register(r *gin.RouterGroup) {
	r.GET("/devices", h.GetAllDevices)
	r.GET("/devices/:device_id/location", h.GetLatestLocation)
	r.GET("/devices/:device_id/history", h.GetHistory)
	r.GET("/devices/:device_id/zone", h.GetCurrentZone)
	r.DELETE("/devices/:device_id/zone", h.RetireDevice)
}

func (h *DeviceHandler) GetAllDevices(c *gin.Context) {
	devices, err := h.locationSvc.GetAllDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}
	if devices == nil {
		devices = []domain.Device{}
	}

	c.JSON(http.StatusOK, devices)
}

func (h *DeviceHandler) GetLatestLocation(c *gin.Context) {
	deviceID := c.Param("device_id")

	dl, err := h.locationSvc.GetLatest(c.Request.Context(), deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch location"})
		return
	}

	c.JSON(http.StatusOK, toLocationResponse(dl))
}

func (h *DeviceHandler) GetHistory(c *gin.Context) {
	deviceID := c.Param("device_id")

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}
	if end < start {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not precede start"})
		return
	}

	query := &domain.HistoryQuery{
		DeviceID: deviceID,
		Start:    time.Unix(start, 0),
		End:      time.Unix(end, 0),
	}

	locations, err := h.locationSvc.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]locationResponse, len(locations))
	for i := range locations {
		results[i] = toLocationResponse(&locations[i])
	}
	c.JSON(http.StatusOK, results)
}

func (h *DeviceHandler) GetCurrentZone(c *gin.Context) {
	deviceID := c.Param("device_id")

	ms, err := h.membershipSvc.CurrentZone(c.Request.Context(), deviceID)
	if errors.Is(err, cache.ErrMembershipNotFound) {
		c.JSON(http.StatusOK, currentZoneResponse{DeviceID: deviceID})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch current zone"})
		return
	}

	c.JSON(http.StatusOK, currentZoneResponse{
		DeviceID: deviceID,
		InZone:   true,
		ZoneID:   ms.ZoneID,
		Since:    ms.Since.Unix(),
	})
}

// RetireDevice forgets the device's zone membership. Its next fix is treated
// as the first one.
func (h *DeviceHandler) RetireDevice(c *gin.Context) {
	deviceID := c.Param("device_id")

	err := h.retirer.Retire(c.Request.Context(), deviceID)
	if errors.Is(err, subscriber.ErrNotRunning) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tracking is not running"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retire device"})
		return
	}

	c.Status(http.StatusNoContent)
}

func toLocationResponse(dl *domain.DeviceLocation) locationResponse {
	return locationResponse{
		AccountID: dl.AccountID,
		DeviceID:  dl.DeviceID,
		Latitude:  finite(dl.Location.Lat),
		Longitude: finite(dl.Location.Lon),
		Speed:     dl.Location.Speed,
		Address:   dl.Location.Address,
		Timestamp: dl.Location.Timestamp.Unix(),
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
