package domain

import "time"

type ZoneEventType string

const (
	ZoneArrival   ZoneEventType = "arrival"
	ZoneDeparture ZoneEventType = "departure"
)

type ZoneEvent struct {
	ID         string        `json:"event_id"`
	Type       ZoneEventType `json:"event"`
	AccountID  string        `json:"account_id"`
	DeviceID   string        `json:"device_id"`
	ZoneID     string        `json:"zone_id"`
	Location   GeoPoint      `json:"location"`
	Timestamp  time.Time     `json:"timestamp"`
	AutoNotify bool          `json:"auto_notify"`
}

// ZoneMembership is the last known effective zone of a device, kept as a read model.
type ZoneMembership struct {
	DeviceID string    `json:"device_id"`
	ZoneID   string    `json:"zone_id"`
	Since    time.Time `json:"since"`
}
