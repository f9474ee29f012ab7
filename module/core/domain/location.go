package domain

import "time"

// PositionFix is one engine input. Fixes of a single device must arrive in
// non-decreasing Timestamp order.
type PositionFix struct {
	AccountID string
	DeviceID  string
	Timestamp time.Time
	Point     GeoPoint
	Speed     *float64
}

type Location struct {
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Speed     *float64  `json:"speed,omitempty"`
	Address   string    `json:"address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type DeviceLocation struct {
	AccountID string   `json:"account_id"`
	DeviceID  string   `json:"device_id"`
	Location  Location `json:"location"`
}

func (dl *DeviceLocation) Fix() PositionFix {
	return PositionFix{
		AccountID: dl.AccountID,
		DeviceID:  dl.DeviceID,
		Timestamp: dl.Location.Timestamp,
		Point:     GeoPoint{Lat: dl.Location.Lat, Lon: dl.Location.Lon},
		Speed:     dl.Location.Speed,
	}
}

type Device struct {
	DeviceID string `json:"device_id"`
}

type HistoryQuery struct {
	DeviceID string
	Start    time.Time
	End      time.Time
}
