package domain

import "time"

// ZoneRecord is the flat storage form of a Zone. Records read back from
// storage are untrusted until rebuilt through geozone.NewZone.
type ZoneRecord struct {
	AccountID              string
	ZoneID                 string
	Kind                   ShapeKind
	Points                 []GeoPoint
	RadiusMeters           float64
	Priority               int
	ArrivalEnabled         bool
	DepartureEnabled       bool
	AutoNotify             bool
	ReverseGeocodeEligible bool
	SpeedLimit             *float64
	ClientUploadID         *int64
	Description            string
	UpdatedAt              time.Time
}
