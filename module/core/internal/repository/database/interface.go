package database

import (
	"context"
	"errors"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

var (
	ErrZoneNotFound = errors.New("zone not found")
	ErrZoneExists   = errors.New("zone already exists")
)

type LocationRepository interface {
	Insert(ctx context.Context, loc *domain.DeviceLocation) error
	GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error)
	GetAllDevices(ctx context.Context) ([]domain.Device, error)
}

type ZoneRepository interface {
	Insert(ctx context.Context, rec *domain.ZoneRecord) error
	Update(ctx context.Context, rec *domain.ZoneRecord) error
	Delete(ctx context.Context, accountID, zoneID string) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.ZoneRecord, error)
	ListAll(ctx context.Context) ([]domain.ZoneRecord, error)
}
