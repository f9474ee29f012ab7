package service

import (
	"context"
	"fmt"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/geozone"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/database"
)

type LocationService struct {
	repo database.LocationRepository
}

func NewLocationService(repo database.LocationRepository) *LocationService {
	return &LocationService{repo: repo}
}

// SaveLocation stores a fix. When the fix has no address yet it takes the
// description of the reverse-geocode zone in snap that contains it.
func (s *LocationService) SaveLocation(ctx context.Context, dl *domain.DeviceLocation, snap *geozone.Snapshot) error {
	if dl.Location.Address == "" {
		if desc, ok := geozone.Describe(dl.Fix().Point, snap); ok {
			dl.Location.Address = desc.Description
		}
	}
	if err := s.repo.Insert(ctx, dl); err != nil {
		return fmt.Errorf("save location %s: %w", dl.DeviceID, err)
	}
	return nil
}

func (s *LocationService) GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error) {
	return s.repo.GetLatest(ctx, deviceID)
}

func (s *LocationService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
	return s.repo.GetHistory(ctx, query)
}

func (s *LocationService) GetAllDevices(ctx context.Context) ([]domain.Device, error) {
	return s.repo.GetAllDevices(ctx)
}
