package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/geozone"
	"github.com/nandanugg/fleet-geozone/module/core/internal/metrics"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/database"
)

// ZoneService persists zone definitions and republishes the owning account's
// snapshot after every change.
type ZoneService struct {
	repo    database.ZoneRepository
	store   *geozone.SnapshotStore
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time

	// held across list and publish
	reloadMu sync.Mutex
}

func NewZoneService(repo database.ZoneRepository, store *geozone.SnapshotStore, m *metrics.Collector, logger *slog.Logger) *ZoneService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneService{
		repo:    repo,
		store:   store,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ZoneService) Create(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
	z, err := s.validate(accountID, p)
	if err != nil {
		return domain.Zone{}, err
	}

	rec := zoneRecord(z, s.now())
	if err := s.repo.Insert(ctx, &rec); err != nil {
		return domain.Zone{}, fmt.Errorf("insert zone: %w", err)
	}
	if _, err := s.Reload(ctx, accountID); err != nil {
		return domain.Zone{}, err
	}
	return z, nil
}

func (s *ZoneService) Update(ctx context.Context, accountID string, p geozone.ZoneParams) (domain.Zone, error) {
	z, err := s.validate(accountID, p)
	if err != nil {
		return domain.Zone{}, err
	}

	rec := zoneRecord(z, s.now())
	if err := s.repo.Update(ctx, &rec); err != nil {
		return domain.Zone{}, fmt.Errorf("update zone: %w", err)
	}
	if _, err := s.Reload(ctx, accountID); err != nil {
		return domain.Zone{}, err
	}
	return z, nil
}

func (s *ZoneService) Delete(ctx context.Context, accountID, zoneID string) error {
	if err := s.repo.Delete(ctx, accountID, zoneID); err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	_, err := s.Reload(ctx, accountID)
	return err
}

// Get reads from the published snapshot, so it sees exactly the zones the
// engine evaluates against.
func (s *ZoneService) Get(accountID, zoneID string) (domain.Zone, error) {
	z, ok := s.store.Load(accountID).Zone(zoneID)
	if !ok {
		return domain.Zone{}, fmt.Errorf("zone %q: %w", zoneID, database.ErrZoneNotFound)
	}
	return z, nil
}

func (s *ZoneService) List(accountID string) []domain.Zone {
	return s.store.Load(accountID).Zones()
}

// Reload rebuilds the account snapshot from storage and publishes it.
func (s *ZoneService) Reload(ctx context.Context, accountID string) (*geozone.Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	recs, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list zones of %s: %w", accountID, err)
	}
	return s.publish(accountID, recs)
}

// ReloadAll publishes a snapshot for every account found in storage. Accounts
// that lost all their zones get an empty snapshot.
func (s *ZoneService) ReloadAll(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list zones: %w", err)
	}

	byAccount := make(map[string][]domain.ZoneRecord)
	var order []string
	for _, rec := range recs {
		if _, ok := byAccount[rec.AccountID]; !ok {
			order = append(order, rec.AccountID)
		}
		byAccount[rec.AccountID] = append(byAccount[rec.AccountID], rec)
	}
	for _, accountID := range s.store.Accounts() {
		if _, ok := byAccount[accountID]; !ok {
			order = append(order, accountID)
		}
	}

	for _, accountID := range order {
		if _, err := s.publish(accountID, byAccount[accountID]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ZoneService) publish(accountID string, recs []domain.ZoneRecord) (*geozone.Snapshot, error) {
	zones := make([]domain.Zone, 0, len(recs))
	for _, rec := range recs {
		z, err := geozone.NewZone(zoneParams(rec))
		if err != nil {
			s.reject(err)
			s.logger.Warn("stored zone excluded", "account_id", accountID, "zone_id", rec.ZoneID, "error", err)
			continue
		}
		zones = append(zones, z)
	}

	snap, err := s.store.Publish(accountID, zones)
	if err != nil {
		return nil, fmt.Errorf("publish snapshot of %s: %w", accountID, err)
	}
	s.metrics.SnapshotPublished()
	s.logger.Info("zone snapshot published", "account_id", accountID, "version", snap.Version(), "zones", snap.Len())
	return snap, nil
}

func (s *ZoneService) validate(accountID string, p geozone.ZoneParams) (domain.Zone, error) {
	p.AccountID = accountID
	z, err := geozone.NewZone(p)
	if err != nil {
		s.reject(err)
		return domain.Zone{}, err
	}
	return z, nil
}

func (s *ZoneService) reject(err error) {
	var verr *geozone.ValidationError
	if errors.As(err, &verr) {
		s.metrics.ZoneRejected(string(verr.Code))
	}
}

func zoneRecord(z domain.Zone, updatedAt time.Time) domain.ZoneRecord {
	rec := domain.ZoneRecord{
		AccountID:              z.AccountID,
		ZoneID:                 z.ID,
		Priority:               z.Priority,
		ArrivalEnabled:         z.ArrivalEnabled,
		DepartureEnabled:       z.DepartureEnabled,
		AutoNotify:             z.AutoNotify,
		ReverseGeocodeEligible: z.ReverseGeocodeEligible,
		SpeedLimit:             z.SpeedLimit,
		ClientUploadID:         z.ClientUploadID,
		Description:            z.Description,
		UpdatedAt:              updatedAt,
	}
	switch s := z.Shape.(type) {
	case domain.Circle:
		rec.Kind = domain.ShapeCircle
		rec.Points = []domain.GeoPoint{s.Center}
		rec.RadiusMeters = s.RadiusMeters
	case domain.Polygon:
		rec.Kind = domain.ShapePolygon
		rec.Points = s.Vertices
	case domain.Corridor:
		rec.Kind = domain.ShapeCorridor
		rec.Points = s.Path
		rec.RadiusMeters = s.RadiusMeters
	}
	return rec
}

// zoneParams leaves Shape nil when the record does not describe a known
// shape, which NewZone rejects.
func zoneParams(rec domain.ZoneRecord) geozone.ZoneParams {
	p := geozone.ZoneParams{
		ID:                     rec.ZoneID,
		AccountID:              rec.AccountID,
		Priority:               rec.Priority,
		ArrivalEnabled:         rec.ArrivalEnabled,
		DepartureEnabled:       rec.DepartureEnabled,
		AutoNotify:             rec.AutoNotify,
		ReverseGeocodeEligible: rec.ReverseGeocodeEligible,
		SpeedLimit:             rec.SpeedLimit,
		ClientUploadID:         rec.ClientUploadID,
		Description:            rec.Description,
	}
	switch rec.Kind {
	case domain.ShapeCircle:
		if len(rec.Points) == 1 {
			p.Shape = domain.Circle{Center: rec.Points[0], RadiusMeters: rec.RadiusMeters}
		}
	case domain.ShapePolygon:
		p.Shape = domain.Polygon{Vertices: rec.Points}
	case domain.ShapeCorridor:
		p.Shape = domain.Corridor{Path: rec.Points, RadiusMeters: rec.RadiusMeters}
	}
	return p
}
