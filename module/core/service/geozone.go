package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/geozone"
	"github.com/nandanugg/fleet-geozone/module/core/internal/metrics"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/cache"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/publisher"
)

// SnapshotSource yields the current zone snapshot of an account.
type SnapshotSource interface {
	Load(accountID string) *geozone.Snapshot
}

type GeozoneService struct {
	snapshots    SnapshotSource
	publisher    publisher.ZoneEventPublisher
	memberships  cache.MembershipCache
	metrics      *metrics.Collector
	logger       *slog.Logger
	newID        func() string
	detectorOpts []geozone.DetectorOption
}

type GeozoneOption func(*GeozoneService)

func WithMetrics(m *metrics.Collector) GeozoneOption {
	return func(s *GeozoneService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) GeozoneOption {
	return func(s *GeozoneService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithDetectorOptions(opts ...geozone.DetectorOption) GeozoneOption {
	return func(s *GeozoneService) { s.detectorOpts = append(s.detectorOpts, opts...) }
}

func WithIDGenerator(fn func() string) GeozoneOption {
	return func(s *GeozoneService) { s.newID = fn }
}

// NewGeozoneService builds the service. memberships may be nil when no read
// model is kept.
func NewGeozoneService(snapshots SnapshotSource, pub publisher.ZoneEventPublisher, memberships cache.MembershipCache, opts ...GeozoneOption) *GeozoneService {
	s := &GeozoneService{
		snapshots:   snapshots,
		publisher:   pub,
		memberships: memberships,
		logger:      slog.Default(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the zone snapshot fixes of the account are currently
// evaluated against.
func (s *GeozoneService) Snapshot(accountID string) *geozone.Snapshot {
	return s.snapshots.Load(accountID)
}

func (s *GeozoneService) Describe(accountID string, p domain.GeoPoint) (domain.ZoneDescription, bool) {
	return geozone.Describe(p, s.snapshots.Load(accountID))
}

func (s *GeozoneService) Match(accountID string, p domain.GeoPoint) []domain.Zone {
	return geozone.Resolve(p, s.snapshots.Load(accountID))
}

func (s *GeozoneService) CurrentZone(ctx context.Context, deviceID string) (*domain.ZoneMembership, error) {
	if s.memberships == nil {
		return nil, cache.ErrMembershipNotFound
	}
	return s.memberships.GetMembership(ctx, deviceID)
}

// NewTracker returns a Tracker with its own detector. A Tracker must only be
// used from one goroutine.
func (s *GeozoneService) NewTracker() *Tracker {
	return &Tracker{svc: s, detector: geozone.NewDetector(s.detectorOpts...)}
}

type Tracker struct {
	svc      *GeozoneService
	detector *geozone.Detector
}

// Track evaluates one fix against snap and publishes the resulting events.
// Publishing and read model failures do not roll back the membership change;
// they are returned joined after every event has been attempted.
func (t *Tracker) Track(ctx context.Context, fix domain.PositionFix, snap *geozone.Snapshot) ([]domain.ZoneEvent, error) {
	s := t.svc
	if !fix.Point.Valid() {
		s.metrics.FixSkipped()
		s.logger.Debug("fix skipped", "device_id", fix.DeviceID, "lat", fix.Point.Lat, "lon", fix.Point.Lon)
		return nil, nil
	}

	before, _ := t.detector.State(fix.DeviceID)

	start := time.Now()
	events := t.detector.Observe(fix, snap)
	s.metrics.FixEvaluated(time.Since(start))

	var errs []error
	for i := range events {
		ev := &events[i]
		ev.ID = s.newID()
		s.metrics.Transition(string(ev.Type))
		s.logger.Info("zone transition", "event", ev.Type, "device_id", ev.DeviceID, "zone_id", ev.ZoneID, "snapshot_version", snap.Version())
		if err := s.publisher.PublishEvent(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("publish %s %s: %w", ev.Type, ev.ZoneID, err))
		}
	}

	after, _ := t.detector.State(fix.DeviceID)
	if after.ZoneID != before.ZoneID {
		if err := s.updateMembership(ctx, fix.DeviceID, after); err != nil {
			errs = append(errs, err)
		}
	}
	return events, errors.Join(errs...)
}

// Retire forgets a device's membership state and drops it from the read
// model. No departure is emitted.
func (t *Tracker) Retire(ctx context.Context, deviceID string) error {
	t.detector.Retire(deviceID)
	t.svc.logger.Info("device retired", "device_id", deviceID, "tracked_devices", t.Devices())
	return t.svc.updateMembership(ctx, deviceID, geozone.MembershipState{})
}

func (t *Tracker) Devices() int {
	return t.detector.Len()
}

func (s *GeozoneService) updateMembership(ctx context.Context, deviceID string, state geozone.MembershipState) error {
	if s.memberships == nil {
		return nil
	}
	if !state.InZone() {
		if err := s.memberships.ClearMembership(ctx, deviceID); err != nil {
			return fmt.Errorf("membership read model: %w", err)
		}
		return nil
	}
	err := s.memberships.SetMembership(ctx, &domain.ZoneMembership{
		DeviceID: deviceID,
		ZoneID:   state.ZoneID,
		Since:    state.LastTransition,
	})
	if err != nil {
		return fmt.Errorf("membership read model: %w", err)
	}
	return nil
}
