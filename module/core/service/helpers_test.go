package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/geozone"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockZoneEventPublisher struct {
	publishEventFn func(ctx context.Context, ev *domain.ZoneEvent) error
	calls          []domain.ZoneEvent
}

func (m *mockZoneEventPublisher) PublishEvent(ctx context.Context, ev *domain.ZoneEvent) error {
	m.calls = append(m.calls, *ev)
	if m.publishEventFn != nil {
		return m.publishEventFn(ctx, ev)
	}
	return nil
}

type mockMembershipCache struct {
	setFn   func(ctx context.Context, m *domain.ZoneMembership) error
	clearFn func(ctx context.Context, deviceID string) error
	getFn   func(ctx context.Context, deviceID string) (*domain.ZoneMembership, error)

	current map[string]domain.ZoneMembership
}

func newMockMembershipCache() *mockMembershipCache {
	return &mockMembershipCache{current: make(map[string]domain.ZoneMembership)}
}

func (m *mockMembershipCache) SetMembership(ctx context.Context, ms *domain.ZoneMembership) error {
	if m.setFn != nil {
		return m.setFn(ctx, ms)
	}
	m.current[ms.DeviceID] = *ms
	return nil
}

func (m *mockMembershipCache) ClearMembership(ctx context.Context, deviceID string) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, deviceID)
	}
	delete(m.current, deviceID)
	return nil
}

func (m *mockMembershipCache) GetMembership(ctx context.Context, deviceID string) (*domain.ZoneMembership, error) {
	return m.getFn(ctx, deviceID)
}

// circleParams is a 100 m circle with both transition flags enabled.
func circleParams(id string, center domain.GeoPoint, priority int) geozone.ZoneParams {
	return geozone.ZoneParams{
		ID:               id,
		Shape:            domain.Circle{Center: center, RadiusMeters: 100},
		Priority:         priority,
		ArrivalEnabled:   true,
		DepartureEnabled: true,
	}
}

func mustZone(t *testing.T, accountID string, p geozone.ZoneParams) domain.Zone {
	t.Helper()
	p.AccountID = accountID
	z, err := geozone.NewZone(p)
	if err != nil {
		t.Fatalf("NewZone(%s): %v", p.ID, err)
	}
	return z
}
