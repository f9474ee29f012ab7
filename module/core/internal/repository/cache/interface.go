package cache

import (
	"context"
	"errors"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

var ErrMembershipNotFound = errors.New("membership not found")

// MembershipCache is a read model of each device's current zone. The
// geozone detector remains the source of truth.
type MembershipCache interface {
	SetMembership(ctx context.Context, m *domain.ZoneMembership) error
	ClearMembership(ctx context.Context, deviceID string) error
	GetMembership(ctx context.Context, deviceID string) (*domain.ZoneMembership, error)
}
