package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/cache"
)

var _ cache.MembershipCache = (*MembershipCache)(nil)

const keyPrefix = "geozone:membership:"

type MembershipCache struct {
	rdb redis.Cmdable
}

func NewMembershipCache(rdb redis.Cmdable) *MembershipCache {
	return &MembershipCache{rdb: rdb}
}

type membershipValue struct {
	ZoneID string `json:"zone_id"`
	Since  int64  `json:"since"`
}

func membershipKey(deviceID string) string {
	return keyPrefix + deviceID
}

func (c *MembershipCache) SetMembership(ctx context.Context, m *domain.ZoneMembership) error {
	body, err := json.Marshal(membershipValue{ZoneID: m.ZoneID, Since: m.Since.Unix()})
	if err != nil {
		return fmt.Errorf("marshal membership: %w", err)
	}
	if err := c.rdb.Set(ctx, membershipKey(m.DeviceID), string(body), 0).Err(); err != nil {
		return fmt.Errorf("set membership: %w", err)
	}
	return nil
}

func (c *MembershipCache) ClearMembership(ctx context.Context, deviceID string) error {
	if err := c.rdb.Del(ctx, membershipKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("clear membership: %w", err)
	}
	return nil
}

func (c *MembershipCache) GetMembership(ctx context.Context, deviceID string) (*domain.ZoneMembership, error) {
	raw, err := c.rdb.Get(ctx, membershipKey(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}

	var v membershipValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode membership: %w", err)
	}
	return &domain.ZoneMembership{
		DeviceID: deviceID,
		ZoneID:   v.ZoneID,
		Since:    time.Unix(v.Since, 0),
	}, nil
}
