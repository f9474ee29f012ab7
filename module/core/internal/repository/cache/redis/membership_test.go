package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/cache"
)

func TestSetMembership_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSet("geozone:membership:dev-1", `{"zone_id":"depot","since":1715003456}`, 0).SetVal("OK")

	c := NewMembershipCache(db)
	err := c.SetMembership(context.Background(), &domain.ZoneMembership{
		DeviceID: "dev-1",
		ZoneID:   "depot",
		Since:    time.Unix(1715003456, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSetMembership_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSet("geozone:membership:dev-1", `{"zone_id":"depot","since":1715003456}`, 0).SetErr(errors.New("connection refused"))

	c := NewMembershipCache(db)
	err := c.SetMembership(context.Background(), &domain.ZoneMembership{
		DeviceID: "dev-1",
		ZoneID:   "depot",
		Since:    time.Unix(1715003456, 0),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestClearMembership(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectDel("geozone:membership:dev-1").SetVal(1)

	if err := NewMembershipCache(db).ClearMembership(context.Background(), "dev-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetMembership_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("geozone:membership:dev-1").SetVal(`{"zone_id":"depot","since":1715003456}`)

	m, err := NewMembershipCache(db).GetMembership(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ZoneID != "depot" || m.DeviceID != "dev-1" {
		t.Errorf("unexpected membership %+v", m)
	}
	if !m.Since.Equal(time.Unix(1715003456, 0)) {
		t.Errorf("unexpected since %v", m.Since)
	}
}

func TestGetMembership_NotFound(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("geozone:membership:dev-1").RedisNil()

	_, err := NewMembershipCache(db).GetMembership(context.Background(), "dev-1")
	if !errors.Is(err, cache.ErrMembershipNotFound) {
		t.Fatalf("expected ErrMembershipNotFound, got %v", err)
	}
}

func TestGetMembership_Corrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("geozone:membership:dev-1").SetVal(`not json`)

	_, err := NewMembershipCache(db).GetMembership(context.Background(), "dev-1")
	if err == nil || errors.Is(err, cache.ErrMembershipNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
