package geozone

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

// Snapshot is an immutable, versioned set of zones for one account. A nil
// *Snapshot behaves as an empty one.
type Snapshot struct {
	accountID string
	version   uint64
	zones     []domain.Zone
	byID      map[string]int
}

func NewSnapshot(accountID string, version uint64, zones []domain.Zone) (*Snapshot, error) {
	s := &Snapshot{
		accountID: accountID,
		version:   version,
		zones:     make([]domain.Zone, len(zones)),
		byID:      make(map[string]int, len(zones)),
	}
	for i, z := range zones {
		if _, dup := s.byID[z.ID]; dup {
			return nil, fmt.Errorf("zone %q: %w", z.ID, ErrDuplicateZoneID)
		}
		s.byID[z.ID] = i
		s.zones[i] = z
	}
	return s, nil
}

func (s *Snapshot) AccountID() string {
	if s == nil {
		return ""
	}
	return s.accountID
}

func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

func (s *Snapshot) Len() int {
	return len(s.zoneList())
}

// Zones returns a copy of the zone list in publish order.
func (s *Snapshot) Zones() []domain.Zone {
	return append([]domain.Zone(nil), s.zoneList()...)
}

func (s *Snapshot) Zone(id string) (domain.Zone, bool) {
	if s == nil {
		return domain.Zone{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return domain.Zone{}, false
	}
	return s.zones[i], true
}

func (s *Snapshot) zoneList() []domain.Zone {
	if s == nil {
		return nil
	}
	return s.zones
}

// SnapshotStore holds the current snapshot of every account. Publishing
// swaps the account's snapshot atomically; readers keep whatever they loaded.
type SnapshotStore struct {
	mu        sync.RWMutex
	accounts  map[string]*atomic.Pointer[Snapshot]
	publishMu sync.Mutex
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{accounts: make(map[string]*atomic.Pointer[Snapshot])}
}

// Publish installs zones as the next version of the account's snapshot.
func (s *SnapshotStore) Publish(accountID string, zones []domain.Zone) (*Snapshot, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	slot := s.slot(accountID)
	next := slot.Load().Version() + 1

	snap, err := NewSnapshot(accountID, next, zones)
	if err != nil {
		return nil, err
	}
	slot.Store(snap)
	return snap, nil
}

// Load returns the account's current snapshot, or an empty version 0 snapshot
// when nothing has been published.
func (s *SnapshotStore) Load(accountID string) *Snapshot {
	s.mu.RLock()
	slot := s.accounts[accountID]
	s.mu.RUnlock()

	if slot != nil {
		if snap := slot.Load(); snap != nil {
			return snap
		}
	}
	return &Snapshot{accountID: accountID}
}

func (s *SnapshotStore) Accounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *SnapshotStore) slot(accountID string) *atomic.Pointer[Snapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.accounts[accountID]
	if !ok {
		slot = &atomic.Pointer[Snapshot]{}
		s.accounts[accountID] = slot
	}
	return slot
}
