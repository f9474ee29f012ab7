package geozone

import (
	"time"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

// MembershipState is the zone a device was last seen in. An empty ZoneID
// means the device is not in any zone.
type MembershipState struct {
	ZoneID         string
	LastTransition time.Time
}

func (m MembershipState) InZone() bool {
	return m.ZoneID != ""
}

// TransitionFilter may hold back a membership change, e.g. to debounce GPS
// jitter near a boundary. candidate is the new effective zone id, empty when
// the device left every zone. Returning false keeps the current state and
// emits nothing for this fix.
type TransitionFilter func(current MembershipState, candidate string, fix domain.PositionFix) bool

type DetectorOption func(*Detector)

func WithTransitionFilter(f TransitionFilter) DetectorOption {
	return func(d *Detector) {
		d.filter = f
	}
}

// Detector tracks membership for the devices routed to one worker. It is not
// safe for concurrent use; each worker owns its own Detector.
type Detector struct {
	devices map[string]*MembershipState
	filter  TransitionFilter
}

func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{devices: make(map[string]*MembershipState)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe evaluates fix against snap and returns the events caused by a
// change of effective zone. A departure always precedes the arrival it
// enables. Fixes with invalid coordinates are ignored.
func (d *Detector) Observe(fix domain.PositionFix, snap *Snapshot) []domain.ZoneEvent {
	if !fix.Point.Valid() {
		return nil
	}

	state, ok := d.devices[fix.DeviceID]
	if !ok {
		state = &MembershipState{}
		d.devices[fix.DeviceID] = state
	}

	effective, found := EffectiveZone(fix.Point, snap)
	candidate := ""
	if found {
		candidate = effective.ID
	}
	if candidate == state.ZoneID {
		return nil
	}
	if d.filter != nil && !d.filter(*state, candidate, fix) {
		return nil
	}

	var events []domain.ZoneEvent
	if state.InZone() {
		// A zone removed from the snapshot has no flags left to consult.
		if prev, ok := snap.Zone(state.ZoneID); ok && prev.DepartureEnabled {
			events = append(events, newZoneEvent(domain.ZoneDeparture, fix, prev))
		}
	}
	if found && effective.ArrivalEnabled {
		events = append(events, newZoneEvent(domain.ZoneArrival, fix, effective))
	}

	state.ZoneID = candidate
	state.LastTransition = fix.Timestamp
	return events
}

func (d *Detector) State(deviceID string) (MembershipState, bool) {
	state, ok := d.devices[deviceID]
	if !ok {
		return MembershipState{}, false
	}
	return *state, true
}

// Retire drops the membership state of a device that left the fleet.
func (d *Detector) Retire(deviceID string) {
	delete(d.devices, deviceID)
}

func (d *Detector) Len() int {
	return len(d.devices)
}

func newZoneEvent(typ domain.ZoneEventType, fix domain.PositionFix, z domain.Zone) domain.ZoneEvent {
	return domain.ZoneEvent{
		Type:       typ,
		AccountID:  fix.AccountID,
		DeviceID:   fix.DeviceID,
		ZoneID:     z.ID,
		Location:   fix.Point,
		Timestamp:  fix.Timestamp,
		AutoNotify: z.AutoNotify,
	}
}
