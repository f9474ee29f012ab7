package geozone

import (
	"sort"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

// Resolve returns every zone in snap containing p, highest priority first.
// Equal priorities are ordered by ascending zone id.
func Resolve(p domain.GeoPoint, snap *Snapshot) []domain.Zone {
	var matches []domain.Zone
	for _, z := range snap.zoneList() {
		if Contains(p, z) {
			matches = append(matches, z)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return outranks(matches[i], matches[j])
	})
	return matches
}

// EffectiveZone returns the head of Resolve without building the full list.
func EffectiveZone(p domain.GeoPoint, snap *Snapshot) (domain.Zone, bool) {
	return bestMatch(p, snap.zoneList(), func(domain.Zone) bool { return true })
}

func bestMatch(p domain.GeoPoint, zones []domain.Zone, keep func(domain.Zone) bool) (domain.Zone, bool) {
	var (
		best  domain.Zone
		found bool
	)
	for _, z := range zones {
		if !keep(z) || (found && !outranks(z, best)) {
			continue
		}
		if Contains(p, z) {
			best, found = z, true
		}
	}
	return best, found
}

func outranks(a, b domain.Zone) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}
