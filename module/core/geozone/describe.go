package geozone

import "github.com/nandanugg/fleet-geozone/module/core/domain"

// Describe picks the highest ranked reverse-geocode eligible zone containing p
// and returns its description.
func Describe(p domain.GeoPoint, snap *Snapshot) (domain.ZoneDescription, bool) {
	z, ok := bestMatch(p, snap.zoneList(), func(z domain.Zone) bool {
		return z.ReverseGeocodeEligible
	})
	if !ok {
		return domain.ZoneDescription{}, false
	}
	return domain.ZoneDescription{ZoneID: z.ID, Description: z.Description}, true
}
