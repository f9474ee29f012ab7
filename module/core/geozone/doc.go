// Package geozone decides whether positions fall inside account geozones,
// picks the effective zone among overlapping matches and turns a device's
// stream of fixes into arrival and departure events.
//
// Evaluation is synchronous and CPU-only. Zones are read through immutable
// Snapshots; per-device membership lives in a Detector owned by a single
// worker.
package geozone
