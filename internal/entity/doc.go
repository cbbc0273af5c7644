// Package entity provides typed read/write views over the cached device
// and structure graph.
//
// Views (Thermostat, Structure, Camera, SmokeCoAlarm) hold only a
// reference to the owning client and an entity id; every property access
// dereferences through the current snapshot, so a view stays valid across
// snapshot replacement for as long as its id exists remotely. Reads are
// pure projections of snapshot fields; writes compose field-level PUT
// payloads and delegate to the transport's mutate path, which invalidates
// the state cache.
//
// Accessors for fields the current protocol generation no longer carries
// fail fast with ErrDeprecated rather than returning a wrong value.
package entity
