package homegraph

import (
	"github.com/rivenhall/homegraph/internal/entity"
	"github.com/rivenhall/homegraph/internal/state"
)

// Version is reported in structured log output.
const Version = "0.4.0"

// Entity views. Each projects typed accessors over the current snapshot
// and writes through the client's mutate path.
type (
	Thermostat   = entity.Thermostat
	Camera       = entity.Camera
	SmokeCoAlarm = entity.SmokeCoAlarm
	Structure    = entity.Structure

	// CameraEvent is a camera's most recent detection event.
	CameraEvent = entity.CameraEvent

	// ActivityZone is a user-defined camera detection region.
	ActivityZone = entity.ActivityZone

	// Where is a named location label inside a structure.
	Where = entity.Where

	// LowHigh is a dual-setpoint temperature pair.
	LowHigh = entity.LowHigh

	// Snapshot is a point-in-time view of the full device graph.
	Snapshot = state.Snapshot

	// Record is one entity's raw field set within a snapshot.
	Record = state.Record
)

// Temperature scales and protocol setpoint bounds.
const (
	ScaleCelsius    = entity.ScaleCelsius
	ScaleFahrenheit = entity.ScaleFahrenheit

	MinTemperatureC = entity.MinTemperatureC
	MaxTemperatureC = entity.MaxTemperatureC
	MinTemperatureF = entity.MinTemperatureF
	MaxTemperatureF = entity.MaxTemperatureF
)

// ModeHeatCool is the dual-setpoint thermostat mode; Target reads and
// scalar target writes do not apply while it is active.
const ModeHeatCool = entity.ModeHeatCool
