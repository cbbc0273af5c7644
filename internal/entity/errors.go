package entity

import "errors"

// Domain errors for the entity package, checked with errors.Is().
var (
	// ErrDeprecated is returned by accessors for fields removed from (or
	// never present in) the current protocol generation. Failing fast
	// beats silently returning garbage from a stale field name.
	ErrDeprecated = errors.New("entity: not available in the current API")

	// ErrRangeMode is returned when a scalar target accessor is used while
	// the thermostat is in the dual-setpoint heat-cool mode.
	ErrRangeMode = errors.New("entity: thermostat is in range mode")

	// ErrNotRangeMode is returned when the range target accessor is used
	// outside heat-cool mode.
	ErrNotRangeMode = errors.New("entity: thermostat is not in range mode")

	// ErrBadValue is returned when a write value is outside the accepted
	// vocabulary.
	ErrBadValue = errors.New("entity: unsupported value")
)
