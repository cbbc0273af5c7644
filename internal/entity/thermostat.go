package entity

import (
	"context"
	"time"

	"github.com/rivenhall/homegraph/internal/state"
)

// Thermostat is a typed view over one thermostat in the current snapshot.
type Thermostat struct {
	device
}

// NewThermostat creates a view for the thermostat with the given serial.
func NewThermostat(backend Backend, id string) *Thermostat {
	return &Thermostat{device: device{
		backend:  backend,
		category: state.CategoryThermostats,
		put:      putThermostats,
		id:       id,
	}}
}

// Scale returns the declared temperature scale, "C" or "F". It selects
// which scale-suffixed field names reads and writes use.
func (t *Thermostat) Scale(ctx context.Context) (string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("temperature_scale")
}

// Label returns the user-assigned label.
func (t *Thermostat) Label(ctx context.Context) (string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("label")
}

// SetLabel updates the user-assigned label.
func (t *Thermostat) SetLabel(ctx context.Context, label string) error {
	return t.set(ctx, map[string]any{"label": label})
}

// SoftwareVersion returns the firmware version string.
func (t *Thermostat) SoftwareVersion(ctx context.Context) (string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("software_version")
}

// LastConnection returns the time of the last cloud check-in.
func (t *Thermostat) LastConnection(ctx context.Context) (time.Time, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Time("last_connection")
}

// Humidity returns the measured relative humidity percentage.
func (t *Thermostat) Humidity(ctx context.Context) (float64, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return 0, err
	}
	return rec.Float("humidity")
}

// Mode returns the HVAC mode (heat, cool, heat-cool, eco, off).
func (t *Thermostat) Mode(ctx context.Context) (string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("hvac_mode")
}

// SetMode changes the HVAC mode. Switching out of heat-cool is required
// before a scalar target write; the client never switches implicitly.
func (t *Thermostat) SetMode(ctx context.Context, mode string) error {
	return t.set(ctx, map[string]any{"hvac_mode": mode})
}

// PreviousMode returns the mode active before the current one.
func (t *Thermostat) PreviousMode(ctx context.Context) (string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("previous_hvac_mode")
}

// HVACState returns whether the system is actively heating, cooling or
// off.
func (t *Thermostat) HVACState(ctx context.Context) (string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("hvac_state")
}

// FanActive reports whether the fan timer is running.
func (t *Thermostat) FanActive(ctx context.Context) (bool, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("fan_timer_active")
}

// SetFan accepts the historical fan vocabulary (booleans, 0/1, "on",
// "auto", ...) and writes the normalized fan timer state.
func (t *Thermostat) SetFan(ctx context.Context, value any) error {
	active, err := normalizeFan(value)
	if err != nil {
		return err
	}
	return t.set(ctx, map[string]any{"fan_timer_active": active})
}

// FanTimerDuration returns the configured fan timer length in minutes.
func (t *Thermostat) FanTimerDuration(ctx context.Context) (int, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return 0, err
	}
	return rec.Int("fan_timer_duration")
}

// SetFanTimerDuration updates the fan timer length in minutes.
func (t *Thermostat) SetFanTimerDuration(ctx context.Context, minutes int) error {
	return t.set(ctx, map[string]any{"fan_timer_duration": minutes})
}

// HasLeaf reports whether the energy-saving leaf is showing.
func (t *Thermostat) HasLeaf(ctx context.Context) (bool, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("has_leaf")
}

// CanHeat reports heating capability.
func (t *Thermostat) CanHeat(ctx context.Context) (bool, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("can_heat")
}

// CanCool reports cooling capability.
func (t *Thermostat) CanCool(ctx context.Context) (bool, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("can_cool")
}

// HasFan reports whether a controllable fan is installed.
func (t *Thermostat) HasFan(ctx context.Context) (bool, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("has_fan")
}

// IsLocked reports whether the temperature lock is enabled.
func (t *Thermostat) IsLocked(ctx context.Context) (bool, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_locked")
}

// IsUsingEmergencyHeat reports whether auxiliary emergency heat is active.
func (t *Thermostat) IsUsingEmergencyHeat(ctx context.Context) (bool, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_using_emergency_heat")
}

// Temperature returns the measured ambient temperature in the
// thermostat's scale.
func (t *Thermostat) Temperature(ctx context.Context) (float64, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return 0, err
	}
	scale, err := rec.String("temperature_scale")
	if err != nil {
		return 0, err
	}
	return rec.Float(temperatureKey("ambient_temperature", scale))
}

// Target returns the scalar target temperature. In heat-cool mode the
// target is a pair; use TargetRange instead.
func (t *Thermostat) Target(ctx context.Context) (float64, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return 0, err
	}
	if mode, err := rec.String("hvac_mode"); err == nil && mode == ModeHeatCool {
		return 0, ErrRangeMode
	}
	scale, err := rec.String("temperature_scale")
	if err != nil {
		return 0, err
	}
	return rec.Float(temperatureKey("target_temperature", scale))
}

// TargetRange returns the (low, high) setpoint pair of heat-cool mode.
func (t *Thermostat) TargetRange(ctx context.Context) (LowHigh, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return LowHigh{}, err
	}
	mode, err := rec.String("hvac_mode")
	if err != nil {
		return LowHigh{}, err
	}
	if mode != ModeHeatCool {
		return LowHigh{}, ErrNotRangeMode
	}
	return t.readPair(rec, "target_temperature_low", "target_temperature_high")
}

// SetTarget writes a scalar target temperature, rounded to the hardware
// granularity of the thermostat's scale. While the thermostat is in
// heat-cool mode the server rejects scalar writes; the caller must switch
// mode first, the client never switches implicitly.
func (t *Thermostat) SetTarget(ctx context.Context, value float64) error {
	rec, err := t.record(ctx)
	if err != nil {
		return err
	}
	scale, err := rec.String("temperature_scale")
	if err != nil {
		return err
	}
	return t.set(ctx, map[string]any{
		temperatureKey("target_temperature", scale): roundTemperature(scale, value),
	})
}

// SetTargetRange writes the (low, high) setpoint pair for heat-cool mode,
// each rounded to the hardware granularity.
func (t *Thermostat) SetTargetRange(ctx context.Context, value LowHigh) error {
	rec, err := t.record(ctx)
	if err != nil {
		return err
	}
	scale, err := rec.String("temperature_scale")
	if err != nil {
		return err
	}
	return t.set(ctx, map[string]any{
		temperatureKey("target_temperature_low", scale):  roundTemperature(scale, value.Low),
		temperatureKey("target_temperature_high", scale): roundTemperature(scale, value.High),
	})
}

// EcoTemperature returns the eco (away) setpoint pair. The remote omits
// the fields when eco setpoints are not configured.
func (t *Thermostat) EcoTemperature(ctx context.Context) (LowHigh, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return LowHigh{}, err
	}
	return t.readPair(rec, "eco_temperature_low", "eco_temperature_high")
}

// SetEcoTemperature writes the eco setpoint pair.
func (t *Thermostat) SetEcoTemperature(ctx context.Context, value LowHigh) error {
	rec, err := t.record(ctx)
	if err != nil {
		return err
	}
	scale, err := rec.String("temperature_scale")
	if err != nil {
		return err
	}
	return t.set(ctx, map[string]any{
		temperatureKey("eco_temperature_low", scale):  value.Low,
		temperatureKey("eco_temperature_high", scale): value.High,
	})
}

// LockedTemperature returns the (min, max) bounds of the temperature
// lock.
func (t *Thermostat) LockedTemperature(ctx context.Context) (LowHigh, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return LowHigh{}, err
	}
	return t.readPair(rec, "locked_temp_min", "locked_temp_max")
}

// MinTemperature returns the lowest accepted target: the lock's lower
// bound when locked, else the protocol minimum for the scale.
func (t *Thermostat) MinTemperature(ctx context.Context) (float64, error) {
	locked, scale, err := t.lockAndScale(ctx)
	if err != nil {
		return 0, err
	}
	if locked != nil {
		return locked.Low, nil
	}
	if scale == ScaleCelsius {
		return MinTemperatureC, nil
	}
	return MinTemperatureF, nil
}

// MaxTemperature returns the highest accepted target: the lock's upper
// bound when locked, else the protocol maximum for the scale.
func (t *Thermostat) MaxTemperature(ctx context.Context) (float64, error) {
	locked, scale, err := t.lockAndScale(ctx)
	if err != nil {
		return 0, err
	}
	if locked != nil {
		return locked.High, nil
	}
	if scale == ScaleCelsius {
		return MaxTemperatureC, nil
	}
	return MaxTemperatureF, nil
}

// TimeToTarget returns the estimated time-to-temperature string.
func (t *Thermostat) TimeToTarget(ctx context.Context) (string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("time_to_target")
}

// BatteryLevel was removed from the protocol.
func (t *Thermostat) BatteryLevel(context.Context) (float64, error) {
	return 0, ErrDeprecated
}

// LocalIP was removed from the protocol.
func (t *Thermostat) LocalIP(context.Context) (string, error) {
	return "", ErrDeprecated
}

// TargetHumidity was removed from the protocol.
func (t *Thermostat) TargetHumidity(context.Context) (float64, error) {
	return 0, ErrDeprecated
}

// readPair reads a scale-suffixed (low, high) field pair.
func (t *Thermostat) readPair(rec state.Record, lowBase, highBase string) (LowHigh, error) {
	scale, err := rec.String("temperature_scale")
	if err != nil {
		return LowHigh{}, err
	}
	low, err := rec.Float(temperatureKey(lowBase, scale))
	if err != nil {
		return LowHigh{}, err
	}
	high, err := rec.Float(temperatureKey(highBase, scale))
	if err != nil {
		return LowHigh{}, err
	}
	return LowHigh{Low: low, High: high}, nil
}

// lockAndScale resolves the lock bounds (nil when unlocked) and scale in
// one snapshot read.
func (t *Thermostat) lockAndScale(ctx context.Context) (*LowHigh, string, error) {
	rec, err := t.record(ctx)
	if err != nil {
		return nil, "", err
	}
	scale, err := rec.String("temperature_scale")
	if err != nil {
		return nil, "", err
	}
	if locked, err := rec.Bool("is_locked"); err == nil && locked {
		pair, err := t.readPair(rec, "locked_temp_min", "locked_temp_max")
		if err != nil {
			return nil, "", err
		}
		return &pair, scale, nil
	}
	return nil, scale, nil
}
