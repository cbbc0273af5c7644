package entity

import (
	"context"
	"time"

	"github.com/rivenhall/homegraph/internal/state"
)

// SmokeCoAlarm is a typed view over one smoke and CO alarm in the
// current snapshot. Alarms expose no writable fields.
type SmokeCoAlarm struct {
	device
}

// NewSmokeCoAlarm creates a view for the alarm with the given serial.
func NewSmokeCoAlarm(backend Backend, id string) *SmokeCoAlarm {
	return &SmokeCoAlarm{device: device{
		backend:  backend,
		category: state.CategorySmokeCOAlarms,
		put:      putSmokeCOAlarms,
		id:       id,
	}}
}

// SoftwareVersion returns the firmware version string.
func (a *SmokeCoAlarm) SoftwareVersion(ctx context.Context) (string, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("software_version")
}

// LastConnection returns the time of the last cloud check-in.
func (a *SmokeCoAlarm) LastConnection(ctx context.Context) (time.Time, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Time("last_connection")
}

// BatteryHealth returns "ok" or "replace".
func (a *SmokeCoAlarm) BatteryHealth(ctx context.Context) (string, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("battery_health")
}

// COAlarmState returns the carbon monoxide state: "ok", "warning" or
// "emergency".
func (a *SmokeCoAlarm) COAlarmState(ctx context.Context) (string, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("co_alarm_state")
}

// SmokeAlarmState returns the smoke state: "ok", "warning" or
// "emergency".
func (a *SmokeCoAlarm) SmokeAlarmState(ctx context.Context) (string, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("smoke_alarm_state")
}

// UIColorState returns the summary status ring color: "gray", "green",
// "yellow" or "red".
func (a *SmokeCoAlarm) UIColorState(ctx context.Context) (string, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("ui_color_state")
}

// IsManualTestActive reports whether a manual test is running.
func (a *SmokeCoAlarm) IsManualTestActive(ctx context.Context) (bool, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_manual_test_active")
}

// LastManualTestTime returns when the last manual test was run.
func (a *SmokeCoAlarm) LastManualTestTime(ctx context.Context) (time.Time, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Time("last_manual_test_time")
}

// ProductID returns the hardware product identifier.
func (a *SmokeCoAlarm) ProductID(ctx context.Context) (string, error) {
	rec, err := a.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("product_id")
}

// BatteryLevel was removed from the protocol.
func (a *SmokeCoAlarm) BatteryLevel(context.Context) (float64, error) {
	return 0, ErrDeprecated
}

// COStatus was removed from the protocol.
func (a *SmokeCoAlarm) COStatus(context.Context) (string, error) {
	return "", ErrDeprecated
}

// SmokeStatus was removed from the protocol.
func (a *SmokeCoAlarm) SmokeStatus(context.Context) (string, error) {
	return "", ErrDeprecated
}
