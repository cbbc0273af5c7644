package entity

import (
	"fmt"
	"math"
	"strings"
)

// Temperature scales as the API declares them.
const (
	ScaleCelsius    = "C"
	ScaleFahrenheit = "F"
)

// Protocol temperature bounds for unlocked thermostats.
const (
	MinTemperatureC = 9.0
	MaxTemperatureC = 32.0
	MinTemperatureF = 50.0
	MaxTemperatureF = 90.0
)

// ModeHeatCool is the dual-setpoint ("range") thermostat mode.
const ModeHeatCool = "heat-cool"

// LowHigh is a dual-setpoint temperature pair.
type LowHigh struct {
	Low  float64
	High float64
}

// normalizeAway maps the accepted away vocabulary (booleans and the
// on/off/home/away strings) to the server's home/away values.
func normalizeAway(value any) (string, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return "away", nil
		}
		return "home", nil
	case string:
		switch strings.ToLower(v) {
		case "on", "away":
			return "away", nil
		case "off", "home":
			return "home", nil
		}
	}
	return "", fmt.Errorf("%w: away = %v", ErrBadValue, value)
}

// normalizeFan maps the accepted fan vocabulary to the boolean
// fan_timer_active field. Unknown strings historically meant "off".
func normalizeFan(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case string:
		switch strings.ToLower(v) {
		case "on", "1":
			return true, nil
		case "auto", "auto on", "0", "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: fan = %v", ErrBadValue, value)
}

// roundTemperature applies the hardware setpoint granularity: nearest
// 0.5 degree Celsius, nearest whole degree Fahrenheit.
func roundTemperature(scale string, value float64) float64 {
	if scale == ScaleCelsius {
		return math.Round(value*2) / 2
	}
	return math.Round(value)
}

// temperatureKey builds the scale-suffixed field name for a temperature
// field, e.g. target_temperature + C -> target_temperature_c.
func temperatureKey(base, scale string) string {
	return base + "_" + strings.ToLower(scale)
}
