package forecast

import (
	"fmt"
	"math"
)

// UnitSystem selects the display units for snow and wind. Temperature is
// always sourced and presented in Fahrenheit, never re-derived.
type UnitSystem string

const (
	UnitsImperial UnitSystem = "imperial"
	UnitsMetric   UnitSystem = "metric"
)

// Placeholder is rendered wherever a numeric field is absent. A missing
// reading must never display as 0 or abort a render pass.
const Placeholder = "--"

// Fixed conversion factors shared with the upstream contract.
const (
	inchesPerCm = 2.54
	mphPerKmh   = 0.621371
)

// InchesToCm converts a snow/precip depth from inches to centimeters.
func InchesToCm(in float64) float64 { return in * inchesPerCm }

// MphToKmh converts a wind speed from miles per hour to km/h.
func MphToKmh(mph float64) float64 { return mph / mphPerKmh }

// ParseUnitSystem normalizes a stored preference value, defaulting to
// imperial for anything unrecognized.
func ParseUnitSystem(s string) UnitSystem {
	if UnitSystem(s) == UnitsMetric {
		return UnitsMetric
	}
	return UnitsImperial
}

// FormatTemp renders a Fahrenheit temperature with one decimal, or the
// placeholder when absent.
func FormatTemp(v *float64) string {
	if !present(v) {
		return Placeholder
	}
	return fmt.Sprintf("%.1f °F", *v)
}

// FormatSnow renders a snow depth sourced in inches in the requested unit
// system.
func FormatSnow(v *float64, sys UnitSystem) string {
	if !present(v) {
		return Placeholder
	}
	if sys == UnitsMetric {
		return fmt.Sprintf("%.1f cm", InchesToCm(*v))
	}
	return fmt.Sprintf("%.1f in", *v)
}

// FormatWind renders a wind speed sourced in mph in the requested unit
// system.
func FormatWind(v *float64, sys UnitSystem) string {
	if !present(v) {
		return Placeholder
	}
	if sys == UnitsMetric {
		return fmt.Sprintf("%.1f km/h", MphToKmh(*v))
	}
	return fmt.Sprintf("%.1f mph", *v)
}

func present(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
