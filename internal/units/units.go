// Package units provides altitude units and display timezones
package units

import "strings"

// Unit constants
const (
	Feet   = "ft"
	Metres = "m"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Feet, Metres}

// feetToMetres is the international foot
const feetToMetres = 0.3048

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertAltitude converts an altitude from feet to the target units.
// Feeds report altitude in feet.
func ConvertAltitude(altitudeFt float64, targetUnits string) float64 {
	switch targetUnits {
	case Metres:
		return altitudeFt * feetToMetres
	default:
		return altitudeFt
	}
}
