package track

import "math"

// Update is one partial record from the feed. A nil field means "no news",
// never "clear this field".
type Update struct {
	ID          string
	Latitude    *float64
	Longitude   *float64
	Origin      *string
	Destination *string
	Kind        *string
	Altitude    *float64
	Model       *string
	Operator    *string
}

// HasPosition reports whether the update carries at least one usable
// coordinate.
func (u Update) HasPosition() bool {
	return finite(u.Latitude) != nil || finite(u.Longitude) != nil
}

// finite drops NaN and infinite values so they are treated as absent.
func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// Float returns a pointer to v, for building updates in code and tests.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }
