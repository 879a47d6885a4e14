package track

import (
	"sort"
	"strings"
)

// KindStatic marks a fixed reference point rather than a live aircraft.
const KindStatic = "static"

// Color is a hue/saturation pair. Brightness is decided at render time.
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
}

var (
	// DefaultColor is used for unclassified or unmatched aircraft types.
	DefaultColor = Color{Hue: 0.15, Saturation: 0.30}
	// StaticColor marks fixed reference points.
	StaticColor = Color{Hue: 0.01, Saturation: 0.99}
)

// PrefixColor maps an aircraft type prefix (ICAO designator) to a colour.
type PrefixColor struct {
	Prefix string
	Color  Color
}

// ColorTable resolves aircraft types to colours by longest matching prefix.
type ColorTable struct {
	entries []PrefixColor
	def     Color
}

// NewColorTable builds a table from entries; def is returned when nothing matches.
func NewColorTable(def Color, entries ...PrefixColor) *ColorTable {
	sorted := make([]PrefixColor, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &ColorTable{entries: sorted, def: def}
}

// DefaultColorTable groups wide-bodies, 777/787s, narrow-bodies and A330/A340s.
var DefaultColorTable = NewColorTable(DefaultColor,
	PrefixColor{"A38", Color{0.00, 0.99}},
	PrefixColor{"B74", Color{0.10, 0.95}},
	PrefixColor{"B77", Color{0.63, 0.99}},
	PrefixColor{"B78", Color{0.63, 0.99}},
	PrefixColor{"B73", Color{0.36, 0.55}},
	PrefixColor{"A32", Color{0.36, 0.55}},
	PrefixColor{"A31", Color{0.36, 0.55}},
	PrefixColor{"A33", Color{0.49, 0.32}},
	PrefixColor{"A34", Color{0.49, 0.32}},
)

// Lookup returns the colour for kind. The static sentinel always maps to
// StaticColor; an empty kind gets the default.
func (ct *ColorTable) Lookup(kind string) Color {
	if kind == KindStatic {
		return StaticColor
	}
	if kind == "" {
		return ct.def
	}
	for _, e := range ct.entries {
		if strings.HasPrefix(kind, e.Prefix) {
			return e.Color
		}
	}
	return ct.def
}

// ColorFor looks kind up in DefaultColorTable.
func ColorFor(kind string) Color {
	return DefaultColorTable.Lookup(kind)
}
