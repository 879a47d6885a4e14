package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/skypies/geo"
)

// ErrDegenerateBBox is returned when a bounding box has zero or negative extent.
var ErrDegenerateBBox = errors.New("degenerate bounding box")

// BBox is the geographic window mapped onto the grid.
type BBox struct {
	geo.LatlongBox
}

// NewBBox validates the ordering latMin < latMax and longMin < longMax.
func NewBBox(latMin, latMax, longMin, longMax float64) (BBox, error) {
	for _, v := range []float64{latMin, latMax, longMin, longMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BBox{}, fmt.Errorf("%w: non-finite bound", ErrDegenerateBBox)
		}
	}
	if !(latMin < latMax) {
		return BBox{}, fmt.Errorf("%w: lat_min %.4f must be below lat_max %.4f", ErrDegenerateBBox, latMin, latMax)
	}
	if !(longMin < longMax) {
		return BBox{}, fmt.Errorf("%w: long_min %.4f must be below long_max %.4f", ErrDegenerateBBox, longMin, longMax)
	}
	return BBox{geo.LatlongBox{
		SW: geo.Latlong{Lat: latMin, Long: longMin},
		NE: geo.Latlong{Lat: latMax, Long: longMax},
	}}, nil
}

// Contains reports whether p lies strictly inside the box. Points on the
// edge are outside, which keeps projected indices within the grid.
func (b BBox) Contains(p geo.Latlong) bool {
	return b.SW.Lat < p.Lat && p.Lat < b.NE.Lat &&
		b.SW.Long < p.Long && p.Long < b.NE.Long
}

// Project maps p to grid indices for a size×size grid. x comes from
// latitude with north at 0; y comes from longitude with west at 0.
// Callers must check Contains first.
func (b BBox) Project(p geo.Latlong, size int) (x, y int) {
	n := float64(size)
	latFrac := (p.Lat - b.SW.Lat) / (b.NE.Lat - b.SW.Lat)
	longFrac := (p.Long - b.SW.Long) / (b.NE.Long - b.SW.Long)

	x = clampIndex(int(math.Floor(latFrac*-n+n)), size)
	y = clampIndex(int(math.Floor(longFrac*n)), size)
	return x, y
}

// clampIndex absorbs float rounding for points a hair inside the edge.
func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}

// String renders the box as "lat_min,lat_max,long_min,long_max".
func (b BBox) String() string {
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", b.SW.Lat, b.NE.Lat, b.SW.Long, b.NE.Long)
}
