// Package sink holds the consumers of each pipeline cycle: displays that
// draw the rendered grid and recorders that log the track snapshot.
package sink

import (
	"context"
	"image/color"
	"math"
	"time"

	"github.com/banshee-data/skygrid/internal/grid"
	"github.com/banshee-data/skygrid/internal/track"
)

// Display draws one rendered grid.
type Display interface {
	Show(ctx context.Context, g *grid.Grid) error
}

// Recorder logs one registry snapshot taken at now.
type Recorder interface {
	Record(ctx context.Context, now time.Time, tracks []track.TrackView) error
}

// HSVToRGB converts a cell's hue, saturation and brightness, each in [0,1],
// to an opaque RGBA colour. Hue wraps.
func HSVToRGB(h, s, v float64) color.RGBA {
	h = h - math.Floor(h)
	s = clamp01(s)
	v = clamp01(v)

	var r, g, b float64
	if s == 0 {
		r, g, b = v, v, v
	} else {
		i := math.Floor(h * 6)
		f := h*6 - i
		p := v * (1 - s)
		q := v * (1 - s*f)
		t := v * (1 - s*(1-f))
		switch int(i) % 6 {
		case 0:
			r, g, b = v, t, p
		case 1:
			r, g, b = q, v, p
		case 2:
			r, g, b = p, v, t
		case 3:
			r, g, b = p, q, v
		case 4:
			r, g, b = t, p, v
		default:
			r, g, b = v, p, q
		}
	}
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

// CellColor is HSVToRGB applied to a grid cell.
func CellColor(c grid.Cell) color.RGBA {
	return HSVToRGB(c.Hue, c.Saturation, c.Brightness)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func to8(x float64) uint8 {
	return uint8(math.Round(x * 255))
}
