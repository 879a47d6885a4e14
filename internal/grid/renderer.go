package grid

import (
	"fmt"

	"github.com/banshee-data/skygrid/internal/track"
)

// Render constants.
const (
	DefaultSize         = 16
	DefaultMinAltitude  = 50.0
	StaticBrightness    = 0.1
	TrailHeadBrightness = 1.0
	TrailFade           = 0.5
)

// Painter produces one grid per pipeline cycle.
type Painter interface {
	Paint(tracks []track.TrackView) *Grid
}

// Renderer draws a fresh grid from each snapshot. It keeps no state
// between frames.
type Renderer struct {
	BBox        BBox
	Size        int
	MinAltitude float64
}

// NewRenderer validates the geometry once so per-frame rendering cannot
// divide by zero.
func NewRenderer(bbox BBox, size int, minAltitude float64) (*Renderer, error) {
	if size < 1 {
		return nil, fmt.Errorf("grid size must be positive, got %d", size)
	}
	if !(bbox.SW.Lat < bbox.NE.Lat) || !(bbox.SW.Long < bbox.NE.Long) {
		return nil, fmt.Errorf("renderer: %w", ErrDegenerateBBox)
	}
	return &Renderer{BBox: bbox, Size: size, MinAltitude: minAltitude}, nil
}

// Paint implements Painter.
func (r *Renderer) Paint(tracks []track.TrackView) *Grid {
	return r.Render(tracks)
}

// Render draws static markers first, then each live trail newest to
// oldest. Brightness halves per history slot whether or not the slot was
// drawn, and a cell only ever gets brighter within a frame.
func (r *Renderer) Render(tracks []track.TrackView) *Grid {
	g := New(r.Size)

	for _, t := range tracks {
		if !t.IsStatic() || !t.HasPosition || !r.BBox.Contains(t.Position) {
			continue
		}
		x, y := r.BBox.Project(t.Position, r.Size)
		g.Set(x, y, Cell{
			Hue:        t.Color.Hue,
			Saturation: t.Color.Saturation,
			Brightness: StaticBrightness,
			Static:     true,
		})
	}

	for _, t := range tracks {
		if t.IsStatic() {
			continue
		}
		visible := r.altitudeVisible(t)
		brightness := TrailHeadBrightness
		for i := len(t.History) - 1; i >= 0; i-- {
			p := t.History[i]
			if visible && r.BBox.Contains(p) {
				x, y := r.BBox.Project(p, r.Size)
				existing := g.At(x, y)
				if !existing.Static && brightness > existing.Brightness {
					g.Set(x, y, Cell{
						Hue:        t.Color.Hue,
						Saturation: t.Color.Saturation,
						Brightness: brightness,
					})
				}
			}
			brightness *= TrailFade
		}
	}

	return g
}

// altitudeVisible applies the current altitude to every trail point.
// Unknown altitude counts as high enough.
func (r *Renderer) altitudeVisible(t track.TrackView) bool {
	return t.Altitude == nil || *t.Altitude > r.MinAltitude
}
