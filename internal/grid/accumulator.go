package grid

import (
	"fmt"
	"strings"

	"github.com/banshee-data/skygrid/internal/track"
)

// Render policies.
const (
	PolicyRebuild = "rebuild"
	PolicyDecay   = "decay"
)

// Decay defaults for the accumulating policy.
const (
	DefaultDecayDivisor = 1.8
	DefaultDecayFloor   = 0.1
)

// Accumulator keeps a persistent buffer: each frame divides every cell's
// brightness by Divisor, clears cells that fall below Floor, then merges
// the fresh render so a cell only takes a new value if it is at least as
// bright. Static markers are always rewritten.
type Accumulator struct {
	renderer *Renderer
	buf      *Grid
	Divisor  float64
	Floor    float64
}

// NewAccumulator wraps r with the decaying policy.
func NewAccumulator(r *Renderer, divisor, floor float64) (*Accumulator, error) {
	if divisor <= 1 {
		return nil, fmt.Errorf("decay divisor must be greater than 1, got %v", divisor)
	}
	if floor < 0 {
		return nil, fmt.Errorf("decay floor must not be negative, got %v", floor)
	}
	return &Accumulator{
		renderer: r,
		buf:      New(r.Size),
		Divisor:  divisor,
		Floor:    floor,
	}, nil
}

// Paint implements Painter. The returned grid is a copy of the buffer.
func (a *Accumulator) Paint(tracks []track.TrackView) *Grid {
	for i := range a.buf.Cells {
		c := &a.buf.Cells[i]
		c.Brightness /= a.Divisor
		if c.Brightness < a.Floor {
			*c = Cell{}
		}
	}

	fresh := a.renderer.Render(tracks)
	for i, c := range fresh.Cells {
		if !c.Lit() {
			continue
		}
		if c.Static || c.Brightness >= a.buf.Cells[i].Brightness {
			a.buf.Cells[i] = c
		}
	}
	return a.buf.Clone()
}

// Reset clears the buffer.
func (a *Accumulator) Reset() {
	a.buf = New(a.renderer.Size)
}

// NewPainter returns the Painter for policy: "rebuild" (default) or "decay".
func NewPainter(policy string, r *Renderer) (Painter, error) {
	switch strings.ToLower(policy) {
	case "", PolicyRebuild:
		return r, nil
	case PolicyDecay:
		return NewAccumulator(r, DefaultDecayDivisor, DefaultDecayFloor)
	default:
		return nil, fmt.Errorf("unknown render policy %q", policy)
	}
}
