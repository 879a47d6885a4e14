package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/skygrid/internal/grid"
	"github.com/banshee-data/skygrid/internal/track"
	"github.com/banshee-data/skygrid/internal/units"
)

// ConsoleDisplay prints the grid as 24-bit ANSI block art and lists the
// aircraft currently tracked.
type ConsoleDisplay struct {
	mu sync.Mutex
	w  io.Writer
	// Plain drops the colour escapes, for terminals and logs that lack them.
	Plain bool
	// Units is the altitude unit for the track list; empty means feet.
	Units string
}

// NewConsoleDisplay writes to w.
func NewConsoleDisplay(w io.Writer) *ConsoleDisplay {
	return &ConsoleDisplay{w: w}
}

// Show draws the grid with row 0 (north) at the top.
func (d *ConsoleDisplay) Show(_ context.Context, g *grid.Grid) error {
	var b strings.Builder
	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			c := g.At(x, y)
			switch {
			case !c.Lit():
				b.WriteString("  ")
			case d.Plain:
				b.WriteString("##")
			default:
				rgb := CellColor(c)
				fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm██\x1b[0m", rgb.R, rgb.G, rgb.B)
			}
		}
		b.WriteByte('\n')
	}
	return d.write(b.String())
}

// Record lists every non-static track with its route, type, altitude and
// how long ago it was last heard.
func (d *ConsoleDisplay) Record(_ context.Context, now time.Time, tracks []track.TrackView) error {
	var b strings.Builder
	for _, v := range tracks {
		if v.IsStatic() {
			continue
		}
		alt := "unknown"
		if v.Altitude != nil {
			u := d.Units
			if u == "" {
				u = units.Feet
			}
			alt = fmt.Sprintf("%.0f %s", units.ConvertAltitude(*v.Altitude, u), u)
		}
		fmt.Fprintf(&b, "%s\n", v.ID)
		fmt.Fprintf(&b, "From: %s\n", v.Origin)
		fmt.Fprintf(&b, "To: %s\n", v.Destination)
		fmt.Fprintf(&b, "Type: %s\n", v.Kind)
		fmt.Fprintf(&b, "Altitude: %s\n", alt)
		fmt.Fprintf(&b, "Last Info: %.2f seconds ago\n\n", now.Sub(v.LastSeen).Seconds())
	}
	return d.write(b.String())
}

func (d *ConsoleDisplay) write(s string) error {
	if s == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := io.WriteString(d.w, s); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}
