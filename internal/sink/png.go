package sink

import (
	"context"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/skygrid/internal/grid"
)

// PNGDisplay saves each grid as a PNG of coloured squares, overwriting the
// previous frame.
type PNGDisplay struct {
	Path string
	Side vg.Length
}

// NewPNGDisplay writes frames to path at a 4 inch square size.
func NewPNGDisplay(path string) *PNGDisplay {
	return &PNGDisplay{Path: path, Side: 4 * vg.Inch}
}

// Show renders g and saves it.
func (d *PNGDisplay) Show(_ context.Context, g *grid.Grid) error {
	p, err := GridPlot(g)
	if err != nil {
		return err
	}
	if err := p.Save(d.Side, d.Side, d.Path); err != nil {
		return fmt.Errorf("failed to save grid png %s: %w", d.Path, err)
	}
	return nil
}

// GridPlot builds the plot for g. Grid row x is drawn at height Size-1-x so
// north stays at the top.
func GridPlot(g *grid.Grid) (*plot.Plot, error) {
	p := plot.New()
	p.BackgroundColor = color.Black
	p.HideAxes()
	p.X.Min, p.X.Max = -0.5, float64(g.Size)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(g.Size)-0.5

	lit := g.Lit()
	if len(lit) == 0 {
		return p, nil
	}

	pts := make(plotter.XYs, len(lit))
	for i, c := range lit {
		pts[i] = plotter.XY{X: float64(c.Y), Y: float64(g.Size - 1 - c.X)}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  CellColor(lit[i].Cell),
			Radius: vg.Points(6),
			Shape:  draw.BoxGlyph{},
		}
	}
	p.Add(scatter)
	return p, nil
}
