package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/skygrid/internal/grid"
	"github.com/banshee-data/skygrid/internal/httputil"
)

// ChartHandler keeps the latest grid and serves it as an HTML scatter chart.
type ChartHandler struct {
	mu      sync.RWMutex
	latest  *grid.Grid
	updated time.Time
	now     func() time.Time
}

// NewChartHandler returns a handler with no frame yet.
func NewChartHandler() *ChartHandler {
	return &ChartHandler{now: time.Now}
}

// Show stores a copy of g for the next request.
func (h *ChartHandler) Show(_ context.Context, g *grid.Grid) error {
	c := g.Clone()
	h.mu.Lock()
	h.latest = c
	h.updated = h.now()
	h.mu.Unlock()
	return nil
}

// Latest returns the stored grid, or nil before the first frame.
func (h *ChartHandler) Latest() *grid.Grid {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

func (h *ChartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	h.mu.RLock()
	g, updated := h.latest, h.updated
	h.mu.RUnlock()
	if g == nil {
		httputil.NotFound(w, "no grid rendered yet")
		return
	}

	lit := g.Lit()
	data := make([]opts.ScatterData, 0, len(lit))
	for _, c := range lit {
		data = append(data, opts.ScatterData{
			Name:  fmt.Sprintf("(%d,%d) h=%.2f s=%.2f", c.X, c.Y, c.Hue, c.Saturation),
			Value: []interface{}{c.Y, g.Size - 1 - c.X, c.Brightness},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "skygrid", Theme: "dark", Width: "640px", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{Title: "Aircraft Grid", Subtitle: fmt.Sprintf("lit=%d updated=%s", len(lit), updated.Format(time.RFC3339))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -1, Max: g.Size, Name: "column"}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: g.Size, Name: "row"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#1a1a1a", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("grid", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 24}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
