package pipeline

import (
	"fmt"
	"time"

	"github.com/skypies/geo"

	"github.com/banshee-data/skygrid/internal/config"
	"github.com/banshee-data/skygrid/internal/feed"
	"github.com/banshee-data/skygrid/internal/grid"
	"github.com/banshee-data/skygrid/internal/httputil"
	"github.com/banshee-data/skygrid/internal/timeutil"
	"github.com/banshee-data/skygrid/internal/track"
)

// HomeID is the registry id of the seeded home marker.
const HomeID = config.HomeID

// TrackOptions maps the config onto track options, choosing the smoother.
func TrackOptions(cfg *config.Config) (track.Options, error) {
	opts := track.DefaultOptions()
	opts.ReportedCapacity = cfg.GetReportedCapacity()
	opts.HistoryCapacity = cfg.GetHistoryCapacity()

	switch cfg.GetSmoothing() {
	case config.SmoothingMovingAverage:
		opts.NewSmoother = track.NewMovingAverage
	case config.SmoothingKalman:
		opts.NewSmoother = track.KalmanFactory(cfg.GetProcessVariance(), cfg.GetMeasurementVariance())
	default:
		return track.Options{}, fmt.Errorf("unknown smoothing strategy %q", cfg.GetSmoothing())
	}
	return opts, nil
}

// NewPainter builds the renderer for the configured bbox and wraps it in the
// configured render policy.
func NewPainter(cfg *config.Config) (grid.Painter, error) {
	bbox, err := grid.NewBBox(cfg.GetLatMin(), cfg.GetLatMax(), cfg.GetLongMin(), cfg.GetLongMax())
	if err != nil {
		return nil, err
	}
	r, err := grid.NewRenderer(bbox, cfg.GetGridSize(), cfg.GetMinAltitude())
	if err != nil {
		return nil, err
	}
	return grid.NewPainter(cfg.GetRenderPolicy(), r)
}

// NewRegistry creates the registry and seeds the home marker followed by the
// configured static points.
func NewRegistry(cfg *config.Config, clock timeutil.Clock) (*track.Registry, error) {
	opts, err := TrackOptions(cfg)
	if err != nil {
		return nil, err
	}
	reg := track.NewRegistry(opts, clock)

	home := geo.Latlong{Lat: cfg.GetHomeLat(), Long: cfg.GetHomeLong()}
	if err := reg.Seed(HomeID, home); err != nil {
		return nil, err
	}
	for _, p := range cfg.StaticPoints {
		if err := reg.Seed(p.ID, geo.Latlong{Lat: p.Lat, Long: p.Long}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// FromConfig assembles a pipeline reading from source. Sinks are added by
// the caller.
func FromConfig(cfg *config.Config, source feed.Source, clock timeutil.Clock) (*Pipeline, error) {
	reg, err := NewRegistry(cfg, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	painter, err := NewPainter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build renderer: %w", err)
	}

	p := New(source, reg, painter, clock)
	p.StaleAfter = cfg.GetStaleAfter()
	p.PollInterval = cfg.GetPollInterval()
	p.RetryInterval = cfg.GetRetryInterval()
	return p, nil
}

// FeedTimeout bounds a single feed request.
const FeedTimeout = 10 * time.Second

// NewFeed builds the feed client for the configured home and radius.
func NewFeed(cfg *config.Config) *feed.Client {
	home := geo.Latlong{Lat: cfg.GetHomeLat(), Long: cfg.GetHomeLong()}
	return feed.NewClient(cfg.GetFeedURL(), home, cfg.GetRadiusKM(), httputil.NewStandardClient(FeedTimeout))
}
