package track

import (
	"github.com/skypies/geo"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/skygrid/internal/kalman"
)

// Smoother turns raw reported positions into the track's best estimate.
// raw is the newest report; reported holds the recent raw reports,
// oldest first, with raw as its last element.
type Smoother interface {
	Smooth(raw geo.Latlong, reported []geo.Latlong) geo.Latlong
}

// SmootherFactory builds a fresh Smoother for each new track.
type SmootherFactory func() Smoother

// MovingAverage averages the reported window. It absorbs single-report
// jitter without any tuning.
type MovingAverage struct{}

// Smooth returns the arithmetic mean of reported.
func (MovingAverage) Smooth(raw geo.Latlong, reported []geo.Latlong) geo.Latlong {
	if len(reported) == 0 {
		return raw
	}
	lats := make([]float64, len(reported))
	longs := make([]float64, len(reported))
	for i, p := range reported {
		lats[i] = p.Lat
		longs[i] = p.Long
	}
	return geo.Latlong{Lat: stat.Mean(lats, nil), Long: stat.Mean(longs, nil)}
}

// NewMovingAverage is a SmootherFactory for MovingAverage.
func NewMovingAverage() Smoother { return MovingAverage{} }

// KalmanSmoother runs a recursive filter per axis over the raw reports and
// ignores the reported window.
type KalmanSmoother struct {
	filter *kalman.Filter2D
}

// NewKalmanSmoother creates a filter-backed smoother. The first report seeds
// the estimate so a new track does not start at (0, 0).
func NewKalmanSmoother(processVariance, measurementVariance float64) *KalmanSmoother {
	return &KalmanSmoother{
		filter: kalman.New2D(processVariance, measurementVariance, kalman.WithSeedFromFirst()),
	}
}

// KalmanFactory returns a SmootherFactory with fixed tuning.
func KalmanFactory(processVariance, measurementVariance float64) SmootherFactory {
	return func() Smoother {
		return NewKalmanSmoother(processVariance, measurementVariance)
	}
}

// Smooth feeds raw into the filter and returns the new estimate.
func (k *KalmanSmoother) Smooth(raw geo.Latlong, _ []geo.Latlong) geo.Latlong {
	k.filter.Observe(raw.Lat, raw.Long)
	lat, long := k.filter.Estimate()
	return geo.Latlong{Lat: lat, Long: long}
}

// ErrorEstimate exposes the filter's per-axis uncertainty.
func (k *KalmanSmoother) ErrorEstimate() (float64, float64) {
	return k.filter.ErrorEstimate()
}
