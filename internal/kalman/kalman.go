// Package kalman implements the recursive position smoother used by tracks.
//
// The filter has no motion model: each observation is blended into the
// previous estimate with a gain derived from the running error estimate.
// One Filter handles one axis; Filter2D pairs two of them for lat/long.
package kalman

// Filter is a scalar recursive estimator.
type Filter struct {
	processVariance     float64
	measurementVariance float64

	estimate      float64
	errorEstimate float64
	gain          float64
	observations  int

	seedFromFirst bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithSeedFromFirst makes the first observation become the estimate
// directly instead of being blended with the zero prior.
func WithSeedFromFirst() Option {
	return func(f *Filter) { f.seedFromFirst = true }
}

// WithInitialEstimate sets the prior estimate (default 0).
func WithInitialEstimate(v float64) Option {
	return func(f *Filter) { f.estimate = v }
}

// New creates a filter with the given process variance (how far the true
// value may drift per step) and measurement variance (sensor noise).
// The error estimate starts at 1.
func New(processVariance, measurementVariance float64, opts ...Option) *Filter {
	f := &Filter{
		processVariance:     processVariance,
		measurementVariance: measurementVariance,
		errorEstimate:       1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Observe folds a measurement into the estimate.
// NaN or infinite input propagates into the state; callers must validate.
func (f *Filter) Observe(measurement float64) {
	if f.seedFromFirst && f.observations == 0 {
		f.estimate = measurement
	}
	f.observations++

	prioriEstimate := f.estimate
	prioriError := f.errorEstimate + f.processVariance

	f.gain = prioriError / (prioriError + f.measurementVariance)
	f.estimate = prioriEstimate + f.gain*(measurement-prioriEstimate)
	f.errorEstimate = (1 - f.gain) * prioriError
}

// Estimate returns the current best value.
func (f *Filter) Estimate() float64 { return f.estimate }

// ErrorEstimate returns the current uncertainty.
func (f *Filter) ErrorEstimate() float64 { return f.errorEstimate }

// Gain returns the blending factor applied by the last Observe call.
func (f *Filter) Gain() float64 { return f.gain }

// Observations returns how many measurements have been folded in.
func (f *Filter) Observations() int { return f.observations }

// Filter2D runs two independent scalar filters, one per coordinate axis.
type Filter2D struct {
	X *Filter
	Y *Filter
}

// New2D creates a pair of filters sharing the same tuning.
func New2D(processVariance, measurementVariance float64, opts ...Option) *Filter2D {
	return &Filter2D{
		X: New(processVariance, measurementVariance, opts...),
		Y: New(processVariance, measurementVariance, opts...),
	}
}

// Observe folds a two-axis measurement into both filters.
func (f *Filter2D) Observe(x, y float64) {
	f.X.Observe(x)
	f.Y.Observe(y)
}

// Estimate returns both axis estimates.
func (f *Filter2D) Estimate() (float64, float64) {
	return f.X.Estimate(), f.Y.Estimate()
}

// ErrorEstimate returns both axis error estimates.
func (f *Filter2D) ErrorEstimate() (float64, float64) {
	return f.X.ErrorEstimate(), f.Y.ErrorEstimate()
}
