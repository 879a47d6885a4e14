package track

import (
	"errors"
	"strings"
	"time"

	"github.com/skypies/geo"
)

// ErrEmptyID is returned when a track is created without an identity.
var ErrEmptyID = errors.New("track id is empty")

// Default ring capacities.
const (
	DefaultReportedCapacity = 3
	DefaultHistoryCapacity  = 3
	MaxHistoryCapacity      = 16
)

// Options controls how tracks smooth and remember positions.
type Options struct {
	ReportedCapacity int             // Raw reports kept for the moving average
	HistoryCapacity  int             // Smoothed positions kept for the trail
	NewSmoother      SmootherFactory // Nil means MovingAverage
	Colors           *ColorTable     // Nil means DefaultColorTable
}

// DefaultOptions returns the moving-average configuration.
func DefaultOptions() Options {
	return Options{
		ReportedCapacity: DefaultReportedCapacity,
		HistoryCapacity:  DefaultHistoryCapacity,
		NewSmoother:      NewMovingAverage,
		Colors:           DefaultColorTable,
	}
}

func (o Options) withDefaults() Options {
	if o.ReportedCapacity < 1 {
		o.ReportedCapacity = DefaultReportedCapacity
	}
	if o.HistoryCapacity < 1 {
		o.HistoryCapacity = DefaultHistoryCapacity
	}
	if o.HistoryCapacity > MaxHistoryCapacity {
		o.HistoryCapacity = MaxHistoryCapacity
	}
	if o.NewSmoother == nil {
		o.NewSmoother = NewMovingAverage
	}
	if o.Colors == nil {
		o.Colors = DefaultColorTable
	}
	return o
}

// Track is the reconciled state of one aircraft or reference point.
type Track struct {
	ID   string
	Kind string

	// Position is the latest smoothed estimate and always equals the
	// newest history entry once HasPosition is true.
	Position    geo.Latlong
	HasPosition bool

	Altitude    *float64 // nil renders as if high enough
	Origin      *string
	Destination *string
	Model       *string
	Operator    *string

	Color    Color
	LastSeen time.Time

	lastRaw  *geo.Latlong
	reported *ring
	history  *ring
	smoother Smoother
	colors   *ColorTable
}

// New creates a track and applies the initial fields as its first update.
func New(id, kind string, initial Update, opts Options, now time.Time) (*Track, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}
	opts = opts.withDefaults()

	t := &Track{
		ID:       id,
		Kind:     kind,
		reported: newRing(opts.ReportedCapacity),
		history:  newRing(opts.HistoryCapacity),
		smoother: opts.NewSmoother(),
		colors:   opts.Colors,
	}
	t.Color = t.colors.Lookup(t.Kind)
	t.Apply(initial, now)
	return t, nil
}

// NewStatic creates a fixed reference point at pos with zero altitude.
func NewStatic(id string, pos geo.Latlong, opts Options, now time.Time) (*Track, error) {
	return New(id, KindStatic, Update{
		Latitude:  Float(pos.Lat),
		Longitude: Float(pos.Long),
		Altitude:  Float(0),
	}, opts, now)
}

// IsStatic reports whether the track is a fixed reference point.
func (t *Track) IsStatic() bool { return t.Kind == KindStatic }

// Apply merges u into the track. Nil or non-finite fields leave the
// current value untouched. When u carries a position the raw report is
// smoothed and appended to the trail. A static track keeps its kind.
func (t *Track) Apply(u Update, now time.Time) {
	if u.Kind != nil && *u.Kind != t.Kind && !t.IsStatic() {
		t.Kind = *u.Kind
		t.Color = t.colors.Lookup(t.Kind)
	}
	mergeString(&t.Origin, u.Origin)
	mergeString(&t.Destination, u.Destination)
	mergeString(&t.Model, u.Model)
	mergeString(&t.Operator, u.Operator)
	if alt := finite(u.Altitude); alt != nil {
		v := *alt
		t.Altitude = &v
	}

	if raw, ok := t.rawPosition(u); ok {
		t.lastRaw = &raw
		t.reported.push(raw)
		t.Position = t.smoother.Smooth(raw, t.reported.items())
		t.HasPosition = true
		t.history.push(t.Position)
	}

	t.LastSeen = now
}

// rawPosition combines the update's coordinates with the last raw report,
// so an update carrying only one axis still yields a position.
func (t *Track) rawPosition(u Update) (geo.Latlong, bool) {
	lat, long := finite(u.Latitude), finite(u.Longitude)
	if lat == nil && long == nil {
		return geo.Latlong{}, false
	}
	var raw geo.Latlong
	switch {
	case lat != nil && long != nil:
		raw = geo.Latlong{Lat: *lat, Long: *long}
	case t.lastRaw == nil:
		return geo.Latlong{}, false
	case lat != nil:
		raw = geo.Latlong{Lat: *lat, Long: t.lastRaw.Long}
	default:
		raw = geo.Latlong{Lat: t.lastRaw.Lat, Long: *long}
	}
	return raw, true
}

// History returns the smoothed trail, oldest first.
func (t *Track) History() []geo.Latlong { return t.history.items() }

// Reported returns the raw reports in the smoothing window, oldest first.
func (t *Track) Reported() []geo.Latlong { return t.reported.items() }

// View returns a detached copy for rendering and logging.
func (t *Track) View() TrackView {
	v := TrackView{
		ID:          t.ID,
		Kind:        t.Kind,
		Position:    t.Position,
		HasPosition: t.HasPosition,
		History:     t.history.items(),
		Color:       t.Color,
		LastSeen:    t.LastSeen,
		Origin:      deref(t.Origin),
		Destination: deref(t.Destination),
		Model:       deref(t.Model),
		Operator:    deref(t.Operator),
	}
	if t.Altitude != nil {
		alt := *t.Altitude
		v.Altitude = &alt
	}
	return v
}

// TrackView is an immutable snapshot of a Track.
type TrackView struct {
	ID          string
	Kind        string
	Position    geo.Latlong
	HasPosition bool
	History     []geo.Latlong // oldest first
	Altitude    *float64
	Origin      string
	Destination string
	Model       string
	Operator    string
	Color       Color
	LastSeen    time.Time
}

// IsStatic reports whether the view is of a fixed reference point.
func (v TrackView) IsStatic() bool { return v.Kind == KindStatic }

func mergeString(dst **string, src *string) {
	if src == nil {
		return
	}
	s := *src
	*dst = &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ring keeps the newest cap positions, dropping the oldest on overflow.
type ring struct {
	buf   []geo.Latlong
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]geo.Latlong, capacity)}
}

func (r *ring) push(p geo.Latlong) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = p
		r.n++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) items() []geo.Latlong {
	out := make([]geo.Latlong, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
