// Package pipeline runs the poll loop: fetch a batch from the feed, reconcile
// it into the registry, purge stale tracks, render the grid and hand the
// result to every sink.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/skygrid/internal/feed"
	"github.com/banshee-data/skygrid/internal/grid"
	"github.com/banshee-data/skygrid/internal/monitoring"
	"github.com/banshee-data/skygrid/internal/sink"
	"github.com/banshee-data/skygrid/internal/timeutil"
	"github.com/banshee-data/skygrid/internal/track"
)

// Default loop timings.
const (
	DefaultPollInterval  = 4 * time.Second
	DefaultRetryInterval = 2 * time.Second
)

// Cycle summarises one completed pass.
type Cycle struct {
	At     time.Time
	Batch  track.BatchResult
	Purged []string
	Tracks int
	Grid   *grid.Grid
}

// Stats counts loop activity since start.
type Stats struct {
	Cycles     int `json:"cycles"`
	FeedErrors int `json:"feed_errors"`
	SinkErrors int `json:"sink_errors"`
}

// Pipeline owns the loop. The registry is shared so the debug server can
// read snapshots; everything else is touched only by the loop goroutine.
type Pipeline struct {
	Source   feed.Source
	Registry *track.Registry
	Painter  grid.Painter
	Clock    timeutil.Clock

	StaleAfter    time.Duration
	PollInterval  time.Duration
	RetryInterval time.Duration

	Displays  []sink.Display
	Recorders []sink.Recorder

	mu    sync.RWMutex
	last  *Cycle
	stats Stats
}

// New returns a pipeline with default timings. A nil clock uses the real clock.
func New(source feed.Source, registry *track.Registry, painter grid.Painter, clock timeutil.Clock) *Pipeline {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Pipeline{
		Source:        source,
		Registry:      registry,
		Painter:       painter,
		Clock:         clock,
		StaleAfter:    track.DefaultStaleAfter,
		PollInterval:  DefaultPollInterval,
		RetryInterval: DefaultRetryInterval,
	}
}

// AddDisplay registers a grid consumer.
func (p *Pipeline) AddDisplay(d sink.Display) { p.Displays = append(p.Displays, d) }

// AddRecorder registers a snapshot consumer.
func (p *Pipeline) AddRecorder(r sink.Recorder) { p.Recorders = append(p.Recorders, r) }

// RunOnce fetches one batch and, if that succeeds, runs a full cycle.
// A feed error skips the cycle entirely: nothing is reconciled or purged.
func (p *Pipeline) RunOnce(ctx context.Context) (*Cycle, error) {
	updates, err := p.Source.Fetch(ctx)
	if err != nil {
		p.mu.Lock()
		p.stats.FeedErrors++
		p.mu.Unlock()
		return nil, err
	}
	return p.Process(ctx, updates), nil
}

// Process runs reconcile, purge, render and the sinks over one batch.
// Sink failures are logged and counted but do not stop the cycle.
func (p *Pipeline) Process(ctx context.Context, updates []track.Update) *Cycle {
	batch := p.Registry.ReconcileBatch(updates)
	now := p.Clock.Now()
	purged := p.Registry.Purge(now, p.StaleAfter)
	snapshot := p.Registry.Snapshot()
	g := p.Painter.Paint(snapshot)

	sinkErrors := 0
	for _, d := range p.Displays {
		if err := d.Show(ctx, g); err != nil {
			monitoring.Warnf("display failed: %v", err)
			sinkErrors++
		}
	}
	for _, r := range p.Recorders {
		if err := r.Record(ctx, now, snapshot); err != nil {
			monitoring.Warnf("recorder failed: %v", err)
			sinkErrors++
		}
	}

	c := &Cycle{
		At:     now,
		Batch:  batch,
		Purged: purged,
		Tracks: len(snapshot),
		Grid:   g,
	}

	p.mu.Lock()
	p.last = c
	p.stats.Cycles++
	p.stats.SinkErrors += sinkErrors
	p.mu.Unlock()
	return c
}

// Step runs one pass and returns how long to wait before the next one:
// the retry interval after a feed error, the poll interval otherwise.
func (p *Pipeline) Step(ctx context.Context) time.Duration {
	c, err := p.RunOnce(ctx)
	if err != nil {
		monitoring.Warnf("feed unavailable, retrying in %s: %v", p.RetryInterval, err)
		return p.RetryInterval
	}
	if len(c.Purged) > 0 {
		monitoring.Logf("purged %d stale tracks: %v", len(c.Purged), c.Purged)
	}
	return p.PollInterval
}

// Run loops until ctx is cancelled. It returns ctx.Err().
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := p.Step(ctx)

		timer := p.Clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
	}
}

// Last returns the most recent completed cycle, or nil.
func (p *Pipeline) Last() *Cycle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Stats returns a copy of the loop counters.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}
