package pipeline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/skygrid/internal/config"
	"github.com/banshee-data/skygrid/internal/feed"
	"github.com/banshee-data/skygrid/internal/grid"
	"github.com/banshee-data/skygrid/internal/httputil"
	"github.com/banshee-data/skygrid/internal/testutil"
	"github.com/banshee-data/skygrid/internal/timeutil"
	"github.com/banshee-data/skygrid/internal/track"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const oneAircraft = `{"acList":[{"Reg":"G-EUUA","Lat":51.48,"Long":-0.40,"Type":"A320","Alt":3000}]}`

type captureRecorder struct {
	mu    sync.Mutex
	calls [][]track.TrackView
	times []time.Time
}

func (r *captureRecorder) Record(_ context.Context, now time.Time, tracks []track.TrackView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, tracks)
	r.times = append(r.times, now)
	return nil
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type failingDisplay struct{}

func (failingDisplay) Show(context.Context, *grid.Grid) error { return errors.New("panel unplugged") }

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSource) Fetch(context.Context) ([]track.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil, s.err
}

var _ feed.Source = (*countingSource)(nil)

func (s *countingSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestPipeline(t *testing.T, mock *httputil.MockHTTPClient, clock *timeutil.MockClock) *Pipeline {
	t.Helper()
	cfg := config.EmptyConfig()
	src := NewFeed(cfg)
	src.HTTP = mock

	p, err := FromConfig(cfg, src, clock)
	require.NoError(t, err)
	return p
}

func TestRunOnce_FeedToGrid(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, oneAircraft)
	p := newTestPipeline(t, mock, clock)
	rec := &captureRecorder{}
	p.AddRecorder(rec)

	c, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, track.BatchResult{Created: 1}, c.Batch)
	assert.Empty(t, c.Purged)
	assert.Equal(t, 2, c.Tracks)
	assert.Equal(t, t0, c.At)

	lit := c.Grid.Lit()
	require.Len(t, lit, 2)
	var statics int
	for _, cell := range lit {
		if cell.Static {
			statics++
			assert.Equal(t, grid.StaticBrightness, cell.Brightness)
		} else {
			assert.Equal(t, grid.TrailHeadBrightness, cell.Brightness)
		}
	}
	assert.Equal(t, 1, statics)

	require.Equal(t, 1, rec.count())
	ids := []string{rec.calls[0][0].ID, rec.calls[0][1].ID}
	assert.ElementsMatch(t, []string{"G-EUUA", HomeID}, ids)

	assert.Same(t, c, p.Last())
	assert.Equal(t, Stats{Cycles: 1}, p.Stats())
}

func TestRunOnce_FeedErrorSkipsCycle(t *testing.T) {
	testutil.QuietLogs(t)
	clock := timeutil.NewMockClock(t0)
	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, oneAircraft).
		AddResponse(http.StatusServiceUnavailable, "")
	p := newTestPipeline(t, mock, clock)
	rec := &captureRecorder{}
	p.AddRecorder(rec)

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = p.RunOnce(context.Background())
	require.Error(t, err)

	// a skipped cycle does not purge, render or record
	_, ok := p.Registry.Get("G-EUUA")
	assert.True(t, ok)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, Stats{Cycles: 1, FeedErrors: 1}, p.Stats())
}

func TestProcess_PurgesStaleButKeepsHome(t *testing.T) {
	testutil.QuietLogs(t)
	clock := timeutil.NewMockClock(t0)
	p := newTestPipeline(t, httputil.NewMockHTTPClient(), clock)

	p.Process(context.Background(), []track.Update{
		{ID: "G-OLD", Latitude: track.Float(51.45), Longitude: track.Float(-0.5), Kind: track.String("B77W")},
	})
	clock.Advance(30 * time.Second)
	p.Process(context.Background(), []track.Update{
		{ID: "G-NEW", Latitude: track.Float(51.46), Longitude: track.Float(-0.3), Kind: track.String("A388")},
	})

	clock.Advance(20 * time.Second)
	c := p.Process(context.Background(), nil)

	assert.Equal(t, []string{"G-OLD"}, c.Purged)
	assert.Equal(t, 2, c.Tracks)
	_, ok := p.Registry.Get(HomeID)
	assert.True(t, ok)
}

func TestProcess_SinkErrorsDoNotStopCycle(t *testing.T) {
	testutil.QuietLogs(t)
	clock := timeutil.NewMockClock(t0)
	p := newTestPipeline(t, httputil.NewMockHTTPClient(), clock)
	rec := &captureRecorder{}
	p.AddDisplay(failingDisplay{})
	p.AddRecorder(rec)

	p.Process(context.Background(), nil)

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, Stats{Cycles: 1, SinkErrors: 1}, p.Stats())
}

func TestStep_WaitDependsOnFeed(t *testing.T) {
	testutil.QuietLogs(t)
	clock := timeutil.NewMockClock(t0)
	mock := httputil.NewMockHTTPClient().
		AddErrorResponse(errors.New("connection refused")).
		AddResponse(http.StatusOK, `{"acList":[]}`)
	p := newTestPipeline(t, mock, clock)
	p.PollInterval = 4 * time.Second
	p.RetryInterval = 2 * time.Second

	assert.Equal(t, 2*time.Second, p.Step(context.Background()))
	assert.Equal(t, 4*time.Second, p.Step(context.Background()))
	assert.Equal(t, 2, mock.RequestCount())
}

func TestRun_LoopsUntilCancelled(t *testing.T) {
	testutil.QuietLogs(t)
	clock := timeutil.NewMockClock(t0)
	src := &countingSource{}
	reg := track.NewRegistry(track.DefaultOptions(), clock)
	bbox, err := grid.NewBBox(0, 16, 0, 16)
	require.NoError(t, err)
	r, err := grid.NewRenderer(bbox, 16, grid.DefaultMinAltitude)
	require.NoError(t, err)

	p := New(src, reg, r, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for want := 2; want <= 3; want++ {
		require.Eventually(t, func() bool { return clock.Pending() == 1 }, 2*time.Second, time.Millisecond,
			"loop should park on its poll timer")
		clock.Advance(p.PollInterval)
		require.Eventually(t, func() bool { return src.count() >= want }, 2*time.Second, time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ReturnsImmediatelyWhenCancelled(t *testing.T) {
	src := &countingSource{}
	bbox, err := grid.NewBBox(0, 1, 0, 1)
	require.NoError(t, err)
	r, err := grid.NewRenderer(bbox, 1, 0)
	require.NoError(t, err)
	p := New(src, track.NewRegistry(track.DefaultOptions(), nil), r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
	assert.Equal(t, 0, src.count())
}
