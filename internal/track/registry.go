package track

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skypies/geo"

	"github.com/banshee-data/skygrid/internal/monitoring"
	"github.com/banshee-data/skygrid/internal/timeutil"
)

// DefaultStaleAfter is how long a live track survives without a report.
const DefaultStaleAfter = 45 * time.Second

// Outcome describes what Reconcile did with a record.
type Outcome int

const (
	Discarded Outcome = iota // No usable identity
	Created                  // First sighting
	Updated                  // Merged into an existing track
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "discarded"
	}
}

// BatchResult counts the outcomes of one ReconcileBatch call.
type BatchResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Discarded int `json:"discarded"`
}

// Stats are running totals since the registry was created.
type Stats struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Discarded int `json:"discarded"`
	Purged    int `json:"purged"`
}

// Registry maps track identity to Track. One goroutine writes; snapshots
// may be taken concurrently.
type Registry struct {
	mu     sync.RWMutex
	tracks map[string]*Track
	opts   Options
	clock  timeutil.Clock
	stats  Stats
}

// NewRegistry creates an empty registry. A nil clock uses the real clock.
func NewRegistry(opts Options, clock timeutil.Clock) *Registry {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Registry{
		tracks: make(map[string]*Track),
		opts:   opts.withDefaults(),
		clock:  clock,
	}
}

// Seed adds a static reference point. Seeding an id twice is an error.
func (r *Registry) Seed(id string, pos geo.Latlong) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id = strings.TrimSpace(id)
	if _, exists := r.tracks[id]; exists {
		return fmt.Errorf("seed %q: already registered", id)
	}
	t, err := NewStatic(id, pos, r.opts, r.clock.Now())
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	r.tracks[t.ID] = t
	return nil
}

// Reconcile applies u to the matching track, creating one on first sighting.
// Records without an identity are logged and dropped.
func (r *Registry) Reconcile(u Update) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconcileLocked(u, r.clock.Now())
}

// ReconcileBatch reconciles every record in order under a single lock.
// An empty batch is valid and changes nothing.
func (r *Registry) ReconcileBatch(updates []Update) BatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res BatchResult
	now := r.clock.Now()
	for _, u := range updates {
		switch r.reconcileLocked(u, now) {
		case Created:
			res.Created++
		case Updated:
			res.Updated++
		default:
			res.Discarded++
		}
	}
	return res
}

func (r *Registry) reconcileLocked(u Update, now time.Time) Outcome {
	id := strings.TrimSpace(u.ID)
	if id == "" {
		r.stats.Discarded++
		monitoring.Warnf("discarding feed record without id (kind=%s)", deref(u.Kind))
		return Discarded
	}

	if t, ok := r.tracks[id]; ok {
		t.Apply(u, now)
		r.stats.Updated++
		return Updated
	}

	t, err := New(id, "", u, r.opts, now)
	if err != nil {
		r.stats.Discarded++
		monitoring.Warnf("discarding feed record %q: %v", id, err)
		return Discarded
	}
	r.tracks[id] = t
	r.stats.Created++
	return Created
}

// Purge removes every live track with now-LastSeen >= staleAfter and
// returns the removed ids in sorted order. Static tracks are never purged.
func (r *Registry) Purge(now time.Time, staleAfter time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, t := range r.tracks {
		if t.IsStatic() {
			continue
		}
		if now.Sub(t.LastSeen) >= staleAfter {
			delete(r.tracks, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	r.stats.Purged += len(removed)
	return removed
}

// Snapshot returns detached copies of every track, sorted by id.
func (r *Registry) Snapshot() []TrackView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]TrackView, 0, len(r.tracks))
	for _, t := range r.tracks {
		views = append(views, t.View())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Get returns a copy of the track with the given id.
func (r *Registry) Get(id string) (TrackView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tracks[id]
	if !ok {
		return TrackView{}, false
	}
	return t.View(), true
}

// Len returns the number of tracks, static points included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracks)
}

// Stats returns the running totals.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}
