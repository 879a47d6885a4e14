package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/skygrid/internal/track"
)

// TextLogTimeFormat is the timestamp layout at the start of each line.
const TextLogTimeFormat = "2006-01-02 15:04:05"

// TextLog appends one line per cycle:
//
//	2024-05-01 12:00:00 - 51.47 -0.45 (0.01, 0.99) - 51.5 -0.4 (0.36, 0.55)
//
// Tracks without a position are left out. Timestamps are written in
// Location, or the host's local zone when it is nil.
type TextLog struct {
	mu       sync.Mutex
	w        io.Writer
	c        io.Closer
	Location *time.Location
}

// NewTextLog writes lines to w.
func NewTextLog(w io.Writer) *TextLog {
	return &TextLog{w: w}
}

// OpenTextLog opens path for appending, creating it if needed.
func OpenTextLog(path string) (*TextLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open text log %s: %w", path, err)
	}
	return &TextLog{w: f, c: f}, nil
}

// Record writes the line for this snapshot.
func (l *TextLog) Record(_ context.Context, now time.Time, tracks []track.TrackView) error {
	if l.Location != nil {
		now = now.In(l.Location)
	} else {
		now = now.Local()
	}
	line := FormatLogLine(now, tracks)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, line+"\n"); err != nil {
		return fmt.Errorf("failed to write text log: %w", err)
	}
	return nil
}

// Close closes the underlying file, if TextLog opened one.
func (l *TextLog) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}

// FormatLogLine renders one log line without the trailing newline.
func FormatLogLine(now time.Time, tracks []track.TrackView) string {
	parts := []string{now.Format(TextLogTimeFormat)}
	for _, v := range tracks {
		if !v.HasPosition {
			continue
		}
		parts = append(parts, fmt.Sprintf("%v %v (%v, %v)",
			v.Position.Lat, v.Position.Long, v.Color.Hue, v.Color.Saturation))
	}
	return strings.Join(parts, " - ")
}
