package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/skygrid/internal/track"
)

// TrackDB appends every cycle's snapshot to a SQLite track_log table. Rows
// carry a per-process run id so several runs can share one file. Nothing is
// ever read back into the registry.
type TrackDB struct {
	*sql.DB
	runID string
}

// OpenTrackDB opens or creates the database at path and brings its schema
// up to date.
func OpenTrackDB(path string) (*TrackDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track db %s: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure track db: %w", err)
	}

	t := &TrackDB{DB: db, runID: uuid.NewString()}
	if err := t.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

// RunID identifies this process's rows.
func (db *TrackDB) RunID() string { return db.runID }

// Record inserts one row per positioned track in a single transaction.
func (db *TrackDB) Record(ctx context.Context, now time.Time, tracks []track.TrackView) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin track_log insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO track_log (run_id, recorded_at, track_id, kind, lat, long, altitude, hue, saturation, origin, destination)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare track_log insert: %w", err)
	}
	defer stmt.Close()

	ts := now.UTC().Format(time.RFC3339Nano)
	for _, v := range tracks {
		if !v.HasPosition {
			continue
		}
		var alt sql.NullFloat64
		if v.Altitude != nil {
			alt = sql.NullFloat64{Float64: *v.Altitude, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, db.runID, ts, v.ID, v.Kind,
			v.Position.Lat, v.Position.Long, alt, v.Color.Hue, v.Color.Saturation,
			v.Origin, v.Destination); err != nil {
			return fmt.Errorf("failed to insert track %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track_log insert: %w", err)
	}
	return nil
}
