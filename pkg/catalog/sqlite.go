// Package catalog records per-scene segmentation statistics in a SQLite file
// so that batch runs can be compared later.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"waterseg/pkg/segmentation"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenes (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT    NOT NULL,
	input           TEXT    NOT NULL,
	output          TEXT    NOT NULL,
	created_at      INTEGER NOT NULL,
	ndwi_min        REAL    NOT NULL,
	ndwi_max        REAL    NOT NULL,
	mndwi_min       REAL    NOT NULL,
	mndwi_max       REAL    NOT NULL,
	ndwi_threshold  REAL    NOT NULL,
	mndwi_threshold REAL    NOT NULL,
	valid_pixels    INTEGER NOT NULL,
	water_pixels    INTEGER NOT NULL,
	water_fraction  REAL    NOT NULL,
	elapsed_ms      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scenes_run_id ON scenes(run_id);
`

// Entry is one recorded scene
type Entry struct {
	RunID     uuid.UUID
	Input     string
	Output    string
	CreatedAt time.Time
	Stats     segmentation.SceneStats
}

// Catalog is a SQLite-backed store of scene entries
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the catalog at dbPath. ":memory:" gives a private
// in-memory catalog.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Batch workers record concurrently; one connection serializes the writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	return &Catalog{db: db, dbPath: dbPath}, nil
}

// Close closes the database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record inserts one entry. A zero CreatedAt is replaced by the current time.
func (c *Catalog) Record(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s := e.Stats

	_, err := c.db.Exec(`
		INSERT INTO scenes (
			run_id, input, output, created_at,
			ndwi_min, ndwi_max, mndwi_min, mndwi_max,
			ndwi_threshold, mndwi_threshold,
			valid_pixels, water_pixels, water_fraction, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID.String(), e.Input, e.Output, e.CreatedAt.UnixMilli(),
		s.NDWIMin, s.NDWIMax, s.MNDWIMin, s.MNDWIMax,
		s.NDWIThreshold, s.MNDWIThreshold,
		s.ValidPixels, s.WaterPixels, s.WaterFraction, s.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record scene %s: %w", e.Input, err)
	}
	return nil
}

// Run returns the entries of one batch run in insertion order
func (c *Catalog) Run(runID uuid.UUID) ([]Entry, error) {
	rows, err := c.db.Query(`
		SELECT run_id, input, output, created_at,
		       ndwi_min, ndwi_max, mndwi_min, mndwi_max,
		       ndwi_threshold, mndwi_threshold,
		       valid_pixels, water_pixels, water_fraction, elapsed_ms
		FROM scenes
		WHERE run_id = ?
		ORDER BY id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			id        string
			createdAt int64
			elapsedMs int64
		)
		err := rows.Scan(
			&id, &e.Input, &e.Output, &createdAt,
			&e.Stats.NDWIMin, &e.Stats.NDWIMax, &e.Stats.MNDWIMin, &e.Stats.MNDWIMax,
			&e.Stats.NDWIThreshold, &e.Stats.MNDWIThreshold,
			&e.Stats.ValidPixels, &e.Stats.WaterPixels, &e.Stats.WaterFraction, &elapsedMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scene row: %w", err)
		}
		if e.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		e.Stats.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
