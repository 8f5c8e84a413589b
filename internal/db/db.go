package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS color_changes (
			id         INTEGER PRIMARY KEY,
			color      TEXT NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			changed_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create color_changes: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS cloud_events (
			id          INTEGER PRIMARY KEY,
			event_id    TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			source      TEXT NOT NULL,
			subject     TEXT NOT NULL DEFAULT '',
			data        TEXT NOT NULL DEFAULT '',
			occurred_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create cloud_events: %w", err)
	}

	if _, err := d.sql.Exec(`CREATE INDEX IF NOT EXISTS idx_cloud_events_occurred ON cloud_events(occurred_at DESC)`); err != nil {
		return fmt.Errorf("index cloud_events: %w", err)
	}
	return nil
}

// InsertColorChange records a color change and returns the stored row.
func (d *DB) InsertColorChange(color, source string, at time.Time) (*ColorChange, error) {
	res, err := d.sql.Exec(
		`INSERT INTO color_changes (color, source, changed_at) VALUES (?, ?, ?)`,
		color, source, at.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert color change: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &ColorChange{ID: id, Color: color, Source: source, ChangedAt: time.UnixMilli(at.UnixMilli())}, nil
}

// CurrentColor returns the latest change. An empty store gets a
// DefaultColor row, which is returned.
func (d *DB) CurrentColor() (*ColorChange, error) {
	_, err := d.sql.Exec(`
		INSERT INTO color_changes (color, source, changed_at)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM color_changes)`,
		DefaultColor, DefaultSource, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	row := d.sql.QueryRow(`
		SELECT id, color, source, changed_at
		FROM color_changes ORDER BY changed_at DESC, id DESC LIMIT 1`)
	return scanColorChange(row)
}

// History returns up to limit changes, newest first. limit <= 0 means all.
func (d *DB) History(limit int) ([]ColorChange, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.sql.Query(`
		SELECT id, color, source, changed_at
		FROM color_changes ORDER BY changed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ColorChange
	for rows.Next() {
		c, err := scanColorChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (d *DB) InsertEvent(e *CloudEvent) error {
	res, err := d.sql.Exec(`
		INSERT INTO cloud_events (event_id, event_type, source, subject, data, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, e.EventType, e.Source, e.Subject, e.Data, e.OccurredAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// ListEvents returns up to limit events, newest first. limit <= 0 means all.
func (d *DB) ListEvents(limit int) ([]CloudEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.sql.Query(`
		SELECT id, event_id, event_type, source, subject, data, occurred_at
		FROM cloud_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []CloudEvent
	for rows.Next() {
		var e CloudEvent
		var ts int64
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.Source, &e.Subject, &e.Data, &ts); err != nil {
			return nil, err
		}
		e.OccurredAt = time.UnixMilli(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// rowScanner is implemented by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanColorChange(row rowScanner) (*ColorChange, error) {
	var c ColorChange
	var ts int64
	if err := row.Scan(&c.ID, &c.Color, &c.Source, &ts); err != nil {
		return nil, err
	}
	c.ChangedAt = time.UnixMilli(ts)
	return &c, nil
}
