package store

import (
	"database/sql"
	"fmt"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
)

// InsertEvent appends a raw event to the append-only log and returns its
// assigned id. Nothing here performs quality gating or extraction; it is
// purely durable capture. No code path in this module writes or consumes
// events: auto_learn extracts directly from its text argument.
func (d *DB) InsertEvent(event memtypes.Event) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "InsertEvent")
	defer timer.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.conn.Exec(`
		INSERT INTO events (event_type, source, content, diff, file, metadata, timestamp, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		event.EventType, event.Source, event.Content, nullableString(event.Diff),
		nullableString(event.File), nullableString(event.Metadata), event.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// MarkEventProcessed flags an event as consumed by the extraction pipeline,
// idempotent on repeat calls.
func (d *DB) MarkEventProcessed(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`UPDATE events SET processed = 1 WHERE id = ?`, id)
	return err
}

// UnprocessedEvents returns up to limit events with processed = 0, oldest
// first, for the extraction pipeline to consume in order.
func (d *DB) UnprocessedEvents(limit int) ([]memtypes.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.conn.Query(`
		SELECT id, event_type, source, content, diff, file, metadata, timestamp, processed
		FROM events WHERE processed = 0 ORDER BY timestamp ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unprocessed events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]memtypes.Event, error) {
	var events []memtypes.Event
	for rows.Next() {
		var e memtypes.Event
		var diff, file, metadata sql.NullString
		var processed int
		if err := rows.Scan(&e.ID, &e.EventType, &e.Source, &e.Content, &diff, &file, &metadata, &e.Timestamp, &processed); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Diff = diff.String
		e.File = file.String
		e.Metadata = metadata.String
		e.Processed = processed != 0
		events = append(events, e)
	}
	return events, rows.Err()
}
