package store

import (
	"database/sql"
	"fmt"
)

// EnsureIdentity records the workspace root's first-seen timestamp, once.
// Subsequent calls for the same root are no-ops (spec.md §4.1 identity
// table, backing L0).
func (d *DB) EnsureIdentity(workspaceRoot string, now int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(
		`INSERT INTO identity (workspace_root, created_at) VALUES (?, ?)
		 ON CONFLICT(workspace_root) DO NOTHING`,
		workspaceRoot, now,
	)
	return err
}

// DailySummary is one row of the daily_summaries table, backing L0's
// session-boundary close/open and L3's recent-session headers.
type DailySummary struct {
	Day       string
	Topic     string
	Summary   string
	CreatedAt int64
}

// UpsertDailySummary writes or replaces the summary for a given day
// (L0's "close the previous session, open a new one keyed on the topic").
func (d *DB) UpsertDailySummary(s DailySummary) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(
		`INSERT INTO daily_summaries (day, topic, summary, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET topic = excluded.topic, summary = excluded.summary, created_at = excluded.created_at`,
		s.Day, s.Topic, s.Summary, s.CreatedAt,
	)
	return err
}

// RecentDailySummaries returns up to limit summaries, most recent day first
// (L3 Recent sessions).
func (d *DB) RecentDailySummaries(excludeDay string, limit int) ([]DailySummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.conn.Query(
		`SELECT day, topic, summary, created_at FROM daily_summaries
		 WHERE day != ? ORDER BY day DESC LIMIT ?`,
		excludeDay, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent daily summaries: %w", err)
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var s DailySummary
		var topic sql.NullString
		if err := rows.Scan(&s.Day, &topic, &s.Summary, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan daily summary: %w", err)
		}
		s.Topic = topic.String
		out = append(out, s)
	}
	return out, rows.Err()
}
