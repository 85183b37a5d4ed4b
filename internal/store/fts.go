package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
)

// FTSResult pairs an item with its raw FTS rank. rank is "smaller is
// better" per SQLite's bm25-style fts5 rank; callers wanting "bigger is
// better" should negate it (spec.md §4.4).
type FTSResult struct {
	Item memtypes.Item
	Rank float64
}

// SearchFTS runs query (which may be a pre-expanded OR-joined query,
// spec.md §4.5) against the FTS index and returns up to limit active
// items ordered by rank.
func (d *DB) SearchFTS(query string, limit int) ([]FTSResult, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SearchFTS")
	defer timer.Stop()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.conn.Query(`
		SELECT m.id, m.kind, m.intent, m.action, m.reason, m.impact, m.outcome,
			m.related_files, m.tags, m.created_at, m.timestamp, m.confidence, m.importance,
			m.access_count, m.last_accessed, m.is_active, m.superseded_by, m.source_event_id,
			memory_fts.rank
		FROM memory_fts
		JOIN memory_units m ON m.rowid = memory_fts.rowid
		WHERE memory_fts MATCH ? AND m.is_active = 1
		ORDER BY memory_fts.rank, m.timestamp DESC, m.id ASC
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var results []FTSResult
	for rows.Next() {
		item, rank, err := scanFTSRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fts row: %w", err)
		}
		results = append(results, FTSResult{Item: *item, Rank: rank})
	}
	return results, rows.Err()
}

func scanFTSRow(rows *sql.Rows) (*memtypes.Item, float64, error) {
	var item memtypes.Item
	var filesJSON, tagsJSON string
	var supersededBy, sourceEventID sql.NullString
	var isActive int
	var rank float64

	err := rows.Scan(
		&item.ID, &item.Kind, &item.Intent, &item.Action, &item.Reason, &item.Impact, &item.Outcome,
		&filesJSON, &tagsJSON, &item.CreatedAt, &item.Timestamp, &item.Confidence, &item.Importance,
		&item.AccessCount, &item.LastAccessed, &isActive, &supersededBy, &sourceEventID, &rank,
	)
	if err != nil {
		return nil, 0, err
	}
	item.IsActive = isActive != 0
	item.SupersededBy = supersededBy.String
	item.SourceEventID = sourceEventID.String
	json.Unmarshal([]byte(filesJSON), &item.RelatedFiles)
	json.Unmarshal([]byte(tagsJSON), &item.Tags)
	return &item, rank, nil
}
