package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/textnorm"
)

// InsertItem persists a new item row. The caller (internal/memory) is
// responsible for dedup/quality checks and id generation before calling
// this; InsertItem only enforces the storage-level invariants.
func (d *DB) InsertItem(item memtypes.Item) error {
	timer := logging.StartTimer(logging.CategoryStore, "InsertItem")
	defer timer.Stop()

	filesJSON, err := json.Marshal(nonNilStrings(item.RelatedFiles))
	if err != nil {
		return fmt.Errorf("marshal related_files: %w", err)
	}
	tagsJSON, err := json.Marshal(nonNilStrings(item.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if item.Outcome == "" {
		item.Outcome = memtypes.UnknownOutcome
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.conn.Exec(`
		INSERT INTO memory_units (
			id, kind, intent, normalized_intent, action, reason, impact, outcome,
			related_files, tags, created_at, timestamp, confidence, importance,
			access_count, last_accessed, is_active, superseded_by, source_event_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Kind, item.Intent, textnorm.NormalizeIntent(item.Intent),
		item.Action, item.Reason, item.Impact, item.Outcome,
		string(filesJSON), string(tagsJSON), item.CreatedAt, item.Timestamp,
		item.Confidence, item.Importance, item.AccessCount, item.LastAccessed,
		boolToInt(item.IsActive), nullableString(item.SupersededBy), nullableString(item.SourceEventID),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// UpdateItem replaces the provided non-zero-value fields on an active item.
// It is a no-op if id is not found or inactive (spec.md §4.4).
func (d *DB) UpdateItem(id string, changes memtypes.Item) error {
	timer := logging.StartTimer(logging.CategoryStore, "UpdateItem")
	defer timer.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.getItemLocked(id)
	if err != nil {
		return err
	}
	if existing == nil || !existing.IsActive {
		return nil
	}

	merged := *existing
	if changes.Intent != "" {
		merged.Intent = changes.Intent
	}
	if changes.Action != "" {
		merged.Action = changes.Action
	}
	if changes.Reason != "" {
		merged.Reason = changes.Reason
	}
	if changes.Impact != "" {
		merged.Impact = changes.Impact
	}
	if changes.Outcome != "" {
		merged.Outcome = changes.Outcome
	}
	if changes.RelatedFiles != nil {
		merged.RelatedFiles = changes.RelatedFiles
	}
	if changes.Tags != nil {
		merged.Tags = changes.Tags
	}
	if changes.Confidence != 0 {
		merged.Confidence = changes.Confidence
	}
	if changes.Importance != 0 {
		merged.Importance = changes.Importance
	}

	filesJSON, _ := json.Marshal(nonNilStrings(merged.RelatedFiles))
	tagsJSON, _ := json.Marshal(nonNilStrings(merged.Tags))

	_, err = d.conn.Exec(`
		UPDATE memory_units SET
			intent = ?, normalized_intent = ?, action = ?, reason = ?, impact = ?,
			outcome = ?, related_files = ?, tags = ?, confidence = ?, importance = ?
		WHERE id = ? AND is_active = 1`,
		merged.Intent, textnorm.NormalizeIntent(merged.Intent), merged.Action, merged.Reason, merged.Impact,
		merged.Outcome, string(filesJSON), string(tagsJSON), merged.Confidence, merged.Importance, id,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// SetImportance persistently updates an item's importance (used by the
// aging engine, which only writes when the delta exceeds its threshold).
func (d *DB) SetImportance(id string, importance float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`UPDATE memory_units SET importance = ? WHERE id = ? AND is_active = 1`, importance, id)
	return err
}

// AddAccessCount adds delta to an item's access_count, used by the aging
// engine's identical-intent merge to fold the superseded items' access
// history into the survivor (spec.md §4.7.2).
func (d *DB) AddAccessCount(id string, delta int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`UPDATE memory_units SET access_count = access_count + ? WHERE id = ?`, delta, id)
	return err
}

// GetItem returns the item with id, or nil if it does not exist.
func (d *DB) GetItem(id string) (*memtypes.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.getItemLocked(id)
}

func (d *DB) getItemLocked(id string) (*memtypes.Item, error) {
	row := d.conn.QueryRow(itemSelectColumns+` FROM memory_units WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// DeactivateItem sets is_active=0, optionally recording a superseding item.
// Idempotent: a second call on an already-inactive item is a no-op
// (spec.md §4.4).
func (d *DB) DeactivateItem(id string, supersededBy string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(
		`UPDATE memory_units SET is_active = 0, superseded_by = ? WHERE id = ? AND is_active = 1`,
		nullableString(supersededBy), id,
	)
	return err
}

// TouchItem increments access_count and sets last_accessed=now
// (reinforcement, spec.md §4.4).
func (d *DB) TouchItem(id string, now int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(
		`UPDATE memory_units SET access_count = access_count + 1, last_accessed = ? WHERE id = ? AND is_active = 1`,
		now, id,
	)
	return err
}

const itemSelectColumns = `SELECT
	id, kind, intent, action, reason, impact, outcome, related_files, tags,
	created_at, timestamp, confidence, importance, access_count, last_accessed,
	is_active, superseded_by, source_event_id`

// orderByTiebreak is the deterministic ordering contract: newest first,
// then lexicographic id (spec.md §4.4).
const orderByTiebreak = `ORDER BY timestamp DESC, id ASC`

// GetActive returns up to limit active items, newest first.
func (d *DB) GetActive(limit int) ([]memtypes.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.conn.Query(itemSelectColumns+` FROM memory_units WHERE is_active = 1 `+orderByTiebreak+` LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get active items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// GetByKind returns up to limit active items of the given kind, newest first.
func (d *DB) GetByKind(kind memtypes.Kind, limit int) ([]memtypes.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.conn.Query(itemSelectColumns+` FROM memory_units WHERE is_active = 1 AND kind = ? `+orderByTiebreak+` LIMIT ?`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("get items by kind: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// GetByFile returns up to limit active items whose related_files contains
// path, newest first.
func (d *DB) GetByFile(path string, limit int) ([]memtypes.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pattern := "%" + jsonQuote(path) + "%"
	rows, err := d.conn.Query(itemSelectColumns+` FROM memory_units WHERE is_active = 1 AND related_files LIKE ? `+orderByTiebreak+` LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("get items by file: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// ActiveCount returns the number of active items.
func (d *DB) ActiveCount() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM memory_units WHERE is_active = 1`).Scan(&n)
	return n, err
}

// TotalCount returns the number of items regardless of active state.
func (d *DB) TotalCount() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM memory_units`).Scan(&n)
	return n, err
}

// RebuildIndex rebuilds the FTS index from memory_units, for use after bulk
// import or suspected index/table drift.
func (d *DB) RebuildIndex() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`INSERT INTO memory_fts(memory_fts) VALUES ('rebuild')`)
	return err
}

// FindActiveByNormalizedIntent finds an active item of the given kind whose
// normalized intent exactly matches, used by import idempotence (spec.md
// §6) and as a cheap pre-check before the Jaccard dedup scan.
func (d *DB) FindActiveByNormalizedIntent(kind memtypes.Kind, normalizedIntent string) (*memtypes.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	row := d.conn.QueryRow(itemSelectColumns+` FROM memory_units WHERE is_active = 1 AND kind = ? AND normalized_intent = ? LIMIT 1`, kind, normalizedIntent)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*memtypes.Item, error) {
	var item memtypes.Item
	var filesJSON, tagsJSON string
	var supersededBy, sourceEventID sql.NullString
	var isActive int

	err := row.Scan(
		&item.ID, &item.Kind, &item.Intent, &item.Action, &item.Reason, &item.Impact, &item.Outcome,
		&filesJSON, &tagsJSON, &item.CreatedAt, &item.Timestamp, &item.Confidence, &item.Importance,
		&item.AccessCount, &item.LastAccessed, &isActive, &supersededBy, &sourceEventID,
	)
	if err != nil {
		return nil, err
	}
	item.IsActive = isActive != 0
	item.SupersededBy = supersededBy.String
	item.SourceEventID = sourceEventID.String
	json.Unmarshal([]byte(filesJSON), &item.RelatedFiles)
	json.Unmarshal([]byte(tagsJSON), &item.Tags)
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]memtypes.Item, error) {
	var items []memtypes.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	// Strip surrounding quotes: the marshaled form is "path", we want the
	// escaped inner text for a LIKE %"...% match against the JSON array.
	if len(b) >= 2 {
		return string(b[1 : len(b)-1])
	}
	return s
}
