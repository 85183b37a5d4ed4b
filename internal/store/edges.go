package store

import (
	"database/sql"
	"fmt"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
)

// InsertEdge records a relation between two items, replacing any existing
// edge with the same (source, target, relation) key (spec.md §4.3's
// knowledge graph). Edges are directed; callers wanting a reverse lookup
// use EdgesTo.
func (d *DB) InsertEdge(edge memtypes.Edge) error {
	timer := logging.StartTimer(logging.CategoryStore, "InsertEdge")
	defer timer.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.conn.Exec(`
		INSERT INTO edges (source_id, target_id, relation, weight, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, relation) DO UPDATE SET
			weight = excluded.weight, timestamp = excluded.timestamp`,
		edge.SourceID, edge.TargetID, edge.Relation, edge.Weight, edge.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

// EdgesFrom returns all edges whose source is id.
func (d *DB) EdgesFrom(id string) ([]memtypes.Edge, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.conn.Query(`SELECT source_id, target_id, relation, weight, timestamp FROM edges WHERE source_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("edges from: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// EdgesTo returns all edges whose target is id.
func (d *DB) EdgesTo(id string) ([]memtypes.Edge, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.conn.Query(`SELECT source_id, target_id, relation, weight, timestamp FROM edges WHERE target_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("edges to: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// DeleteEdgesInvolving removes every edge touching id as either endpoint.
// Consolidation and the other aging passes deactivate items rather than
// hard-delete them, and nothing in this module calls it.
func (d *DB) DeleteEdgesInvolving(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`DELETE FROM edges WHERE source_id = ? OR target_id = ?`, id, id)
	return err
}

func scanEdges(rows *sql.Rows) ([]memtypes.Edge, error) {
	var edges []memtypes.Edge
	for rows.Next() {
		var e memtypes.Edge
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Relation, &e.Weight, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
