package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
)

// VectorResult pairs an item with its cosine similarity to the query vector.
type VectorResult struct {
	Item   memtypes.Item
	Cosine float64
}

// UpsertVector writes the embedding for id into the sidecar table. Called
// from the async embedding path after an item is durably stored (spec.md
// §4.2): an item without a vector remains retrievable via FTS.
func (d *DB) UpsertVector(id string, embedding []float32, now int64) error {
	timer := logging.StartTimer(logging.CategoryStore, "UpsertVector")
	defer timer.Stop()

	if err := d.checkVectorDim(len(embedding)); err != nil {
		return err
	}

	blob := encodeVector(embedding)

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.conn.Exec(
		`INSERT OR REPLACE INTO memory_vectors (id, embedding, dim, created_at) VALUES (?, ?, ?, ?)`,
		id, blob, len(embedding), now,
	)
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// DeleteVector removes id's sidecar row, if present.
func (d *DB) DeleteVector(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`DELETE FROM memory_vectors WHERE id = ?`, id)
	return err
}

// SearchVector performs brute-force cosine similarity over the in-memory
// vector table, joined against active items, and returns up to limit
// results ordered by similarity (spec.md §4.4). Items with no vector row
// are absent from the results, not an error.
func (d *DB) SearchVector(query []float32, limit int) ([]VectorResult, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SearchVector")
	defer timer.Stop()

	if len(query) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.conn.Query(`
		SELECT v.id, v.embedding, v.dim
		FROM memory_vectors v
		JOIN memory_units m ON m.id = v.id
		WHERE m.is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("search vector: %w", err)
	}
	defer rows.Close()

	type scored struct {
		id  string
		sim float64
	}
	var candidates []scored
	for rows.Next() {
		var id string
		var blob []byte
		var dim int
		if err := rows.Scan(&id, &blob, &dim); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		vec := decodeVector(blob, dim)
		candidates = append(candidates, scored{id: id, sim: cosine(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]VectorResult, 0, len(candidates))
	for _, c := range candidates {
		item, err := d.getItemLocked(c.id)
		if err != nil || item == nil {
			continue
		}
		results = append(results, VectorResult{Item: *item, Cosine: c.sim})
	}
	return results, nil
}

// cosine computes dot(a,b) for unit vectors; if either magnitude is zero,
// similarity is 0 (spec.md §4.4).
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func encodeVector(vec []float32) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

func decodeVector(blob []byte, dim int) []float32 {
	vec := make([]float32, dim)
	_ = binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec)
	return vec
}
