// Package store is the durable storage layer: the item table, edges, the
// FTS5 index, the vector sidecar, and schema migrations (spec.md §4.1).
//
// The store is built for a single writer process per database file
// (spec.md §4.1, §5): opening the same path for write from two processes is
// undefined behavior the deployment must avoid. Within one process all
// calls are serialized by DB.mu; WAL mode lets long reads proceed without
// blocking a writer.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"cortexmcp/internal/logging"
)

// DefaultDBPath is the default database location, relative to the
// workspace root (spec.md §4.1, §6).
const DefaultDBPath = ".ai/brain-data/data/cognitive.db"

// DB wraps the SQLite connection and the sqlite-vec availability flag.
// All exported methods are safe for concurrent use.
type DB struct {
	mu        sync.RWMutex
	conn      *sql.DB
	path      string
	vecExt    bool
	vecDims   int
}

// Open creates any missing parent directory, opens the database, sets WAL
// pragmas, and runs schema migrations. A corrupt file or a downgrade
// attempt surfaces a fatal initialization error (spec.md §4.1) — the
// caller (the RPC adapter) is expected to enter degraded mode on error
// rather than exit.
func Open(path string) (*DB, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // single-writer invariant; WAL readers still don't block.

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536", // ~64 MiB
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	db := &DB{conn: conn, path: path}
	db.detectVecExtension()

	logging.Get(logging.CategoryStore).Info("store opened at %s (vector extension: %v)", path, db.vecExt)
	return db, nil
}

// detectVecExtension probes whether sqlite-vec's vec0 module is available
// by attempting to create a throwaway virtual table. The result is logged
// and reported by HasVectorExtension; SearchVector uses brute-force cosine
// whether or not the module loaded.
func (d *DB) detectVecExtension() {
	_, err := d.conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS _vec_probe USING vec0(embedding float[8])`)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("sqlite-vec extension unavailable, using brute-force cosine: %v", err)
		d.vecExt = false
		return
	}
	d.conn.Exec(`DROP TABLE IF EXISTS _vec_probe`)
	d.vecExt = true
}

// HasVectorExtension reports whether sqlite-vec's ANN module loaded.
func (d *DB) HasVectorExtension() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.vecExt
}

// checkVectorDim locks the database to the dimensionality of the first
// vector it ever stores, and rejects any later one that doesn't match
// (spec.md §4.2: every stored vector shares one width D). The zero value
// means no vector has been written yet.
func (d *DB) checkVectorDim(dim int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vecDims == 0 {
		d.vecDims = dim
		return nil
	}
	if dim != d.vecDims {
		return fmt.Errorf("embedding dimension %d does not match store dimension %d", dim, d.vecDims)
	}
	return nil
}

// Checkpoint truncates the WAL back into the main database file. Invoked on
// clean shutdown (spec.md §4.1).
func (d *DB) Checkpoint() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Close checkpoints and closes the underlying connection.
func (d *DB) Close() error {
	_ = d.Checkpoint()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.Close()
}
