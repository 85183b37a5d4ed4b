package store

import "database/sql"

// GetConfig reads a single adaptive_config value, returning ("", false) if
// the key is absent. internal/memory reads the contradiction Jaccard
// threshold through it, an open question the spec leaves tunable; no
// other key is read.
func (d *DB) GetConfig(key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var value string
	err := d.conn.QueryRow(`SELECT value FROM adaptive_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetConfig upserts an adaptive_config value.
func (d *DB) SetConfig(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`
		INSERT INTO adaptive_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
