package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorruptionWatcherFlagsExternalRemoval(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cognitive.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("not a real db"), 0644))

	w, err := NewCorruptionWatcher(dbPath)
	require.NoError(t, err)
	defer w.Stop()
	w.Start()

	assert.False(t, w.Flagged())

	require.NoError(t, os.Remove(dbPath))

	require.Eventually(t, w.Flagged, time.Second, 10*time.Millisecond)
}

func TestCorruptionWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cognitive.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0644))

	w, err := NewCorruptionWatcher(dbPath)
	require.NoError(t, err)
	defer w.Stop()
	w.Start()

	otherPath := filepath.Join(dir, "unrelated.txt")
	require.NoError(t, os.WriteFile(otherPath, []byte("y"), 0644))
	require.NoError(t, os.Remove(otherPath))

	time.Sleep(100 * time.Millisecond)
	assert.False(t, w.Flagged())
}
