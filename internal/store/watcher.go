package store

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"cortexmcp/internal/logging"
)

// CorruptionWatcher watches the directory holding the database file so a
// long-running adapter notices the file being removed or replaced out
// from under it (spec.md §4.1's corrupt-file check only runs at startup;
// this is what catches the case after that).
type CorruptionWatcher struct {
	watcher *fsnotify.Watcher
	dbName  string
	flagged atomic.Bool
	stopCh  chan struct{}
}

// NewCorruptionWatcher watches dbPath's parent directory. Callers should
// check Flagged() before trusting a long-lived handle, or call Stop when
// the process shuts down.
func NewCorruptionWatcher(dbPath string) (*CorruptionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(dbPath)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &CorruptionWatcher{watcher: w, dbName: filepath.Base(dbPath), stopCh: make(chan struct{})}, nil
}

// Start runs the event loop in a goroutine until Stop is called.
func (c *CorruptionWatcher) Start() {
	go c.run()
}

func (c *CorruptionWatcher) run() {
	log := logging.Get(logging.CategoryStore)
	for {
		select {
		case <-c.stopCh:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != c.dbName {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				c.flagged.Store(true)
				log.Warn("database file %s was removed or replaced externally", event.Name)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("corruption watcher: %v", err)
		}
	}
}

// Flagged reports whether the watched file was removed or replaced since
// Start was called.
func (c *CorruptionWatcher) Flagged() bool { return c.flagged.Load() }

// Stop ends the event loop and releases the underlying fsnotify watcher.
func (c *CorruptionWatcher) Stop() {
	close(c.stopCh)
	c.watcher.Close()
}
