package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cortexmcp/internal/assembler"
	"cortexmcp/internal/config"
	"cortexmcp/internal/embedding"
	"cortexmcp/internal/memory"
	"cortexmcp/internal/retriever"
	"cortexmcp/internal/rpc"
	"cortexmcp/internal/store"
)

// stack bundles the opened storage handle alongside the orchestration
// layers built over it, so every subcommand can share one construction
// path and one shutdown path.
type stack struct {
	db        *store.DB
	memStore  *memory.Store
	retriever *retriever.Retriever
	assembler *assembler.Assembler
	cfg       *config.Config
	watcher   *store.CorruptionWatcher
}

func (s *stack) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	return s.db.Close()
}

// openStack loads configuration, opens the database, and wires the
// Memory Store, Hybrid Retriever, and Context Assembler over it
// (spec.md §3, §4). dbPath/configPath are resolved relative to ws.
func openStack(ws string) (*stack, error) {
	configPath := filepath.Join(ws, config.DefaultConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = store.DefaultDBPath
	}
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(ws, dbPath)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	emb := embedding.New(context.Background(), cfg.Embedding.Provider, cfg.Embedding.Endpoint, cfg.Embedding.Dimensions)
	ms := memory.New(db, emb)
	r := retriever.New(ms)
	var projectIndex assembler.ProjectIndex // no scanner wired; nil is handled silently
	asm := assembler.New(ms, r, ws, projectIndex)

	watcher, werr := store.NewCorruptionWatcher(dbPath)
	if werr != nil {
		fmt.Fprintf(os.Stderr, "warning: corruption watcher not started: %v\n", werr)
	} else {
		watcher.Start()
	}

	return &stack{db: db, memStore: ms, retriever: r, assembler: asm, cfg: cfg, watcher: watcher}, nil
}

// newServer builds the RPC Adapter over a stack, or a degraded-mode
// server if stack construction itself failed (spec.md §7 Degraded-mode:
// the process must not exit on a storage init failure).
func newServer(ws string) (*rpc.Server, func(), error) {
	st, err := openStack(ws)
	if err != nil {
		return rpc.NewDegraded(err.Error()), func() {}, nil
	}
	srv := rpc.New(st.memStore, st.retriever, st.assembler, st.cfg.Limits, ws)
	cleanup := func() {
		if cerr := st.db.Checkpoint(); cerr != nil {
			fmt.Fprintf(os.Stderr, "checkpoint on shutdown: %v\n", cerr)
		}
		st.Close()
	}
	return srv, cleanup, nil
}
