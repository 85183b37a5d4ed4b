package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON-RPC/MCP stdio server (the default action)",
	RunE:  runServe,
}

// runServe is the RPC Adapter's process lifetime: it reads stdin until
// EOF or SIGINT/SIGTERM, then checkpoints and exits 0 (spec.md §6 Exit
// codes). A storage-layer init failure does not abort the process — the
// server runs in degraded mode so the client can still reach health_check.
func runServe(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()

	srv, cleanup, err := newServer(ws)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
