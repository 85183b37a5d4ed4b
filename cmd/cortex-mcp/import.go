package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cortexmcp/internal/rpc"
)

var importInPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a versioned JSON bundle, idempotently",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importInPath == "" {
			return fmt.Errorf("--in is required")
		}
		data, err := os.ReadFile(importInPath)
		if err != nil {
			return fmt.Errorf("read bundle: %w", err)
		}

		ws := resolveWorkspace()
		st, err := openStack(ws)
		if err != nil {
			return err
		}
		defer st.Close()

		imported, skipped, failed, err := rpc.ImportBundle(st.memStore, data)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d, skipped %d, failed %d\n", imported, skipped, failed)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importInPath, "in", "", "Path to a bundle produced by export (required)")
}
