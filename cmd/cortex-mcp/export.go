package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cortexmcp/internal/rpc"
)

var exportOutPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all active memories as a versioned JSON bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := resolveWorkspace()
		st, err := openStack(ws)
		if err != nil {
			return err
		}
		defer st.Close()

		bundle, err := rpc.ExportBundle(st.memStore)
		if err != nil {
			return err
		}
		if exportOutPath == "" || exportOutPath == "-" {
			fmt.Println(bundle)
			return nil
		}
		return os.WriteFile(exportOutPath, []byte(bundle), 0644)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutPath, "out", "o", "", "Write the bundle to this path instead of stdout")
}
