package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Force a WAL checkpoint against the workspace database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := resolveWorkspace()
		st, err := openStack(ws)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.db.Checkpoint(); err != nil {
			return err
		}
		fmt.Println("checkpoint complete")
		return nil
	},
}
