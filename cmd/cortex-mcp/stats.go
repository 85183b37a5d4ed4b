package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print active/total memory counts for the workspace database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := resolveWorkspace()
		st, err := openStack(ws)
		if err != nil {
			return err
		}
		defer st.Close()

		active, err := st.memStore.ActiveCount()
		if err != nil {
			return err
		}
		total, err := st.memStore.TotalCount()
		if err != nil {
			return err
		}
		fmt.Printf("workspace: %s\nactive: %d\ntotal:  %d\n", ws, active, total)
		return nil
	},
}
