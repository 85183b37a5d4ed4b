package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const cortexVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print cortex-mcp's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("cortex-mcp " + cortexVersion)
		return nil
	},
}
