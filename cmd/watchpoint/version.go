package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of watchpoint",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("watchpoint version 0.3.0")
	},
}
