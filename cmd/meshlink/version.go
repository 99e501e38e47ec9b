package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/meshlink/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "meshlink "+version.String())
	},
}
