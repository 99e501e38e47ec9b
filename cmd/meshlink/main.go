// meshlink keeps a session with a mesh controller alive over WebSocket.
//
// Usage:
//
//	meshlink run --config configs/meshlink.yaml
//	meshlink session show
//	meshlink session reset
//	meshlink version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "meshlink",
	Short:         "Persistent session client for a mesh controller",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (yaml or toml); defaults are used when empty")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
