package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lockard-site",
	Short: "Serve the Lockard LLC site with remote config driven theming",
	Long: `lockard-site serves the Lockard LLC landing page. Colors, copy, A/B
variants and feature flags come from a remote config document that is
fetched periodically and applied to the page without a restart.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, defaultsCmd, notifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
