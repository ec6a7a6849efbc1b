package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "reelarr",
	Short: "CLI client for the reelarr daemon",
	Long: `reelarr - CLI client for the reelarr daemon

Browse the movie catalog, start downloads, follow their progress,
and trigger catalog scrapes.

Run 'reelarrd' to start the daemon.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("REELARR_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8485"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("reelarr {{.Version}}\n")
}
