// Command reelarrd is the reelarr daemon: it scrapes catalogs, drives
// downloads through the torrent daemon, and serves the HTTP API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "reelarrd",
	Short: "reelarr daemon",
	Long: `reelarrd - movie catalog and download automation daemon

Scrapes the remote torrent catalog and the local Plex library into one
catalog, hands chosen torrents to Transmission, and files finished
downloads into the movie library.

The config file is found via --config, $REELARR_CONFIG, ./config.toml,
$XDG_CONFIG_HOME/reelarr/config.toml or /etc/reelarr/config.toml.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd.Context(), configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("reelarrd {{.Version}}\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
