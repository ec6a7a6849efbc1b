package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print client and server versions",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("reelarr  %s\n", version)
		st, err := NewClient(serverURL).Status()
		if err != nil {
			fmt.Printf("reelarrd unreachable (%v)\n", err)
			return
		}
		fmt.Printf("reelarrd %s\n", st.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
