package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <code>",
	Short: "Start downloading a movie",
	Long: `Pick the best torrent for a movie and hand it to Transmission.

Without flags the daemon's quality and type preferences decide. --quality
or --type pins that dimension to a single value.

Examples:
  reelarr download tt0111161
  reelarr download tt0111161 --quality 720p`,
	Args: cobra.ExactArgs(1),
	RunE: runDownloadCmd,
}

var statusCmd = &cobra.Command{
	Use:   "status [code]",
	Short: "Server status, or a movie's download progress",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatusCmd,
}

var completeCmd = &cobra.Command{
	Use:   "complete <code>",
	Short: "Place a download in the library now",
	Long: `Run completion without waiting for Transmission to drop the job: move the
files into the library, confirm them through Plex and remove the job.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompleteCmd,
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the movie a Transmission job belongs to",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobCmd,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(jobCmd)
	downloadCmd.Flags().StringP("quality", "q", "", "Require this quality (e.g. 1080p)")
	downloadCmd.Flags().StringP("type", "t", "", "Require this release type (e.g. bluray)")
}

func runDownloadCmd(cmd *cobra.Command, args []string) error {
	quality, _ := cmd.Flags().GetString("quality")
	typ, _ := cmd.Flags().GetString("type")

	d, err := NewClient(serverURL).Download(args[0], DownloadRequest{Quality: quality, Type: typ})
	if err != nil {
		return fmt.Errorf("download %s: %w", args[0], err)
	}
	if jsonOutput {
		printJSON(d)
		return nil
	}
	fmt.Printf("Started %s (job %d, %s/%s)\n", d.Name, d.JobID, d.Quality, d.Type)
	return nil
}

func runStatusCmd(_ *cobra.Command, args []string) error {
	client := NewClient(serverURL)

	if len(args) == 1 {
		st, err := client.LiveStatus(args[0])
		if err != nil {
			return fmt.Errorf("status %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(st)
			return nil
		}
		printLiveStatus(os.Stdout, st)
		return nil
	}

	st, err := client.Status()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	if jsonOutput {
		printJSON(st)
		return nil
	}
	fmt.Printf("Server:  %s (%s)\n", serverURL, st.Status)
	fmt.Printf("Version: %s\n", st.Version)
	fmt.Printf("Since:   %s\n", st.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if len(st.Tasks) > 0 {
		fmt.Printf("Running: %v\n", st.Tasks)
	}
	return nil
}

func runCompleteCmd(_ *cobra.Command, args []string) error {
	m, err := NewClient(serverURL).Complete(args[0])
	if err != nil {
		return fmt.Errorf("complete %s: %w", args[0], err)
	}
	if jsonOutput {
		printJSON(m)
		return nil
	}
	fmt.Printf("%s (%d): %s\n", m.Title, m.Year, movieState(*m))
	return nil
}

func runJobCmd(_ *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}
	m, err := NewClient(serverURL).MovieByJob(id)
	if err != nil {
		return fmt.Errorf("job %d: %w", id, err)
	}
	if jsonOutput {
		printJSON(m)
		return nil
	}
	printMovie(os.Stdout, m, time.Now())
	return nil
}
