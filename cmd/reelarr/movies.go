package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var moviesCmd = &cobra.Command{
	Use:   "movies [query]",
	Short: "List or search cataloged movies",
	Long: `List cataloged movies, newest first, or search titles when a query is given.

Examples:
  reelarr movies                     # Latest movies
  reelarr movies --filter library    # Movies already in Plex
  reelarr movies "the thing"         # Fuzzy title search`,
	RunE: runMoviesCmd,
}

var movieCmd = &cobra.Command{
	Use:   "movie <code>",
	Short: "Show one movie",
	Args:  cobra.ExactArgs(1),
	RunE:  runMovieCmd,
}

func init() {
	rootCmd.AddCommand(moviesCmd)
	rootCmd.AddCommand(movieCmd)
	moviesCmd.Flags().StringP("filter", "f", "", "Filter (downloading, library, available)")
	moviesCmd.Flags().IntP("limit", "n", 25, "Maximum results")
}

func runMoviesCmd(cmd *cobra.Command, args []string) error {
	filter, _ := cmd.Flags().GetString("filter")
	limit, _ := cmd.Flags().GetInt("limit")
	client := NewClient(serverURL)

	var (
		resp *ListMoviesResponse
		err  error
	)
	query := strings.TrimSpace(strings.Join(args, " "))
	if query != "" {
		resp, err = client.Search(query, limit)
	} else {
		resp, err = client.Movies(filter, limit)
	}
	if err != nil {
		return fmt.Errorf("list movies: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}
	printMovies(os.Stdout, resp.Items, query != "")
	return nil
}

func runMovieCmd(_ *cobra.Command, args []string) error {
	m, err := NewClient(serverURL).Movie(args[0])
	if err != nil {
		return fmt.Errorf("get movie: %w", err)
	}
	if jsonOutput {
		printJSON(m)
		return nil
	}
	printMovie(os.Stdout, m, time.Now())
	return nil
}
