package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Start a catalog scrape",
	Long: `Start a scrape of every configured source. The run continues on the
server after this command returns; --wait polls until it finishes.`,
	Args: cobra.NoArgs,
	RunE: runScrapeCmd,
}

var scrapesCmd = &cobra.Command{
	Use:   "scrapes [id]",
	Short: "List recent scrapes, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScrapesCmd,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(scrapesCmd)
	scrapeCmd.Flags().BoolP("wait", "w", false, "Wait for the run to finish")
	scrapeCmd.Flags().Duration("poll", 2*time.Second, "Poll interval with --wait")
	scrapesCmd.Flags().IntP("limit", "n", 10, "Maximum results")
}

func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	wait, _ := cmd.Flags().GetBool("wait")
	poll, _ := cmd.Flags().GetDuration("poll")
	client := NewClient(serverURL)

	sc, err := client.StartScrape()
	if IsStatus(err, http.StatusConflict) {
		return errors.New("a scrape is already running")
	}
	if err != nil {
		return fmt.Errorf("start scrape: %w", err)
	}

	if wait {
		sc, err = waitForScrape(client, sc.ID, poll)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		printJSON(sc)
		return nil
	}
	printScrape(os.Stdout, sc)
	return nil
}

func waitForScrape(client *Client, id string, poll time.Duration) (*ScrapeResponse, error) {
	for {
		sc, err := client.Scrape(id)
		if err != nil {
			return nil, fmt.Errorf("poll scrape %s: %w", id, err)
		}
		if sc.Finished {
			return sc, nil
		}
		time.Sleep(poll)
	}
}

func runScrapesCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)

	if len(args) == 1 {
		sc, err := client.Scrape(args[0])
		if err != nil {
			return fmt.Errorf("get scrape: %w", err)
		}
		if jsonOutput {
			printJSON(sc)
			return nil
		}
		printScrape(os.Stdout, sc)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	resp, err := client.Scrapes(limit)
	if err != nil {
		return fmt.Errorf("list scrapes: %w", err)
	}
	if jsonOutput {
		printJSON(resp)
		return nil
	}
	if len(resp.Items) == 0 {
		fmt.Println("No scrapes")
		return nil
	}
	for i := range resp.Items {
		printScrape(os.Stdout, &resp.Items[i])
	}
	return nil
}
