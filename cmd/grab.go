package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var grabFirst bool

// grabCmd represents the grab command
var grabCmd = &cobra.Command{
	Use:   "grab <query>",
	Short: "Search Prowlarr and deliver selected releases",
	Long: `Search the configured indexers through Prowlarr and hand the selected
releases to the delivery chain. Magnet links are preferred over .torrent
download URLs when a release offers both.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGrab,
}

func init() {
	rootCmd.AddCommand(grabCmd)

	grabCmd.Flags().BoolVar(&grabFirst, "first", false, "grab the top result without prompting")
	grabCmd.Flags().StringVar(&savePath, "save-path", "", "download directory on the accepting instance")
}

func runGrab(cmd *cobra.Command, args []string) error {
	if prowlarrClient == nil {
		return fmt.Errorf("prowlarr is not configured. Set prowlarr.url and prowlarr.api_key in config")
	}

	ctx := context.Background()
	query := strings.Join(args, " ")

	logger.Info().Str("query", query).Msg("Searching indexers")

	releases, err := prowlarrClient.Search(ctx, query)
	if err != nil {
		return err
	}

	if len(releases) == 0 {
		fmt.Println("No releases found.")
		return nil
	}

	fmt.Printf("Found %d release(s):\n\n", len(releases))
	fmt.Println(strings.Repeat("━", 95))
	fmt.Printf("%-4s %-60s %-10s %-8s %s\n", "#", "TITLE", "SIZE", "SEEDERS", "INDEXER")
	fmt.Println(strings.Repeat("━", 95))

	for i, release := range releases {
		title := release.Title
		if len(title) > 58 {
			title = title[:55] + "..."
		}
		fmt.Printf("%-4d %-60s %-10s %-8d %s\n",
			i+1, title, formatSize(release.Size), release.Seeders, release.Indexer)
	}
	fmt.Println(strings.Repeat("━", 95))

	var indices []int
	if grabFirst {
		indices = []int{0}
	} else {
		indices, err = promptSelection(len(releases))
		if err != nil {
			return err
		}
		if len(indices) == 0 {
			fmt.Println("No releases selected.")
			return nil
		}
	}

	var items []string
	for _, idx := range indices {
		item := releases[idx].GrabItem()
		if item == "" {
			fmt.Printf("✗ %s has no grabbable link, skipping\n", releases[idx].Title)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return fmt.Errorf("none of the selected releases had a grabbable link")
	}

	result, err := client.AddItems(ctx, items, savePath)
	if err != nil {
		return err
	}

	if len(result.Delivered) > 0 {
		fmt.Printf("\n✓ Delivered %d release(s) to %s\n", len(result.Delivered), result.Endpoint)
	}
	if len(result.Queued) > 0 {
		fmt.Printf("\n⏳ Queued %d release(s) to disk, no endpoint reachable\n", len(result.Queued))
	}

	return nil
}

// promptSelection reads comma-separated result numbers, or 'all'.
func promptSelection(count int) ([]int, error) {
	fmt.Printf("\nEnter release numbers to grab (comma-separated, e.g. 1,3) or 'all' [Enter to cancel]: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return nil, nil
	}

	input := strings.TrimSpace(scanner.Text())
	if input == "" {
		return nil, nil
	}

	if strings.ToLower(input) == "all" {
		indices := make([]int, count)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		num, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s': must be a positive integer", part)
		}
		if num < 1 || num > count {
			return nil, fmt.Errorf("invalid release number %d: must be between 1 and %d", num, count)
		}

		idx := num - 1
		if !seen[idx] {
			indices = append(indices, idx)
			seen[idx] = true
		}
	}

	return indices, nil
}
