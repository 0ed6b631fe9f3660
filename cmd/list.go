package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soup/shelfarr/filter"
	"github.com/soup/shelfarr/qbit"
)

var (
	filterExpr   string
	listEndpoint string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List torrents on the first healthy instance",
	Long: `List torrents from the primary instance, or the secondary when the
primary is down. An optional filter expression narrows the output:

  shelfarr list --filter 'Category == "audiobooks" && isComplete()'
  shelfarr list --filter 'Ratio > 2.0 && daysSince(AddedOn) > 30'`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	listCmd.Flags().StringVar(&listEndpoint, "endpoint", "", "list a specific instance by name instead of the first healthy one")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var torrents []*qbit.TorrentInfo
	var endpoint string
	var err error
	if listEndpoint != "" {
		endpoint = listEndpoint
		torrents, err = client.ListFrom(ctx, listEndpoint)
	} else {
		torrents, endpoint, err = client.List(ctx)
	}
	if err != nil {
		return err
	}

	if filterExpr != "" {
		f, err := filter.Compile(filterExpr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		torrents = f.Apply(torrents)
	}

	if len(torrents) == 0 {
		fmt.Println("No torrents found.")
		return nil
	}

	fmt.Printf("\n%d torrent(s) on %s:\n", len(torrents), endpoint)
	fmt.Println(strings.Repeat("-", 80))

	for _, t := range torrents {
		fmt.Printf("• %s\n", t.Name)
		fmt.Printf("  State: %s  Progress: %.0f%%  Ratio: %.2f  Size: %s\n",
			t.State, t.Progress*100, t.Ratio, formatSize(t.Size))
		if t.Category != "" {
			fmt.Printf("  Category: %s\n", t.Category)
		}
		if len(t.Tags) > 0 {
			fmt.Printf("  Tags: %s\n", strings.Join(t.Tags, ", "))
		}
	}

	return nil
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
