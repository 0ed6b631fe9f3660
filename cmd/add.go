package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var savePath string

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <url|magnet> [more...]",
	Short: "Add torrents through the resilient delivery chain",
	Long: `Add one or more torrent URLs or magnet links. Items go to the primary
qBittorrent instance, fall back to the secondary, and are queued durably on
disk when neither accepts them. Queued items are retried by 'queue flush'
or the background 'run' loop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&savePath, "save-path", "", "download directory on the accepting instance")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result, err := client.AddItems(ctx, args, savePath)
	if err != nil {
		return err
	}

	if len(result.Delivered) > 0 {
		fmt.Printf("✓ Delivered %d item(s) to %s\n", len(result.Delivered), result.Endpoint)
	}
	if len(result.Queued) > 0 {
		fmt.Printf("⏳ Queued %d item(s) to disk, no endpoint reachable\n", len(result.Queued))
		fmt.Printf("   Queue file: %s\n", queueStore.Path())
	}
	for _, item := range result.Failed {
		fmt.Printf("✗ Rejected invalid item: %q\n", strings.TrimSpace(item))
	}

	return nil
}
