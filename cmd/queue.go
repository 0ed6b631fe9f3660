package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show submissions waiting in the durable queue",
	RunE:  runQueueShow,
}

// queueShowCmd represents the queue show command
var queueShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show submissions waiting in the durable queue",
	RunE:  runQueueShow,
}

// queueFlushCmd represents the queue flush command
var queueFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Retry delivery of all queued submissions",
	Long: `Retry every queued submission against the first healthy instance.
Submissions that still fail stay queued; recovered ones leave the queue.
Running with an empty queue is a no-op.`,
	RunE: runQueueFlush,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueShowCmd)
	queueCmd.AddCommand(queueFlushCmd)
}

func runQueueShow(cmd *cobra.Command, args []string) error {
	submissions, err := queueStore.LoadAll()
	if err != nil {
		return err
	}

	if len(submissions) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}

	fmt.Printf("\n%d queued submission(s) in %s:\n", len(submissions), queueStore.Path())
	fmt.Println(strings.Repeat("-", 80))

	for _, sub := range submissions {
		fmt.Printf("• %s (saved %s)\n", sub.ID, sub.SavedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Reason: %s\n", sub.Reason)
		if sub.TargetPath != "" {
			fmt.Printf("  Save path: %s\n", sub.TargetPath)
		}
		for _, item := range sub.Items {
			fmt.Printf("  - %s\n", truncate(item, 72))
		}
	}

	return nil
}

func runQueueFlush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	recovered, failed, err := client.ProcessQueue(ctx)
	if err != nil {
		return err
	}

	if len(recovered) == 0 && len(failed) == 0 {
		fmt.Println("Queue is empty, nothing to flush.")
		return nil
	}

	if len(recovered) > 0 {
		fmt.Printf("✓ Recovered %d item(s)\n", len(recovered))
	}
	if len(failed) > 0 {
		fmt.Printf("✗ %d item(s) still undeliverable, left queued\n", len(failed))
	}

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
