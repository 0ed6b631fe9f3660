package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soup/shelfarr/tasks"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background processor",
	Long: `Run the background task processor until interrupted. It periodically
retries queued submissions against the torrent instances and, when
AudiobookShelf is configured, triggers recurring library scans so finished
downloads show up on the shelf.`,
	RunE: runProcessor,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runProcessor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := tasks.NewProcessor(tasks.Config{
		QueueCapacity:     cfg.Tasks.QueueCapacity,
		MaxWorkers:        cfg.Tasks.MaxWorkers,
		DefaultMaxRetries: cfg.Tasks.MaxRetries,
		DefaultRetryDelay: cfg.Tasks.RetryDelay,
		DependencyTimeout: cfg.Tasks.DependencyTimeout,
	}, logger)

	if err := processor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processor: %w", err)
	}
	defer processor.Stop()

	// Recurring queue flush keeps the durable queue draining as soon as an
	// endpoint comes back.
	flushTask := tasks.NewTask("queue-flush", func(ctx context.Context) (any, error) {
		recovered, failed, err := client.ProcessQueue(ctx)
		if err != nil {
			return nil, err
		}
		if len(recovered) > 0 || len(failed) > 0 {
			logger.Info().
				Int("recovered", len(recovered)).
				Int("still_queued", len(failed)).
				Msg("Queue flush pass finished")
		}
		return len(recovered), nil
	})
	flushTask.Priority = tasks.PriorityHigh

	if _, err := processor.SubmitRecurring(flushTask, cfg.Tasks.FlushInterval); err != nil {
		return fmt.Errorf("failed to schedule queue flush: %w", err)
	}

	if shelfClient != nil && cfg.Shelf.LibraryID != "" {
		scanTask := tasks.NewTask("library-scan", func(ctx context.Context) (any, error) {
			return nil, shelfClient.TriggerScan(ctx, cfg.Shelf.LibraryID)
		})
		scanTask.Priority = tasks.PriorityLow

		if _, err := processor.SubmitRecurring(scanTask, cfg.Tasks.ScanInterval); err != nil {
			return fmt.Errorf("failed to schedule library scan: %w", err)
		}
	}

	logger.Info().
		Dur("flush_interval", cfg.Tasks.FlushInterval).
		Dur("scan_interval", cfg.Tasks.ScanInterval).
		Msg("Background processor running, press Ctrl+C to stop")

	<-ctx.Done()

	stats := processor.Statistics()
	logger.Info().
		Uint64("completed", stats.Completed).
		Uint64("failed", stats.Failed).
		Msg("Shutting down")

	return nil
}
