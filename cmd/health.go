package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soup/shelfarr/qbit"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe both instances and report delivery readiness",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	report := client.Health(ctx)

	fmt.Printf("Primary:   %s\n", describeHealth(report.Primary))
	fmt.Printf("Secondary: %s\n", describeHealth(report.Secondary))

	if cfg.Qbit.VPNCheckURL != "" {
		fmt.Printf("VPN:       %s\n", boolToStatus(report.VPNConnected))
	}
	fmt.Printf("Queued:    %d item(s)\n", report.QueueDepth)

	if shelfClient != nil {
		if err := shelfClient.Ping(ctx); err != nil {
			fmt.Printf("Shelf:     unreachable (%v)\n", err)
		} else {
			fmt.Printf("Shelf:     ok\n")
		}
	}

	if !report.Healthy() {
		return fmt.Errorf("no endpoint can accept submissions")
	}

	fmt.Println("\n✓ At least one endpoint can accept submissions")
	return nil
}

func describeHealth(h qbit.Health) string {
	if h.Detail != "" {
		return fmt.Sprintf("%s (%s)", h.Status, h.Detail)
	}
	return string(h.Status)
}

func boolToStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
