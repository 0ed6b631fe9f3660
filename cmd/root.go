package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/soup/shelfarr/config"
	"github.com/soup/shelfarr/prowlarr"
	"github.com/soup/shelfarr/qbit"
	"github.com/soup/shelfarr/shelf"
	"github.com/soup/shelfarr/store"
)

var (
	cfgFile        string
	cfg            *config.Config
	logger         zerolog.Logger
	client         *qbit.ResilientClient
	queueStore     *store.Store
	prowlarrClient *prowlarr.Client
	shelfClient    *shelf.Client

	version   = "dev"
	buildTime = "unknown"
)

// SetVersion records build metadata for the version and update commands.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shelfarr",
	Short: "Resilient audiobook grab pipeline for qBittorrent and AudiobookShelf",
	Long: `shelfarr hands torrent grabs to a primary qBittorrent instance, falls back
to a secondary instance, and queues submissions durably on disk when both
are unreachable, so a grab on a rate-limited tracker is never lost. It can
also search releases through Prowlarr and trigger AudiobookShelf library
scans after delivery.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeApp initializes the configuration and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	queueStore = store.New(cfg.Qbit.QueuePath, logger)

	primary := qbit.NewEndpoint(
		cfg.Qbit.Primary.Name,
		cfg.Qbit.Primary.URL,
		cfg.Qbit.Primary.Username,
		cfg.Qbit.Primary.Password,
		logger,
	)
	primary.SetCategory(cfg.Qbit.Category)

	var secondary qbit.Deliverer
	if cfg.Qbit.Secondary.Configured() {
		ep := qbit.NewEndpoint(
			cfg.Qbit.Secondary.Name,
			cfg.Qbit.Secondary.URL,
			cfg.Qbit.Secondary.Username,
			cfg.Qbit.Secondary.Password,
			logger,
		)
		ep.SetCategory(cfg.Qbit.Category)
		secondary = ep
	}

	client, err = qbit.NewResilientClient(primary, secondary, queueStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create torrent client: %w", err)
	}
	client.SetRateLimit(cfg.Delivery.RatePerSecond, cfg.Delivery.Burst)
	if cfg.Qbit.VPNCheckURL != "" {
		client.SetVPNChecker(qbit.NewVPNChecker(cfg.Qbit.VPNCheckURL, 0, logger))
	}

	// Create Prowlarr client if enabled
	if cfg.Prowlarr.Enabled {
		prowlarrClient, err = prowlarr.NewClient(cfg.Prowlarr.URL, cfg.Prowlarr.APIKey, cfg.Prowlarr.Categories, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to create Prowlarr client, continuing without search")
		} else {
			logger.Info().Msg("Prowlarr integration enabled")
		}
	}

	// Create AudiobookShelf client if enabled
	if cfg.Shelf.Enabled {
		shelfClient, err = shelf.NewClient(cfg.Shelf.URL, cfg.Shelf.Token, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to create AudiobookShelf client, continuing without library scans")
		} else {
			logger.Info().Msg("AudiobookShelf integration enabled")
		}
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format; color only when writing to a terminal
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No clients needed to print a version string.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shelfarr %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
