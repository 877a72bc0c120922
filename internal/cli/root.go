// Package cli provides the command-line interface for briefcast.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/db"
	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	ephemeral bool

	// Global config, logger and db client
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	dbClient  *db.Client
	collector = metrics.NewCollector()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "briefcast",
	Short: "Automated market news podcast",
	Long: `Briefcast ingests market news from RSS feeds and YouTube channels,
drops stories it has already covered using embedding similarity, and turns
the rest into a narrated podcast episode.

Story Memory lives in SurrealDB. Use --ephemeral to keep it in process
for a single invocation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		if ephemeral {
			return nil
		}

		ctx := cmd.Context()
		dbClient, err = db.NewClient(ctx, db.ConfigFrom(cfg), logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep Story Memory in process instead of SurrealDB")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(versionCmd)
}

// requireDB fails commands that only make sense against the persistent store.
func requireDB() error {
	if dbClient == nil {
		return fmt.Errorf("this command needs SurrealDB; drop --ephemeral")
	}
	return nil
}
