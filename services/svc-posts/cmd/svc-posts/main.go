package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/architeacher/posts/services/svc-posts/internal/runtime"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "svc-posts",
	Short:         "Posts service backed by PostgreSQL and a search index",
	Version:       version(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and the gRPC health service",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		runtime.New().Run()
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the primary store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		batchSize, err := cmd.Flags().GetUint("batch-size")
		if err != nil {
			return err
		}

		written, err := runtime.Reindex(cmd.Context(), batchSize)
		if err != nil {
			return err
		}

		cmd.Printf("reindexed %d posts\n", written)

		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runtime.MigrateUp(cmd.Context())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps, err := cmd.Flags().GetUint("steps")
		if err != nil {
			return err
		}

		return runtime.MigrateDown(cmd.Context(), steps)
	},
}

func init() {
	reindexCmd.Flags().Uint("batch-size", 0, "posts read per batch, 0 uses SEARCH_REINDEX_BATCH_SIZE")
	migrateDownCmd.Flags().Uint("steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, reindexCmd, migrateCmd)
}

func version() string {
	if config.ServiceVersion == "" {
		return "dev"
	}

	if config.CommitSHA == "" {
		return config.ServiceVersion
	}

	return config.ServiceVersion + " (" + config.CommitSHA + ")"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
