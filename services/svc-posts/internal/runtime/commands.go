package runtime

import (
	"context"
	"fmt"

	"github.com/architeacher/posts/services/svc-posts/internal/usecases/commands"
)

// Reindex rebuilds the search index from the primary store and releases
// every resource before returning. Zero batchSize uses the configured size.
func Reindex(ctx context.Context, batchSize uint) (int, error) {
	deps, err := initializeDependencies(ctx, defaultOptions(ctx)...)
	if err != nil {
		return 0, fmt.Errorf("initializing dependencies: %w", err)
	}

	defer deps.cleanup(context.WithoutCancel(ctx))

	if batchSize == 0 {
		batchSize = deps.config.Search.ReindexBatch
	}

	written, err := deps.app.Commands.ReindexPosts.Handle(ctx, commands.ReindexPostsCommand{BatchSize: batchSize})
	if err != nil {
		return written, fmt.Errorf("reindexing posts: %w", err)
	}

	deps.infra.logger.Info().Int("written", written).Msg("search index rebuilt")

	return written, nil
}

// MigrateUp applies every pending schema migration.
func MigrateUp(ctx context.Context) error {
	deps, err := initializeDependencies(ctx, configOptions(ctx)...)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}

	migrator, err := newMigrator(deps)
	if err != nil {
		return err
	}

	defer migrator.Close()

	return migrator.Up()
}

// MigrateDown rolls back the last steps migrations.
func MigrateDown(ctx context.Context, steps uint) error {
	deps, err := initializeDependencies(ctx, configOptions(ctx)...)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}

	migrator, err := newMigrator(deps)
	if err != nil {
		return err
	}

	defer migrator.Close()

	return migrator.Down(steps)
}
