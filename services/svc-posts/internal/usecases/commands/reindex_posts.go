package commands

import (
	"context"

	"github.com/architeacher/posts/pkg/decorator"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	// ReindexPostsCommand rebuilds the search index. Zero BatchSize uses the
	// service default.
	ReindexPostsCommand struct {
		BatchSize uint
	}

	ReindexPostsCommandHandler = decorator.CommandHandler[ReindexPostsCommand, int]

	reindexPostsCommandHandler struct {
		postsService ports.PostsService
	}
)

func NewReindexPostsCommandHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) ReindexPostsCommandHandler {
	return decorator.ApplyCommandDecorators[ReindexPostsCommand, int](
		reindexPostsCommandHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h reindexPostsCommandHandler) Handle(ctx context.Context, cmd ReindexPostsCommand) (int, error) {
	return h.postsService.ReindexAll(ctx, cmd.BatchSize)
}
