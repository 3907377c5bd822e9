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
	DeletePostCommand struct {
		ID int64
	}

	DeletePostCommandHandler = decorator.CommandHandler[DeletePostCommand, struct{}]

	deletePostCommandHandler struct {
		postsService ports.PostsService
	}
)

func NewDeletePostCommandHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) DeletePostCommandHandler {
	return decorator.ApplyCommandDecorators[DeletePostCommand, struct{}](
		deletePostCommandHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h deletePostCommandHandler) Handle(ctx context.Context, cmd DeletePostCommand) (struct{}, error) {
	if err := h.postsService.DeletePost(ctx, cmd.ID); err != nil {
		return struct{}{}, err
	}

	return struct{}{}, nil
}
