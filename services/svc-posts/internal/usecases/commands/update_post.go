package commands

import (
	"context"

	"github.com/architeacher/posts/pkg/decorator"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	// UpdatePostCommand replaces the post identified by ID with Post.
	UpdatePostCommand struct {
		ID   int64
		Post *model.Post
	}

	UpdatePostCommandHandler = decorator.CommandHandler[UpdatePostCommand, *model.Post]

	updatePostCommandHandler struct {
		postsService ports.PostsService
	}
)

func NewUpdatePostCommandHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) UpdatePostCommandHandler {
	return decorator.ApplyCommandDecorators[UpdatePostCommand, *model.Post](
		updatePostCommandHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h updatePostCommandHandler) Handle(ctx context.Context, cmd UpdatePostCommand) (*model.Post, error) {
	if err := checkPathID(cmd.ID, cmd.Post.ID); err != nil {
		return nil, err
	}

	return h.postsService.UpdatePost(ctx, cmd.Post)
}
