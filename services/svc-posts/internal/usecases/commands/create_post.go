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
	CreatePostCommand struct {
		Post *model.Post
	}

	CreatePostCommandHandler = decorator.CommandHandler[CreatePostCommand, *model.Post]

	createPostCommandHandler struct {
		postsService ports.PostsService
	}
)

func NewCreatePostCommandHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CreatePostCommandHandler {
	return decorator.ApplyCommandDecorators[CreatePostCommand, *model.Post](
		createPostCommandHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h createPostCommandHandler) Handle(ctx context.Context, cmd CreatePostCommand) (*model.Post, error) {
	return h.postsService.CreatePost(ctx, cmd.Post)
}
