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
	// PatchPostCommand merges Patch into the post identified by ID. BodyID is
	// the id carried in the request body, zero when absent.
	PatchPostCommand struct {
		ID     int64
		BodyID int64
		Patch  model.PostPatch
	}

	PatchPostCommandHandler = decorator.CommandHandler[PatchPostCommand, *model.Post]

	patchPostCommandHandler struct {
		postsService ports.PostsService
	}
)

func NewPatchPostCommandHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) PatchPostCommandHandler {
	return decorator.ApplyCommandDecorators[PatchPostCommand, *model.Post](
		patchPostCommandHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h patchPostCommandHandler) Handle(ctx context.Context, cmd PatchPostCommand) (*model.Post, error) {
	if err := checkPathID(cmd.ID, cmd.BodyID); err != nil {
		return nil, err
	}

	return h.postsService.PatchPost(ctx, cmd.ID, cmd.Patch)
}
