package queries

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
	CountPostsQuery struct {
		Criteria model.PostCriteria
	}

	CountPostsQueryHandler = decorator.QueryHandler[CountPostsQuery, int64]

	countPostsQueryHandler struct {
		postsService ports.PostsService
	}
)

func NewCountPostsQueryHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CountPostsQueryHandler {
	return decorator.ApplyQueryDecorators[CountPostsQuery, int64](
		countPostsQueryHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h countPostsQueryHandler) Execute(ctx context.Context, query CountPostsQuery) (int64, error) {
	return h.postsService.CountByCriteria(ctx, query.Criteria)
}
