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
	SearchPostsQuery struct {
		Query    string
		Pageable model.Pageable
	}

	SearchPostsQueryHandler = decorator.QueryHandler[SearchPostsQuery, model.SearchResult]

	searchPostsQueryHandler struct {
		postsService ports.PostsService
	}
)

func NewSearchPostsQueryHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) SearchPostsQueryHandler {
	return decorator.ApplyQueryDecorators[SearchPostsQuery, model.SearchResult](
		searchPostsQueryHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h searchPostsQueryHandler) Execute(ctx context.Context, query SearchPostsQuery) (model.SearchResult, error) {
	return h.postsService.SearchPosts(ctx, query.Query, query.Pageable)
}
