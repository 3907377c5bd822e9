package queries

import (
	"context"

	"github.com/architeacher/posts/pkg/decorator"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const metricCacheLookup = "posts_cache.lookup"

type (
	GetPostQuery struct {
		ID int64
	}

	GetPostQueryHandler = decorator.QueryHandler[GetPostQuery, *model.Post]

	getPostQueryHandler struct {
		postsService ports.PostsService
	}
)

// NewGetPostQueryHandler serves single-post reads, through cache when it is
// non-nil and enabled in cacheConfig.
func NewGetPostQueryHandler(
	svc ports.PostsService,
	cache decorator.Cache[GetPostQuery, *model.Post],
	cacheConfig decorator.CacheConfig,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetPostQueryHandler {
	recorder := func(ctx context.Context, status decorator.CacheStatus) {
		metricsClient.Inc(ctx, metricCacheLookup, 1, attribute.String("status", string(status)))
	}

	return decorator.ApplyQueryDecorators[GetPostQuery, *model.Post](
		decorator.NewQueryCachingDecorator[GetPostQuery, *model.Post](
			getPostQueryHandler{postsService: svc},
			cache,
			cacheConfig,
			recorder,
		),
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h getPostQueryHandler) Execute(ctx context.Context, query GetPostQuery) (*model.Post, error) {
	return h.postsService.GetPost(ctx, query.ID)
}
