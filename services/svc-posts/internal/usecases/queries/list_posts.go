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
	ListPostsQuery struct {
		Criteria model.PostCriteria
		Pageable model.Pageable
	}

	// PostPage is one page of matches and the number of matches overall.
	PostPage struct {
		Posts []*model.Post
		Total int64
	}

	ListPostsQueryHandler = decorator.QueryHandler[ListPostsQuery, *PostPage]

	listPostsQueryHandler struct {
		postsService ports.PostsService
	}
)

func NewListPostsQueryHandler(
	svc ports.PostsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) ListPostsQueryHandler {
	return decorator.ApplyQueryDecorators[ListPostsQuery, *PostPage](
		listPostsQueryHandler{postsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h listPostsQueryHandler) Execute(ctx context.Context, query ListPostsQuery) (*PostPage, error) {
	posts, err := h.postsService.FindByCriteria(ctx, query.Criteria, query.Pageable)
	if err != nil {
		return nil, err
	}

	total, err := h.postsService.CountByCriteria(ctx, query.Criteria)
	if err != nil {
		return nil, err
	}

	return &PostPage{Posts: posts, Total: total}, nil
}
