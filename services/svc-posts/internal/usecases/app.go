package usecases

import (
	"github.com/architeacher/posts/pkg/decorator"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases/commands"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases/queries"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Commands struct {
		CreatePost   commands.CreatePostCommandHandler
		UpdatePost   commands.UpdatePostCommandHandler
		PatchPost    commands.PatchPostCommandHandler
		DeletePost   commands.DeletePostCommandHandler
		ReindexPosts commands.ReindexPostsCommandHandler
	}

	Queries struct {
		GetPost           queries.GetPostQueryHandler
		ListPosts         queries.ListPostsQueryHandler
		CountPosts        queries.CountPostsQueryHandler
		SearchPosts       queries.SearchPostsQueryHandler
		FetchLiveness     queries.FetchLivenessQueryHandler
		FetchReadiness    queries.FetchReadinessQueryHandler
		FetchHealthReport queries.FetchHealthReportQueryHandler
	}

	Application struct {
		Commands Commands
		Queries  Queries
	}

	// PostCache is the read-through cache behind GetPost; nil disables it.
	PostCache struct {
		Cache  decorator.Cache[queries.GetPostQuery, *model.Post]
		Config decorator.CacheConfig
	}
)

func NewApplication(
	postsSvc ports.PostsService,
	healthChecker ports.HealthChecker,
	postCache PostCache,
	log logger.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient metrics.Client,
) *Application {
	return &Application{
		Commands: Commands{
			CreatePost:   commands.NewCreatePostCommandHandler(postsSvc, log, metricsClient, tracerProvider),
			UpdatePost:   commands.NewUpdatePostCommandHandler(postsSvc, log, metricsClient, tracerProvider),
			PatchPost:    commands.NewPatchPostCommandHandler(postsSvc, log, metricsClient, tracerProvider),
			DeletePost:   commands.NewDeletePostCommandHandler(postsSvc, log, metricsClient, tracerProvider),
			ReindexPosts: commands.NewReindexPostsCommandHandler(postsSvc, log, metricsClient, tracerProvider),
		},
		Queries: Queries{
			GetPost:           queries.NewGetPostQueryHandler(postsSvc, postCache.Cache, postCache.Config, log, metricsClient, tracerProvider),
			ListPosts:         queries.NewListPostsQueryHandler(postsSvc, log, metricsClient, tracerProvider),
			CountPosts:        queries.NewCountPostsQueryHandler(postsSvc, log, metricsClient, tracerProvider),
			SearchPosts:       queries.NewSearchPostsQueryHandler(postsSvc, log, metricsClient, tracerProvider),
			FetchLiveness:     queries.NewFetchLivenessQueryHandler(log, metricsClient, tracerProvider),
			FetchReadiness:    queries.NewFetchReadinessQueryHandler(healthChecker, log, metricsClient, tracerProvider),
			FetchHealthReport: queries.NewFetchHealthReportQueryHandler(healthChecker, log, metricsClient, tracerProvider),
		},
	}
}
