package runtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	inboundgrpc "github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/grpc"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/repos"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/architeacher/posts/services/svc-posts/internal/infrastructure"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases"
	"github.com/jackc/pgx/v5/pgxpool"
	otelTrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

type (
	infrastructureDep struct {
		httpServer     *http.Server
		grpcServer     *grpc.Server
		healthReporter *inboundgrpc.HealthReporter
		tracerProvider otelTrace.TracerProvider
		metricsClient  metrics.Client
		logger         logger.Logger
		dbPool         *pgxpool.Pool
		cacheClient    *infrastructure.CacheClient
		rateLimiter    func(http.Handler) http.Handler
		idempotency    func(http.Handler) http.Handler
	}

	repositories struct {
		secretsRepo ports.SecretsRepository
		postsRepo   ports.PostRepository
		postsIndex  ports.PostSearchIndex
		postsCache  *repos.PostsCacheRepository
	}

	servicesDep struct {
		posts  ports.PostsService
		health ports.HealthChecker
	}

	dependencies struct {
		config       *config.ServiceConfig
		configLoader *config.Loader

		infra infrastructureDep

		repos repositories

		services servicesDep

		app *usecases.Application

		cleanupFuncs map[string]func(ctx context.Context) error
	}

	DependencyOption func(*dependencies) error
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*dependencies, error) {
	deps := &dependencies{
		cleanupFuncs: make(map[string]func(ctx context.Context) error),
	}

	for _, opt := range opts {
		if err := opt(deps); err != nil {
			deps.cleanup(ctx)

			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	return deps, nil
}

// cleanup releases every registered resource. It is safe on partially
// built dependencies.
func (d *dependencies) cleanup(ctx context.Context) {
	for resource, cleanupFn := range d.cleanupFuncs {
		if err := cleanupFn(ctx); err != nil {
			d.infra.logger.Error().
				Err(err).
				Str("resource", resource).
				Msg("failed to shutdown the resource gracefully")
		}
	}

	clear(d.cleanupFuncs)
}
