package runtime

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/architeacher/posts/pkg/circuitbreaker"
	"github.com/architeacher/posts/pkg/decorator"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics/noop"
	"github.com/architeacher/posts/pkg/metrics/prom"
	inboundgrpc "github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/grpc"
	inboundhttp "github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/http"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/repos"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/search/elastic"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/search/redisearch"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/architeacher/posts/services/svc-posts/internal/infrastructure"
	infraPostgres "github.com/architeacher/posts/services/svc-posts/internal/infrastructure/postgres"
	"github.com/architeacher/posts/services/svc-posts/internal/services"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases"
	"github.com/architeacher/posts/services/svc-posts/migrations"
	"github.com/hashicorp/vault/api"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const metricsNamespace = "posts"

// defaultOptions builds everything the posts use cases need. Inbound servers
// are added on top by serverOptions.
func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithSecretsRepository(),
		WithConfigLoader(ctx),
		WithLogger(),
		WithTracing(),
		WithMetrics(),
		WithDatabase(ctx),
		WithSchemaMigrations(),
		WithPostsRepository(),
		WithSearchIndex(ctx),
		WithPostsCache(),
		WithPostsService(),
		WithHealthService(),
		WithApplication(),
	}
}

func serverOptions() []DependencyOption {
	return []DependencyOption{
		WithRateLimiter(),
		WithIdempotency(),
		WithHTTPServer(),
		WithGRPCServer(),
	}
}

// configOptions is the minimal set for commands that only need the settings.
func configOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithSecretsRepository(),
		WithConfigLoader(ctx),
		WithLogger(),
	}
}

func WithConfig() DependencyOption {
	return func(d *dependencies) error {
		cfg, err := config.Init()
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}

		d.config = cfg

		return nil
	}
}

func WithSecretsRepository() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SecretsStorage.Enabled {
			return nil
		}

		vaultConfig := api.DefaultConfig()
		vaultConfig.Address = d.config.SecretsStorage.Address
		vaultConfig.Timeout = d.config.SecretsStorage.Timeout
		vaultConfig.MaxRetries = int(d.config.SecretsStorage.MaxRetries)

		if d.config.SecretsStorage.TLSSkipVerify {
			vaultConfig.HttpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}

		client, err := api.NewClient(vaultConfig)
		if err != nil {
			return fmt.Errorf("creating Vault client: %w", err)
		}

		if d.config.SecretsStorage.Namespace != "" {
			client.SetNamespace(d.config.SecretsStorage.Namespace)
		}

		d.repos.secretsRepo = repos.NewVaultRepository(client)

		return nil
	}
}

func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if d.repos.secretsRepo == nil {
			return nil
		}

		loader := config.NewLoader(d.config, d.repos.secretsRepo, 0)

		if _, err := loader.Load(ctx); err != nil {
			return fmt.Errorf("loading secrets from Vault: %w", err)
		}

		d.configLoader = loader

		return nil
	}
}

func WithLogger() DependencyOption {
	return func(d *dependencies) error {
		d.infra.logger = logger.New(d.config.Logging.Level, d.config.Logging.Format)

		return nil
	}
}

func WithTracing() DependencyOption {
	return func(d *dependencies) error {
		telemetry := d.config.Telemetry
		exporterNeedsEndpoint := strings.EqualFold(telemetry.ExporterType, infrastructure.ExporterTypeGRPC)

		if !telemetry.Traces.Enabled || exporterNeedsEndpoint && telemetry.OTLPEndpoint == "" {
			d.infra.tracerProvider = infrastructure.NewNoopTracerProvider()

			return nil
		}

		tp, shutdown, err := infrastructure.NewTracerProvider(telemetry,
			attribute.String("deployment.environment.name", d.config.App.Env.Name),
		)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}

		d.infra.tracerProvider = tp
		d.cleanupFuncs["tracer"] = shutdown

		return nil
	}
}

func WithMetrics() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Metrics.Enabled {
			d.infra.metricsClient = noop.NewMetricsClient()

			return nil
		}

		client := prom.NewClient(metricsNamespace)

		d.infra.metricsClient = client
		d.cleanupFuncs["metrics"] = client.Shutdown

		return nil
	}
}

func WithDatabase(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		pool, err := infraPostgres.NewPool(ctx, d.config.Database, d.infra.logger)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}

		d.infra.dbPool = pool
		d.cleanupFuncs["database"] = func(context.Context) error {
			pool.Close()

			return nil
		}

		return nil
	}
}

// WithSchemaMigrations applies pending migrations when auto-migrate is on.
func WithSchemaMigrations() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Database.AutoMigrate {
			return nil
		}

		migrator, err := newMigrator(d)
		if err != nil {
			return err
		}

		defer func() {
			if err := migrator.Close(); err != nil {
				d.infra.logger.Warn().Err(err).Msg("failed to close migrator")
			}
		}()

		return migrator.Up()
	}
}

func WithPostsRepository() DependencyOption {
	return func(d *dependencies) error {
		log := d.infra.logger.Component("posts_repository")

		d.repos.postsRepo = repos.NewPostsRepository(
			d.infra.dbPool,
			repos.NewPgxScanner(),
			repos.NewCriteriaTranslator(&log),
			log,
		)

		return nil
	}
}

// WithSearchIndex connects the configured search backend. An index that
// cannot be prepared does not stop the service: writes keep landing in the
// primary store and the health report shows the index as down.
func WithSearchIndex(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		cfg := d.config.Search
		log := d.infra.logger.Component("search_index")

		switch strings.ToLower(cfg.Backend) {
		case config.SearchBackendRediSearch:
			rsConfig := redisearch.Config{
				Addrs:     cfg.Addresses,
				Username:  cfg.Username,
				Password:  cfg.Password,
				DB:        cfg.DB,
				IndexName: cfg.Index,
				KeyPrefix: cfg.KeyPrefix,
			}

			client, err := redisearch.NewClient(rsConfig)
			if err != nil {
				return fmt.Errorf("connecting to redisearch: %w", err)
			}

			d.cleanupFuncs["search_index"] = func(context.Context) error {
				client.Close()

				return nil
			}

			d.repos.postsIndex = redisearch.NewPostIndex(client, rsConfig, log)
		default:
			index, err := elastic.NewPostIndex(elastic.Config{
				Addresses: cfg.Addresses,
				Username:  cfg.Username,
				Password:  cfg.Password,
				Index:     cfg.Index,
				Refresh:   cfg.Refresh,
			}, log)
			if err != nil {
				return fmt.Errorf("creating elasticsearch client: %w", err)
			}

			d.repos.postsIndex = index
		}

		if err := ensureIndex(ctx, d.repos.postsIndex, cfg.ConnectRetries, d.config.Backoff); err != nil {
			log.Error().
				Err(err).
				Str("backend", cfg.Backend).
				Msg("search index is not ready, continuing without it")
		}

		return nil
	}
}

func WithPostsCache() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.PostsCache.Enabled {
			return nil
		}

		d.repos.postsCache = repos.NewPostsCacheRepository(d.sharedCacheClient(), d.infra.logger.Component("posts_cache"))

		return nil
	}
}

// WithRateLimiter keeps GCRA state in process unless the shared cache store
// is selected.
func WithRateLimiter() DependencyOption {
	return func(d *dependencies) error {
		cfg := d.config.RateLimit
		if !cfg.Enabled {
			return nil
		}

		var store throttled.GCRAStoreCtx

		switch strings.ToLower(cfg.Store) {
		case config.RateLimitStoreCache:
			store = repos.NewRateLimitStore(d.sharedCacheClient())
		default:
			memStore, err := memstore.NewCtx(int(cfg.MaxKeys))
			if err != nil {
				return fmt.Errorf("failed to create rate limit store: %w", err)
			}

			store = memStore
		}

		limiter, err := middleware.RateLimiting(cfg, store, d.infra.logger.Component("rate_limit"))
		if err != nil {
			return err
		}

		d.infra.rateLimiter = limiter

		d.infra.logger.Info().
			Str("store", cfg.Store).
			Uint("requests_per_second", cfg.RequestsPerSecond).
			Uint("burst", cfg.BurstSize).
			Msg("rate limiting enabled")

		return nil
	}
}

func WithIdempotency() DependencyOption {
	return func(d *dependencies) error {
		cfg := d.config.Idempotency
		if !cfg.Enabled {
			return nil
		}

		store := repos.NewIdempotencyRepository(d.sharedCacheClient())

		d.infra.idempotency = middleware.Idempotency(
			store,
			cfg,
			d.config.HTTPServer.MaxBodyBytes,
			d.infra.logger.Component("idempotency"),
		)

		d.infra.logger.Info().
			Strs("methods", cfg.Methods).
			Dur("cache_ttl", cfg.CacheTTL).
			Msg("idempotency keys enabled")

		return nil
	}
}

func WithPostsService() DependencyOption {
	return func(d *dependencies) error {
		cbConfig := d.config.CircuitBreaker
		log := d.infra.logger

		breaker := circuitbreaker.New[struct{}](circuitbreaker.Config{
			Name:             "search_index",
			Enabled:          cbConfig.Enabled,
			MaxRequests:      cbConfig.MaxRequests,
			Interval:         cbConfig.Interval,
			Timeout:          cbConfig.Timeout,
			FailureThreshold: cbConfig.FailureThreshold,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", string(from)).
					Str("to", string(to)).
					Msg("circuit breaker state changed")
			},
		})

		opts := []services.Option{
			services.WithCircuitBreaker(breaker),
			services.WithMetrics(d.infra.metricsClient),
			services.WithLogger(log),
			services.WithWriteTimeout(d.config.Search.WriteTimeout),
		}

		if d.repos.postsCache != nil {
			opts = append(opts, services.WithCache(d.repos.postsCache))
		}

		d.services.posts = services.NewPostsService(d.repos.postsRepo, d.repos.postsIndex, opts...)

		return nil
	}
}

func WithHealthService() DependencyOption {
	return func(d *dependencies) error {
		health := services.NewHealthService(d.repos.postsRepo).
			WithDependency(services.DependencySearchIndex, d.repos.postsIndex)

		if d.infra.cacheClient != nil {
			health = health.WithDependency(services.DependencyCache, d.infra.cacheClient)
		}

		d.services.health = health

		return nil
	}
}

func WithApplication() DependencyOption {
	return func(d *dependencies) error {
		var postCache usecases.PostCache

		if d.repos.postsCache != nil {
			postCache = usecases.PostCache{
				Cache: repos.NewGetPostCacheAdapter(d.repos.postsCache),
				Config: decorator.CacheConfig{
					Enabled: true,
					TTL:     d.config.PostsCache.PostTTL,
				},
			}
		}

		d.app = usecases.NewApplication(
			d.services.posts,
			d.services.health,
			postCache,
			d.infra.logger,
			d.infra.tracerProvider,
			d.infra.metricsClient,
		)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *dependencies) error {
		router := inboundhttp.NewRouter(inboundhttp.RouterConfig{
			App:           d.app,
			Logger:        d.infra.logger,
			MetricsClient: d.infra.metricsClient,
			Config:        d.config,
			RateLimiter:   d.infra.rateLimiter,
			Idempotency:   d.infra.idempotency,
		})

		cfg := d.config.HTTPServer

		d.infra.httpServer = &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10)),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}

		return nil
	}
}

func WithGRPCServer() DependencyOption {
	return func(d *dependencies) error {
		cfg := d.config.GRPCServer

		opts := []grpc.ServerOption{
			grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
			grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
			grpc.ChainUnaryInterceptor(
				inboundgrpc.ContextExtractorInterceptor(),
				inboundgrpc.AccessLogInterceptor(d.infra.logger, d.config.Logging.AccessLog),
			),
		}

		if d.config.Telemetry.Traces.Enabled {
			opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler(
				otelgrpc.WithTracerProvider(d.infra.tracerProvider),
			)))
		}

		server := grpc.NewServer(opts...)

		reporter := inboundgrpc.NewHealthReporter(d.services.health, cfg.HealthCheckInterval, d.infra.logger)
		healthpb.RegisterHealthServer(server, reporter.Server())

		reflection.Register(server)

		d.infra.grpcServer = server
		d.infra.healthReporter = reporter

		return nil
	}
}

// sharedCacheClient connects to KeyDB/Redis once for every component that
// needs it.
func (d *dependencies) sharedCacheClient() *infrastructure.CacheClient {
	if d.infra.cacheClient != nil {
		return d.infra.cacheClient
	}

	client := infrastructure.NewCacheClient(d.config.Cache, d.infra.logger)

	d.infra.cacheClient = client
	d.cleanupFuncs["cache"] = func(context.Context) error {
		return client.Close()
	}

	return client
}

func newMigrator(d *dependencies) (*infraPostgres.Migrator, error) {
	migrator, err := infraPostgres.NewMigrator(migrations.FS, d.config.Database.DSN(), d.infra.logger)
	if err != nil {
		return nil, fmt.Errorf("preparing schema migrations: %w", err)
	}

	return migrator, nil
}
