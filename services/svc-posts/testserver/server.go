// Package testserver runs the posts HTTP API on real backing services for
// integration testing.
package testserver

import (
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"time"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics/noop"
	inboundgrpc "github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/grpc"
	inboundhttp "github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/http"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/repos"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/search/redisearch"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	infraPostgres "github.com/architeacher/posts/services/svc-posts/internal/infrastructure/postgres"
	"github.com/architeacher/posts/services/svc-posts/internal/services"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases"
	"github.com/architeacher/posts/services/svc-posts/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	otelNoop "go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	postgresImage    = "postgres:18-alpine"
	postgresDatabase = "posts_test"
	postgresUsername = "test"
	postgresPassword = "test"
	redisStackImage  = "redis/redis-stack-server:7.4.0-v1"
	searchIndexName  = "posts_test"
	searchKeyPrefix  = "post:test:"
)

// TestServer serves the posts API over HTTP and the health service over gRPC,
// backed by PostgreSQL and RediSearch containers.
type TestServer struct {
	HTTPServer    *httptest.Server
	GRPCServer    *grpc.Server
	GRPCListener  net.Listener
	DBPool        *pgxpool.Pool
	PostsRepo     *repos.PostsRepository
	Index         *redisearch.PostIndex
	App           *usecases.Application
	Container     *postgres.PostgresContainer
	SearchBackend testcontainers.Container
	searchClient  rueidis.Client
	containerCtx  context.Context
	containerStop context.CancelFunc
}

// New starts the containers, applies the migrations and serves the API.
func New(ctx context.Context) (*TestServer, error) {
	containerCtx, containerStop := context.WithTimeout(ctx, 5*time.Minute)

	s := &TestServer{
		containerCtx:  containerCtx,
		containerStop: containerStop,
	}

	if err := s.start(); err != nil {
		s.Close()

		return nil, err
	}

	return s, nil
}

func (s *TestServer) start() error {
	container, err := postgres.Run(s.containerCtx,
		postgresImage,
		postgres.WithDatabase(postgresDatabase),
		postgres.WithUsername(postgresUsername),
		postgres.WithPassword(postgresPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return fmt.Errorf("starting postgres container: %w", err)
	}

	s.Container = container

	connStr, err := container.ConnectionString(s.containerCtx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("getting connection string: %w", err)
	}

	log := logger.NewTestLogger()

	migrator, err := infraPostgres.NewMigrator(migrations.FS, connStr, log)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}

	if err := migrator.Up(); err != nil {
		_ = migrator.Close()

		return fmt.Errorf("running migrations: %w", err)
	}

	_ = migrator.Close()

	pool, err := pgxpool.New(s.containerCtx, connStr)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}

	s.DBPool = pool

	if err := s.startSearchBackend(); err != nil {
		return err
	}

	s.PostsRepo = repos.NewPostsRepository(pool, repos.NewPgxScanner(), repos.NewCriteriaTranslator(&log), log)

	postsSvc := services.NewPostsService(s.PostsRepo, s.Index, services.WithLogger(log))
	healthSvc := services.NewHealthService(s.PostsRepo).
		WithDependency(services.DependencySearchIndex, s.Index)

	s.App = usecases.NewApplication(
		postsSvc,
		healthSvc,
		usecases.PostCache{},
		log,
		otelNoop.NewTracerProvider(),
		noop.NewMetricsClient(),
	)

	router := inboundhttp.NewRouter(inboundhttp.RouterConfig{
		App:           s.App,
		Logger:        log,
		MetricsClient: noop.NewMetricsClient(),
		Config: &config.ServiceConfig{
			HTTPServer: config.HTTPServer{
				WriteTimeout: 30 * time.Second,
				MaxBodyBytes: 1 << 20,
			},
		},
	})

	s.HTTPServer = httptest.NewServer(router)

	reporter := inboundgrpc.NewHealthReporter(healthSvc, time.Second, log)
	reporter.Refresh(s.containerCtx)

	s.GRPCServer = grpc.NewServer(grpc.ChainUnaryInterceptor(inboundgrpc.ContextExtractorInterceptor()))
	healthpb.RegisterHealthServer(s.GRPCServer, reporter.Server())

	s.GRPCListener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("creating gRPC listener: %w", err)
	}

	go s.GRPCServer.Serve(s.GRPCListener)

	return nil
}

func (s *TestServer) startSearchBackend() error {
	container, err := testcontainers.GenericContainer(s.containerCtx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisStackImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("starting redis-stack container: %w", err)
	}

	s.SearchBackend = container

	endpoint, err := container.PortEndpoint(s.containerCtx, "6379/tcp", "")
	if err != nil {
		return fmt.Errorf("getting redis-stack endpoint: %w", err)
	}

	cfg := redisearch.Config{
		Addrs:     []string{endpoint},
		IndexName: searchIndexName,
		KeyPrefix: searchKeyPrefix,
	}

	client, err := redisearch.NewClient(cfg)
	if err != nil {
		return err
	}

	s.searchClient = client
	s.Index = redisearch.NewPostIndex(client, cfg, logger.NewTestLogger())

	if err := s.Index.EnsureIndex(s.containerCtx); err != nil {
		return fmt.Errorf("creating search index: %w", err)
	}

	return nil
}

// URL returns the base URL of the HTTP API.
func (s *TestServer) URL() string {
	return s.HTTPServer.URL + "/api"
}

// GRPCAddress returns the gRPC server address.
func (s *TestServer) GRPCAddress() string {
	return s.GRPCListener.Addr().String()
}

// Reset removes every post and category and empties the search index.
func (s *TestServer) Reset(ctx context.Context) error {
	if _, err := s.DBPool.Exec(ctx, "TRUNCATE TABLE post, category RESTART IDENTITY CASCADE"); err != nil {
		return fmt.Errorf("truncating tables: %w", err)
	}

	if err := s.searchClient.Do(ctx, s.searchClient.B().Flushall().Build()).Error(); err != nil {
		return fmt.Errorf("flushing search backend: %w", err)
	}

	return s.Index.EnsureIndex(ctx)
}

// CreateCategory inserts a category and returns its id.
func (s *TestServer) CreateCategory(ctx context.Context, name, slug string) (int64, error) {
	var id int64

	err := s.DBPool.QueryRow(ctx,
		"INSERT INTO category (name, slug) VALUES ($1, $2) RETURNING id",
		name, slug,
	).Scan(&id)

	return id, err
}

// Close shuts down the servers and cleans up resources.
func (s *TestServer) Close() {
	if s.HTTPServer != nil {
		s.HTTPServer.Close()
	}

	if s.GRPCServer != nil {
		s.GRPCServer.GracefulStop()
	}

	if s.searchClient != nil {
		s.searchClient.Close()
	}

	if s.DBPool != nil {
		s.DBPool.Close()
	}

	if s.SearchBackend != nil {
		_ = s.SearchBackend.Terminate(s.containerCtx)
	}

	if s.Container != nil {
		_ = s.Container.Terminate(s.containerCtx)
	}

	if s.containerStop != nil {
		s.containerStop()
	}
}
