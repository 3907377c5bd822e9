package http

import (
	"net/http"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	baseURL     = "/api"
	metricsPath = "/metrics"
)

type RouterConfig struct {
	App           *usecases.Application
	Logger        logger.Logger
	MetricsClient metrics.Client
	Config        *config.ServiceConfig

	// RateLimiter, when set, runs before any handler work.
	RateLimiter func(http.Handler) http.Handler
	// Idempotency, when set, wraps handlers inside compression so replays
	// are encoded per request.
	Idempotency func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()

	// Core middlewares - always applied
	router.Use(middleware.RequestTracking())
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(cfg.Logger))

	if cfg.RateLimiter != nil {
		router.Use(cfg.RateLimiter)
	}

	if cfg.Config.HTTPServer.WriteTimeout > 0 {
		router.Use(chimiddleware.Timeout(cfg.Config.HTTPServer.WriteTimeout))
	}

	if cfg.Config.Telemetry.Metrics.Enabled {
		metricsMiddleware := middleware.NewMetricsMiddleware(cfg.MetricsClient)
		router.Use(metricsMiddleware.Middleware)
		cfg.Logger.Info().Msg("HTTP metrics collection enabled")
	}

	if cfg.Config.Logging.AccessLog.Enabled {
		router.Use(middleware.AccessLog(cfg.Logger, cfg.Config.Logging.AccessLog))
	}

	router.Use(middleware.Compression(cfg.Config.Compression, cfg.Logger, cfg.MetricsClient))

	if cfg.Idempotency != nil {
		router.Use(cfg.Idempotency)
	}

	healthHandler := handlers.NewHealthHandler(cfg.App)
	router.Get("/health", healthHandler.HealthCheck)
	router.Get("/health/liveness", healthHandler.LivenessCheck)
	router.Get("/health/readiness", healthHandler.ReadinessCheck)

	if cfg.Config.Telemetry.Metrics.Enabled {
		router.Handle(metricsPath, cfg.MetricsClient.Handler())
	}

	postHandler := handlers.NewPostHandler(cfg.App, cfg.Config.HTTPServer.MaxBodyBytes)
	router.Route(baseURL, postHandler.Routes)

	if !cfg.Config.Telemetry.Traces.Enabled {
		return router
	}

	cfg.Logger.Info().Msg("distributed tracing enabled")

	return otelhttp.NewHandler(router, cfg.Config.Telemetry.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
