package grpc

import (
	"context"
	"time"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// PostsServiceName is the service name reported next to the overall "" entry.
	PostsServiceName = "posts.v1.PostsService"

	defaultHealthCheckInterval = 10 * time.Second
)

// HealthReporter keeps the standard gRPC health service in step with the
// readiness of the primary store.
type HealthReporter struct {
	server   *health.Server
	checker  ports.HealthChecker
	interval time.Duration
	logger   logger.Logger
}

func NewHealthReporter(checker ports.HealthChecker, interval time.Duration, log logger.Logger) *HealthReporter {
	if interval <= 0 {
		interval = defaultHealthCheckInterval
	}

	server := health.NewServer()
	server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	server.SetServingStatus(PostsServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthReporter{
		server:   server,
		checker:  checker,
		interval: interval,
		logger:   log.Component("grpc_health"),
	}
}

func (h *HealthReporter) Server() healthpb.HealthServer {
	return h.server
}

// Refresh probes once and publishes the result.
func (h *HealthReporter) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if !h.checker.IsHealthy(ctx) {
		status = healthpb.HealthCheckResponse_NOT_SERVING

		h.logger.Warn().Msg("primary store unreachable, reporting NOT_SERVING")
	}

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(PostsServiceName, status)

	return status
}

// Run refreshes the status every interval until ctx is done, then marks
// every service NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()

			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
