package queries

import (
	"context"
	"time"

	"github.com/architeacher/posts/pkg/decorator"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	otelTrace "go.opentelemetry.io/otel/trace"
)

// Overall states of the health report.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
)

type (
	FetchLivenessQuery     struct{}
	FetchReadinessQuery    struct{}
	FetchHealthReportQuery struct{}

	LivenessResult struct {
		Status string `json:"status"`
	}

	ReadinessResult struct {
		Status string `json:"status"`
		Ready  bool   `json:"ready"`
	}

	HealthResult struct {
		Status       string                            `json:"status"`
		Version      string                            `json:"version"`
		Uptime       string                            `json:"uptime"`
		Dependencies map[string]ports.DependencyStatus `json:"dependencies"`
	}

	FetchLivenessQueryHandler     = decorator.QueryHandler[FetchLivenessQuery, *LivenessResult]
	FetchReadinessQueryHandler    = decorator.QueryHandler[FetchReadinessQuery, *ReadinessResult]
	FetchHealthReportQueryHandler = decorator.QueryHandler[FetchHealthReportQuery, *HealthResult]

	livenessProbe struct{}

	readinessProbe struct {
		checker ports.HealthChecker
	}

	healthReport struct {
		checker   ports.HealthChecker
		startedAt time.Time
	}
)

func NewFetchLivenessQueryHandler(
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchLivenessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchLivenessQuery, *LivenessResult](
		livenessProbe{}, log, metricsClient, tracerProvider,
	)
}

func NewFetchReadinessQueryHandler(
	checker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchReadinessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchReadinessQuery, *ReadinessResult](
		readinessProbe{checker: checker}, log, metricsClient, tracerProvider,
	)
}

func NewFetchHealthReportQueryHandler(
	checker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchHealthReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchHealthReportQuery, *HealthResult](
		healthReport{checker: checker, startedAt: time.Now()}, log, metricsClient, tracerProvider,
	)
}

// Execute answers as long as the process can run handlers at all.
func (livenessProbe) Execute(context.Context, FetchLivenessQuery) (*LivenessResult, error) {
	return &LivenessResult{Status: "ok"}, nil
}

// Execute follows the primary store only; a missing search index does not
// take the service out of rotation.
func (p readinessProbe) Execute(ctx context.Context, _ FetchReadinessQuery) (*ReadinessResult, error) {
	if p.checker.IsHealthy(ctx) {
		return &ReadinessResult{Status: "ok", Ready: true}, nil
	}

	return &ReadinessResult{Status: "unavailable"}, nil
}

func (r healthReport) Execute(ctx context.Context, _ FetchHealthReportQuery) (*HealthResult, error) {
	dependencies := r.checker.CheckDependencies(ctx)

	return &HealthResult{
		Status:       overallStatus(dependencies),
		Version:      config.ServiceVersion,
		Uptime:       time.Since(r.startedAt).Round(time.Second).String(),
		Dependencies: dependencies,
	}, nil
}

// overallStatus is unhealthy once a critical dependency fails and degraded
// while only optional ones do.
func overallStatus(dependencies map[string]ports.DependencyStatus) string {
	status := HealthStatusHealthy

	for _, dep := range dependencies {
		switch {
		case dep.Healthy:
		case dep.Critical:
			return HealthStatusUnhealthy
		default:
			status = HealthStatusDegraded
		}
	}

	return status
}
