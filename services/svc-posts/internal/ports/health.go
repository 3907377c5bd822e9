package ports

//counterfeiter:generate -o ../mocks/health_checker.go . HealthChecker
//counterfeiter:generate -o ../mocks/database_health_checker.go . DatabaseHealthChecker

import "context"

type (
	// HealthChecker defines the interface for health check operations.
	HealthChecker interface {
		// IsHealthy reports whether the primary store answers. The service
		// keeps serving writes while the search index is down.
		IsHealthy(ctx context.Context) bool

		// CheckDependencies checks all service dependencies and returns their status.
		CheckDependencies(ctx context.Context) map[string]DependencyStatus
	}

	// DependencyStatus represents the health status of a dependency.
	DependencyStatus struct {
		Healthy  bool   `json:"healthy"`
		Critical bool   `json:"critical"`
		Message  string `json:"message,omitempty"`
		Latency  string `json:"latency,omitempty"`
	}

	// DependencyChecker probes one backing service.
	DependencyChecker interface {
		Ping(ctx context.Context) error
	}

	// DatabaseHealthChecker defines the interface for database health checks.
	DatabaseHealthChecker interface {
		// Ping checks if the database connection is alive.
		Ping(ctx context.Context) error
	}
)
