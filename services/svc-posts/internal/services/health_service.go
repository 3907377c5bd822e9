package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/ports"
)

const (
	DependencyPostgres    = "postgres"
	DependencySearchIndex = "search_index"
	DependencyCache       = "cache"

	defaultProbeTimeout = 3 * time.Second
)

var _ ports.HealthChecker = (*HealthService)(nil)

type (
	dependency struct {
		name     string
		checker  ports.DependencyChecker
		critical bool
	}

	// HealthService probes the primary store and the optional backing services.
	HealthService struct {
		primary      ports.DatabaseHealthChecker
		dependencies []dependency
		timeout      time.Duration
	}
)

func NewHealthService(primary ports.DatabaseHealthChecker) *HealthService {
	return &HealthService{
		primary:      primary,
		dependencies: []dependency{{name: DependencyPostgres, checker: primary, critical: true}},
		timeout:      defaultProbeTimeout,
	}
}

// WithDependency registers a non-critical dependency. A nil checker is ignored.
func (h *HealthService) WithDependency(name string, checker ports.DependencyChecker) *HealthService {
	if checker != nil {
		h.dependencies = append(h.dependencies, dependency{name: name, checker: checker})
	}

	return h
}

func (h *HealthService) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	return h.primary.Ping(ctx) == nil
}

// CheckDependencies probes every dependency concurrently.
func (h *HealthService) CheckDependencies(ctx context.Context) map[string]ports.DependencyStatus {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]ports.DependencyStatus, len(h.dependencies))
	)

	for _, dep := range h.dependencies {
		wg.Go(func() {
			status := h.probe(ctx, dep)

			mu.Lock()
			out[dep.name] = status
			mu.Unlock()
		})
	}

	wg.Wait()

	return out
}

func (h *HealthService) probe(ctx context.Context, dep dependency) ports.DependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := dep.checker.Ping(ctx)

	status := ports.DependencyStatus{
		Healthy:  err == nil,
		Critical: dep.critical,
		Latency:  fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
	}

	if err != nil {
		status.Message = err.Error()
	}

	return status
}
