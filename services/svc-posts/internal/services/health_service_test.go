package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/architeacher/posts/services/svc-posts/internal/services"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthService(t *testing.T) {
	t.Parallel()

	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name        string
		primary     pingFunc
		index       pingFunc
		wantHealthy bool
		wantIndexUp bool
	}{
		{name: "all up", primary: up, index: up, wantHealthy: true, wantIndexUp: true},
		{name: "index down keeps the service healthy", primary: up, index: down, wantHealthy: true},
		{name: "primary down", primary: down, index: up, wantIndexUp: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			health := services.NewHealthService(tc.primary).
				WithDependency(services.DependencySearchIndex, tc.index).
				WithDependency(services.DependencyCache, nil)

			ctx := context.Background()

			require.Equal(t, tc.wantHealthy, health.IsHealthy(ctx))

			deps := health.CheckDependencies(ctx)
			require.Len(t, deps, 2)

			require.True(t, deps[services.DependencyPostgres].Critical)
			require.Equal(t, tc.wantHealthy, deps[services.DependencyPostgres].Healthy)

			index := deps[services.DependencySearchIndex]
			require.False(t, index.Critical)
			require.Equal(t, tc.wantIndexUp, index.Healthy)

			if !tc.wantIndexUp {
				require.Equal(t, "connection refused", index.Message)
			}
		})
	}
}
