package runtime

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates service context with default values", func(t *testing.T) {
		t.Parallel()

		serviceCtx := New()

		require.NotNil(t, serviceCtx)
		require.NotNil(t, serviceCtx.signals)
		require.Nil(t, serviceCtx.deps)
		require.Nil(t, serviceCtx.ready)
	})

	t.Run("creates service context with options", func(t *testing.T) {
		t.Parallel()

		ch := make(chan os.Signal, 1)
		serviceCtx := New(
			WithServiceTermination(ch),
			WithWaitingForServer(),
		)

		require.NotNil(t, serviceCtx)
		require.Equal(t, ch, serviceCtx.signals)
		require.NotNil(t, serviceCtx.ready)
	})
}

func TestInitializeDependencies(t *testing.T) {
	t.Parallel()

	t.Run("applies options in order", func(t *testing.T) {
		t.Parallel()

		var order []string

		deps, err := initializeDependencies(context.Background(),
			func(*dependencies) error {
				order = append(order, "first")

				return nil
			},
			func(*dependencies) error {
				order = append(order, "second")

				return nil
			},
		)

		require.NoError(t, err)
		require.NotNil(t, deps.cleanupFuncs)
		require.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("releases registered resources when an option fails", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		released := false

		deps, err := initializeDependencies(context.Background(),
			func(d *dependencies) error {
				d.cleanupFuncs["resource"] = func(context.Context) error {
					released = true

					return nil
				}

				return nil
			},
			func(*dependencies) error {
				return errBoom
			},
		)

		require.ErrorIs(t, err, errBoom)
		require.Nil(t, deps)
		require.True(t, released)
	})
}
