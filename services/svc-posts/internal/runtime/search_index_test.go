package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/stretchr/testify/require"
)

type flakyIndex struct {
	failures int
	calls    int
}

func (f *flakyIndex) EnsureIndex(context.Context) error {
	f.calls++

	if f.calls <= f.failures {
		return errors.New("connection refused")
	}

	return nil
}

func TestEnsureIndex(t *testing.T) {
	t.Parallel()

	fastBackoff := config.Backoff{
		BaseDelay:  time.Millisecond,
		Multiplier: 1.5,
		MaxDelay:   5 * time.Millisecond,
	}

	cases := []struct {
		name      string
		failures  int
		retries   uint
		wantErr   bool
		wantCalls int
	}{
		{name: "ready on first attempt", failures: 0, retries: 3, wantCalls: 1},
		{name: "ready after retries", failures: 2, retries: 3, wantCalls: 3},
		{name: "gives up after retries", failures: 10, retries: 2, wantErr: true, wantCalls: 3},
		{name: "no retries", failures: 1, retries: 0, wantErr: true, wantCalls: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			index := &flakyIndex{failures: tc.failures}

			err := ensureIndex(context.Background(), index, tc.retries, fastBackoff)

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, tc.wantCalls, index.calls)
		})
	}
}
