package runtime

import (
	"context"

	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/cenkalti/backoff/v5"
)

type indexPreparer interface {
	EnsureIndex(ctx context.Context) error
}

// ensureIndex creates the search index, retrying while the backend is still
// coming up.
func ensureIndex(ctx context.Context, index indexPreparer, retries uint, cfg config.Backoff) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.BaseDelay
	expBackoff.Multiplier = cfg.Multiplier
	expBackoff.RandomizationFactor = cfg.Jitter
	expBackoff.MaxInterval = cfg.MaxDelay

	operation := func() (struct{}, error) {
		return struct{}{}, index.EnsureIndex(ctx)
	}

	_, err := backoff.Retry(
		ctx,
		operation,
		backoff.WithMaxTries(retries+1),
		backoff.WithBackOff(expBackoff),
	)

	return err
}
