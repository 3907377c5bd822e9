package ports

import (
	"context"
	"time"
)

//counterfeiter:generate -o ../mocks/idempotency_store.go . IdempotencyStore

type (
	// StoredResponse is a completed response kept for replay.
	StoredResponse struct {
		StatusCode  int                 `json:"status_code"`
		Headers     map[string][]string `json:"headers"`
		Body        []byte              `json:"body"`
		Fingerprint string              `json:"fingerprint"`
		CreatedAt   time.Time           `json:"created_at"`
	}

	// IdempotencyStore remembers responses to requests sent with an
	// Idempotency-Key header.
	IdempotencyStore interface {
		// Get returns nil, nil when nothing is stored under key.
		Get(ctx context.Context, key string) (*StoredResponse, error)

		Set(ctx context.Context, key string, response *StoredResponse, ttl time.Duration) error

		// Lock reports false while another request holds key.
		Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)

		Unlock(ctx context.Context, key string) error
	}
)
