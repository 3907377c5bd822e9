package repos

import (
	"context"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/infrastructure"
	"github.com/throttled/throttled/v2"
)

var _ throttled.GCRAStoreCtx = (*RateLimitStore)(nil)

// RateLimitStore keeps the GCRA theoretical arrival times in KeyDB/Redis
// under "ratelimit:<client>", so all replicas draw from one budget.
type RateLimitStore struct {
	client *infrastructure.CacheClient
}

func NewRateLimitStore(client *infrastructure.CacheClient) *RateLimitStore {
	return &RateLimitStore{client: client}
}

func (*RateLimitStore) key(client string) string {
	return "ratelimit:" + client
}

// GetWithTime reports -1 for a client that has no state yet.
func (s *RateLimitStore) GetWithTime(ctx context.Context, client string) (int64, time.Time, error) {
	return s.client.GetInt64(ctx, s.key(client))
}

func (s *RateLimitStore) SetIfNotExistsWithTTL(ctx context.Context, client string, tat int64, ttl time.Duration) (bool, error) {
	return s.client.SetInt64NX(ctx, s.key(client), tat, ttl)
}

func (s *RateLimitStore) CompareAndSwapWithTTL(ctx context.Context, client string, previous, next int64, ttl time.Duration) (bool, error) {
	return s.client.CompareAndSwapInt64(ctx, s.key(client), previous, next, ttl)
}
