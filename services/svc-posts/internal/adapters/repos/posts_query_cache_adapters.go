package repos

import (
	"context"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases/queries"
)

// GetPostCacheAdapter adapts PostCache for GetPostQuery.
type GetPostCacheAdapter struct {
	cache ports.PostCache
}

// NewGetPostCacheAdapter creates a new cache adapter for GetPostQuery.
func NewGetPostCacheAdapter(cache ports.PostCache) *GetPostCacheAdapter {
	return &GetPostCacheAdapter{cache: cache}
}

// Get retrieves a post from the cache.
func (a *GetPostCacheAdapter) Get(ctx context.Context, query queries.GetPostQuery) (*model.Post, bool, error) {
	return a.cache.Get(ctx, query.ID)
}

func (a *GetPostCacheAdapter) Epoch(ctx context.Context, query queries.GetPostQuery) (int64, error) {
	return a.cache.Epoch(ctx, query.ID)
}

// Set stores a post in the cache unless it was invalidated after epoch was read.
func (a *GetPostCacheAdapter) Set(
	ctx context.Context,
	_ queries.GetPostQuery,
	result *model.Post,
	epoch int64,
	ttl time.Duration,
) error {
	return a.cache.Set(ctx, result, epoch, ttl)
}
