package ports

import (
	"context"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

//counterfeiter:generate -o ../mocks/post_cache.go . PostCache

// PostCache keeps recently read posts by id. Invalidate advances the id's
// epoch; Set is refused once the epoch differs from the one passed in.
type PostCache interface {
	Get(ctx context.Context, id int64) (*model.Post, bool, error)
	Epoch(ctx context.Context, id int64) (int64, error)
	Set(ctx context.Context, post *model.Post, epoch int64, ttl time.Duration) error
	Invalidate(ctx context.Context, id int64) error
}
