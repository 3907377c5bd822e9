//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package ports

//counterfeiter:generate -o ../mocks/posts_service.go . PostsService

import (
	"context"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

// PostsService defines the post business operations.
type PostsService interface {
	// CreatePost stores a new post. A post that already carries an id is rejected.
	CreatePost(ctx context.Context, post *model.Post) (*model.Post, error)

	// UpdatePost fully replaces an existing post.
	UpdatePost(ctx context.Context, post *model.Post) (*model.Post, error)

	// PatchPost merges the present fields of patch into an existing post.
	PatchPost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error)

	// DeletePost removes a post by its id.
	DeletePost(ctx context.Context, id int64) error

	// GetPost retrieves a post by its id.
	GetPost(ctx context.Context, id int64) (*model.Post, error)

	// FindByCriteria returns one page of the posts matching criteria.
	FindByCriteria(ctx context.Context, criteria model.PostCriteria, pageable model.Pageable) ([]*model.Post, error)

	// CountByCriteria counts the posts matching criteria.
	CountByCriteria(ctx context.Context, criteria model.PostCriteria) (int64, error)

	// SearchPosts runs a free-text query against the search index.
	SearchPosts(ctx context.Context, query string, pageable model.Pageable) (model.SearchResult, error)

	// ReindexAll rebuilds the search index from the primary store.
	ReindexAll(ctx context.Context, batchSize uint) (int, error)
}
